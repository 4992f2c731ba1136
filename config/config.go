package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

type Config struct {
	RPCAddress   string `toml:"RPCAddress"`
	DataDir      string `toml:"DataDir"`
	AdminAddress string `toml:"AdminAddress"`
	NetworkName  string `toml:"NetworkName"`
	LogFile      string `toml:"LogFile"`
}

// Load loads the configuration from the given path, creating a default file
// when none exists yet.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.RPCAddress) == "" {
		cfg.RPCAddress = ":8645"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./drop-data"
	}
	if strings.TrimSpace(cfg.NetworkName) == "" {
		cfg.NetworkName = "drop-local"
	}
	if trimmed := strings.TrimSpace(cfg.AdminAddress); trimmed != "" {
		if _, err := parseAddress(trimmed); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
	}

	return cfg, nil
}

// Admin returns the configured administrator address. An unset address is an
// operator error surfaced here rather than at claim time.
func (c *Config) Admin() ([20]byte, error) {
	trimmed := strings.TrimSpace(c.AdminAddress)
	if trimmed == "" {
		return [20]byte{}, fmt.Errorf("config: AdminAddress is required")
	}
	return parseAddress(trimmed)
}

func parseAddress(value string) ([20]byte, error) {
	var out [20]byte
	cleaned := strings.TrimPrefix(strings.TrimPrefix(value, "0x"), "0X")
	if len(cleaned) != 40 {
		return out, fmt.Errorf("admin address must be 20 bytes of hex")
	}
	decoded, err := hex.DecodeString(cleaned)
	if err != nil {
		return out, fmt.Errorf("admin address is not valid hex: %w", err)
	}
	copy(out[:], decoded)
	if out == ([20]byte{}) {
		return out, fmt.Errorf("admin address must not be zero")
	}
	return out, nil
}

// createDefault creates and saves a default configuration file. The operator
// still has to fill in AdminAddress before lifecycle operations work.
func createDefault(path string) (*Config, error) {
	cfg := &Config{
		RPCAddress:  ":8645",
		DataDir:     "./drop-data",
		NetworkName: "drop-local",
	}

	if err := persist(path, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
