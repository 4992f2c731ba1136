package state

import (
	"errors"
	"fmt"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"merkledrop/native/airdrop"
	"merkledrop/storage"
)

// ErrInsufficientBalance is returned when a debit would drive a ledger
// balance negative.
var ErrInsufficientBalance = errors.New("state: insufficient balance")

var (
	airdropRecordPrefix  = []byte("airdrop/record/")
	airdropClaimedPrefix = []byte("airdrop/claimed/")
	airdropSequenceSeed  = []byte("airdrop/sequence")
	balancePrefix        = []byte("airdrop/balance/")
	poolSeedPrefix       = []byte("airdrop/pool/")
)

// Manager exposes the campaign store and token ledger over a raw key-value
// database. All keys are keccak-derived from typed prefixes so unrelated
// records can never collide.
type Manager struct {
	db storage.Database
}

// NewManager wraps the supplied database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

func hashKey(parts ...[]byte) []byte {
	return ethcrypto.Keccak256(parts...)
}

func (m *Manager) loadBigInt(key []byte) (*big.Int, error) {
	data, err := m.db.Get(key)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return big.NewInt(0), nil
	}
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(data), nil
}

func (m *Manager) writeBigInt(key []byte, value *big.Int) error {
	if value == nil || value.Sign() < 0 {
		return fmt.Errorf("state: refusing to store negative value")
	}
	return m.db.Put(key, value.Bytes())
}

func balanceKey(token string, addr [20]byte) []byte {
	return hashKey(balancePrefix, []byte(token), addr[:])
}

// BalanceOf returns the ledger balance held by addr in the given token.
func (m *Manager) BalanceOf(token string, addr [20]byte) (*big.Int, error) {
	normalized, err := airdrop.NormalizeToken(token)
	if err != nil {
		return nil, err
	}
	return m.loadBigInt(balanceKey(normalized, addr))
}

// Credit adds amount to the balance held by addr.
func (m *Manager) Credit(token string, addr [20]byte, amount *big.Int) error {
	normalized, err := airdrop.NormalizeToken(token)
	if err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return airdrop.ErrInvalidAmount
	}
	key := balanceKey(normalized, addr)
	current, err := m.loadBigInt(key)
	if err != nil {
		return err
	}
	return m.writeBigInt(key, new(big.Int).Add(current, amount))
}

// Debit removes amount from the balance held by addr, failing with
// ErrInsufficientBalance rather than going negative.
func (m *Manager) Debit(token string, addr [20]byte, amount *big.Int) error {
	normalized, err := airdrop.NormalizeToken(token)
	if err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return airdrop.ErrInvalidAmount
	}
	key := balanceKey(normalized, addr)
	current, err := m.loadBigInt(key)
	if err != nil {
		return err
	}
	if current.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	return m.writeBigInt(key, new(big.Int).Sub(current, amount))
}

// Transfer atomically moves amount between two ledger accounts, undoing the
// debit if the credit cannot be persisted.
func (m *Manager) Transfer(token string, from, to [20]byte, amount *big.Int) error {
	if err := m.Debit(token, from, amount); err != nil {
		if errors.Is(err, ErrInsufficientBalance) {
			return airdrop.ErrInsufficientFunds
		}
		return err
	}
	if err := m.Credit(token, to, amount); err != nil {
		if restoreErr := m.Credit(token, from, amount); restoreErr != nil {
			return errors.Join(err, fmt.Errorf("state: rollback transfer: %w", restoreErr))
		}
		return err
	}
	return nil
}

// AirdropPoolAddress derives the deterministic vault address holding a
// campaign pool for the given token.
func (m *Manager) AirdropPoolAddress(token string) ([20]byte, error) {
	normalized, err := airdrop.NormalizeToken(token)
	if err != nil {
		return [20]byte{}, err
	}
	digest := hashKey(poolSeedPrefix, []byte(normalized))
	var addr [20]byte
	copy(addr[:], digest[12:])
	return addr, nil
}
