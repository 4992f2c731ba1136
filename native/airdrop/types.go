package airdrop

import (
	"fmt"
	"math/big"
	"strings"
)

// FeeBpsDenominator is the precision of the per-claim fee rate. A FeeBps of
// 10_000 corresponds to 100% of the gross claim.
const FeeBpsDenominator = 10_000

// Campaign captures a single airdrop round. The recipient set is not stored;
// it is committed to by Root, the Merkle root built offline over every
// (recipient, amount) leaf.
type Campaign struct {
	ID             uint64
	Token          string
	Root           [32]byte
	TotalAllocated *big.Int
	TotalClaimed   *big.Int
	TotalSwept     *big.Int
	FeeBps         uint32
	EndTime        int64
	CreatedAt      int64
	Name           string
	Funder         [20]byte
}

// Clone returns a deep copy of the campaign so callers can safely mutate the
// copy without affecting the stored instance.
func (c *Campaign) Clone() *Campaign {
	if c == nil {
		return nil
	}
	clone := *c
	clone.TotalAllocated = cloneBigInt(c.TotalAllocated)
	clone.TotalClaimed = cloneBigInt(c.TotalClaimed)
	clone.TotalSwept = cloneBigInt(c.TotalSwept)
	return &clone
}

// Remaining reports the portion of the allocation that has neither been paid
// out nor swept back to the funder.
func (c *Campaign) Remaining() *big.Int {
	if c == nil {
		return big.NewInt(0)
	}
	remaining := cloneBigInt(c.TotalAllocated)
	remaining.Sub(remaining, cloneBigInt(c.TotalClaimed))
	remaining.Sub(remaining, cloneBigInt(c.TotalSwept))
	if remaining.Sign() < 0 {
		return big.NewInt(0)
	}
	return remaining
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

// NormalizeToken validates the distributed asset symbol and returns its
// canonical uppercase form. Symbols are opaque to the ledger beyond this
// shape check.
func NormalizeToken(symbol string) (string, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(symbol))
	if trimmed == "" || len(trimmed) > 16 {
		return "", ErrInvalidToken
	}
	for _, r := range trimmed {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return "", ErrInvalidToken
		}
	}
	return trimmed, nil
}

// SanitizeCampaign validates and normalises the supplied campaign, returning a
// cloned instance with canonical token casing and non-nil amount fields. The
// function does not mutate the original value.
func SanitizeCampaign(c *Campaign) (*Campaign, error) {
	if c == nil {
		return nil, fmt.Errorf("airdrop: nil campaign")
	}
	clone := c.Clone()
	token, err := NormalizeToken(clone.Token)
	if err != nil {
		return nil, err
	}
	clone.Token = token
	if clone.Root == ([32]byte{}) {
		return nil, ErrInvalidRoot
	}
	if clone.TotalAllocated.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	if clone.TotalClaimed.Sign() < 0 || clone.TotalSwept.Sign() < 0 {
		return nil, fmt.Errorf("airdrop: negative campaign totals")
	}
	if clone.FeeBps > FeeBpsDenominator {
		return nil, ErrInvalidFee
	}
	if strings.TrimSpace(clone.Name) == "" {
		return nil, ErrInvalidName
	}
	return clone, nil
}
