package state

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"

	"merkledrop/native/airdrop"
	"merkledrop/storage"
)

func airdropRecordKey(id uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], id)
	return hashKey(airdropRecordPrefix, buf[:])
}

func airdropClaimedKey(id uint64, recipient [20]byte) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], id)
	return hashKey(airdropClaimedPrefix, buf[:], recipient[:])
}

func airdropSequenceKey() []byte {
	return hashKey(airdropSequenceSeed)
}

// storedAirdrop is the RLP wire form of a campaign. Signed timestamps are
// widened to big.Int because RLP has no signed integer encoding.
type storedAirdrop struct {
	ID             uint64
	Token          string
	Root           [32]byte
	TotalAllocated *big.Int
	TotalClaimed   *big.Int
	TotalSwept     *big.Int
	FeeBps         uint32
	EndTime        *big.Int
	CreatedAt      *big.Int
	Name           string
	Funder         [20]byte
}

func newStoredAirdrop(c *airdrop.Campaign) *storedAirdrop {
	if c == nil {
		return nil
	}
	return &storedAirdrop{
		ID:             c.ID,
		Token:          c.Token,
		Root:           c.Root,
		TotalAllocated: bigOrZero(c.TotalAllocated),
		TotalClaimed:   bigOrZero(c.TotalClaimed),
		TotalSwept:     bigOrZero(c.TotalSwept),
		FeeBps:         c.FeeBps,
		EndTime:        big.NewInt(c.EndTime),
		CreatedAt:      big.NewInt(c.CreatedAt),
		Name:           c.Name,
		Funder:         c.Funder,
	}
}

func (s *storedAirdrop) toCampaign() (*airdrop.Campaign, error) {
	if s == nil {
		return nil, fmt.Errorf("state: nil airdrop record")
	}
	out := &airdrop.Campaign{
		ID:             s.ID,
		Token:          s.Token,
		Root:           s.Root,
		TotalAllocated: bigOrZero(s.TotalAllocated),
		TotalClaimed:   bigOrZero(s.TotalClaimed),
		TotalSwept:     bigOrZero(s.TotalSwept),
		FeeBps:         s.FeeBps,
		Name:           s.Name,
		Funder:         s.Funder,
	}
	if s.EndTime != nil {
		out.EndTime = s.EndTime.Int64()
	}
	if s.CreatedAt != nil {
		out.CreatedAt = s.CreatedAt.Int64()
	}
	return airdrop.SanitizeCampaign(out)
}

func bigOrZero(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

// NextAirdropID returns the next dense sequential campaign identifier and
// advances the allocator. Identifiers start at 0 and are never reused.
func (m *Manager) NextAirdropID() (uint64, error) {
	key := airdropSequenceKey()
	current, err := m.loadBigInt(key)
	if err != nil {
		return 0, err
	}
	if current.BitLen() > 63 {
		return 0, fmt.Errorf("state: airdrop sequence overflow")
	}
	id := current.Uint64()
	if err := m.writeBigInt(key, new(big.Int).SetUint64(id+1)); err != nil {
		return 0, err
	}
	return id, nil
}

// RevertAirdropID winds the allocator back after a failed creation so
// identifiers stay dense. Best effort.
func (m *Manager) RevertAirdropID(id uint64) {
	_ = m.writeBigInt(airdropSequenceKey(), new(big.Int).SetUint64(id))
}

// AirdropCount reports how many campaigns have been created.
func (m *Manager) AirdropCount() (uint64, error) {
	current, err := m.loadBigInt(airdropSequenceKey())
	if err != nil {
		return 0, err
	}
	return current.Uint64(), nil
}

// AirdropPut persists the campaign record, sanitizing it first.
func (m *Manager) AirdropPut(c *airdrop.Campaign) error {
	sanitized, err := airdrop.SanitizeCampaign(c)
	if err != nil {
		return err
	}
	encoded, err := rlp.EncodeToBytes(newStoredAirdrop(sanitized))
	if err != nil {
		return err
	}
	return m.db.Put(airdropRecordKey(sanitized.ID), encoded)
}

// AirdropGet loads the campaign record with the given identifier.
func (m *Manager) AirdropGet(id uint64) (*airdrop.Campaign, bool) {
	data, err := m.db.Get(airdropRecordKey(id))
	if err != nil || len(data) == 0 {
		return nil, false
	}
	stored := new(storedAirdrop)
	if err := rlp.DecodeBytes(data, stored); err != nil {
		return nil, false
	}
	record, err := stored.toCampaign()
	if err != nil {
		return nil, false
	}
	return record, true
}

// AirdropList returns every stored campaign in creation order.
func (m *Manager) AirdropList() ([]*airdrop.Campaign, error) {
	count, err := m.AirdropCount()
	if err != nil {
		return nil, err
	}
	out := make([]*airdrop.Campaign, 0, count)
	for id := uint64(0); id < count; id++ {
		record, ok := m.AirdropGet(id)
		if !ok {
			// Gaps can only appear when a creation aborted after
			// advancing the allocator; skip them.
			continue
		}
		out = append(out, record)
	}
	return out, nil
}

// AirdropSetClaimed permanently flags the recipient as claimed for the
// campaign.
func (m *Manager) AirdropSetClaimed(id uint64, recipient [20]byte) error {
	return m.db.Put(airdropClaimedKey(id, recipient), []byte{1})
}

// AirdropClearClaimed removes the claimed flag. It exists solely for the
// engine's rollback path when a payout transfer fails mid-claim.
func (m *Manager) AirdropClearClaimed(id uint64, recipient [20]byte) error {
	return m.db.Delete(airdropClaimedKey(id, recipient))
}

// AirdropIsClaimed reports whether the recipient has claimed from the
// campaign. Absent flags read as false.
func (m *Manager) AirdropIsClaimed(id uint64, recipient [20]byte) (bool, error) {
	data, err := m.db.Get(airdropClaimedKey(id, recipient))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return len(data) == 1 && data[0] == 1, nil
}
