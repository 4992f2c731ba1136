package airdrop

import (
	"errors"
	"math"
	"math/big"
	"strings"
	"sync"
	"time"

	"merkledrop/core/events"
	"merkledrop/core/types"
)

// engineState describes the storage and ledger functionality the engine needs
// from the surrounding state implementation. The engine owns all business
// validation; the state only guarantees storage integrity.
type engineState interface {
	AirdropPut(*Campaign) error
	AirdropGet(id uint64) (*Campaign, bool)
	AirdropList() ([]*Campaign, error)
	NextAirdropID() (uint64, error)
	RevertAirdropID(id uint64)
	AirdropSetClaimed(id uint64, recipient [20]byte) error
	AirdropClearClaimed(id uint64, recipient [20]byte) error
	AirdropIsClaimed(id uint64, recipient [20]byte) (bool, error)
	AirdropPoolAddress(token string) ([20]byte, error)
	Credit(token string, addr [20]byte, amount *big.Int) error
	Transfer(token string, from, to [20]byte, amount *big.Int) error
}

type airdropEvent struct {
	evt *types.Event
}

func (e airdropEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e airdropEvent) Event() *types.Event { return e.evt }

// Engine wires the campaign lifecycle and claim logic with external state and
// event emitters. Every mutating entry point is serialized by a single mutex,
// and the claimed flag and running totals are persisted before the payout
// transfer so a reentrant claim attempt observes AlreadyClaimed.
type Engine struct {
	mu      sync.RWMutex
	state   engineState
	emitter events.Emitter
	admin   [20]byte
	nowFn   func() int64
}

// NewEngine creates an airdrop engine with a no-op emitter. Callers can
// override the emitter via SetEmitter.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetAdmin configures the administrator authorized to manage campaigns.
func (e *Engine) SetAdmin(addr [20]byte) { e.admin = addr }

// SetNowFunc overrides the time source used by the engine. Primarily intended
// for tests to provide deterministic timestamps.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) emit(event *types.Event) {
	if e == nil || e.emitter == nil || event == nil {
		return
	}
	e.emitter.Emit(airdropEvent{evt: event})
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

// requireAdmin runs before any other validation in the lifecycle operations so
// unauthorized callers cannot probe campaign existence or state.
func (e *Engine) requireAdmin(caller [20]byte) error {
	if e.admin == ([20]byte{}) || caller != e.admin {
		return ErrUnauthorized
	}
	return nil
}

// Deposit credits the caller's ledger balance, recording an off-system
// deposit of the distributed asset. Admin only.
func (e *Engine) Deposit(caller [20]byte, token string, amount *big.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	normalized, err := NormalizeToken(token)
	if err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	return e.state.Credit(normalized, caller, amount)
}

// Create initialises a new campaign and moves the full allocation from the
// caller into the distribution pool. The campaign identifier is dense and
// sequential; a failed creation reverts the allocator.
func (e *Engine) Create(caller [20]byte, token string, root [32]byte, totalAllocated *big.Int, feeBps uint32, duration int64, name string) (*Campaign, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireAdmin(caller); err != nil {
		return nil, err
	}
	normalized, err := NormalizeToken(token)
	if err != nil {
		return nil, err
	}
	if root == ([32]byte{}) {
		return nil, ErrInvalidRoot
	}
	if totalAllocated == nil || totalAllocated.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	if feeBps > FeeBpsDenominator {
		return nil, ErrInvalidFee
	}
	now := e.now()
	if duration <= 0 || duration > math.MaxInt64-now {
		return nil, ErrInvalidDuration
	}
	if strings.TrimSpace(name) == "" {
		return nil, ErrInvalidName
	}
	pool, err := e.state.AirdropPoolAddress(normalized)
	if err != nil {
		return nil, err
	}
	id, err := e.state.NextAirdropID()
	if err != nil {
		return nil, err
	}
	if err := e.state.Transfer(normalized, caller, pool, totalAllocated); err != nil {
		e.state.RevertAirdropID(id)
		return nil, err
	}
	campaign := &Campaign{
		ID:             id,
		Token:          normalized,
		Root:           root,
		TotalAllocated: cloneBigInt(totalAllocated),
		TotalClaimed:   big.NewInt(0),
		TotalSwept:     big.NewInt(0),
		FeeBps:         feeBps,
		EndTime:        now + duration,
		CreatedAt:      now,
		Name:           strings.TrimSpace(name),
		Funder:         caller,
	}
	if err := e.state.AirdropPut(campaign); err != nil {
		restore := e.state.Transfer(normalized, pool, caller, totalAllocated)
		e.state.RevertAirdropID(id)
		return nil, errors.Join(err, restore)
	}
	e.emit(NewCreatedEvent(campaign))
	return campaign.Clone(), nil
}

// Claim pays out a committed allocation to the recipient after verifying the
// Merkle membership proof. The returned amount is the net payout after the
// campaign fee; the fee stays in the pool and is recovered by Close.
func (e *Engine) Claim(id uint64, recipient [20]byte, amount *big.Int, proof [][32]byte) (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	campaign, ok := e.state.AirdropGet(id)
	if !ok {
		return nil, ErrNotFound
	}
	if e.now() > campaign.EndTime {
		return nil, ErrCampaignExpired
	}
	claimed, err := e.state.AirdropIsClaimed(id, recipient)
	if err != nil {
		return nil, err
	}
	if claimed {
		return nil, ErrAlreadyClaimed
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	leaf, err := LeafHash(recipient, amount)
	if err != nil {
		return nil, err
	}
	if !VerifyProof(proof, campaign.Root, leaf) {
		return nil, ErrInvalidProof
	}

	// Fees round down, favouring recipients.
	fee := new(big.Int).Mul(amount, new(big.Int).SetUint64(uint64(campaign.FeeBps)))
	fee.Div(fee, big.NewInt(FeeBpsDenominator))
	net := new(big.Int).Sub(cloneBigInt(amount), fee)
	if net.Sign() < 0 {
		return nil, ErrFeeExceedsAmount
	}
	newClaimed := new(big.Int).Add(campaign.TotalClaimed, net)
	if newClaimed.Cmp(campaign.TotalAllocated) > 0 {
		return nil, ErrAllocationExceeded
	}

	original := campaign.Clone()
	if err := e.state.AirdropSetClaimed(id, recipient); err != nil {
		return nil, err
	}
	campaign.TotalClaimed = newClaimed
	if err := e.state.AirdropPut(campaign); err != nil {
		return nil, errors.Join(err, e.state.AirdropClearClaimed(id, recipient))
	}
	if net.Sign() > 0 {
		pool, err := e.state.AirdropPoolAddress(campaign.Token)
		if err != nil {
			return nil, errors.Join(err, e.restoreClaim(original, id, recipient))
		}
		if err := e.state.Transfer(campaign.Token, pool, recipient, net); err != nil {
			return nil, errors.Join(err, e.restoreClaim(original, id, recipient))
		}
	}
	e.emit(NewClaimedEvent(campaign, recipient, net, fee))
	return net, nil
}

// restoreClaim undoes the claimed flag and totals written ahead of the payout
// transfer. A non-nil return means the rollback itself failed and the stored
// totals are inconsistent; the joined error surfaces both failures.
func (e *Engine) restoreClaim(original *Campaign, id uint64, recipient [20]byte) error {
	return errors.Join(
		e.state.AirdropPut(original),
		e.state.AirdropClearClaimed(id, recipient),
	)
}

// Close sweeps the unclaimed remainder of an expired campaign back to its
// funder. Closing an already swept campaign is a permitted no-op that sweeps
// zero; the closure event is emitted either way.
func (e *Engine) Close(caller [20]byte, id uint64) (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireAdmin(caller); err != nil {
		return nil, err
	}
	campaign, ok := e.state.AirdropGet(id)
	if !ok {
		return nil, ErrNotFound
	}
	if e.now() <= campaign.EndTime {
		return nil, ErrCampaignActive
	}
	remaining := campaign.Remaining()
	if remaining.Sign() > 0 {
		original := campaign.Clone()
		campaign.TotalSwept = new(big.Int).Add(campaign.TotalSwept, remaining)
		if err := e.state.AirdropPut(campaign); err != nil {
			return nil, err
		}
		pool, err := e.state.AirdropPoolAddress(campaign.Token)
		if err != nil {
			return nil, errors.Join(err, e.state.AirdropPut(original))
		}
		if err := e.state.Transfer(campaign.Token, pool, campaign.Funder, remaining); err != nil {
			return nil, errors.Join(err, e.state.AirdropPut(original))
		}
	}
	e.emit(NewClosedEvent(campaign, remaining))
	return remaining, nil
}

// UpdateRoot rotates the membership commitment. Rotation is only permitted
// before the first successful claim.
func (e *Engine) UpdateRoot(caller [20]byte, id uint64, newRoot [32]byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	if newRoot == ([32]byte{}) {
		return ErrInvalidRoot
	}
	campaign, ok := e.state.AirdropGet(id)
	if !ok {
		return ErrNotFound
	}
	if campaign.TotalClaimed.Sign() > 0 {
		return ErrClaimsStarted
	}
	campaign.Root = newRoot
	return e.state.AirdropPut(campaign)
}

// Extend pushes the campaign end time further into the future. End times only
// ever increase.
func (e *Engine) Extend(caller [20]byte, id uint64, additional int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	if additional <= 0 {
		return ErrInvalidDuration
	}
	campaign, ok := e.state.AirdropGet(id)
	if !ok {
		return ErrNotFound
	}
	if additional > math.MaxInt64-campaign.EndTime {
		return ErrInvalidDuration
	}
	campaign.EndTime += additional
	return e.state.AirdropPut(campaign)
}

// Get returns the campaign with the given identifier.
func (e *Engine) Get(id uint64) (*Campaign, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	campaign, ok := e.state.AirdropGet(id)
	if !ok {
		return nil, ErrNotFound
	}
	return campaign, nil
}

// List returns every campaign in creation order.
func (e *Engine) List() ([]*Campaign, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.AirdropList()
}

// HasClaimed reports whether the recipient has already claimed from the
// campaign.
func (e *Engine) HasClaimed(id uint64, recipient [20]byte) (bool, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if _, ok := e.state.AirdropGet(id); !ok {
		return false, ErrNotFound
	}
	return e.state.AirdropIsClaimed(id, recipient)
}
