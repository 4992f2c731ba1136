package airdrop

import "errors"

var (
	ErrNotFound           = errors.New("airdrop: campaign not found")
	ErrUnauthorized       = errors.New("airdrop: unauthorized")
	ErrInvalidToken       = errors.New("airdrop: invalid token symbol")
	ErrInvalidRoot        = errors.New("airdrop: commitment root must be non-zero")
	ErrInvalidAmount      = errors.New("airdrop: amount must be positive")
	ErrInvalidFee         = errors.New("airdrop: fee bps out of range")
	ErrInvalidDuration    = errors.New("airdrop: duration must be positive")
	ErrInvalidName        = errors.New("airdrop: name must not be empty")
	ErrCampaignExpired    = errors.New("airdrop: campaign expired")
	ErrCampaignActive     = errors.New("airdrop: campaign still active")
	ErrAlreadyClaimed     = errors.New("airdrop: recipient already claimed")
	ErrClaimsStarted      = errors.New("airdrop: claims already started")
	ErrInvalidProof       = errors.New("airdrop: invalid membership proof")
	ErrFeeExceedsAmount   = errors.New("airdrop: fee exceeds claim amount")
	ErrAllocationExceeded = errors.New("airdrop: allocation exceeded")
	ErrInsufficientFunds  = errors.New("airdrop: insufficient funds")
)
