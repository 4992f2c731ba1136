package rpc

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"

	"merkledrop/native/airdrop"
	"merkledrop/observability/metrics"
)

const (
	codeAirdropInvalidParams = -32081
	codeAirdropNotFound      = -32082
	codeAirdropForbidden     = -32083
	codeAirdropConflict      = -32084
	codeAirdropInternal      = -32085
)

type airdropCreateParams struct {
	Caller         string `json:"caller"`
	Token          string `json:"token"`
	Root           string `json:"root"`
	TotalAllocated string `json:"totalAllocated"`
	FeeBps         uint32 `json:"feeBps"`
	Duration       int64  `json:"duration"`
	Name           string `json:"name"`
}

type airdropClaimParams struct {
	ID        uint64   `json:"id"`
	Recipient string   `json:"recipient"`
	Amount    string   `json:"amount"`
	Proof     []string `json:"proof"`
}

type airdropCloseParams struct {
	Caller string `json:"caller"`
	ID     uint64 `json:"id"`
}

type airdropUpdateRootParams struct {
	Caller string `json:"caller"`
	ID     uint64 `json:"id"`
	Root   string `json:"root"`
}

type airdropExtendParams struct {
	Caller   string `json:"caller"`
	ID       uint64 `json:"id"`
	Duration int64  `json:"duration"`
}

type airdropDepositParams struct {
	Caller string `json:"caller"`
	Token  string `json:"token"`
	Amount string `json:"amount"`
}

type airdropIDParams struct {
	ID uint64 `json:"id"`
}

type airdropHasClaimedParams struct {
	ID        uint64 `json:"id"`
	Recipient string `json:"recipient"`
}

type balanceParams struct {
	Token   string `json:"token"`
	Address string `json:"address"`
}

type airdropCreateResult struct {
	ID uint64 `json:"id"`
}

type airdropClaimResult struct {
	NetAmount string `json:"netAmount"`
}

type airdropCloseResult struct {
	SweptAmount string `json:"sweptAmount"`
}

type airdropOKResult struct {
	OK bool `json:"ok"`
}

type airdropHasClaimedResult struct {
	Claimed bool `json:"claimed"`
}

type balanceResult struct {
	Token   string `json:"token"`
	Address string `json:"address"`
	Balance string `json:"balance"`
}

type campaignJSON struct {
	ID             uint64 `json:"id"`
	Token          string `json:"token"`
	Root           string `json:"root"`
	TotalAllocated string `json:"totalAllocated"`
	TotalClaimed   string `json:"totalClaimed"`
	TotalSwept     string `json:"totalSwept"`
	FeeBps         uint32 `json:"feeBps"`
	EndTime        int64  `json:"endTime"`
	CreatedAt      int64  `json:"createdAt"`
	Name           string `json:"name"`
	Funder         string `json:"funder"`
}

func decodeSingleParam(req *RPCRequest, out interface{}) error {
	if len(req.Params) != 1 {
		return fmt.Errorf("exactly one parameter object expected")
	}
	return json.Unmarshal(req.Params[0], out)
}

func (s *Server) handleAirdropCreate(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params airdropCreateParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeAirdropInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeAirdropInvalidParams, "invalid_params", err.Error())
		return
	}
	root, err := parseHash(params.Root)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeAirdropInvalidParams, "invalid_params", err.Error())
		return
	}
	totalAllocated, err := parsePositiveBigInt(params.TotalAllocated)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeAirdropInvalidParams, "invalid_params", err.Error())
		return
	}
	campaign, err := s.engine.Create(caller, params.Token, root, totalAllocated, params.FeeBps, params.Duration, params.Name)
	if err != nil {
		writeAirdropError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, airdropCreateResult{ID: campaign.ID})
}

// handleAirdropClaim is open to any caller: the transport carries no per-user
// identity, so recipient arrives as a parameter. A third party can at most
// execute a claim on a recipient's behalf; the payout always goes to the
// recipient committed in the proven leaf.
func (s *Server) handleAirdropClaim(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params airdropClaimParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeAirdropInvalidParams, "invalid_params", err.Error())
		return
	}
	recipient, err := parseAddress(params.Recipient)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeAirdropInvalidParams, "invalid_params", err.Error())
		return
	}
	amount, err := parsePositiveBigInt(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeAirdropInvalidParams, "invalid_params", err.Error())
		return
	}
	proof, err := parseProof(params.Proof)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeAirdropInvalidParams, "invalid_params", err.Error())
		return
	}
	net, err := s.engine.Claim(params.ID, recipient, amount, proof)
	if err != nil {
		metrics.Airdrop().RecordClaimFailure(failureReason(err))
		writeAirdropError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, airdropClaimResult{NetAmount: net.String()})
}

func (s *Server) handleAirdropClose(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params airdropCloseParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeAirdropInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeAirdropInvalidParams, "invalid_params", err.Error())
		return
	}
	swept, err := s.engine.Close(caller, params.ID)
	if err != nil {
		writeAirdropError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, airdropCloseResult{SweptAmount: swept.String()})
}

func (s *Server) handleAirdropUpdateRoot(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params airdropUpdateRootParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeAirdropInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeAirdropInvalidParams, "invalid_params", err.Error())
		return
	}
	root, err := parseHash(params.Root)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeAirdropInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.engine.UpdateRoot(caller, params.ID, root); err != nil {
		writeAirdropError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, airdropOKResult{OK: true})
}

func (s *Server) handleAirdropExtend(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params airdropExtendParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeAirdropInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeAirdropInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.engine.Extend(caller, params.ID, params.Duration); err != nil {
		writeAirdropError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, airdropOKResult{OK: true})
}

func (s *Server) handleAirdropDeposit(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params airdropDepositParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeAirdropInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeAirdropInvalidParams, "invalid_params", err.Error())
		return
	}
	amount, err := parsePositiveBigInt(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeAirdropInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.engine.Deposit(caller, params.Token, amount); err != nil {
		writeAirdropError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, airdropOKResult{OK: true})
}

func (s *Server) handleAirdropGet(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params airdropIDParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeAirdropInvalidParams, "invalid_params", err.Error())
		return
	}
	campaign, err := s.engine.Get(params.ID)
	if err != nil {
		writeAirdropError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, formatCampaignJSON(campaign))
}

func (s *Server) handleAirdropList(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 0 {
		writeError(w, http.StatusBadRequest, req.ID, codeAirdropInvalidParams, "invalid_params", "no parameters expected")
		return
	}
	campaigns, err := s.engine.List()
	if err != nil {
		writeAirdropError(w, req.ID, err)
		return
	}
	out := make([]campaignJSON, 0, len(campaigns))
	for _, campaign := range campaigns {
		out = append(out, formatCampaignJSON(campaign))
	}
	writeResult(w, req.ID, out)
}

func (s *Server) handleAirdropHasClaimed(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params airdropHasClaimedParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeAirdropInvalidParams, "invalid_params", err.Error())
		return
	}
	recipient, err := parseAddress(params.Recipient)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeAirdropInvalidParams, "invalid_params", err.Error())
		return
	}
	claimed, err := s.engine.HasClaimed(params.ID, recipient)
	if err != nil {
		writeAirdropError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, airdropHasClaimedResult{Claimed: claimed})
}

func (s *Server) handleGetBalance(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params balanceParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeAirdropInvalidParams, "invalid_params", err.Error())
		return
	}
	addr, err := parseAddress(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeAirdropInvalidParams, "invalid_params", err.Error())
		return
	}
	balance, err := s.ledger.BalanceOf(params.Token, addr)
	if err != nil {
		writeAirdropError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, balanceResult{
		Token:   strings.ToUpper(strings.TrimSpace(params.Token)),
		Address: params.Address,
		Balance: balance.String(),
	})
}

func parseAddress(value string) ([20]byte, error) {
	var out [20]byte
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return out, fmt.Errorf("address required")
	}
	cleaned := strings.TrimPrefix(strings.TrimPrefix(trimmed, "0x"), "0X")
	if len(cleaned) != 40 {
		return out, fmt.Errorf("address must be 20 bytes of hex")
	}
	decoded, err := hex.DecodeString(cleaned)
	if err != nil {
		return out, err
	}
	copy(out[:], decoded)
	return out, nil
}

func parseHash(value string) ([32]byte, error) {
	var out [32]byte
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return out, fmt.Errorf("hash required")
	}
	cleaned := strings.TrimPrefix(strings.TrimPrefix(trimmed, "0x"), "0X")
	if len(cleaned) != 64 {
		return out, fmt.Errorf("hash must be 32 bytes of hex")
	}
	decoded, err := hex.DecodeString(cleaned)
	if err != nil {
		return out, err
	}
	copy(out[:], decoded)
	return out, nil
}

func parseProof(values []string) ([][32]byte, error) {
	proof := make([][32]byte, 0, len(values))
	for i, value := range values {
		node, err := parseHash(value)
		if err != nil {
			return nil, fmt.Errorf("proof element %d: %w", i, err)
		}
		proof = append(proof, node)
	}
	return proof, nil
}

func parsePositiveBigInt(value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, fmt.Errorf("amount required")
	}
	parsed, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("amount must be a base-10 integer")
	}
	if parsed.Sign() <= 0 {
		return nil, fmt.Errorf("amount must be positive")
	}
	return parsed, nil
}

func formatCampaignJSON(c *airdrop.Campaign) campaignJSON {
	return campaignJSON{
		ID:             c.ID,
		Token:          c.Token,
		Root:           "0x" + hex.EncodeToString(c.Root[:]),
		TotalAllocated: c.TotalAllocated.String(),
		TotalClaimed:   c.TotalClaimed.String(),
		TotalSwept:     c.TotalSwept.String(),
		FeeBps:         c.FeeBps,
		EndTime:        c.EndTime,
		CreatedAt:      c.CreatedAt,
		Name:           c.Name,
		Funder:         "0x" + hex.EncodeToString(c.Funder[:]),
	}
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, airdrop.ErrNotFound):
		return "not_found"
	case errors.Is(err, airdrop.ErrCampaignExpired):
		return "expired"
	case errors.Is(err, airdrop.ErrAlreadyClaimed):
		return "already_claimed"
	case errors.Is(err, airdrop.ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, airdrop.ErrInvalidProof):
		return "invalid_proof"
	case errors.Is(err, airdrop.ErrFeeExceedsAmount):
		return "fee_exceeds_amount"
	case errors.Is(err, airdrop.ErrAllocationExceeded):
		return "allocation_exceeded"
	case errors.Is(err, airdrop.ErrInsufficientFunds):
		return "insufficient_funds"
	default:
		return "internal"
	}
}

func writeAirdropError(w http.ResponseWriter, id interface{}, err error) {
	if err == nil {
		return
	}
	status := http.StatusInternalServerError
	code := codeAirdropInternal
	message := "internal_error"
	data := err.Error()
	switch {
	case errors.Is(err, airdrop.ErrNotFound):
		status = http.StatusNotFound
		code = codeAirdropNotFound
		message = "not_found"
	case errors.Is(err, airdrop.ErrUnauthorized):
		status = http.StatusForbidden
		code = codeAirdropForbidden
		message = "forbidden"
	case errors.Is(err, airdrop.ErrInvalidToken) || errors.Is(err, airdrop.ErrInvalidRoot) ||
		errors.Is(err, airdrop.ErrInvalidAmount) || errors.Is(err, airdrop.ErrInvalidFee) ||
		errors.Is(err, airdrop.ErrInvalidDuration) || errors.Is(err, airdrop.ErrInvalidName):
		status = http.StatusBadRequest
		code = codeAirdropInvalidParams
		message = "invalid_params"
	case errors.Is(err, airdrop.ErrCampaignExpired) || errors.Is(err, airdrop.ErrCampaignActive) ||
		errors.Is(err, airdrop.ErrAlreadyClaimed) || errors.Is(err, airdrop.ErrClaimsStarted) ||
		errors.Is(err, airdrop.ErrInvalidProof) || errors.Is(err, airdrop.ErrFeeExceedsAmount) ||
		errors.Is(err, airdrop.ErrAllocationExceeded) || errors.Is(err, airdrop.ErrInsufficientFunds):
		status = http.StatusConflict
		code = codeAirdropConflict
		message = "conflict"
	}
	writeError(w, status, id, code, message, data)
}
