package airdrop

import (
	"encoding/hex"
	"math/big"
	"strconv"

	"merkledrop/core/types"
)

const (
	EventTypeCampaignCreated = "airdrop.campaign.created"
	EventTypeTokensClaimed   = "airdrop.tokens.claimed"
	EventTypeCampaignClosed  = "airdrop.campaign.closed"
)

// NewCreatedEvent returns the canonical payload emitted when a campaign is
// created and funded.
func NewCreatedEvent(c *Campaign) *types.Event {
	attrs := campaignAttributes(c)
	return &types.Event{Type: EventTypeCampaignCreated, Attributes: attrs}
}

// NewClaimedEvent returns the canonical payload emitted after a successful
// claim. The amounts are the net payout and the retained fee.
func NewClaimedEvent(c *Campaign, recipient [20]byte, net, fee *big.Int) *types.Event {
	attrs := campaignAttributes(c)
	attrs["recipient"] = "0x" + hex.EncodeToString(recipient[:])
	attrs["netAmount"] = bigIntString(net)
	attrs["feeAmount"] = bigIntString(fee)
	return &types.Event{Type: EventTypeTokensClaimed, Attributes: attrs}
}

// NewClosedEvent returns the canonical payload emitted when a campaign is
// closed. A zero swept amount is valid and still emitted.
func NewClosedEvent(c *Campaign, swept *big.Int) *types.Event {
	attrs := campaignAttributes(c)
	attrs["sweptAmount"] = bigIntString(swept)
	return &types.Event{Type: EventTypeCampaignClosed, Attributes: attrs}
}

func campaignAttributes(c *Campaign) map[string]string {
	attrs := make(map[string]string)
	if c == nil {
		return attrs
	}
	attrs["id"] = strconv.FormatUint(c.ID, 10)
	attrs["token"] = c.Token
	attrs["name"] = c.Name
	attrs["root"] = "0x" + hex.EncodeToString(c.Root[:])
	attrs["totalAllocated"] = bigIntString(c.TotalAllocated)
	attrs["totalClaimed"] = bigIntString(c.TotalClaimed)
	attrs["feeBps"] = strconv.FormatUint(uint64(c.FeeBps), 10)
	attrs["endTime"] = strconv.FormatInt(c.EndTime, 10)
	attrs["funder"] = "0x" + hex.EncodeToString(c.Funder[:])
	return attrs
}

func bigIntString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
