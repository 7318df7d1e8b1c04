package auction

import (
	"encoding/hex"
	"strconv"

	"github.com/ainur-network/ainurchain/core/types"
)

// Event type strings, namespaced per module convention.
const (
	EventTypeAuctionCreated   = "auction.created"
	EventTypeBidPlaced        = "auction.bidPlaced"
	EventTypeAuctionFinalized = "auction.finalized"
	EventTypeAuctionCancelled = "auction.cancelled"
)

func auctionAttrs(a *Auction) map[string]string {
	attrs := map[string]string{
		"auctionId": strconv.FormatUint(a.ID, 10),
		"taskHash":  hex.EncodeToString(a.TaskHash[:]),
		"creator":   hex.EncodeToString(a.Creator[:]),
		"status":    a.Status.String(),
		"endsAt":    strconv.FormatUint(a.EndsAt, 10),
		"bidCount":  strconv.Itoa(len(a.Bids)),
	}
	return attrs
}

// NewAuctionCreatedEvent returns the canonical payload for createAuction.
func NewAuctionCreatedEvent(a *Auction) *types.Event {
	return &types.Event{Type: EventTypeAuctionCreated, Attributes: auctionAttrs(a)}
}

// NewBidPlacedEvent returns the canonical payload for placeBid.
func NewBidPlacedEvent(a *Auction, bid Bid) *types.Event {
	attrs := auctionAttrs(a)
	attrs["bidder"] = hex.EncodeToString(bid.Bidder[:])
	attrs["agentDid"] = bid.AgentDid
	if bid.Amount != nil {
		attrs["amount"] = bid.Amount.String()
	}
	return &types.Event{Type: EventTypeBidPlaced, Attributes: attrs}
}

// NewAuctionFinalizedEvent returns the canonical payload for
// finalizeAuction, carrying the VCG winner, payment, and reported social
// welfare.
func NewAuctionFinalizedEvent(a *Auction) *types.Event {
	attrs := auctionAttrs(a)
	attrs["winner"] = hex.EncodeToString(a.Winner[:])
	attrs["winnerDid"] = a.WinnerDid
	if a.Payment != nil {
		attrs["payment"] = a.Payment.String()
	}
	if a.SocialWelfare != nil {
		attrs["socialWelfare"] = a.SocialWelfare.String()
	}
	return &types.Event{Type: EventTypeAuctionFinalized, Attributes: attrs}
}

// NewAuctionCancelledEvent returns the canonical payload for cancelAuction.
func NewAuctionCancelledEvent(a *Auction) *types.Event {
	return &types.Event{Type: EventTypeAuctionCancelled, Attributes: auctionAttrs(a)}
}
