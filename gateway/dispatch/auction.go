package dispatch

import (
	"encoding/json"
	"fmt"

	"github.com/ainur-network/ainurchain/native/auction"
)

// RegisterAuction wires the VCG auction engine's operations onto the
// dispatch surface: createAuction, placeBid, finalizeAuction, cancelAuction.
func RegisterAuction(r *Router, engine *auction.Engine) {
	r.register("auction", "createAuction", func(body []byte) (interface{}, error) {
		var req struct {
			Creator              string   `json:"creator"`
			TaskHash             string   `json:"taskHash"`
			RequiredCapabilities []string `json:"requiredCapabilities"`
			Duration             uint64   `json:"duration"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, fmt.Errorf("decode createAuction request: %w", err)
		}
		creator, err := decodeAccount(req.Creator)
		if err != nil {
			return nil, err
		}
		taskHash, err := decodeHash32(req.TaskHash)
		if err != nil {
			return nil, err
		}
		result, err := engine.CreateAuction(creator, taskHash, req.RequiredCapabilities, req.Duration)
		if err != nil {
			return nil, err
		}
		return auctionResponse(result), nil
	})

	r.register("auction", "placeBid", func(body []byte) (interface{}, error) {
		var req struct {
			AuctionID uint64 `json:"auctionId"`
			Bidder    string `json:"bidder"`
			Amount    string `json:"amount"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, fmt.Errorf("decode placeBid request: %w", err)
		}
		bidder, err := decodeAccount(req.Bidder)
		if err != nil {
			return nil, err
		}
		amount, err := decodeAmount(req.Amount)
		if err != nil {
			return nil, err
		}
		result, err := engine.PlaceBid(req.AuctionID, bidder, amount)
		if err != nil {
			return nil, err
		}
		return auctionResponse(result), nil
	})

	r.register("auction", "finalizeAuction", func(body []byte) (interface{}, error) {
		var req struct {
			AuctionID uint64 `json:"auctionId"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, fmt.Errorf("decode finalizeAuction request: %w", err)
		}
		result, err := engine.FinalizeAuction(req.AuctionID)
		if err != nil {
			return nil, err
		}
		return auctionResponse(result), nil
	})

	r.register("auction", "cancelAuction", func(body []byte) (interface{}, error) {
		var req struct {
			AuctionID uint64 `json:"auctionId"`
			Caller    string `json:"caller"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, fmt.Errorf("decode cancelAuction request: %w", err)
		}
		caller, err := decodeAccount(req.Caller)
		if err != nil {
			return nil, err
		}
		result, err := engine.CancelAuction(req.AuctionID, caller)
		if err != nil {
			return nil, err
		}
		return auctionResponse(result), nil
	})
}

type bidWire struct {
	Bidder   string `json:"bidder"`
	AgentDid string `json:"agentDid"`
	Amount   string `json:"amount"`
	PlacedAt uint64 `json:"placedAt"`
}

type auctionWire struct {
	ID                   uint64  `json:"id"`
	TaskHash             string  `json:"taskHash"`
	RequiredCapabilities []string `json:"requiredCapabilities"`
	Creator              string  `json:"creator"`
	Status               string  `json:"status"`
	CreatedAt            uint64  `json:"createdAt"`
	EndsAt               uint64  `json:"endsAt"`
	Bids                 []bidWire `json:"bids"`
	Winner               string  `json:"winner,omitempty"`
	WinnerDid            string  `json:"winnerDid,omitempty"`
	Payment              string  `json:"payment,omitempty"`
	SocialWelfare        string  `json:"socialWelfare,omitempty"`
}

func auctionResponse(a *auction.Auction) auctionWire {
	if a == nil {
		return auctionWire{}
	}
	bids := make([]bidWire, len(a.Bids))
	for i, b := range a.Bids {
		bids[i] = bidWire{
			Bidder:   encodeBytes(b.Bidder[:]),
			AgentDid: b.AgentDid,
			Amount:   amountString(b.Amount),
			PlacedAt: b.PlacedAt,
		}
	}
	wire := auctionWire{
		ID:                   a.ID,
		TaskHash:             encodeBytes(a.TaskHash[:]),
		RequiredCapabilities: a.RequiredCapabilities,
		Creator:              encodeBytes(a.Creator[:]),
		Status:               a.Status.String(),
		CreatedAt:            a.CreatedAt,
		EndsAt:               a.EndsAt,
		Bids:                 bids,
	}
	if a.Status == auction.StatusFinalized {
		wire.Winner = encodeBytes(a.Winner[:])
		wire.WinnerDid = a.WinnerDid
		wire.Payment = amountString(a.Payment)
		wire.SocialWelfare = amountString(a.SocialWelfare)
	}
	return wire
}
