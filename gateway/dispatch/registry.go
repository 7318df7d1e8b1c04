package dispatch

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ainur-network/ainurchain/native/agentregistry"
)

// RegisterRegistry wires the agent registry's operations onto the dispatch
// surface: registerAgent, updateAgent, deregisterAgent.
func RegisterRegistry(r *Router, engine *agentregistry.Engine) {
	r.register("registry", "registerAgent", func(body []byte) (interface{}, error) {
		var req struct {
			Did          string   `json:"did"`
			Name         string   `json:"name"`
			Capabilities []string `json:"capabilities"`
			WasmHash     string   `json:"wasmHash"`
			PricePerTask string   `json:"pricePerTask"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, fmt.Errorf("decode registerAgent request: %w", err)
		}
		wasmHash, err := decodeHash32(req.WasmHash)
		if err != nil {
			return nil, err
		}
		price, err := decodeAmount(req.PricePerTask)
		if err != nil {
			return nil, err
		}
		card, err := engine.RegisterAgent(req.Did, req.Name, req.Capabilities, wasmHash, price)
		if err != nil {
			return nil, err
		}
		return agentCardResponse(card), nil
	})

	r.register("registry", "updateAgent", func(body []byte) (interface{}, error) {
		var req struct {
			Did          string   `json:"did"`
			Capabilities []string `json:"capabilities"`
			PricePerTask string   `json:"pricePerTask"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, fmt.Errorf("decode updateAgent request: %w", err)
		}
		var price *big.Int
		if req.PricePerTask != "" {
			var err error
			price, err = decodeAmount(req.PricePerTask)
			if err != nil {
				return nil, err
			}
		}
		card, err := engine.UpdateAgent(req.Did, req.Capabilities, price)
		if err != nil {
			return nil, err
		}
		return agentCardResponse(card), nil
	})

	r.register("registry", "deregisterAgent", func(body []byte) (interface{}, error) {
		var req struct {
			Did string `json:"did"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, fmt.Errorf("decode deregisterAgent request: %w", err)
		}
		if err := engine.DeregisterAgent(req.Did); err != nil {
			return nil, err
		}
		return struct {
			Did string `json:"did"`
		}{Did: req.Did}, nil
	})
}

type agentCardWire struct {
	Did          string   `json:"did"`
	Name         string   `json:"name"`
	Capabilities []string `json:"capabilities"`
	WasmHash     string   `json:"wasmHash"`
	PricePerTask string   `json:"pricePerTask"`
	RegisteredAt uint64   `json:"registeredAt"`
	UpdatedAt    uint64   `json:"updatedAt"`
	Active       bool     `json:"active"`
}

func agentCardResponse(card *agentregistry.AgentCard) agentCardWire {
	if card == nil {
		return agentCardWire{}
	}
	return agentCardWire{
		Did:          card.Did,
		Name:         card.Name,
		Capabilities: card.Capabilities,
		WasmHash:     encodeBytes(card.WasmHash[:]),
		PricePerTask: amountString(card.PricePerTask),
		RegisteredAt: card.RegisteredAt,
		UpdatedAt:    card.UpdatedAt,
		Active:       card.Active,
	}
}
