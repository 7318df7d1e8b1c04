package dispatch

import (
	"encoding/json"
	"fmt"

	"github.com/ainur-network/ainurchain/core/identity"
)

// RegisterIdentity wires the DID registry's operations onto the dispatch
// surface: createDid, updateKey, revokeDid.
func RegisterIdentity(r *Router, engine *identity.Engine) {
	r.register("identity", "createDid", func(body []byte) (interface{}, error) {
		var req struct {
			Did        string `json:"did"`
			Controller string `json:"controller"`
			PublicKey  string `json:"publicKey"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, fmt.Errorf("decode createDid request: %w", err)
		}
		controller, err := decodeAccount(req.Controller)
		if err != nil {
			return nil, err
		}
		publicKey, err := decodeHash32(req.PublicKey)
		if err != nil {
			return nil, err
		}
		doc, err := engine.CreateDid(req.Did, controller, publicKey)
		if err != nil {
			return nil, err
		}
		return didDocumentResponse(doc), nil
	})

	r.register("identity", "updateKey", func(body []byte) (interface{}, error) {
		var req struct {
			Did       string `json:"did"`
			Caller    string `json:"caller"`
			PublicKey string `json:"publicKey"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, fmt.Errorf("decode updateKey request: %w", err)
		}
		caller, err := decodeAccount(req.Caller)
		if err != nil {
			return nil, err
		}
		publicKey, err := decodeHash32(req.PublicKey)
		if err != nil {
			return nil, err
		}
		doc, err := engine.UpdateKey(req.Did, caller, publicKey)
		if err != nil {
			return nil, err
		}
		return didDocumentResponse(doc), nil
	})

	r.register("identity", "revokeDid", func(body []byte) (interface{}, error) {
		var req struct {
			Did    string `json:"did"`
			Caller string `json:"caller"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, fmt.Errorf("decode revokeDid request: %w", err)
		}
		caller, err := decodeAccount(req.Caller)
		if err != nil {
			return nil, err
		}
		if err := engine.RevokeDid(req.Did, caller); err != nil {
			return nil, err
		}
		return struct {
			Did string `json:"did"`
		}{Did: req.Did}, nil
	})
}

type didDocumentWire struct {
	Did        string `json:"did"`
	Controller string `json:"controller"`
	PublicKey  string `json:"publicKey"`
	CreatedAt  uint64 `json:"createdAt"`
	UpdatedAt  uint64 `json:"updatedAt"`
	Active     bool   `json:"active"`
}

func didDocumentResponse(doc *identity.DidDocument) didDocumentWire {
	if doc == nil {
		return didDocumentWire{}
	}
	return didDocumentWire{
		Did:        doc.Did,
		Controller: encodeBytes(doc.Controller[:]),
		PublicKey:  encodeBytes(doc.PublicKey[:]),
		CreatedAt:  doc.CreatedAt,
		UpdatedAt:  doc.UpdatedAt,
		Active:     doc.Active,
	}
}
