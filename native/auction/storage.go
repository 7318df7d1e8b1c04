package auction

import (
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// storage abstracts the subset of state manager functionality the auction
// engine needs.
type storage interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVAppend(key []byte, value []byte) error
	KVGetList(key []byte, out interface{}) error
}

var (
	auctionPrefix      = []byte("auction/auction/")
	agentAuctionPrefix = []byte("auction/agentindex/")
	nextAuctionIDKey   = []byte("auction/nextauctionid")
)

func auctionKey(id uint64) []byte {
	return []byte(fmt.Sprintf("%s%d", auctionPrefix, id))
}

func agentAuctionKey(did string) []byte {
	digest := ethcrypto.Keccak256([]byte(did))
	return []byte(fmt.Sprintf("%s%x", agentAuctionPrefix, digest))
}

// store wraps the injected storage dependency with auction-specific CRUD and
// index-maintenance helpers. It is deliberately thin: the engine owns all
// business-rule validation, store only persists.
type store struct {
	backend storage
}

func newStore(backend storage) *store {
	return &store{backend: backend}
}

func (s *store) getAuction(id uint64) (*Auction, error) {
	a := &Auction{}
	ok, err := s.backend.KVGet(auctionKey(id), a)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrAuctionNotFound
	}
	return a, nil
}

func (s *store) putAuction(a *Auction) error {
	return s.backend.KVPut(auctionKey(a.ID), a)
}

// indexBidder records auction id under did's bid-history index. Called once
// per accepted bid, never reconciled on finalize/cancel (the same
// deliberate-staleness tradeoff agentregistry's CapabilityIndex makes).
func (s *store) indexBidder(did string, auctionID uint64) error {
	return s.backend.KVAppend(agentAuctionKey(did), []byte(fmt.Sprintf("%d", auctionID)))
}

func (s *store) agentAuctionIDs(did string) ([]string, error) {
	var raw [][]byte
	if err := s.backend.KVGetList(agentAuctionKey(did), &raw); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(raw))
	for _, entry := range raw {
		ids = append(ids, string(entry))
	}
	return ids, nil
}

func (s *store) nextAuctionID() (uint64, error) {
	var current uint64
	if _, err := s.backend.KVGet(nextAuctionIDKey, &current); err != nil {
		return 0, err
	}
	next := current + 1
	if err := s.backend.KVPut(nextAuctionIDKey, next); err != nil {
		return 0, err
	}
	return next, nil
}
