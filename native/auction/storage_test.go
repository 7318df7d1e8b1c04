package auction

import (
	"testing"

	"github.com/ainur-network/ainurchain/core/state"
	"github.com/ainur-network/ainurchain/storage"
	"github.com/ainur-network/ainurchain/storage/trie"
)

func newTestManager(t *testing.T) *state.Manager {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(func() { _ = db.Close() })
	tr, err := trie.NewTrie(db, nil)
	if err != nil {
		t.Fatalf("new trie: %v", err)
	}
	return state.NewManager(tr)
}

func account(seed byte) [20]byte {
	var a [20]byte
	a[0] = seed
	return a
}

func taskHash(seed byte) [32]byte {
	var h [32]byte
	h[0] = seed
	return h
}

func TestStorePutAndGetAuctionRoundTrip(t *testing.T) {
	mgr := newTestManager(t)
	s := newStore(mgr)
	id, err := s.nextAuctionID()
	if err != nil {
		t.Fatalf("nextAuctionID: %v", err)
	}
	if id != 1 {
		t.Fatalf("expected first auction id 1, got %d", id)
	}
	a := &Auction{ID: id, TaskHash: taskHash(1), Creator: account(1), Status: StatusOpen, EndsAt: 100}
	if err := s.putAuction(a); err != nil {
		t.Fatalf("putAuction: %v", err)
	}
	got, err := s.getAuction(id)
	if err != nil {
		t.Fatalf("getAuction: %v", err)
	}
	if got.Creator != a.Creator || got.EndsAt != a.EndsAt {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestStoreGetAuctionNotFound(t *testing.T) {
	mgr := newTestManager(t)
	s := newStore(mgr)
	if _, err := s.getAuction(9); err != ErrAuctionNotFound {
		t.Fatalf("expected ErrAuctionNotFound, got %v", err)
	}
}

func TestStoreAgentAuctionIndex(t *testing.T) {
	mgr := newTestManager(t)
	s := newStore(mgr)
	if err := s.indexBidder("did:ainur:agent1", 1); err != nil {
		t.Fatalf("indexBidder: %v", err)
	}
	if err := s.indexBidder("did:ainur:agent1", 2); err != nil {
		t.Fatalf("indexBidder: %v", err)
	}
	ids, err := s.agentAuctionIDs("did:ainur:agent1")
	if err != nil {
		t.Fatalf("agentAuctionIDs: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 indexed auctions, got %v", ids)
	}
}
