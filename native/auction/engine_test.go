package auction

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ainur-network/ainurchain/core/state"
)

type fakeAgents struct {
	active map[string]bool
	caps   map[string][]string
}

func (f *fakeAgents) IsAgentActive(did string) bool { return f.active[did] }

func (f *fakeAgents) AgentCapabilities(did string) ([]string, error) {
	return f.caps[did], nil
}

type fakeIdentity struct {
	dids map[[20]byte]string
}

func (f *fakeIdentity) ResolveByAccount(account [20]byte) (string, error) {
	did, ok := f.dids[account]
	if !ok {
		return "", errors.New("no did bound to account")
	}
	return did, nil
}

var (
	agentA  = account(0xA1)
	agentB  = account(0xB2)
	agentC  = account(0xC3)
	creator = account(0xF0)
)

func newTestEngine(t *testing.T) (*Engine, *state.Manager) {
	t.Helper()
	mgr := newTestManager(t)
	agents := &fakeAgents{
		active: map[string]bool{
			"did:ainur:a": true,
			"did:ainur:b": true,
			"did:ainur:c": true,
		},
		caps: map[string][]string{
			"did:ainur:a": {"math"},
			"did:ainur:b": {"math"},
			"did:ainur:c": {"math"},
		},
	}
	identity := &fakeIdentity{dids: map[[20]byte]string{
		agentA: "did:ainur:a",
		agentB: "did:ainur:b",
		agentC: "did:ainur:c",
	}}
	e := NewEngine(mgr, agents, identity)
	e.SetNowFunc(func() int64 { return 1 })
	return e, mgr
}

func TestCreateAuctionDefaultsAndNormalizes(t *testing.T) {
	e, _ := newTestEngine(t)
	a, err := e.CreateAuction(creator, taskHash(1), []string{" MATH "}, 0)
	if err != nil {
		t.Fatalf("CreateAuction: %v", err)
	}
	if a.EndsAt != uint64(1)+DefaultDuration {
		t.Fatalf("expected default duration applied, got endsAt=%d", a.EndsAt)
	}
	if len(a.RequiredCapabilities) != 1 || a.RequiredCapabilities[0] != "math" {
		t.Fatalf("expected normalized capability, got %v", a.RequiredCapabilities)
	}
}

func TestPlaceBidRejectsInactiveAgent(t *testing.T) {
	e, _ := newTestEngine(t)
	a, err := e.CreateAuction(creator, taskHash(1), []string{"math"}, 100)
	if err != nil {
		t.Fatalf("CreateAuction: %v", err)
	}
	stranger := account(0x99)
	if _, err := e.PlaceBid(a.ID, stranger, big.NewInt(10)); err == nil {
		t.Fatalf("expected error for account with no bound did")
	}
}

func TestPlaceBidRejectsMissingCapability(t *testing.T) {
	e, _ := newTestEngine(t)
	a, err := e.CreateAuction(creator, taskHash(1), []string{"vision"}, 100)
	if err != nil {
		t.Fatalf("CreateAuction: %v", err)
	}
	if _, err := e.PlaceBid(a.ID, agentA, big.NewInt(10)); err != ErrMissingCapability {
		t.Fatalf("expected ErrMissingCapability, got %v", err)
	}
}

func TestPlaceBidRejectsDuplicateBidder(t *testing.T) {
	e, _ := newTestEngine(t)
	a, err := e.CreateAuction(creator, taskHash(1), []string{"math"}, 100)
	if err != nil {
		t.Fatalf("CreateAuction: %v", err)
	}
	if _, err := e.PlaceBid(a.ID, agentA, big.NewInt(10)); err != nil {
		t.Fatalf("first bid: %v", err)
	}
	if _, err := e.PlaceBid(a.ID, agentA, big.NewInt(20)); err != ErrDuplicateBid {
		t.Fatalf("expected ErrDuplicateBid, got %v", err)
	}
}

func TestFinalizeAuctionThreeBidVCG(t *testing.T) {
	e, _ := newTestEngine(t)
	a, err := e.CreateAuction(creator, taskHash(1), []string{"math"}, 100)
	if err != nil {
		t.Fatalf("CreateAuction: %v", err)
	}
	if _, err := e.PlaceBid(a.ID, agentA, big.NewInt(100)); err != nil {
		t.Fatalf("bid a: %v", err)
	}
	if _, err := e.PlaceBid(a.ID, agentB, big.NewInt(150)); err != nil {
		t.Fatalf("bid b: %v", err)
	}
	if _, err := e.PlaceBid(a.ID, agentC, big.NewInt(200)); err != nil {
		t.Fatalf("bid c: %v", err)
	}
	e.SetNowFunc(func() int64 { return 101 })
	result, err := e.FinalizeAuction(a.ID)
	if err != nil {
		t.Fatalf("FinalizeAuction: %v", err)
	}
	if result.Winner != agentA {
		t.Fatalf("expected winner agentA, got %x", result.Winner)
	}
	if result.Payment.Cmp(big.NewInt(150)) != 0 {
		t.Fatalf("expected payment 150, got %s", result.Payment)
	}
	if result.SocialWelfare.Cmp(big.NewInt(350)) != 0 {
		t.Fatalf("expected social welfare 350, got %s", result.SocialWelfare)
	}
}

func TestFinalizeAuctionSingleBid(t *testing.T) {
	e, _ := newTestEngine(t)
	a, err := e.CreateAuction(creator, taskHash(1), []string{"math"}, 100)
	if err != nil {
		t.Fatalf("CreateAuction: %v", err)
	}
	if _, err := e.PlaceBid(a.ID, agentA, big.NewInt(100)); err != nil {
		t.Fatalf("bid a: %v", err)
	}
	e.SetNowFunc(func() int64 { return 101 })
	result, err := e.FinalizeAuction(a.ID)
	if err != nil {
		t.Fatalf("FinalizeAuction: %v", err)
	}
	if result.Winner != agentA {
		t.Fatalf("expected winner agentA, got %x", result.Winner)
	}
	if result.Payment.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("expected payment 100 for sole bid, got %s", result.Payment)
	}
	if result.SocialWelfare.Sign() != 0 {
		t.Fatalf("expected zero social welfare with no other bidders, got %s", result.SocialWelfare)
	}
}

func TestFinalizeAuctionTiedLowestFirstInsertionWins(t *testing.T) {
	e, _ := newTestEngine(t)
	a, err := e.CreateAuction(creator, taskHash(1), []string{"math"}, 100)
	if err != nil {
		t.Fatalf("CreateAuction: %v", err)
	}
	if _, err := e.PlaceBid(a.ID, agentA, big.NewInt(100)); err != nil {
		t.Fatalf("bid a: %v", err)
	}
	if _, err := e.PlaceBid(a.ID, agentB, big.NewInt(100)); err != nil {
		t.Fatalf("bid b: %v", err)
	}
	if _, err := e.PlaceBid(a.ID, agentC, big.NewInt(200)); err != nil {
		t.Fatalf("bid c: %v", err)
	}
	e.SetNowFunc(func() int64 { return 101 })
	result, err := e.FinalizeAuction(a.ID)
	if err != nil {
		t.Fatalf("FinalizeAuction: %v", err)
	}
	if result.Winner != agentA {
		t.Fatalf("expected first-inserted tied bidder agentA to win, got %x", result.Winner)
	}
	if result.Payment.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("expected payment 100, got %s", result.Payment)
	}
}

func TestFinalizeAuctionRejectsBeforeEndsAt(t *testing.T) {
	e, _ := newTestEngine(t)
	a, err := e.CreateAuction(creator, taskHash(1), []string{"math"}, 100)
	if err != nil {
		t.Fatalf("CreateAuction: %v", err)
	}
	if _, err := e.PlaceBid(a.ID, agentA, big.NewInt(100)); err != nil {
		t.Fatalf("bid a: %v", err)
	}
	if _, err := e.FinalizeAuction(a.ID); err != ErrAuctionNotEnded {
		t.Fatalf("expected ErrAuctionNotEnded, got %v", err)
	}
}

func TestCancelAuctionRequiresNoBids(t *testing.T) {
	e, _ := newTestEngine(t)
	a, err := e.CreateAuction(creator, taskHash(1), []string{"math"}, 100)
	if err != nil {
		t.Fatalf("CreateAuction: %v", err)
	}
	if _, err := e.PlaceBid(a.ID, agentA, big.NewInt(100)); err != nil {
		t.Fatalf("bid a: %v", err)
	}
	if _, err := e.CancelAuction(a.ID, creator); err != ErrNotEmpty {
		t.Fatalf("expected ErrNotEmpty, got %v", err)
	}
}

func TestCancelAuctionRequiresCreator(t *testing.T) {
	e, _ := newTestEngine(t)
	a, err := e.CreateAuction(creator, taskHash(1), []string{"math"}, 100)
	if err != nil {
		t.Fatalf("CreateAuction: %v", err)
	}
	if _, err := e.CancelAuction(a.ID, agentA); err != ErrNotAuthorized {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
	result, err := e.CancelAuction(a.ID, creator)
	if err != nil {
		t.Fatalf("CancelAuction: %v", err)
	}
	if result.Status != StatusCancelled {
		t.Fatalf("expected cancelled status, got %v", result.Status)
	}
}
