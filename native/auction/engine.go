package auction

import (
	"math/big"
	"time"

	"github.com/ainur-network/ainurchain/core/events"
	"github.com/ainur-network/ainurchain/core/types"
	nativecommon "github.com/ainur-network/ainurchain/native/common"
	"github.com/holiman/uint256"
)

// agentView is the narrow read-only slice of native/agentregistry.Engine the
// auction engine needs to gate bids: a bidder's DID must be active and must
// publish every capability the auction requires.
type agentView interface {
	IsAgentActive(did string) bool
	AgentCapabilities(did string) ([]string, error)
}

// identityView is the narrow read-only slice of core/identity.Engine the
// auction engine needs to derive a bidder's DID from its signed-in account.
type identityView interface {
	ResolveByAccount(account [20]byte) (string, error)
}

// Engine wires the auction dispatch surface against its storage layer, the
// agent registry, and the identity registry.
type Engine struct {
	store    *store
	agents   agentView
	identity identityView
	emitter  events.Emitter
	pauses   nativecommon.PauseView
	nowFn    func() int64
}

// NewEngine constructs an engine backed by the provided storage, agent
// registry view, and identity view.
func NewEngine(backend storage, agents agentView, identity identityView) *Engine {
	return &Engine{
		store:    newStore(backend),
		agents:   agents,
		identity: identity,
		emitter:  events.NoopEmitter{},
		nowFn:    func() int64 { return time.Now().Unix() },
	}
}

// SetState rebinds the storage dependency.
func (e *Engine) SetState(backend storage) { e.store = newStore(backend) }

// SetEmitter configures the event sink.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	e.emitter = emitter
}

// SetPauses configures the module pause view checked before every dispatch.
func (e *Engine) SetPauses(p nativecommon.PauseView) { e.pauses = p }

// SetNowFunc overrides the wall clock / block-number source.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// auctionEvent adapts the module's plain *types.Event payloads to the
// events.Event interface the shared emitter expects.
type auctionEvent struct {
	evt *types.Event
}

func (e auctionEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e *Engine) emit(evt *types.Event) {
	if e.emitter != nil && evt != nil {
		e.emitter.Emit(auctionEvent{evt: evt})
	}
}

func (e *Engine) now() uint64 {
	if e.nowFn == nil {
		return uint64(time.Now().Unix())
	}
	return uint64(e.nowFn())
}

func (e *Engine) guardNotPaused() error {
	return nativecommon.Guard(e.pauses, "auction")
}

// CreateAuction opens a new Open auction for taskHash, requiring bidders to
// hold every capability named in requiredCapabilities. duration of 0 selects
// DefaultDuration.
func (e *Engine) CreateAuction(creator [20]byte, taskHash [32]byte, requiredCapabilities []string, duration uint64) (*Auction, error) {
	if err := e.guardNotPaused(); err != nil {
		return nil, err
	}
	if taskHash == ([32]byte{}) {
		return nil, ErrInvalidTaskHash
	}
	normalized, err := NormalizeCapabilities(requiredCapabilities)
	if err != nil {
		return nil, err
	}
	if duration == 0 {
		duration = DefaultDuration
	}
	if duration > MaxDuration {
		return nil, ErrInvalidDuration
	}
	id, err := e.store.nextAuctionID()
	if err != nil {
		return nil, err
	}
	now := e.now()
	a := &Auction{
		ID:                   id,
		TaskHash:             taskHash,
		RequiredCapabilities: normalized,
		Creator:              creator,
		Status:               StatusOpen,
		CreatedAt:            now,
		EndsAt:               now + duration,
	}
	if err := e.store.putAuction(a); err != nil {
		return nil, err
	}
	e.emit(NewAuctionCreatedEvent(a))
	return a.Clone(), nil
}

// PlaceBid records bidder's offer to perform auctionID's task for amount.
// The bidder's DID is resolved from its account via the identity view; the
// resolved DID must be an active agent possessing every required
// capability, and must not have already bid in this auction.
func (e *Engine) PlaceBid(auctionID uint64, bidder [20]byte, amount *big.Int) (*Auction, error) {
	if err := e.guardNotPaused(); err != nil {
		return nil, err
	}
	a, err := e.store.getAuction(auctionID)
	if err != nil {
		return nil, err
	}
	if a.Status != StatusOpen {
		return nil, ErrWrongState
	}
	if e.now() >= a.EndsAt {
		return nil, ErrAuctionEnded
	}
	if amount == nil || amount.Cmp(MinBid) < 0 {
		return nil, ErrBidTooLow
	}
	if amount.Cmp(MaxAuctionAmount) > 0 {
		return nil, ErrBidTooHigh
	}
	if len(a.Bids) >= MaxBidsPerAuction {
		return nil, ErrBoundExceeded
	}
	if e.identity == nil {
		return nil, ErrDidNotActive
	}
	did, err := e.identity.ResolveByAccount(bidder)
	if err != nil {
		return nil, ErrDidNotActive
	}
	if e.agents == nil || !e.agents.IsAgentActive(did) {
		return nil, ErrAgentNotActive
	}
	capabilities, err := e.agents.AgentCapabilities(did)
	if err != nil {
		return nil, err
	}
	if !hasAllCapabilities(capabilities, a.RequiredCapabilities) {
		return nil, ErrMissingCapability
	}
	for _, bid := range a.Bids {
		if bid.Bidder == bidder {
			return nil, ErrDuplicateBid
		}
	}
	bid := Bid{
		Bidder:   bidder,
		AgentDid: did,
		Amount:   new(big.Int).Set(amount),
		PlacedAt: e.now(),
	}
	a.Bids = append(a.Bids, bid)
	if err := e.store.putAuction(a); err != nil {
		return nil, err
	}
	if err := e.store.indexBidder(did, auctionID); err != nil {
		return nil, err
	}
	e.emit(NewBidPlacedEvent(a, bid))
	return a.Clone(), nil
}

// FinalizeAuction closes an ended Open auction, selecting the VCG winner
// (lowest bid, first-insertion-wins on ties) and second-price payment (the
// lowest bid among all other bidders, or the sole bid if only one exists).
func (e *Engine) FinalizeAuction(auctionID uint64) (*Auction, error) {
	if err := e.guardNotPaused(); err != nil {
		return nil, err
	}
	a, err := e.store.getAuction(auctionID)
	if err != nil {
		return nil, err
	}
	if a.Status != StatusOpen {
		return nil, ErrWrongState
	}
	if e.now() < a.EndsAt {
		return nil, ErrAuctionNotEnded
	}
	if len(a.Bids) == 0 {
		return nil, ErrNoBids
	}
	winnerIdx := 0
	for i := 1; i < len(a.Bids); i++ {
		if a.Bids[i].Amount.Cmp(a.Bids[winnerIdx].Amount) < 0 {
			winnerIdx = i
		}
	}
	winner := a.Bids[winnerIdx]
	var payment *big.Int
	welfare := new(uint256.Int)
	if len(a.Bids) == 1 {
		payment = new(big.Int).Set(winner.Amount)
	} else {
		for i, bid := range a.Bids {
			if i == winnerIdx {
				continue
			}
			if payment == nil || bid.Amount.Cmp(payment) < 0 {
				payment = new(big.Int).Set(bid.Amount)
			}
			amt, overflow := uint256.FromBig(bid.Amount)
			if overflow {
				return nil, ErrBidTooHigh
			}
			welfare.Add(welfare, amt)
		}
	}
	a.Status = StatusFinalized
	a.Winner = winner.Bidder
	a.WinnerDid = winner.AgentDid
	a.Payment = payment
	a.SocialWelfare = welfare.ToBig()
	if err := e.store.putAuction(a); err != nil {
		return nil, err
	}
	e.emit(NewAuctionFinalizedEvent(a))
	return a.Clone(), nil
}

// CancelAuction withdraws an Open auction that has received no bids yet.
// Only the auction's creator may cancel.
func (e *Engine) CancelAuction(auctionID uint64, caller [20]byte) (*Auction, error) {
	if err := e.guardNotPaused(); err != nil {
		return nil, err
	}
	a, err := e.store.getAuction(auctionID)
	if err != nil {
		return nil, err
	}
	if a.Status != StatusOpen {
		return nil, ErrWrongState
	}
	if len(a.Bids) != 0 {
		return nil, ErrNotEmpty
	}
	if caller != a.Creator {
		return nil, ErrNotAuthorized
	}
	a.Status = StatusCancelled
	if err := e.store.putAuction(a); err != nil {
		return nil, err
	}
	e.emit(NewAuctionCancelledEvent(a))
	return a.Clone(), nil
}

func hasAllCapabilities(have, required []string) bool {
	if len(required) == 0 {
		return true
	}
	set := make(map[string]struct{}, len(have))
	for _, c := range have {
		set[c] = struct{}{}
	}
	for _, c := range required {
		if _, ok := set[c]; !ok {
			return false
		}
	}
	return true
}
