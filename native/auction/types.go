// Package auction implements the VCG (Vickrey-Clarke-Groves) reverse
// second-price auction: agents bid to perform a task, the lowest bidder
// wins, and pays the second-lowest bid. Truthful bidding is a dominant
// strategy because a bidder's payment never depends on its own bid.
package auction

import (
	"errors"
	"math/big"
	"strings"

	"github.com/ainur-network/ainurchain/native/common"
)

// Status enumerates the auction lifecycle. Finalized and Cancelled are
// terminal: no further transitions are accepted.
type Status uint8

const (
	StatusOpen Status = iota
	StatusFinalized
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusOpen:
		return "open"
	case StatusFinalized:
		return "finalized"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

const (
	// MaxBidsPerAuction bounds the number of distinct bidders a single
	// auction accepts. Exceeding it is a hard failure: no eviction, no
	// spill.
	MaxBidsPerAuction = 64
	// MaxRequiredCapabilities bounds the capability gate list attached to
	// an auction.
	MaxRequiredCapabilities = 16
	// DefaultDuration is the number of blocks an auction stays open when
	// createAuction is not given an explicit duration.
	DefaultDuration uint64 = 100
	// MaxDuration bounds how far in the future endsAt may be pushed.
	MaxDuration uint64 = 100_000
)

// MinBid is the smallest accepted bid amount.
var MinBid = big.NewInt(1)

// MaxAuctionAmount bounds the bid amount accepted by placeBid at 2^128.
var MaxAuctionAmount = new(big.Int).Lsh(big.NewInt(1), 128)

var (
	// ErrInvalidTaskHash is returned when taskHash is the zero value.
	ErrInvalidTaskHash = errors.New("auction: invalid task hash")
	// ErrTooManyCapabilities is returned when requiredCapabilities exceeds
	// MaxRequiredCapabilities.
	ErrTooManyCapabilities = errors.New("auction: too many required capabilities")
	// ErrInvalidCapability is returned when a required capability name is
	// empty.
	ErrInvalidCapability = errors.New("auction: invalid capability")
	// ErrInvalidDuration is returned when a caller-supplied duration
	// exceeds MaxDuration. A zero duration selects DefaultDuration.
	ErrInvalidDuration = errors.New("auction: invalid duration")
	// ErrAuctionNotFound is returned when the referenced auction does not
	// exist.
	ErrAuctionNotFound = errors.New("auction: not found")
	// ErrWrongState is returned when an operation is attempted against an
	// auction outside the state it requires.
	ErrWrongState = errors.New("auction: wrong state")
	// ErrAuctionEnded is returned when placeBid is attempted after endsAt.
	ErrAuctionEnded = errors.New("auction: auction has ended")
	// ErrAuctionNotEnded is returned when finalizeAuction is attempted
	// before endsAt.
	ErrAuctionNotEnded = errors.New("auction: auction has not ended")
	// ErrBidTooLow is returned when amount is below MinBid.
	ErrBidTooLow = errors.New("auction: bid below minimum")
	// ErrBidTooHigh is returned when amount exceeds MaxAuctionAmount.
	ErrBidTooHigh = errors.New("auction: bid exceeds maximum")
	// ErrDidNotActive is returned when no DID can be resolved for the
	// bidder's account.
	ErrDidNotActive = errors.New("auction: did is not active")
	// ErrAgentNotActive is returned when the bidder's resolved DID has no
	// active agent card.
	ErrAgentNotActive = errors.New("auction: agent is not active")
	// ErrMissingCapability is returned when the bidder's agent card lacks a
	// capability the auction requires.
	ErrMissingCapability = errors.New("auction: bidder missing required capability")
	// ErrDuplicateBid is returned when a bidder has already bid in this
	// auction.
	ErrDuplicateBid = errors.New("auction: bidder already placed a bid")
	// ErrBoundExceeded is returned when the bid list would exceed
	// MaxBidsPerAuction.
	ErrBoundExceeded = errors.New("auction: bound exceeded")
	// ErrNoBids is returned when finalizeAuction finds no bids.
	ErrNoBids = errors.New("auction: no bids placed")
	// ErrNotEmpty is returned when cancelAuction is attempted against an
	// auction that already has bids.
	ErrNotEmpty = errors.New("auction: auction already has bids")
	// ErrNotAuthorized is returned when a caller other than the auction's
	// creator attempts cancelAuction.
	ErrNotAuthorized = errors.New("auction: not authorized")
)

func init() {
	common.RegisterErrors(common.TaxonomyInvalidFormat, ErrInvalidTaskHash, ErrInvalidCapability, ErrInvalidDuration)
	common.RegisterErrors(common.TaxonomyNotFound, ErrAuctionNotFound)
	common.RegisterErrors(common.TaxonomyWrongState, ErrWrongState, ErrNotEmpty)
	common.RegisterErrors(common.TaxonomyNotAuthorized, ErrNotAuthorized)
	common.RegisterErrors(common.TaxonomyExpired, ErrAuctionEnded, ErrAuctionNotEnded)
	common.RegisterErrors(common.TaxonomyBoundExceeded, ErrTooManyCapabilities, ErrBoundExceeded)
	common.RegisterErrors(common.TaxonomyInsufficientBalance, ErrBidTooLow, ErrBidTooHigh)
	common.RegisterErrors(common.TaxonomyPolicyInvalid, ErrDidNotActive, ErrAgentNotActive, ErrMissingCapability)
	common.RegisterErrors(common.TaxonomyAlreadyExists, ErrDuplicateBid)
	common.RegisterErrors(common.TaxonomyNotFound, ErrNoBids)
}

// Bid is one bidder's offer to perform the auctioned task.
type Bid struct {
	Bidder   [20]byte
	AgentDid string
	Amount   *big.Int
	PlacedAt uint64
}

// Clone returns a deep copy so callers can mutate without aliasing state
// retrieved from storage.
func (b Bid) Clone() Bid {
	clone := b
	if b.Amount != nil {
		clone.Amount = new(big.Int).Set(b.Amount)
	}
	return clone
}

// Auction is a reverse second-price auction over a single task.
type Auction struct {
	ID                   uint64
	TaskHash             [32]byte
	RequiredCapabilities []string
	Creator              [20]byte
	Status               Status
	CreatedAt            uint64
	EndsAt               uint64
	Bids                 []Bid
	Winner               [20]byte
	WinnerDid            string
	Payment              *big.Int
	SocialWelfare        *big.Int
}

// Clone returns a deep copy of the auction, including its bid list and
// result amounts, so callers never alias storage-owned state.
func (a *Auction) Clone() *Auction {
	if a == nil {
		return nil
	}
	clone := *a
	if len(a.RequiredCapabilities) > 0 {
		clone.RequiredCapabilities = append([]string(nil), a.RequiredCapabilities...)
	}
	if len(a.Bids) > 0 {
		clone.Bids = make([]Bid, len(a.Bids))
		for i, bid := range a.Bids {
			clone.Bids[i] = bid.Clone()
		}
	}
	if a.Payment != nil {
		clone.Payment = new(big.Int).Set(a.Payment)
	}
	if a.SocialWelfare != nil {
		clone.SocialWelfare = new(big.Int).Set(a.SocialWelfare)
	}
	return &clone
}

// NormalizeCapabilities validates a required-capability list, rejecting
// empty entries and bound overflows. Capabilities are matched against the
// lowercase-normalized set an agent card publishes, so each entry is
// lowercased and trimmed as agentregistry.NormalizeCapabilities does;
// duplicates are dropped and the input order is kept.
func NormalizeCapabilities(capabilities []string) ([]string, error) {
	if len(capabilities) > MaxRequiredCapabilities {
		return nil, ErrTooManyCapabilities
	}
	seen := make(map[string]struct{}, len(capabilities))
	normalized := make([]string, 0, len(capabilities))
	for _, raw := range capabilities {
		trimmed := strings.ToLower(strings.TrimSpace(raw))
		if trimmed == "" {
			return nil, ErrInvalidCapability
		}
		if _, dup := seen[trimmed]; dup {
			continue
		}
		seen[trimmed] = struct{}{}
		normalized = append(normalized, trimmed)
	}
	return normalized, nil
}
