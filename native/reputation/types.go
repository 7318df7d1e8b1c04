// Package reputation implements the bonded-stake reputation model: an
// agent's collateral backs a numeric score that grows logarithmically on
// success and is cut proportionally on failure, with a separate severe-slash
// path for governance-adjudicated offenses.
package reputation

import (
	"errors"
	"math/big"

	"github.com/ainur-network/ainurchain/native/common"
)

// MaxReputation is the upper clamp on the reputation score.
const MaxReputation uint32 = 1000

// InitialReputation is the score assigned on an account's first bond.
const InitialReputation uint32 = 500

// MinStake is the minimum bond accepted by BondReputation.
var MinStake = big.NewInt(1000)

var (
	// ErrBelowMinStake is returned when a bond is below MinStake.
	ErrBelowMinStake = errors.New("reputation: bond below minimum stake")
	// ErrStakeNotFound is returned when an operation targets an account with
	// no bonded stake.
	ErrStakeNotFound = errors.New("reputation: no bonded stake for account")
	// ErrExceedsStaked is returned when unbondReputation requests more than
	// is currently staked.
	ErrExceedsStaked = errors.New("reputation: unbond exceeds staked amount")
	// ErrInvalidOffenseCode is returned by SlashSevere for an out-of-range
	// offense code. In practice every code maps to a slash percentage (the
	// default bucket handles "else"), so this is reserved for future use.
	ErrInvalidOffenseCode = errors.New("reputation: invalid offense code")
)

func init() {
	common.RegisterErrors(common.TaxonomyInsufficientBalance, ErrBelowMinStake, ErrExceedsStaked)
	common.RegisterErrors(common.TaxonomyNotFound, ErrStakeNotFound)
	common.RegisterErrors(common.TaxonomyInvalidFormat, ErrInvalidOffenseCode)
}

// ReputationStake is the bonded-collateral record backing an account's
// numeric reputation score.
type ReputationStake struct {
	Staked         *big.Int
	Reputation     uint32
	TasksCompleted uint64
	TasksFailed    uint64
	Slashed        *big.Int
	ActiveSince    uint64
}

// Clone returns a deep copy so callers can mutate without aliasing state
// retrieved from storage.
func (s *ReputationStake) Clone() *ReputationStake {
	if s == nil {
		return nil
	}
	clone := *s
	if s.Staked != nil {
		clone.Staked = new(big.Int).Set(s.Staked)
	} else {
		clone.Staked = big.NewInt(0)
	}
	if s.Slashed != nil {
		clone.Slashed = new(big.Int).Set(s.Slashed)
	} else {
		clone.Slashed = big.NewInt(0)
	}
	return &clone
}

// Tier is a coarse reputation banding used for agent ranking. It carries no
// storage footprint: it is always derived from the current score.
type Tier string

const (
	TierBronze   Tier = "bronze"
	TierSilver   Tier = "silver"
	TierGold     Tier = "gold"
	TierPlatinum Tier = "platinum"
)

// ReputationTier bands a raw score into one of four tiers.
func ReputationTier(score uint32) Tier {
	switch {
	case score >= 750:
		return TierPlatinum
	case score >= 500:
		return TierGold
	case score >= 250:
		return TierSilver
	default:
		return TierBronze
	}
}

// severeSlashPercent maps a governance-adjudicated offense code to the
// percentage of staked collateral it slashes.
func severeSlashPercent(offenseCode uint8) uint64 {
	switch offenseCode {
	case 0:
		return 50
	case 1:
		return 30
	case 2:
		return 25
	case 3:
		return 20
	default:
		return 20
	}
}
