package reputation

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/ainur-network/ainurchain/native/ledger"
)

// storage abstracts the subset of state manager functionality required by
// the reputation ledger.
type storage interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

var reputationStakePrefix = []byte("reputation/stake/")

func reputationStakeKey(account []byte) []byte {
	digest := ethcrypto.Keccak256(account)
	return []byte(fmt.Sprintf("%s%x", reputationStakePrefix, digest))
}

// Ledger persists bonded reputation stakes and routes collateral movements
// through a module-owned vault.
type Ledger struct {
	store    storage
	vault    *ledger.Vault
	treasury []byte
	nowFn    func() int64
}

// NewLedger constructs a ledger bound to the provided storage backend, vault,
// and protocol treasury address (the destination of slashed collateral).
func NewLedger(store storage, vault *ledger.Vault, treasury []byte) *Ledger {
	return &Ledger{
		store:    store,
		vault:    vault,
		treasury: append([]byte(nil), treasury...),
		nowFn:    func() int64 { return time.Now().Unix() },
	}
}

// SetNowFunc overrides the wall clock used to stamp ActiveSince. Tests supply
// a deterministic clock.
func (l *Ledger) SetNowFunc(now func() int64) {
	if l == nil {
		return
	}
	if now == nil {
		l.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	l.nowFn = now
}

func (l *Ledger) now() uint64 {
	if l == nil || l.nowFn == nil {
		return uint64(time.Now().Unix())
	}
	return uint64(l.nowFn())
}

func (l *Ledger) get(account []byte) (*ReputationStake, bool, error) {
	stake := &ReputationStake{}
	ok, err := l.store.KVGet(reputationStakeKey(account), stake)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	if stake.Staked == nil {
		stake.Staked = big.NewInt(0)
	}
	if stake.Slashed == nil {
		stake.Slashed = big.NewInt(0)
	}
	return stake, true, nil
}

func (l *Ledger) put(account []byte, stake *ReputationStake) error {
	return l.store.KVPut(reputationStakeKey(account), stake)
}

// Get returns the stake record for account, or ErrStakeNotFound.
func (l *Ledger) Get(account []byte) (*ReputationStake, error) {
	if l == nil || l.store == nil {
		return nil, errors.New("reputation: ledger not initialised")
	}
	stake, ok, err := l.get(account)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrStakeNotFound
	}
	return stake.Clone(), nil
}

// Bond reserves value from account and bonds it as reputation collateral.
// The first bond initializes the score to InitialReputation; later bonds
// preserve the existing score.
func (l *Ledger) Bond(account []byte, value *big.Int) (*ReputationStake, error) {
	if l == nil || l.store == nil || l.vault == nil {
		return nil, errors.New("reputation: ledger not initialised")
	}
	if value == nil || value.Cmp(MinStake) < 0 {
		return nil, ErrBelowMinStake
	}
	stake, ok, err := l.get(account)
	if err != nil {
		return nil, err
	}
	if !ok {
		stake = &ReputationStake{
			Staked:      big.NewInt(0),
			Reputation:  InitialReputation,
			Slashed:     big.NewInt(0),
			ActiveSince: l.now(),
		}
	}
	if err := l.vault.Reserve(account, value); err != nil {
		return nil, err
	}
	stake.Staked = new(big.Int).Add(stake.Staked, value)
	if err := l.put(account, stake); err != nil {
		return nil, err
	}
	return stake.Clone(), nil
}

// Unbond releases value of previously bonded collateral back to account's
// free balance, preserving the score.
func (l *Ledger) Unbond(account []byte, value *big.Int) (*ReputationStake, error) {
	if l == nil || l.store == nil || l.vault == nil {
		return nil, errors.New("reputation: ledger not initialised")
	}
	stake, ok, err := l.get(account)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrStakeNotFound
	}
	if value == nil || value.Sign() <= 0 || value.Cmp(stake.Staked) > 0 {
		return nil, ErrExceedsStaked
	}
	if err := l.vault.Unreserve(account, value); err != nil {
		return nil, err
	}
	stake.Staked = new(big.Int).Sub(stake.Staked, value)
	if err := l.put(account, stake); err != nil {
		return nil, err
	}
	return stake.Clone(), nil
}

// ReportOutcome records the result of a task execution, updating the score
// and, on failure, slashing a proportional share of the bonded stake to the
// treasury.
func (l *Ledger) ReportOutcome(account []byte, success bool) (*ReputationStake, error) {
	if l == nil || l.store == nil || l.vault == nil {
		return nil, errors.New("reputation: ledger not initialised")
	}
	stake, ok, err := l.get(account)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrStakeNotFound
	}
	if success {
		stake.TasksCompleted++
		gain := uint32(0)
		if stake.Reputation < 1000 {
			gain = ledger.SaturatingSubUint32(10, stake.Reputation/100)
		}
		stake.Reputation = ledger.SaturatingAddUint32(stake.Reputation, gain, MaxReputation)
	} else {
		stake.TasksFailed++
		stake.Reputation = ledger.SaturatingSubUint32(stake.Reputation, 20)
		slash := new(big.Int).Div(stake.Staked, big.NewInt(100))
		if slash.Sign() > 0 {
			if err := l.vault.SlashReserved(account, slash, l.treasury); err != nil {
				return nil, err
			}
			stake.Staked = new(big.Int).Sub(stake.Staked, slash)
			stake.Slashed = new(big.Int).Add(stake.Slashed, slash)
		}
	}
	if err := l.put(account, stake); err != nil {
		return nil, err
	}
	return stake.Clone(), nil
}

// SlashSevere zeroes account's score and slashes a governance-adjudicated
// percentage of its bonded stake to the treasury.
func (l *Ledger) SlashSevere(account []byte, offenseCode uint8) (*ReputationStake, error) {
	if l == nil || l.store == nil || l.vault == nil {
		return nil, errors.New("reputation: ledger not initialised")
	}
	stake, ok, err := l.get(account)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrStakeNotFound
	}
	pct := severeSlashPercent(offenseCode)
	slash, err := ledger.CheckedMulDivPercent(stake.Staked, pct)
	if err != nil {
		return nil, err
	}
	if slash.Sign() > 0 {
		if err := l.vault.SlashReserved(account, slash, l.treasury); err != nil {
			return nil, err
		}
		stake.Staked = new(big.Int).Sub(stake.Staked, slash)
		stake.Slashed = new(big.Int).Add(stake.Slashed, slash)
	}
	stake.Reputation = 0
	if err := l.put(account, stake); err != nil {
		return nil, err
	}
	return stake.Clone(), nil
}
