package escrow

import (
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// storage abstracts the subset of state manager functionality the escrow
// engine needs.
type storage interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVAppend(key []byte, value []byte) error
	KVGetList(key []byte, out interface{}) error
}

var (
	escrowPrefix           = []byte("escrow/escrow/")
	userEscrowPrefix       = []byte("escrow/user/")
	agentEscrowPrefix      = []byte("escrow/agent/")
	participantIndexPrefix = []byte("escrow/participant/")
	refundPolicyPrefix     = []byte("escrow/refundpolicy/")
	templatePrefix         = []byte("escrow/template/")
	templatesByCreatorPref = []byte("escrow/templatecreator/")
	nextTemplateIDKey      = []byte("escrow/nexttemplateid")
	batchInProgressPrefix  = []byte("escrow/batchinprogress/")
	batchCountersKey       = []byte("escrow/batchcounters")
)

func escrowKey(taskID [32]byte) []byte {
	return []byte(fmt.Sprintf("%s%x", escrowPrefix, taskID))
}

func userEscrowKey(account [20]byte) []byte {
	return []byte(fmt.Sprintf("%s%x", userEscrowPrefix, account))
}

func agentEscrowKey(did string) []byte {
	digest := ethcrypto.Keccak256([]byte(did))
	return []byte(fmt.Sprintf("%s%x", agentEscrowPrefix, digest))
}

func participantEscrowKey(account [20]byte) []byte {
	return []byte(fmt.Sprintf("%s%x", participantIndexPrefix, account))
}

func refundPolicyKey(taskID [32]byte) []byte {
	return []byte(fmt.Sprintf("%s%x", refundPolicyPrefix, taskID))
}

func templateKey(id uint64) []byte {
	return []byte(fmt.Sprintf("%s%d", templatePrefix, id))
}

func templatesByCreatorKey(creator [20]byte) []byte {
	return []byte(fmt.Sprintf("%s%x", templatesByCreatorPref, creator))
}

func batchInProgressKey(batchID [32]byte) []byte {
	return []byte(fmt.Sprintf("%s%x", batchInProgressPrefix, batchID))
}

// store wraps the injected storage dependency with escrow-specific CRUD and
// index-maintenance helpers. It is deliberately thin: the engine owns all
// business-rule validation, store only persists.
type store struct {
	backend storage
}

func newStore(backend storage) *store {
	return &store{backend: backend}
}

func (s *store) getEscrow(taskID [32]byte) (*Escrow, error) {
	escrow := &Escrow{}
	ok, err := s.backend.KVGet(escrowKey(taskID), escrow)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrEscrowNotFound
	}
	return escrow, nil
}

func (s *store) putEscrow(escrow *Escrow) error {
	if err := s.backend.KVPut(escrowKey(escrow.TaskID), escrow); err != nil {
		return err
	}
	if err := s.backend.KVAppend(userEscrowKey(escrow.User), escrow.TaskID[:]); err != nil {
		return err
	}
	if escrow.AgentDid != "" {
		if err := s.backend.KVAppend(agentEscrowKey(escrow.AgentDid), escrow.TaskID[:]); err != nil {
			return err
		}
	}
	for _, participant := range escrow.Participants {
		if err := s.backend.KVAppend(participantEscrowKey(participant.Account), escrow.TaskID[:]); err != nil {
			return err
		}
	}
	return nil
}

func (s *store) escrowExists(taskID [32]byte) (bool, error) {
	return s.backend.KVGet(escrowKey(taskID), nil)
}

func (s *store) getRefundPolicy(taskID [32]byte) (*RefundPolicy, bool, error) {
	policy := &RefundPolicy{}
	ok, err := s.backend.KVGet(refundPolicyKey(taskID), policy)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	return policy, true, nil
}

func (s *store) putRefundPolicy(taskID [32]byte, policy *RefundPolicy) error {
	return s.backend.KVPut(refundPolicyKey(taskID), policy)
}

func (s *store) getTemplate(id uint64) (*Template, error) {
	tmpl := &Template{}
	ok, err := s.backend.KVGet(templateKey(id), tmpl)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrTemplateNotFound
	}
	return tmpl, nil
}

func (s *store) putTemplate(tmpl *Template) error {
	if err := s.backend.KVPut(templateKey(tmpl.ID), tmpl); err != nil {
		return err
	}
	return s.backend.KVAppend(templatesByCreatorKey(tmpl.CreatedBy), []byte(fmt.Sprintf("%d", tmpl.ID)))
}

func (s *store) nextTemplateID() (uint64, error) {
	var current uint64
	if _, err := s.backend.KVGet(nextTemplateIDKey, &current); err != nil {
		return 0, err
	}
	next := current + 1
	if err := s.backend.KVPut(nextTemplateIDKey, next); err != nil {
		return 0, err
	}
	return next, nil
}

func (s *store) userEscrowIDs(account [20]byte) ([][32]byte, error) {
	var raw [][]byte
	if err := s.backend.KVGetList(userEscrowKey(account), &raw); err != nil {
		return nil, err
	}
	return toTaskIDs(raw), nil
}

func (s *store) agentEscrowIDs(did string) ([][32]byte, error) {
	var raw [][]byte
	if err := s.backend.KVGetList(agentEscrowKey(did), &raw); err != nil {
		return nil, err
	}
	return toTaskIDs(raw), nil
}

func toTaskIDs(raw [][]byte) [][32]byte {
	ids := make([][32]byte, 0, len(raw))
	for _, entry := range raw {
		var id [32]byte
		copy(id[:], entry)
		ids = append(ids, id)
	}
	return ids
}

// batchCounters tracks the monotonic counters folded into a deterministic
// batchId derivation.
type batchCounters struct {
	Next uint64
}

func (s *store) nextBatchCounter() (uint64, error) {
	counters := &batchCounters{}
	if _, err := s.backend.KVGet(batchCountersKey, counters); err != nil {
		return 0, err
	}
	counters.Next++
	if err := s.backend.KVPut(batchCountersKey, counters); err != nil {
		return 0, err
	}
	return counters.Next, nil
}

func deriveBatchID(caller [20]byte, opType string, blockNumber uint64, counter uint64) [32]byte {
	payload := []byte(fmt.Sprintf("%x|%s|%d|%d", caller, opType, blockNumber, counter))
	digest := ethcrypto.Keccak256(payload)
	var id [32]byte
	copy(id[:], digest)
	return id
}
