package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/vocdoni/ballot-registry/crypto/commitment"
)

// voter is a registry entry. secret is nil for voters restored from the
// ledger.
type voter struct {
	secret     *commitment.Secret
	commitment commitment.Commitment
}

// voterPersistFunc is called inside the write critical section before a
// voter becomes visible.
type voterPersistFunc func(identity string, c commitment.Commitment) error

// VoterRegistry maps identities to their secret and commitment. It is the
// single source of truth of who is eligible.
type VoterRegistry struct {
	mu      sync.RWMutex
	voters  map[string]*voter
	scheme  commitment.Scheme
	source  commitment.SecretSource
	persist voterPersistFunc
}

func newVoterRegistry(scheme commitment.Scheme, source commitment.SecretSource) *VoterRegistry {
	return &VoterRegistry{
		voters: make(map[string]*voter),
		scheme: scheme,
		source: source,
	}
}

// register draws a fresh secret for identity and stores its commitment. If
// the identity exists and overwrite is false it fails with
// ErrAlreadyRegistered. canRekey is consulted under the write lock before an
// existing voter is re-keyed.
func (vr *VoterRegistry) register(identity string, overwrite bool, canRekey func() error) (commitment.Commitment, error) {
	if identity == "" {
		return commitment.Commitment{}, ErrInvalidIdentity
	}
	vr.mu.Lock()
	defer vr.mu.Unlock()
	if _, ok := vr.voters[identity]; ok {
		if !overwrite {
			return commitment.Commitment{}, ErrAlreadyRegistered
		}
		if err := canRekey(); err != nil {
			return commitment.Commitment{}, err
		}
	}
	secret, err := vr.source()
	if err != nil {
		return commitment.Commitment{}, fmt.Errorf("%w: %w", ErrProofSystem, err)
	}
	c := vr.scheme.Derive(secret)
	if vr.persist != nil {
		if err := vr.persist(identity, c); err != nil {
			return commitment.Commitment{}, fmt.Errorf("%w: %w", ErrLedger, err)
		}
	}
	vr.voters[identity] = &voter{secret: secret, commitment: c}
	return c, nil
}

// restore inserts a voter known only by its commitment.
func (vr *VoterRegistry) restore(identity string, c commitment.Commitment) {
	vr.mu.Lock()
	defer vr.mu.Unlock()
	vr.voters[identity] = &voter{commitment: c}
}

// CommitmentOf returns the commitment of identity, if registered.
func (vr *VoterRegistry) CommitmentOf(identity string) (commitment.Commitment, bool) {
	vr.mu.RLock()
	defer vr.mu.RUnlock()
	v, ok := vr.voters[identity]
	if !ok {
		return commitment.Commitment{}, false
	}
	return v.commitment, true
}

// secretOf returns the secret and commitment of identity. The secret is nil
// if the registry does not hold it.
func (vr *VoterRegistry) secretOf(identity string) (*commitment.Secret, commitment.Commitment, bool) {
	vr.mu.RLock()
	defer vr.mu.RUnlock()
	v, ok := vr.voters[identity]
	if !ok {
		return nil, commitment.Commitment{}, false
	}
	return v.secret, v.commitment, true
}

// Identities returns the registered identities in lexicographic order.
func (vr *VoterRegistry) Identities() []string {
	vr.mu.RLock()
	ids := make([]string, 0, len(vr.voters))
	for id := range vr.voters {
		ids = append(ids, id)
	}
	vr.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// Len returns the number of registered voters.
func (vr *VoterRegistry) Len() int {
	vr.mu.RLock()
	defer vr.mu.RUnlock()
	return len(vr.voters)
}
