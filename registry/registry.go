// Package registry implements the proof-gated ballot registry. Voters are
// registered with a fresh secret and a public commitment to it, and a ballot
// is only recorded when it comes with a proof of knowledge of the secret
// behind the voter commitment. Every identity goes through
// Unregistered -> Registered -> Voted, and Voted is terminal.
package registry

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vocdoni/ballot-registry/circuits"
	"github.com/vocdoni/ballot-registry/crypto/commitment"
	"github.com/vocdoni/ballot-registry/log"
	"github.com/vocdoni/ballot-registry/storage"
)

// Ledger persists the public state of the registry. storage.Storage is the
// default implementation.
type Ledger interface {
	SetVoter(rec *storage.VoterRecord) error
	SetBallot(rec *storage.BallotRecord) error
	Voters() ([]*storage.VoterRecord, error)
	Ballots() ([]*storage.BallotRecord, error)
}

// Registry owns the voter registry and the ballot store of one round.
type Registry struct {
	backend   circuits.ProofBackend
	voters    *VoterRegistry
	ballots   *BallotStore
	ledger    Ledger
	overwrite bool
	roundID   uuid.UUID
	scheme    commitment.Scheme
	source    commitment.SecretSource
}

// Option configures a Registry.
type Option func(*Registry)

// WithLedger writes every registration and ballot to l before it becomes
// visible.
func WithLedger(l Ledger) Option {
	return func(r *Registry) { r.ledger = l }
}

// WithOverwrite allows re-registering an identity that has not voted yet,
// replacing its secret. Voted identities still fail with ErrAlreadyVoted.
func WithOverwrite() Option {
	return func(r *Registry) { r.overwrite = true }
}

// WithSecretSource replaces the random secret source.
func WithSecretSource(src commitment.SecretSource) Option {
	return func(r *Registry) { r.source = src }
}

// WithScheme replaces the commitment scheme. It must match the predicate
// evaluated by the proof backend.
func WithScheme(s commitment.Scheme) Option {
	return func(r *Registry) { r.scheme = s }
}

// WithRoundID sets the round identifier, otherwise a random one is used.
func WithRoundID(id uuid.UUID) Option {
	return func(r *Registry) { r.roundID = id }
}

// New creates an empty registry gated by backend.
func New(backend circuits.ProofBackend, opts ...Option) *Registry {
	r := &Registry{
		backend: backend,
		roundID: uuid.New(),
		scheme:  commitment.MiMC,
		source:  commitment.RandomSecret,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.voters = newVoterRegistry(r.scheme, r.source)
	r.ballots = newBallotStore()
	if r.ledger != nil {
		r.voters.persist = func(identity string, c commitment.Commitment) error {
			return r.ledger.SetVoter(&storage.VoterRecord{
				Identity:     identity,
				Commitment:   c.Bytes(),
				RegisteredAt: time.Now().Unix(),
			})
		}
		r.ballots.persist = func(identity string, choice bool) error {
			err := r.ledger.SetBallot(&storage.BallotRecord{
				Identity: identity,
				Choice:   choice,
				CastAt:   time.Now().Unix(),
			})
			if errors.Is(err, storage.ErrAlreadyExists) {
				return ErrAlreadyVoted
			}
			return err
		}
	}
	return r
}

// RoundID returns the identifier of the round.
func (r *Registry) RoundID() uuid.UUID {
	return r.roundID
}

// Restore loads the voters and ballots of the ledger. Restored voters keep
// their commitment and can cast ballots with proofs built elsewhere, but
// their secret is not available to GenerateProof.
func (r *Registry) Restore() error {
	if r.ledger == nil {
		return nil
	}
	voters, err := r.ledger.Voters()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLedger, err)
	}
	ballots, err := r.ledger.Ballots()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLedger, err)
	}
	for _, v := range voters {
		c, err := commitment.CommitmentFromBytes(v.Commitment)
		if err != nil {
			return fmt.Errorf("%w: voter %q: %w", ErrLedger, v.Identity, err)
		}
		r.voters.restore(v.Identity, c)
	}
	r.ballots.mu.Lock()
	for _, b := range ballots {
		r.ballots.ballots[b.Identity] = b.Choice
	}
	r.ballots.mu.Unlock()
	log.Infow("registry restored", "round", r.roundID.String(),
		"voters", len(voters), "ballots", len(ballots))
	return nil
}

// RegisterVoter registers identity with a fresh secret and returns its
// commitment.
func (r *Registry) RegisterVoter(identity string) (commitment.Commitment, error) {
	c, err := r.voters.register(identity, r.overwrite, func() error {
		if r.ballots.HasVoted(identity) {
			return ErrAlreadyVoted
		}
		return nil
	})
	if err != nil {
		return commitment.Commitment{}, err
	}
	log.Infow("voter registered", "identity", identity, "commitment", c.Hex())
	return c, nil
}

// VoterCommitment returns the hex commitment of identity, if registered.
func (r *Registry) VoterCommitment(identity string) (string, bool) {
	c, ok := r.voters.CommitmentOf(identity)
	if !ok {
		return "", false
	}
	return c.Hex(), true
}

// Commitment returns the commitment of identity, if registered.
func (r *Registry) Commitment(identity string) (commitment.Commitment, bool) {
	return r.voters.CommitmentOf(identity)
}

// GenerateProof builds the serialized proof that the holder of the
// identity secret knows the preimage of its commitment.
func (r *Registry) GenerateProof(identity string) ([]byte, error) {
	secret, c, ok := r.voters.secretOf(identity)
	if !ok {
		return nil, ErrVoterNotRegistered
	}
	if secret == nil {
		return nil, ErrSecretUnavailable
	}
	proof, err := r.backend.Prove(secret, c)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProofSystem, err)
	}
	data, err := proof.Marshal()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerialization, err)
	}
	log.Debugw("proof generated", "identity", identity, "size", len(data))
	return data, nil
}

// CastVote records the choice of identity if proofData is a valid proof for
// its commitment. On any error the registry state is unchanged.
func (r *Registry) CastVote(identity string, choice bool, proofData []byte) error {
	c, ok := r.voters.CommitmentOf(identity)
	if !ok {
		return ErrVoterNotRegistered
	}
	if r.ballots.HasVoted(identity) {
		return ErrAlreadyVoted
	}
	proof, err := r.backend.DecodeProof(proofData)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSerialization, err)
	}
	valid, err := r.backend.Verify(c, proof)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrProofSystem, err)
	}
	if !valid {
		log.Debugw("ballot rejected", "identity", identity, "commitment", c.Hex())
		return ErrInvalidProof
	}
	if err := r.ballots.TryRecord(identity, choice); err != nil {
		return err
	}
	log.Infow("ballot recorded", "identity", identity)
	return nil
}

// CountVotes returns the number of yes and no ballots recorded so far.
func (r *Registry) CountVotes() (yes, no int) {
	return r.ballots.Tally()
}

// HasVoted reports whether identity has a recorded ballot.
func (r *Registry) HasVoted(identity string) bool {
	return r.ballots.HasVoted(identity)
}

// RegisteredVoters returns the registered identities, sorted.
func (r *Registry) RegisteredVoters() []string {
	return r.voters.Identities()
}

// Stats returns the number of registered voters and recorded ballots.
func (r *Registry) Stats() (voters, ballots int) {
	return r.voters.Len(), r.ballots.Len()
}
