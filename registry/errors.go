package registry

import "errors"

var (
	// ErrVoterNotRegistered is returned when an operation references an
	// unknown identity.
	ErrVoterNotRegistered = errors.New("voter not registered")
	// ErrAlreadyRegistered is returned when registering a known identity.
	ErrAlreadyRegistered = errors.New("voter already registered")
	// ErrAlreadyVoted is returned when a ballot already exists for the
	// identity.
	ErrAlreadyVoted = errors.New("voter already voted")
	// ErrInvalidProof is returned when a well formed proof does not verify
	// against the voter commitment.
	ErrInvalidProof = errors.New("invalid proof")
	// ErrSerialization is returned when a proof payload cannot be decoded or
	// encoded.
	ErrSerialization = errors.New("proof serialization error")
	// ErrProofSystem is returned when the proof backend itself fails.
	ErrProofSystem = errors.New("proof system error")
	// ErrSecretUnavailable is returned when a proof is requested for a voter
	// whose secret is not held by this registry, such as voters restored
	// from the ledger.
	ErrSecretUnavailable = errors.New("voter secret not available")
	// ErrInvalidIdentity is returned for an empty identity.
	ErrInvalidIdentity = errors.New("invalid identity")
	// ErrLedger is returned when the ledger could not persist a change. The
	// in-memory state is left untouched.
	ErrLedger = errors.New("ledger error")
)

// IsIneligible reports whether err means the caller cannot take this action
// at all: the identity is unknown, already registered or already voted.
func IsIneligible(err error) bool {
	return errors.Is(err, ErrVoterNotRegistered) ||
		errors.Is(err, ErrAlreadyRegistered) ||
		errors.Is(err, ErrAlreadyVoted) ||
		errors.Is(err, ErrInvalidIdentity)
}

// IsRejectedEvidence reports whether err means the supplied proof was
// rejected, either because it did not verify or because it is malformed.
func IsRejectedEvidence(err error) bool {
	return errors.Is(err, ErrInvalidProof) || errors.Is(err, ErrSerialization)
}

// IsSystemFailure reports whether err is a failure of the registry itself.
func IsSystemFailure(err error) bool {
	return errors.Is(err, ErrProofSystem) ||
		errors.Is(err, ErrLedger) ||
		errors.Is(err, ErrSecretUnavailable)
}
