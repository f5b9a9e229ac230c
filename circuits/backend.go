package circuits

import "github.com/vocdoni/ballot-registry/crypto/commitment"

// ProofBackend is the proving system the registry consumes. The predicate is
// fixed: the prover knows a secret s such that H(s) == commitment.
type ProofBackend interface {
	// Prove builds a proof that binds secret to c.
	Prove(secret *commitment.Secret, c commitment.Commitment) (Proof, error)
	// Verify checks proof against the public commitment. A well formed proof
	// that does not verify returns false and a nil error; errors are reserved
	// for failures of the backend itself.
	Verify(c commitment.Commitment, proof Proof) (bool, error)
	// DecodeProof parses the serialized form produced by Proof.Marshal.
	DecodeProof(data []byte) (Proof, error)
}

// Proof is an opaque proof of knowledge produced by a ProofBackend.
type Proof interface {
	Marshal() ([]byte, error)
}
