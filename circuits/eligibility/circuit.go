// Package eligibility implements the proof backend of the registry with a
// Groth16 proof over BN254. The circuit proves knowledge of a secret whose
// MiMC hash equals a public commitment, without revealing the secret.
package eligibility

import (
	"math/big"

	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/hash/mimc"
	"github.com/vocdoni/ballot-registry/crypto/commitment"
)

// Circuit asserts MiMC(Secret) == Commitment. Commitment is the only public
// input.
type Circuit struct {
	Secret     frontend.Variable `gnark:",secret"`
	Commitment frontend.Variable `gnark:",public"`
}

func (c *Circuit) Define(api frontend.API) error {
	h, err := mimc.NewMiMC(api)
	if err != nil {
		return err
	}
	h.Write(c.Secret)
	api.AssertIsEqual(c.Commitment, h.Sum())
	return nil
}

// Assignment returns the full witness assignment for a voter.
func Assignment(secret *commitment.Secret, c commitment.Commitment) *Circuit {
	return &Circuit{
		Secret:     secret.BigInt(),
		Commitment: c.BigInt(),
	}
}

// PublicAssignment returns the assignment of the public inputs only, used to
// build the verifier witness.
func PublicAssignment(c commitment.Commitment) *Circuit {
	return &Circuit{
		Secret:     new(big.Int),
		Commitment: c.BigInt(),
	}
}
