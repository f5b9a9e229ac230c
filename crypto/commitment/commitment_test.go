package commitment

import (
	"encoding/json"
	"fmt"
	"math/big"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	qt "github.com/frankban/quicktest"
)

func TestDeriveIsDeterministic(t *testing.T) {
	c := qt.New(t)

	secret, err := RandomSecret()
	c.Assert(err, qt.IsNil)

	first := Derive(secret)
	second := Derive(secret)
	c.Assert(first, qt.Equals, second)
	c.Assert(first, qt.Not(qt.Equals), Commitment{})

	// same value, different instance
	again := SecretFromBigInt(secret.BigInt())
	c.Assert(Derive(again), qt.Equals, first)
}

func TestDistinctSecretsDistinctCommitments(t *testing.T) {
	c := qt.New(t)

	seen := map[Commitment]bool{}
	for i := 0; i < 64; i++ {
		secret, err := RandomSecret()
		c.Assert(err, qt.IsNil)
		cm := Derive(secret)
		c.Assert(seen[cm], qt.IsFalse)
		seen[cm] = true
	}
}

func TestSecretIsRedacted(t *testing.T) {
	c := qt.New(t)

	secret := SecretFromBigInt(big.NewInt(424242))
	for _, out := range []string{
		fmt.Sprint(secret),
		fmt.Sprintf("%v %+v %#v %s %d %x", secret, secret, secret, secret, secret, secret),
		secret.String(),
	} {
		c.Assert(out, qt.Not(qt.Contains), "424242")
		c.Assert(out, qt.Not(qt.Contains), "67932")
	}

	_, err := json.Marshal(secret)
	c.Assert(err, qt.ErrorMatches, ".*cannot be serialized.*")
	_, err = json.Marshal(struct{ S *Secret }{secret})
	c.Assert(err, qt.Not(qt.IsNil))
}

func TestParseCommitment(t *testing.T) {
	c := qt.New(t)

	secret, err := RandomSecret()
	c.Assert(err, qt.IsNil)
	cm := Derive(secret)

	parsed, err := ParseCommitment(cm.Hex())
	c.Assert(err, qt.IsNil)
	c.Assert(parsed, qt.Equals, cm)

	parsed, err = ParseCommitment("0x" + cm.Hex())
	c.Assert(err, qt.IsNil)
	c.Assert(parsed, qt.Equals, cm)

	_, err = ParseCommitment("abcd")
	c.Assert(err, qt.ErrorMatches, "invalid commitment length.*")

	_, err = ParseCommitment("zz")
	c.Assert(err, qt.Not(qt.IsNil))

	// the modulus itself is not a canonical element
	mod := make([]byte, Size)
	fr.Modulus().FillBytes(mod)
	_, err = CommitmentFromBytes(mod)
	c.Assert(err, qt.ErrorMatches, "commitment is not a field element")
}
