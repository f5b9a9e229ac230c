// Package commitment derives the public commitment that binds a voter to its
// private secret. The default scheme is MiMC over the BN254 scalar field, the
// same hash the eligibility circuit evaluates, so a commitment computed here
// is exactly the public input a proof is checked against.
package commitment

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"
	"github.com/vocdoni/ballot-registry/types"
)

// Size is the length in bytes of secrets and commitments.
const Size = fr.Bytes

// ErrSecretNotSerializable is returned by every encoder hook of Secret.
var ErrSecretNotSerializable = errors.New("voter secrets cannot be serialized")

const redacted = "[secret redacted]"

// Secret is a BN254 scalar field element known only to its voter. It prints
// as a redacted placeholder and refuses to be marshaled.
type Secret struct {
	v fr.Element
}

// SecretSource produces fresh secrets. RandomSecret is the default source.
type SecretSource func() (*Secret, error)

// RandomSecret draws a uniformly random field element from crypto/rand.
func RandomSecret() (*Secret, error) {
	s := &Secret{}
	if _, err := s.v.SetRandom(); err != nil {
		return nil, fmt.Errorf("generate secret: %w", err)
	}
	return s, nil
}

// SecretFromBigInt builds a secret from an integer reduced into the field.
func SecretFromBigInt(i *big.Int) *Secret {
	s := &Secret{}
	s.v.SetBigInt(i)
	return s
}

// BigInt returns the secret as an integer, for witness assignment only.
func (s *Secret) BigInt() *big.Int {
	return s.v.BigInt(new(big.Int))
}

func (s *Secret) String() string { return redacted }

func (s *Secret) GoString() string { return redacted }

func (s *Secret) Format(f fmt.State, _ rune) {
	_, _ = f.Write([]byte(redacted))
}

func (s *Secret) MarshalJSON() ([]byte, error) { return nil, ErrSecretNotSerializable }

func (s *Secret) MarshalText() ([]byte, error) { return nil, ErrSecretNotSerializable }

func (s *Secret) MarshalBinary() ([]byte, error) { return nil, ErrSecretNotSerializable }

// Commitment is the 32 byte big-endian encoding of H(secret).
type Commitment [Size]byte

// Hex returns the commitment as a lowercase hex string without prefix.
func (c Commitment) Hex() string {
	return types.HexBytes(c[:]).String()
}

func (c Commitment) String() string {
	return c.Hex()
}

// Bytes returns a copy of the commitment bytes.
func (c Commitment) Bytes() types.HexBytes {
	b := make([]byte, Size)
	copy(b, c[:])
	return b
}

// BigInt returns the commitment as a field element value.
func (c Commitment) BigInt() *big.Int {
	return new(big.Int).SetBytes(c[:])
}

// ParseCommitment decodes a hex commitment, with or without 0x prefix. The
// value must be a canonical field element.
func ParseCommitment(s string) (Commitment, error) {
	b, err := types.HexStringToHexBytes(s)
	if err != nil {
		return Commitment{}, err
	}
	return CommitmentFromBytes(b)
}

// CommitmentFromBytes checks that b is a canonical 32 byte field element.
func CommitmentFromBytes(b []byte) (Commitment, error) {
	var c Commitment
	if len(b) != Size {
		return c, fmt.Errorf("invalid commitment length %d, expected %d", len(b), Size)
	}
	if new(big.Int).SetBytes(b).Cmp(fr.Modulus()) >= 0 {
		return c, fmt.Errorf("commitment is not a field element")
	}
	copy(c[:], b)
	return c, nil
}

// Scheme is a one-way function from secrets to commitments.
type Scheme interface {
	Derive(s *Secret) Commitment
}

// MiMC is the default scheme: MiMC-BN254 over the single field element of
// the secret.
var MiMC Scheme = mimcScheme{}

type mimcScheme struct{}

func (mimcScheme) Derive(s *Secret) Commitment {
	h := mimc.NewMiMC()
	b := s.v.Bytes()
	// a canonical element is always a valid block
	if _, err := h.Write(b[:]); err != nil {
		panic(fmt.Sprintf("mimc write of canonical element: %v", err))
	}
	var c Commitment
	copy(c[:], h.Sum(nil))
	return c
}

// Derive computes the commitment with the default scheme.
func Derive(s *Secret) Commitment {
	return MiMC.Derive(s)
}
