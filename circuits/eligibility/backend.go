package eligibility

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
	"github.com/vocdoni/ballot-registry/circuits"
	"github.com/vocdoni/ballot-registry/crypto/commitment"
	"github.com/vocdoni/ballot-registry/log"
)

// Curve is the curve the eligibility circuit is compiled for. Its scalar
// field is the field of the MiMC commitment scheme.
const Curve = ecc.BN254

// ArtifactsName names the circuit in the artifacts cache.
const ArtifactsName = "eligibility"

// Backend is a Groth16 circuits.ProofBackend. The keys are generated once and
// are read-only afterwards, so a Backend is safe for concurrent use.
type Backend struct {
	ccs constraint.ConstraintSystem
	pk  groth16.ProvingKey
	vk  groth16.VerifyingKey
}

var _ circuits.ProofBackend = (*Backend)(nil)

// Compile compiles the eligibility circuit into a R1CS.
func Compile() (constraint.ConstraintSystem, error) {
	ccs, err := frontend.Compile(Curve.ScalarField(), r1cs.NewBuilder, &Circuit{})
	if err != nil {
		return nil, fmt.Errorf("compile error: %w", err)
	}
	return ccs, nil
}

// Setup runs the Groth16 setup of the compiled circuit. The toxic waste is
// generated locally, which is fine for a single operator but not a
// substitute for a ceremony.
func Setup(ccs constraint.ConstraintSystem) (groth16.ProvingKey, groth16.VerifyingKey, error) {
	pk, vk, err := groth16.Setup(ccs)
	if err != nil {
		return nil, nil, fmt.Errorf("setup error: %w", err)
	}
	return pk, vk, nil
}

// New compiles the circuit and generates fresh keys.
func New() (*Backend, error) {
	start := time.Now()
	ccs, err := Compile()
	if err != nil {
		return nil, err
	}
	pk, vk, err := Setup(ccs)
	if err != nil {
		return nil, err
	}
	log.Debugw("eligibility circuit ready",
		"constraints", ccs.GetNbConstraints(),
		"took", time.Since(start).String())
	return &Backend{ccs: ccs, pk: pk, vk: vk}, nil
}

// Load restores the backend from the artifacts cache or, if nothing was
// cached yet, compiles the circuit, generates the keys and stores them.
func Load(artifacts *circuits.CircuitArtifacts) (*Backend, error) {
	err := artifacts.LoadAll()
	if errors.Is(err, circuits.ErrArtifactsNotFound) {
		b, err := New()
		if err != nil {
			return nil, err
		}
		ccs, pk, vk, err := b.encode()
		if err != nil {
			return nil, err
		}
		if err := artifacts.StoreAll(ccs, pk, vk); err != nil {
			return nil, fmt.Errorf("store artifacts: %w", err)
		}
		return b, nil
	}
	if err != nil {
		return nil, err
	}
	b := &Backend{
		ccs: groth16.NewCS(Curve),
		pk:  groth16.NewProvingKey(Curve),
		vk:  groth16.NewVerifyingKey(Curve),
	}
	if _, err := b.ccs.ReadFrom(bytes.NewReader(artifacts.CircuitDefinition())); err != nil {
		return nil, fmt.Errorf("read circuit definition: %w", err)
	}
	if _, err := b.pk.ReadFrom(bytes.NewReader(artifacts.ProvingKey())); err != nil {
		return nil, fmt.Errorf("read proving key: %w", err)
	}
	if _, err := b.vk.ReadFrom(bytes.NewReader(artifacts.VerifyingKey())); err != nil {
		return nil, fmt.Errorf("read verifying key: %w", err)
	}
	return b, nil
}

func (b *Backend) encode() (ccs, pk, vk []byte, err error) {
	var ccsBuf, pkBuf, vkBuf bytes.Buffer
	if _, err := b.ccs.WriteTo(&ccsBuf); err != nil {
		return nil, nil, nil, fmt.Errorf("write circuit definition: %w", err)
	}
	if _, err := b.pk.WriteTo(&pkBuf); err != nil {
		return nil, nil, nil, fmt.Errorf("write proving key: %w", err)
	}
	if _, err := b.vk.WriteTo(&vkBuf); err != nil {
		return nil, nil, nil, fmt.Errorf("write verifying key: %w", err)
	}
	return ccsBuf.Bytes(), pkBuf.Bytes(), vkBuf.Bytes(), nil
}

// VerifyingKey returns the serialized verifying key, so verifiers outside the
// registry can check proofs.
func (b *Backend) VerifyingKey() ([]byte, error) {
	buf := bytes.Buffer{}
	if _, err := b.vk.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Prove generates a proof of knowledge of secret for the commitment c. It
// fails if c is not the commitment of secret.
func (b *Backend) Prove(secret *commitment.Secret, c commitment.Commitment) (circuits.Proof, error) {
	fullWitness, err := frontend.NewWitness(Assignment(secret, c), Curve.ScalarField())
	if err != nil {
		return nil, fmt.Errorf("full witness error: %w", err)
	}
	proof, err := groth16.Prove(b.ccs, b.pk, fullWitness)
	if err != nil {
		return nil, fmt.Errorf("proof error: %w", err)
	}
	return &Proof{curve: Curve, proof: proof}, nil
}

// Verify checks the proof against the commitment as single public input.
func (b *Backend) Verify(c commitment.Commitment, p circuits.Proof) (bool, error) {
	proof, ok := p.(*Proof)
	if !ok || proof == nil || proof.proof == nil {
		return false, fmt.Errorf("unexpected proof type %T", p)
	}
	if proof.curve != b.vk.CurveID() {
		return false, fmt.Errorf("proof curve %s does not match verifying key curve %s", proof.curve, b.vk.CurveID())
	}
	publicWitness, err := frontend.NewWitness(PublicAssignment(c), Curve.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return false, fmt.Errorf("public witness error: %w", err)
	}
	if err := groth16.Verify(proof.proof, b.vk, publicWitness); err != nil {
		log.Debugw("proof rejected", "commitment", c.Hex(), "error", err.Error())
		return false, nil
	}
	return true, nil
}

// DecodeProof parses a proof envelope for the backend curve.
func (b *Backend) DecodeProof(data []byte) (circuits.Proof, error) {
	proof, err := UnmarshalProof(data, Curve)
	if err != nil {
		return nil, err
	}
	return proof, nil
}
