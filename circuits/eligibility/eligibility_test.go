package eligibility

import (
	"encoding/json"
	"os"
	"sync"
	"testing"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend"
	"github.com/consensys/gnark/test"
	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/ballot-registry/circuits"
	"github.com/vocdoni/ballot-registry/crypto/commitment"
)

var (
	testBackendOnce sync.Once
	testBackend     *Backend
	testBackendErr  error
)

// backendForTest shares one set of keys across the tests of the package.
func backendForTest(t *testing.T) *Backend {
	testBackendOnce.Do(func() {
		testBackend, testBackendErr = New()
	})
	qt.Assert(t, testBackendErr, qt.IsNil)
	return testBackend
}

func TestCircuit(t *testing.T) {
	assert := test.NewAssert(t)

	secret, err := commitment.RandomSecret()
	assert.NoError(err)
	other, err := commitment.RandomSecret()
	assert.NoError(err)

	assert.CheckCircuit(&Circuit{},
		test.WithValidAssignment(Assignment(secret, commitment.Derive(secret))),
		test.WithInvalidAssignment(Assignment(secret, commitment.Derive(other))),
		test.WithCurves(ecc.BN254),
		test.WithBackends(backend.GROTH16))
}

func TestProveAndVerify(t *testing.T) {
	c := qt.New(t)
	b := backendForTest(t)

	secret, err := commitment.RandomSecret()
	c.Assert(err, qt.IsNil)
	cm := commitment.Derive(secret)

	proof, err := b.Prove(secret, cm)
	c.Assert(err, qt.IsNil)

	ok, err := b.Verify(cm, proof)
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsTrue)

	// the proof is bound to its commitment
	other, err := commitment.RandomSecret()
	c.Assert(err, qt.IsNil)
	ok, err = b.Verify(commitment.Derive(other), proof)
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsFalse)

	// a prover that does not know the secret cannot produce a proof
	_, err = b.Prove(other, cm)
	c.Assert(err, qt.Not(qt.IsNil))
}

func TestProofRoundTrip(t *testing.T) {
	c := qt.New(t)
	b := backendForTest(t)

	secret, err := commitment.RandomSecret()
	c.Assert(err, qt.IsNil)
	cm := commitment.Derive(secret)
	proof, err := b.Prove(secret, cm)
	c.Assert(err, qt.IsNil)

	data, err := proof.Marshal()
	c.Assert(err, qt.IsNil)

	decoded, err := b.DecodeProof(data)
	c.Assert(err, qt.IsNil)
	again, err := decoded.Marshal()
	c.Assert(err, qt.IsNil)
	c.Assert(again, qt.DeepEquals, data)

	ok, err := b.Verify(cm, decoded)
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsTrue)
}

func TestDecodeMalformedProof(t *testing.T) {
	c := qt.New(t)
	b := backendForTest(t)

	secret, err := commitment.RandomSecret()
	c.Assert(err, qt.IsNil)
	proof, err := b.Prove(secret, commitment.Derive(secret))
	c.Assert(err, qt.IsNil)
	data, err := proof.Marshal()
	c.Assert(err, qt.IsNil)
	env := proofEnvelope{}
	c.Assert(json.Unmarshal(data, &env), qt.IsNil)

	mustJSON := func(v any) []byte {
		out, err := json.Marshal(v)
		c.Assert(err, qt.IsNil)
		return out
	}

	for name, payload := range map[string][]byte{
		"not json":       []byte("not a real proof"),
		"empty":          {},
		"unknown curve":  mustJSON(proofEnvelope{Curve: "curve25519", Proof: env.Proof}),
		"wrong curve":    mustJSON(proofEnvelope{Curve: ecc.BLS12_377.String(), Proof: env.Proof}),
		"empty proof":    mustJSON(proofEnvelope{Curve: env.Curve}),
		"truncated":      mustJSON(proofEnvelope{Curve: env.Curve, Proof: env.Proof[:len(env.Proof)/2]}),
		"trailing bytes": mustJSON(proofEnvelope{Curve: env.Curve, Proof: append(append([]byte{}, env.Proof...), 0x01)}),
		"unknown field":  []byte(`{"curve":"bn254","proof":"00","extra":1}`),
		"trailing json":  append(append([]byte{}, data...), []byte(` {}`)...),
		"trailing brace": append(append([]byte{}, data...), '}'),
		"trailing array": append(append([]byte{}, data...), []byte(" ]")...),
	} {
		_, err := b.DecodeProof(payload)
		c.Assert(err, qt.Not(qt.IsNil), qt.Commentf("payload %q", name))
	}

	// surrounding whitespace is not trailing data
	padded := append(append([]byte(" "), data...), []byte("\n")...)
	_, err = b.DecodeProof(padded)
	c.Assert(err, qt.IsNil)
}

func TestLoadFromArtifacts(t *testing.T) {
	c := qt.New(t)
	dir := t.TempDir()

	artifacts := circuits.NewCircuitArtifacts(dir, ArtifactsName)
	first, err := Load(artifacts)
	c.Assert(err, qt.IsNil)
	vk1, err := first.VerifyingKey()
	c.Assert(err, qt.IsNil)

	entries, err := os.ReadDir(dir)
	c.Assert(err, qt.IsNil)
	c.Assert(entries, qt.HasLen, 4) // manifest + three artifacts

	// a second load reuses the stored keys
	second, err := Load(circuits.NewCircuitArtifacts(dir, ArtifactsName))
	c.Assert(err, qt.IsNil)
	vk2, err := second.VerifyingKey()
	c.Assert(err, qt.IsNil)
	c.Assert(vk2, qt.DeepEquals, vk1)

	// proofs of one instance verify on the other
	secret, err := commitment.RandomSecret()
	c.Assert(err, qt.IsNil)
	cm := commitment.Derive(secret)
	proof, err := first.Prove(secret, cm)
	c.Assert(err, qt.IsNil)
	ok, err := second.Verify(cm, proof)
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsTrue)
}
