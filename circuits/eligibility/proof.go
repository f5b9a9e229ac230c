package eligibility

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/vocdoni/ballot-registry/types"
)

// Proof wraps a Groth16 proof with the curve it was produced on.
type Proof struct {
	curve ecc.ID
	proof groth16.Proof
}

// proofEnvelope is the wire form of a Proof:
//
//	{"curve":"bn254","proof":"<hex of the compressed gnark encoding>"}
type proofEnvelope struct {
	Curve string         `json:"curve"`
	Proof types.HexBytes `json:"proof"`
}

// Marshal returns the JSON envelope of the proof.
func (p *Proof) Marshal() ([]byte, error) {
	if p == nil || p.proof == nil {
		return nil, fmt.Errorf("empty proof")
	}
	buf := bytes.Buffer{}
	if _, err := p.proof.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("encode proof: %w", err)
	}
	return json.Marshal(proofEnvelope{
		Curve: p.curve.String(),
		Proof: buf.Bytes(),
	})
}

// UnmarshalProof decodes a proof envelope expecting the given curve. Every
// byte of the encoded proof must be consumed.
func UnmarshalProof(data []byte, curve ecc.ID) (*Proof, error) {
	env := proofEnvelope{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&env); err != nil {
		return nil, fmt.Errorf("decode proof envelope: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("trailing data after proof envelope")
	}
	id, err := ecc.IDFromString(env.Curve)
	if err != nil {
		return nil, fmt.Errorf("unknown proof curve %q: %w", env.Curve, err)
	}
	if id != curve {
		return nil, fmt.Errorf("proof curve %s, expected %s", id, curve)
	}
	if len(env.Proof) == 0 {
		return nil, fmt.Errorf("empty proof")
	}
	proof := groth16.NewProof(id)
	n, err := proof.ReadFrom(bytes.NewReader(env.Proof))
	if err != nil {
		return nil, fmt.Errorf("decode proof: %w", err)
	}
	if n != int64(len(env.Proof)) {
		return nil, fmt.Errorf("decode proof: %d trailing bytes", int64(len(env.Proof))-n)
	}
	return &Proof{curve: id, proof: proof}, nil
}
