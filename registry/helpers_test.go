package registry

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/ballot-registry/circuits"
	"github.com/vocdoni/ballot-registry/circuits/eligibility"
	"github.com/vocdoni/ballot-registry/crypto/commitment"
	"github.com/vocdoni/ballot-registry/storage"
)

var (
	grothOnce    sync.Once
	grothBackend *eligibility.Backend
	grothErr     error
)

// groth16ForTest shares one set of Groth16 keys across the tests.
func groth16ForTest(t *testing.T) *eligibility.Backend {
	grothOnce.Do(func() {
		grothBackend, grothErr = eligibility.New()
	})
	qt.Assert(t, grothErr, qt.IsNil)
	return grothBackend
}

const fakeProofPrefix = "fake:"

// fakeProof claims knowledge of the secret of c.
type fakeProof struct {
	c commitment.Commitment
}

func (p *fakeProof) Marshal() ([]byte, error) {
	return []byte(fakeProofPrefix + p.c.Hex()), nil
}

// fakeBackend accepts a proof if it names the expected commitment. It is
// used to inject backend failures.
type fakeBackend struct {
	proveErr  error
	verifyErr error
}

var _ circuits.ProofBackend = (*fakeBackend)(nil)

func (b *fakeBackend) Prove(secret *commitment.Secret, c commitment.Commitment) (circuits.Proof, error) {
	if b.proveErr != nil {
		return nil, b.proveErr
	}
	if commitment.Derive(secret) != c {
		return nil, fmt.Errorf("secret does not match commitment")
	}
	return &fakeProof{c: c}, nil
}

func (b *fakeBackend) Verify(c commitment.Commitment, p circuits.Proof) (bool, error) {
	if b.verifyErr != nil {
		return false, b.verifyErr
	}
	fp, ok := p.(*fakeProof)
	if !ok {
		return false, fmt.Errorf("unexpected proof type %T", p)
	}
	return fp.c == c, nil
}

func (b *fakeBackend) DecodeProof(data []byte) (circuits.Proof, error) {
	hex, ok := strings.CutPrefix(string(data), fakeProofPrefix)
	if !ok {
		return nil, fmt.Errorf("missing prefix")
	}
	c, err := commitment.ParseCommitment(hex)
	if err != nil {
		return nil, err
	}
	return &fakeProof{c: c}, nil
}

// fakeProofFor builds a proof for c without knowing the secret.
func fakeProofFor(c commitment.Commitment) []byte {
	data, _ := (&fakeProof{c: c}).Marshal()
	return data
}

var errLedgerDown = errors.New("ledger down")

// failingLedger wraps a ledger and fails the writes selected by its flags.
type failingLedger struct {
	Ledger
	failVoters  bool
	failBallots bool
}

func (l *failingLedger) SetVoter(rec *storage.VoterRecord) error {
	if l.failVoters {
		return errLedgerDown
	}
	return l.Ledger.SetVoter(rec)
}

func (l *failingLedger) SetBallot(rec *storage.BallotRecord) error {
	if l.failBallots {
		return errLedgerDown
	}
	return l.Ledger.SetBallot(rec)
}
