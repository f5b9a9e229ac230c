// Package census keeps the Merkle tree of the registered commitments of a
// voting round. Its root is a compact digest of the eligible set that can be
// published, and its inclusion proofs let a verifier check that a commitment
// belongs to it.
package census

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/vocdoni/arbo"
	"github.com/vocdoni/ballot-registry/types"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

const (
	censusDBprefix = "cs_"

	// MaxLevels is the depth of the commitment tree.
	MaxLevels = 160
	// KeyLen is the length of the leaf keys derived from identities.
	KeyLen = MaxLevels / 8
)

var (
	// ErrKeyNotFound is returned when an identity has no leaf in the tree.
	ErrKeyNotFound = fmt.Errorf("key not found")

	defaultHashFunction = arbo.HashFunctionSha256
)

// Proof is an inclusion proof of a commitment in the tree.
type Proof struct {
	Identity string         `json:"identity"`
	Root     types.HexBytes `json:"root"`
	Key      types.HexBytes `json:"key"`
	Value    types.HexBytes `json:"value"`
	Siblings types.HexBytes `json:"siblings"`
}

// Verify checks the proof against its own root. The caller must compare the
// root with the published one.
func (p *Proof) Verify() bool {
	if !types.HexBytes(Key(p.Identity)).Equal(p.Key) {
		return false
	}
	valid, err := arbo.CheckProof(defaultHashFunction, p.Key, p.Value, p.Root, p.Siblings)
	if err != nil {
		return false
	}
	return valid
}

// Tree is the commitment tree of one round. All accesses to the underlying
// arbo tree are serialized by mu.
type Tree struct {
	RoundID uuid.UUID
	mu      sync.Mutex
	tree    *arbo.Tree
}

// New opens the tree of the round stored in database, creating it if it
// does not exist yet.
func New(database db.Database, roundID uuid.UUID) (*Tree, error) {
	tree, err := arbo.NewTree(arbo.Config{
		Database:     prefixeddb.NewPrefixedDatabase(database, censusPrefix(roundID)),
		MaxLevels:    MaxLevels,
		HashFunction: defaultHashFunction,
	})
	if err != nil {
		return nil, fmt.Errorf("open census tree: %w", err)
	}
	return &Tree{RoundID: roundID, tree: tree}, nil
}

// Key derives the leaf key of an identity.
func Key(identity string) []byte {
	hash := sha256.Sum256([]byte(identity))
	return hash[:KeyLen]
}

// Has reports whether the identity has a leaf in the tree.
func (t *Tree) Has(identity string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, _, err := t.tree.Get(Key(identity)); err != nil {
		if errors.Is(err, arbo.ErrKeyNotFound) || errors.Is(err, db.ErrKeyNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Insert adds the commitment of a new identity.
func (t *Tree) Insert(identity string, commitment []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tree.Add(Key(identity), commitment)
}

// Replace updates the commitment of an identity already in the tree.
func (t *Tree) Replace(identity string, commitment []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tree.Update(Key(identity), commitment)
}

// Root returns the current root of the tree.
func (t *Tree) Root() (types.HexBytes, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tree.Root()
}

// Size returns the number of leaves.
func (t *Tree) Size() (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tree.GetNLeafs()
}

// Proof generates the inclusion proof of the identity commitment.
func (t *Tree) Proof(identity string) (*Proof, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	root, err := t.tree.Root()
	if err != nil {
		return nil, err
	}
	key, value, siblings, inclusion, err := t.tree.GenProof(Key(identity))
	if err != nil {
		return nil, err
	}
	if !inclusion {
		return nil, ErrKeyNotFound
	}
	return &Proof{
		Identity: identity,
		Root:     root,
		Key:      key,
		Value:    value,
		Siblings: siblings,
	}, nil
}

// censusPrefix returns the prefix used for the round tree in the database.
func censusPrefix(roundID uuid.UUID) []byte {
	return append([]byte(censusDBprefix), roundID[:]...)
}
