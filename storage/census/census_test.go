package census

import (
	"fmt"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/google/uuid"
	"github.com/vocdoni/ballot-registry/util"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/metadb"
)

// newDatabase returns a new test database.
func newDatabase(t *testing.T) db.Database {
	return metadb.NewTest(t)
}

func TestTreeInsertAndProof(t *testing.T) {
	c := qt.New(t)
	tree, err := New(newDatabase(t), uuid.New())
	c.Assert(err, qt.IsNil)

	emptyRoot, err := tree.Root()
	c.Assert(err, qt.IsNil)

	commitments := map[string][]byte{}
	for i := 0; i < 10; i++ {
		id := fmt.Sprintf("voter-%d", i)
		commitments[id] = util.RandomBytes(32)
		c.Assert(tree.Insert(id, commitments[id]), qt.IsNil)
	}
	size, err := tree.Size()
	c.Assert(err, qt.IsNil)
	c.Assert(size, qt.Equals, 10)

	root, err := tree.Root()
	c.Assert(err, qt.IsNil)
	c.Assert(root.Equal(emptyRoot), qt.IsFalse)

	for id, cm := range commitments {
		proof, err := tree.Proof(id)
		c.Assert(err, qt.IsNil)
		c.Assert(proof.Root.Equal(root), qt.IsTrue)
		c.Assert([]byte(proof.Value), qt.DeepEquals, cm)
		c.Assert(proof.Verify(), qt.IsTrue)

		// a proof cannot be reused for another identity
		forged := *proof
		forged.Identity = id + "-forged"
		c.Assert(forged.Verify(), qt.IsFalse)
	}

	_, err = tree.Proof("unknown")
	c.Assert(err, qt.ErrorIs, ErrKeyNotFound)

	// duplicated keys are rejected by Insert
	c.Assert(tree.Insert("voter-0", util.RandomBytes(32)), qt.Not(qt.IsNil))
}

func TestTreeReplace(t *testing.T) {
	c := qt.New(t)
	tree, err := New(newDatabase(t), uuid.New())
	c.Assert(err, qt.IsNil)

	c.Assert(tree.Insert("alice", util.RandomBytes(32)), qt.IsNil)
	before, err := tree.Root()
	c.Assert(err, qt.IsNil)

	updated := util.RandomBytes(32)
	c.Assert(tree.Replace("alice", updated), qt.IsNil)
	after, err := tree.Root()
	c.Assert(err, qt.IsNil)
	c.Assert(after.Equal(before), qt.IsFalse)

	proof, err := tree.Proof("alice")
	c.Assert(err, qt.IsNil)
	c.Assert([]byte(proof.Value), qt.DeepEquals, updated)
	c.Assert(proof.Verify(), qt.IsTrue)
}

func TestTreeIsPersistentPerRound(t *testing.T) {
	c := qt.New(t)
	database := newDatabase(t)
	roundID := uuid.New()

	tree, err := New(database, roundID)
	c.Assert(err, qt.IsNil)
	c.Assert(tree.Insert("alice", util.RandomBytes(32)), qt.IsNil)
	root, err := tree.Root()
	c.Assert(err, qt.IsNil)

	reopened, err := New(database, roundID)
	c.Assert(err, qt.IsNil)
	reopenedRoot, err := reopened.Root()
	c.Assert(err, qt.IsNil)
	c.Assert(reopenedRoot.Equal(root), qt.IsTrue)

	// another round sharing the database starts empty
	other, err := New(database, uuid.New())
	c.Assert(err, qt.IsNil)
	size, err := other.Size()
	c.Assert(err, qt.IsNil)
	c.Assert(size, qt.Equals, 0)
}
