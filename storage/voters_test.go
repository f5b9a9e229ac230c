package storage

import (
	"bytes"
	"errors"
	"sync/atomic"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/ballot-registry/util"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/metadb"
)

var errWriteFailed = errors.New("write failed")

// failingDB makes every Set on a key starting with failPrefix fail while
// failing is true.
type failingDB struct {
	db.Database
	failPrefix []byte
	failing    atomic.Bool
}

func (f *failingDB) WriteTx() db.WriteTx {
	return &failingTx{WriteTx: f.Database.WriteTx(), db: f}
}

type failingTx struct {
	db.WriteTx
	db *failingDB
}

func (tx *failingTx) Set(key, value []byte) error {
	if tx.db.failing.Load() && bytes.HasPrefix(key, tx.db.failPrefix) {
		return errWriteFailed
	}
	return tx.WriteTx.Set(key, value)
}

func (tx *failingTx) Unwrap() db.WriteTx {
	return tx.WriteTx
}

func newFailingStorage(t *testing.T, failPrefix []byte) (*Storage, *failingDB) {
	fdb := &failingDB{Database: metadb.NewTest(t), failPrefix: failPrefix}
	stg, err := New(fdb)
	qt.Assert(t, err, qt.IsNil)
	return stg, fdb
}

func TestSetVoterRecordWriteFailure(t *testing.T) {
	c := qt.New(t)
	stg, fdb := newFailingStorage(t, voterPrefix)
	c.Assert(stg.SetVoter(&VoterRecord{Identity: "alice", Commitment: util.RandomBytes(32)}), qt.IsNil)
	root, err := stg.Census().Root()
	c.Assert(err, qt.IsNil)

	fdb.failing.Store(true)
	bob := &VoterRecord{Identity: "bob", Commitment: util.RandomBytes(32)}
	c.Assert(stg.SetVoter(bob), qt.ErrorIs, errWriteFailed)

	// the tree is untouched and bob has no record
	after, err := stg.Census().Root()
	c.Assert(err, qt.IsNil)
	c.Assert(after.Equal(root), qt.IsTrue)
	_, err = stg.Voter("bob")
	c.Assert(err, qt.ErrorIs, ErrNotFound)

	// once the database recovers bob can be registered
	fdb.failing.Store(false)
	c.Assert(stg.SetVoter(bob), qt.IsNil)
	size, err := stg.Census().Size()
	c.Assert(err, qt.IsNil)
	c.Assert(size, qt.Equals, 2)
}

func TestSetVoterCensusFailure(t *testing.T) {
	c := qt.New(t)
	stg, fdb := newFailingStorage(t, []byte("cs_"))
	original := util.RandomBytes(32)
	c.Assert(stg.SetVoter(&VoterRecord{Identity: "alice", Commitment: original, RegisteredAt: 1}), qt.IsNil)
	root, err := stg.Census().Root()
	c.Assert(err, qt.IsNil)

	fdb.failing.Store(true)
	bob := &VoterRecord{Identity: "bob", Commitment: util.RandomBytes(32)}
	c.Assert(stg.SetVoter(bob), qt.IsNotNil)
	_, err = stg.Voter("bob")
	c.Assert(err, qt.ErrorIs, ErrNotFound)

	// a failed replacement restores the previous record
	c.Assert(stg.SetVoter(&VoterRecord{Identity: "alice", Commitment: util.RandomBytes(32)}), qt.IsNotNil)
	rec, err := stg.Voter("alice")
	c.Assert(err, qt.IsNil)
	c.Assert(rec.Commitment.Equal(original), qt.IsTrue)
	c.Assert(rec.RegisteredAt, qt.Equals, int64(1))

	after, err := stg.Census().Root()
	c.Assert(err, qt.IsNil)
	c.Assert(after.Equal(root), qt.IsTrue)

	fdb.failing.Store(false)
	c.Assert(stg.SetVoter(bob), qt.IsNil)
	proof, err := stg.Census().Proof("bob")
	c.Assert(err, qt.IsNil)
	c.Assert(proof.Value.Equal(bob.Commitment), qt.IsTrue)
}

func TestSetVoterWithOrphanLeaf(t *testing.T) {
	c := qt.New(t)
	stg, err := New(metadb.NewTest(t))
	c.Assert(err, qt.IsNil)

	// a leaf left without a ledger record is replaced, not inserted again
	c.Assert(stg.Census().Insert("carol", util.RandomBytes(32)), qt.IsNil)
	commitment := util.RandomBytes(32)
	c.Assert(stg.SetVoter(&VoterRecord{Identity: "carol", Commitment: commitment}), qt.IsNil)

	proof, err := stg.Census().Proof("carol")
	c.Assert(err, qt.IsNil)
	c.Assert(proof.Value.Equal(commitment), qt.IsTrue)
	size, err := stg.Census().Size()
	c.Assert(err, qt.IsNil)
	c.Assert(size, qt.Equals, 1)
}
