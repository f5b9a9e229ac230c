// storage package keeps the public ledger of a voting round: the commitment
// of every registered voter and every recorded ballot. Voter secrets are
// never written here. The ledger lives in a prefixed key-value store and
// uses the following prefixes:
//   - 'm/' for metadata (the round identifier)
//   - 'vt/' for voter records, keyed by the hash of the identity
//   - 'bl/' for ballot records, keyed by the hash of the identity
//   - 'cs_' for the commitment tree of the round (see the census package)
package storage

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/vocdoni/ballot-registry/log"
	"github.com/vocdoni/ballot-registry/storage/census"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

var (
	// Prefixes for the keys in the database.
	metadataPrefix = []byte("m/")
	voterPrefix    = []byte("vt/")
	ballotPrefix   = []byte("bl/")

	roundKey = []byte("round")
)

const (
	// maxKeySize is the maximum size of the key in bytes. It is used to
	// generate the key of the artifacts stored in the database by truncating
	// the hash of the artifact identifier.
	maxKeySize = 12
)

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when a ballot is recorded twice.
	ErrAlreadyExists = errors.New("already exists")
)

// Storage wraps the database with the ledger operations. Writes are
// serialized by globalLock.
type Storage struct {
	db         db.Database
	globalLock sync.Mutex
	roundID    uuid.UUID
	census     *census.Tree
}

// New creates a new Storage instance. The round identifier is read from the
// database, or generated and stored if this is a fresh database.
func New(database db.Database) (*Storage, error) {
	s := &Storage{db: database}
	rd := prefixeddb.NewPrefixedReader(s.db, metadataPrefix)
	data, err := rd.Get(roundKey)
	switch {
	case err == nil:
		if s.roundID, err = uuid.FromBytes(data); err != nil {
			return nil, fmt.Errorf("decode round id: %w", err)
		}
	case errors.Is(err, db.ErrKeyNotFound):
		s.roundID = uuid.New()
		wTx := prefixeddb.NewPrefixedWriteTx(s.db.WriteTx(), metadataPrefix)
		if err := wTx.Set(roundKey, s.roundID[:]); err != nil {
			wTx.Discard()
			return nil, fmt.Errorf("store round id: %w", err)
		}
		if err := wTx.Commit(); err != nil {
			return nil, fmt.Errorf("store round id: %w", err)
		}
		log.Infow("new voting round", "round", s.roundID.String())
	default:
		return nil, fmt.Errorf("read round id: %w", err)
	}
	if s.census, err = census.New(s.db, s.roundID); err != nil {
		return nil, err
	}
	return s, nil
}

// Close closes the storage.
func (s *Storage) Close() {
	if err := s.db.Close(); err != nil {
		log.Warnw("failed to close storage", "error", err.Error())
	}
}

// RoundID returns the identifier of the voting round kept in this storage.
func (s *Storage) RoundID() uuid.UUID {
	return s.roundID
}

// Census returns the commitment tree of the round.
func (s *Storage) Census() *census.Tree {
	return s.census
}
