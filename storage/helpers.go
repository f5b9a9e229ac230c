package storage

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

// Artifact encoding/decoding
func encodeArtifact(a any) ([]byte, error) {
	encOpts := cbor.CoreDetEncOptions()
	em, err := encOpts.EncMode()
	if err != nil {
		return nil, fmt.Errorf("encode artifact: %w", err)
	}
	return em.Marshal(a)
}

func decodeArtifact(data []byte, out any) error {
	return cbor.Unmarshal(data, out)
}

func hashKey(data []byte) []byte {
	hash := sha256.Sum256(data)
	return hash[:maxKeySize]
}

// getArtifact decodes the artifact stored under prefix+key into out. It
// returns ErrNotFound if there is no such key.
func (s *Storage) getArtifact(prefix, key []byte, out any) error {
	rd := prefixeddb.NewPrefixedReader(s.db, prefix)
	data, err := rd.Get(key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("get artifact: %w", err)
	}
	if err := decodeArtifact(data, out); err != nil {
		return fmt.Errorf("decode artifact: %w", err)
	}
	return nil
}

// setArtifact encodes and stores the artifact under prefix+key, replacing
// any previous value.
func (s *Storage) setArtifact(prefix, key []byte, artifact any) error {
	data, err := encodeArtifact(artifact)
	if err != nil {
		return err
	}
	wTx := prefixeddb.NewPrefixedWriteTx(s.db.WriteTx(), prefix)
	if err := wTx.Set(key, data); err != nil {
		wTx.Discard()
		return err
	}
	return wTx.Commit()
}

// deleteArtifact removes prefix+key.
func (s *Storage) deleteArtifact(prefix, key []byte) error {
	wTx := prefixeddb.NewPrefixedWriteTx(s.db.WriteTx(), prefix)
	if err := wTx.Delete(key); err != nil {
		wTx.Discard()
		return err
	}
	return wTx.Commit()
}

// hasArtifact reports whether prefix+key exists.
func (s *Storage) hasArtifact(prefix, key []byte) (bool, error) {
	rd := prefixeddb.NewPrefixedReader(s.db, prefix)
	if _, err := rd.Get(key); err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// iterateArtifacts calls fn with every raw value stored under prefix.
func (s *Storage) iterateArtifacts(prefix []byte, fn func(data []byte) error) error {
	rd := prefixeddb.NewPrefixedReader(s.db, prefix)
	var fnErr error
	if err := rd.Iterate(nil, func(_, v []byte) bool {
		// values are only valid inside the callback
		if fnErr = fn(append([]byte(nil), v...)); fnErr != nil {
			return false
		}
		return true
	}); err != nil {
		return fmt.Errorf("iterate artifacts: %w", err)
	}
	return fnErr
}
