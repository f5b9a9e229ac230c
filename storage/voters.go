package storage

import (
	"errors"
	"fmt"
	"sort"

	"github.com/vocdoni/ballot-registry/log"
)

// SetVoter stores the public record of a voter and adds its commitment to
// the round tree. If the voter is already stored its commitment is
// replaced. The record is written first and restored if the tree update
// fails, so on error neither the record nor the tree root change.
func (s *Storage) SetVoter(rec *VoterRecord) error {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	key := hashKey([]byte(rec.Identity))
	prev := &VoterRecord{}
	err := s.getArtifact(voterPrefix, key, prev)
	switch {
	case errors.Is(err, ErrNotFound):
		prev = nil
	case err != nil:
		return fmt.Errorf("check voter: %w", err)
	}
	if err := s.setArtifact(voterPrefix, key, rec); err != nil {
		return fmt.Errorf("store voter: %w", err)
	}
	if err := s.updateCensus(rec); err != nil {
		var rollbackErr error
		if prev != nil {
			rollbackErr = s.setArtifact(voterPrefix, key, prev)
		} else {
			rollbackErr = s.deleteArtifact(voterPrefix, key)
		}
		if rollbackErr != nil {
			log.Warnw("failed to roll back voter record", "identity", rec.Identity, "error", rollbackErr.Error())
		}
		return fmt.Errorf("census: %w", err)
	}
	return nil
}

// updateCensus inserts or replaces the leaf of the voter depending on the
// tree contents, which may hold a leaf without a stored record.
func (s *Storage) updateCensus(rec *VoterRecord) error {
	exists, err := s.census.Has(rec.Identity)
	if err != nil {
		return err
	}
	if exists {
		return s.census.Replace(rec.Identity, rec.Commitment)
	}
	return s.census.Insert(rec.Identity, rec.Commitment)
}

// Voter returns the record of the voter identified by identity, or
// ErrNotFound.
func (s *Storage) Voter(identity string) (*VoterRecord, error) {
	rec := &VoterRecord{}
	if err := s.getArtifact(voterPrefix, hashKey([]byte(identity)), rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Voters returns every stored voter record, sorted by identity.
func (s *Storage) Voters() ([]*VoterRecord, error) {
	var voters []*VoterRecord
	if err := s.iterateArtifacts(voterPrefix, func(data []byte) error {
		rec := &VoterRecord{}
		if err := decodeArtifact(data, rec); err != nil {
			return fmt.Errorf("decode voter: %w", err)
		}
		voters = append(voters, rec)
		return nil
	}); err != nil {
		return nil, err
	}
	sort.Slice(voters, func(i, j int) bool { return voters[i].Identity < voters[j].Identity })
	return voters, nil
}

// HasVoter reports whether the identity has a stored voter record.
func (s *Storage) HasVoter(identity string) (bool, error) {
	_, err := s.Voter(identity)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}
