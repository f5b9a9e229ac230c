package storage

import (
	"fmt"
	"sort"
)

// SetBallot records a ballot. It returns ErrAlreadyExists if the identity
// already has a recorded ballot; a ballot is never overwritten.
func (s *Storage) SetBallot(rec *BallotRecord) error {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	key := hashKey([]byte(rec.Identity))
	exists, err := s.hasArtifact(ballotPrefix, key)
	if err != nil {
		return fmt.Errorf("check ballot: %w", err)
	}
	if exists {
		return ErrAlreadyExists
	}
	if err := s.setArtifact(ballotPrefix, key, rec); err != nil {
		return fmt.Errorf("store ballot: %w", err)
	}
	return nil
}

// Ballot returns the ballot recorded for identity, or ErrNotFound.
func (s *Storage) Ballot(identity string) (*BallotRecord, error) {
	rec := &BallotRecord{}
	if err := s.getArtifact(ballotPrefix, hashKey([]byte(identity)), rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Ballots returns every recorded ballot, sorted by identity.
func (s *Storage) Ballots() ([]*BallotRecord, error) {
	var ballots []*BallotRecord
	if err := s.iterateArtifacts(ballotPrefix, func(data []byte) error {
		rec := &BallotRecord{}
		if err := decodeArtifact(data, rec); err != nil {
			return fmt.Errorf("decode ballot: %w", err)
		}
		ballots = append(ballots, rec)
		return nil
	}); err != nil {
		return nil, err
	}
	sort.Slice(ballots, func(i, j int) bool { return ballots[i].Identity < ballots[j].Identity })
	return ballots, nil
}
