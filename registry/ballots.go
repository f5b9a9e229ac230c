package registry

import (
	"errors"
	"fmt"
	"sync"
)

// ballotPersistFunc is called inside the write critical section before a
// ballot becomes visible.
type ballotPersistFunc func(identity string, choice bool) error

// BallotStore holds at most one ballot per identity. Ballots are never
// updated nor removed.
type BallotStore struct {
	mu      sync.RWMutex
	ballots map[string]bool
	persist ballotPersistFunc
}

func newBallotStore() *BallotStore {
	return &BallotStore{ballots: make(map[string]bool)}
}

// HasVoted reports whether identity has a recorded ballot.
func (bs *BallotStore) HasVoted(identity string) bool {
	bs.mu.RLock()
	defer bs.mu.RUnlock()
	_, ok := bs.ballots[identity]
	return ok
}

// TryRecord records the ballot of identity. The absence check and the insert
// run under the same write lock, so of several concurrent calls for one
// identity exactly one succeeds and the rest get ErrAlreadyVoted.
func (bs *BallotStore) TryRecord(identity string, choice bool) error {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	if _, ok := bs.ballots[identity]; ok {
		return ErrAlreadyVoted
	}
	if bs.persist != nil {
		if err := bs.persist(identity, choice); err != nil {
			if errors.Is(err, ErrAlreadyVoted) {
				return ErrAlreadyVoted
			}
			return fmt.Errorf("%w: %w", ErrLedger, err)
		}
	}
	bs.ballots[identity] = choice
	return nil
}

// Tally counts the yes and no ballots.
func (bs *BallotStore) Tally() (yes, no int) {
	bs.mu.RLock()
	defer bs.mu.RUnlock()
	for _, choice := range bs.ballots {
		if choice {
			yes++
		} else {
			no++
		}
	}
	return yes, no
}

// Len returns the number of recorded ballots.
func (bs *BallotStore) Len() int {
	bs.mu.RLock()
	defer bs.mu.RUnlock()
	return len(bs.ballots)
}
