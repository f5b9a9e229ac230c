package storage

import (
	"github.com/vocdoni/ballot-registry/types"
)

// VoterRecord is the public part of a registered voter.
type VoterRecord struct {
	Identity     string         `json:"identity"     cbor:"0,keyasint"`
	Commitment   types.HexBytes `json:"commitment"   cbor:"1,keyasint"`
	RegisteredAt int64          `json:"registeredAt" cbor:"2,keyasint,omitempty"`
}

// BallotRecord is a recorded vote.
type BallotRecord struct {
	Identity string `json:"identity" cbor:"0,keyasint"`
	Choice   bool   `json:"choice"   cbor:"1,keyasint"`
	CastAt   int64  `json:"castAt"   cbor:"2,keyasint,omitempty"`
}
