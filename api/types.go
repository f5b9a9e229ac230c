package api

import (
	"github.com/google/uuid"
	"github.com/vocdoni/ballot-registry/types"
)

// Info is the response to an info request.
type Info struct {
	RoundID      uuid.UUID      `json:"roundId"`
	Voters       int            `json:"voters"`
	Ballots      int            `json:"ballots"`
	CensusRoot   types.HexBytes `json:"censusRoot,omitempty"`
	VerifyingKey types.HexBytes `json:"verifyingKey,omitempty"`
}

// NewVoter is the request to register a voter.
type NewVoter struct {
	Identity string `json:"identity"`
}

// VoterCommitment is the public commitment of a registered voter.
type VoterCommitment struct {
	Identity   string         `json:"identity"`
	Commitment types.HexBytes `json:"commitment"`
}

// VoterRegistration is the response to a successful registration.
// ProofToken must be sent as a bearer token to request one proof of
// eligibility for the voter.
type VoterRegistration struct {
	Identity   string         `json:"identity"`
	Commitment types.HexBytes `json:"commitment"`
	ProofToken string         `json:"proofToken"`
}

// Voters is the list of registered identities.
type Voters struct {
	Voters []string `json:"voters"`
}

// VoterProof is a serialized proof of eligibility of a voter.
type VoterProof struct {
	Identity string         `json:"identity"`
	Proof    types.HexBytes `json:"proof"`
}

// VoterStatus tells whether a voter has a recorded ballot.
type VoterStatus struct {
	Identity string `json:"identity"`
	Voted    bool   `json:"voted"`
}

// Vote is the request to cast a ballot. Proof is the serialized proof of
// eligibility, as returned by the proof endpoint or built by the voter.
type Vote struct {
	Identity string         `json:"identity"`
	Choice   bool           `json:"choice"`
	Proof    types.HexBytes `json:"proof"`
}

// Tally is the current count of ballots.
type Tally struct {
	Yes int `json:"yes"`
	No  int `json:"no"`
}
