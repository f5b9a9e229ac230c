package api

import (
	"encoding/json"
	"net/http"
)

// newVote casts a ballot gated by the proof of eligibility of the voter
// POST /votes
func (a *API) newVote(w http.ResponseWriter, r *http.Request) {
	vote := &Vote{}
	if err := json.NewDecoder(r.Body).Decode(vote); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	if err := a.registry.CastVote(vote.Identity, vote.Choice, vote.Proof); err != nil {
		registryError(err).Write(w)
		return
	}
	httpWriteOK(w)
}

// tally returns the current yes/no counts
// GET /tally
func (a *API) tally(w http.ResponseWriter, r *http.Request) {
	yes, no := a.registry.CountVotes()
	httpWriteJSON(w, &Tally{Yes: yes, No: no})
}

// info returns the round identifier, the registry counters and, when
// available, the census root and the verifying key
// GET /info
func (a *API) info(w http.ResponseWriter, r *http.Request) {
	voters, ballots := a.registry.Stats()
	info := &Info{
		RoundID:      a.registry.RoundID(),
		Voters:       voters,
		Ballots:      ballots,
		VerifyingKey: a.verifyingKey,
	}
	if a.storage != nil {
		root, err := a.storage.Census().Root()
		if err != nil {
			ErrGenericInternalServerError.WithErr(err).Write(w)
			return
		}
		info.CensusRoot = root
	}
	httpWriteJSON(w, info)
}
