package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/vocdoni/ballot-registry/registry"
	"github.com/vocdoni/ballot-registry/storage/census"
)

// identityParam returns the unescaped identity URL parameter. The router
// matches on the decoded path unless the request carries a RawPath, in
// which case the parameter is still escaped.
func identityParam(r *http.Request) (string, error) {
	identity := chi.URLParam(r, IdentityURLParam)
	if r.URL.RawPath != "" {
		var err error
		if identity, err = url.PathUnescape(identity); err != nil {
			return "", err
		}
	}
	if identity == "" {
		return "", errors.New("empty identity")
	}
	return identity, nil
}

// newVoter registers a new voter and returns its commitment together with
// the token that authorizes one proof request
// POST /voters
func (a *API) newVoter(w http.ResponseWriter, r *http.Request) {
	req := &NewVoter{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	c, err := a.registry.RegisterVoter(req.Identity)
	if err != nil {
		registryError(err).Write(w)
		return
	}
	httpWriteJSON(w, &VoterRegistration{
		Identity:   req.Identity,
		Commitment: c.Bytes(),
		ProofToken: a.proofTokens.issue(req.Identity),
	})
}

// voters lists the registered identities
// GET /voters
func (a *API) voters(w http.ResponseWriter, r *http.Request) {
	httpWriteJSON(w, &Voters{Voters: a.registry.RegisteredVoters()})
}

// voterCommitment returns the commitment of a voter
// GET /voters/{identity}/commitment
func (a *API) voterCommitment(w http.ResponseWriter, r *http.Request) {
	identity, err := identityParam(r)
	if err != nil {
		ErrInvalidIdentity.WithErr(err).Write(w)
		return
	}
	c, ok := a.registry.Commitment(identity)
	if !ok {
		ErrVoterNotFound.Write(w)
		return
	}
	httpWriteJSON(w, &VoterCommitment{Identity: identity, Commitment: c.Bytes()})
}

// voterProof generates a proof of eligibility of a voter. It requires the
// proof token returned at registration as a bearer token, and consumes it
// POST /voters/{identity}/proof
func (a *API) voterProof(w http.ResponseWriter, r *http.Request) {
	identity, err := identityParam(r)
	if err != nil {
		ErrInvalidIdentity.WithErr(err).Write(w)
		return
	}
	token, ok := bearerToken(r)
	if !ok {
		ErrUnauthorized.With("missing proof token").Write(w)
		return
	}
	if !a.proofTokens.take(identity, token) {
		ErrUnauthorized.With("invalid proof token").Write(w)
		return
	}
	proof, err := a.registry.GenerateProof(identity)
	if err != nil {
		if registry.IsSystemFailure(err) {
			a.proofTokens.giveBack(identity, token)
		}
		registryError(err).Write(w)
		return
	}
	httpWriteJSON(w, &VoterProof{Identity: identity, Proof: proof})
}

// voterVoted returns whether a voter has a recorded ballot
// GET /voters/{identity}/voted
func (a *API) voterVoted(w http.ResponseWriter, r *http.Request) {
	identity, err := identityParam(r)
	if err != nil {
		ErrInvalidIdentity.WithErr(err).Write(w)
		return
	}
	httpWriteJSON(w, &VoterStatus{Identity: identity, Voted: a.registry.HasVoted(identity)})
}

// voterCensusProof returns the inclusion proof of the voter commitment in
// the census tree of the round
// GET /voters/{identity}/census
func (a *API) voterCensusProof(w http.ResponseWriter, r *http.Request) {
	if a.storage == nil {
		ErrCensusUnavailable.Write(w)
		return
	}
	identity, err := identityParam(r)
	if err != nil {
		ErrInvalidIdentity.WithErr(err).Write(w)
		return
	}
	proof, err := a.storage.Census().Proof(identity)
	if err != nil {
		if errors.Is(err, census.ErrKeyNotFound) {
			ErrVoterNotFound.Write(w)
			return
		}
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	httpWriteJSON(w, proof)
}
