package client

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/vocdoni/ballot-registry/api"
	"github.com/vocdoni/ballot-registry/storage/census"
)

// APIError is a non 200 response of the API.
type APIError struct {
	Status  int
	Code    int    `json:"code"`
	Message string `json:"error"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %d (code %d: %s)", errCodeNot200, e.Status, e.Code, e.Message)
}

// call performs the request and decodes the JSON response into out, if not
// nil. Non 200 responses are returned as *APIError.
func (c *HTTPclient) call(method string, body, out any, urlPath ...string) error {
	return c.callWithToken(method, "", body, out, urlPath...)
}

// callWithToken is call sending token as a bearer token.
func (c *HTTPclient) callWithToken(method, token string, body, out any, urlPath ...string) error {
	data, status, err := c.request(method, token, body, nil, urlPath...)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		apiErr := &APIError{Status: status}
		if err := json.Unmarshal(data, apiErr); err != nil {
			apiErr.Message = strings.TrimSpace(string(data))
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Info returns the round information.
func (c *HTTPclient) Info() (*api.Info, error) {
	info := &api.Info{}
	return info, c.call(HTTPGET, nil, info, api.InfoEndpoint)
}

// RegisterVoter registers identity and returns its commitment and the token
// needed to request its proof of eligibility.
func (c *HTTPclient) RegisterVoter(identity string) (*api.VoterRegistration, error) {
	resp := &api.VoterRegistration{}
	return resp, c.call(HTTPPOST, &api.NewVoter{Identity: identity}, resp, api.VotersEndpoint)
}

// Voters lists the registered identities.
func (c *HTTPclient) Voters() ([]string, error) {
	resp := &api.Voters{}
	if err := c.call(HTTPGET, nil, resp, api.VotersEndpoint); err != nil {
		return nil, err
	}
	return resp.Voters, nil
}

// VoterCommitment returns the commitment of identity.
func (c *HTTPclient) VoterCommitment(identity string) (*api.VoterCommitment, error) {
	resp := &api.VoterCommitment{}
	return resp, c.call(HTTPGET, nil, resp, api.VotersEndpoint, identity, "commitment")
}

// GenerateProof asks the registry for the proof of eligibility of identity,
// using the proof token returned by RegisterVoter. A token is valid for one
// proof.
func (c *HTTPclient) GenerateProof(identity, token string) ([]byte, error) {
	resp := &api.VoterProof{}
	if err := c.callWithToken(HTTPPOST, token, nil, resp, api.VotersEndpoint, identity, "proof"); err != nil {
		return nil, err
	}
	return resp.Proof, nil
}

// HasVoted reports whether identity has a recorded ballot.
func (c *HTTPclient) HasVoted(identity string) (bool, error) {
	resp := &api.VoterStatus{}
	if err := c.call(HTTPGET, nil, resp, api.VotersEndpoint, identity, "voted"); err != nil {
		return false, err
	}
	return resp.Voted, nil
}

// CensusProof returns the inclusion proof of the commitment of identity.
func (c *HTTPclient) CensusProof(identity string) (*census.Proof, error) {
	resp := &census.Proof{}
	return resp, c.call(HTTPGET, nil, resp, api.VotersEndpoint, identity, "census")
}

// CastVote submits the ballot of identity with its proof of eligibility.
func (c *HTTPclient) CastVote(identity string, choice bool, proof []byte) error {
	return c.call(HTTPPOST, &api.Vote{Identity: identity, Choice: choice, Proof: proof}, nil, api.VotesEndpoint)
}

// Tally returns the current yes/no counts.
func (c *HTTPclient) Tally() (yes, no int, err error) {
	resp := &api.Tally{}
	if err := c.call(HTTPGET, nil, resp, api.TallyEndpoint); err != nil {
		return 0, 0, err
	}
	return resp.Yes, resp.No, nil
}
