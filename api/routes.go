package api

const (
	// PingEndpoint is the endpoint for checking the API status
	PingEndpoint = "/ping"
	// InfoEndpoint returns the round identifier, the registry counters, the
	// census root and the verifying key.
	InfoEndpoint = "/info"

	// VotersEndpoint is the endpoint to register a voter (POST) and to list
	// the registered identities (GET)
	VotersEndpoint = "/voters"
	// IdentityURLParam is the URL parameter holding the voter identity
	IdentityURLParam = "identity"
	// VoterEndpoint is the base of the per voter endpoints
	VoterEndpoint = VotersEndpoint + "/{" + IdentityURLParam + "}"
	// VoterCommitmentEndpoint returns the public commitment of a voter
	VoterCommitmentEndpoint = VoterEndpoint + "/commitment"
	// VoterProofEndpoint generates a proof of eligibility for a voter. The
	// registry can only do this for voters whose secret it holds, and only
	// with the bearer proof token issued at registration.
	VoterProofEndpoint = VoterEndpoint + "/proof"
	// VoterVotedEndpoint returns whether a voter has a recorded ballot
	VoterVotedEndpoint = VoterEndpoint + "/voted"
	// VoterCensusEndpoint returns the inclusion proof of the voter
	// commitment in the census tree
	VoterCensusEndpoint = VoterEndpoint + "/census"

	// VotesEndpoint is the endpoint for submitting a vote
	VotesEndpoint = "/votes"
	// TallyEndpoint returns the current yes/no counts
	TallyEndpoint = "/tally"
)
