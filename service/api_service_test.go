package service

import (
	"context"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/ballot-registry/api/client"
)

func TestAPIService(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()

	comps, err := Bootstrap(ctx, &BootstrapConfig{ArtifactsDir: t.TempDir()})
	c.Assert(err, qt.IsNil)
	defer comps.Close()

	// Port 0 lets the OS choose an available port
	apiService := NewAPI(comps, "127.0.0.1", 0)
	c.Assert(apiService.Addr(), qt.IsNil)

	err = apiService.Start(ctx)
	c.Assert(err, qt.IsNil)
	defer apiService.Stop()

	cli, err := client.New("http://" + apiService.Addr().String())
	c.Assert(err, qt.IsNil)
	info, err := cli.Info()
	c.Assert(err, qt.IsNil)
	c.Assert(info.RoundID, qt.Equals, comps.Storage.RoundID())
	c.Assert(info.VerifyingKey, qt.Not(qt.HasLen), 0)

	// Test starting an already running service
	err = apiService.Start(ctx)
	c.Assert(err, qt.ErrorMatches, "service already running")

	// Test stopping and restarting
	apiService.Stop()
	c.Assert(apiService.Addr(), qt.IsNil)
	err = apiService.Start(ctx)
	c.Assert(err, qt.IsNil)
}

func TestBootstrapRestoresLedger(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	conf := &BootstrapConfig{DataDir: t.TempDir(), ArtifactsDir: t.TempDir()}

	comps, err := Bootstrap(ctx, conf)
	c.Assert(err, qt.IsNil)
	_, err = comps.Registry.RegisterVoter("alice")
	c.Assert(err, qt.IsNil)
	proof, err := comps.Registry.GenerateProof("alice")
	c.Assert(err, qt.IsNil)
	c.Assert(comps.Registry.CastVote("alice", true, proof), qt.IsNil)
	_, err = comps.Registry.RegisterVoter("bob")
	c.Assert(err, qt.IsNil)
	bobProof, err := comps.Registry.GenerateProof("bob")
	c.Assert(err, qt.IsNil)
	roundID := comps.Storage.RoundID()
	vk, err := comps.Backend.VerifyingKey()
	c.Assert(err, qt.IsNil)
	comps.Close()

	// the keys come from the artifacts cache and the state from the ledger
	comps, err = Bootstrap(ctx, conf)
	c.Assert(err, qt.IsNil)
	defer comps.Close()
	c.Assert(comps.Registry.RoundID(), qt.Equals, roundID)
	reloadedVK, err := comps.Backend.VerifyingKey()
	c.Assert(err, qt.IsNil)
	c.Assert(reloadedVK, qt.DeepEquals, vk)
	c.Assert(comps.Registry.RegisteredVoters(), qt.DeepEquals, []string{"alice", "bob"})
	c.Assert(comps.Registry.HasVoted("alice"), qt.IsTrue)
	yes, no := comps.Registry.CountVotes()
	c.Assert(yes, qt.Equals, 1)
	c.Assert(no, qt.Equals, 0)

	c.Assert(comps.Registry.CastVote("alice", false, proof), qt.ErrorMatches, ".*already voted")

	// a proof from before the restart still verifies with the cached keys
	c.Assert(comps.Registry.CastVote("bob", false, bobProof), qt.IsNil)
	yes, no = comps.Registry.CountVotes()
	c.Assert(yes, qt.Equals, 1)
	c.Assert(no, qt.Equals, 1)
}
