package main

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/vocdoni/ballot-registry/api"
	"github.com/vocdoni/ballot-registry/api/client"
	"github.com/vocdoni/ballot-registry/log"
	"github.com/vocdoni/ballot-registry/service"
	"golang.org/x/sync/errgroup"
)

func main() {
	url := flag.String("url", "", "API of a running registry, if empty an in-memory one is started")
	nVoters := flag.Int("voters", 10, "number of voters to register")
	artifacts := flag.String("artifacts", "", "circuit artifacts directory of the in-memory registry")
	retries := flag.Int("retries", client.DefaultRetries, "attempts of each API request")
	timeout := flag.Duration("timeout", 2*time.Minute, "timeout of each API request, proofs may be slow")
	flag.Parse()
	log.Init("debug", "stdout", nil)

	ctx := context.Background()
	if *url == "" {
		comps, err := service.Bootstrap(ctx, &service.BootstrapConfig{ArtifactsDir: *artifacts})
		if err != nil {
			log.Fatal(err)
		}
		defer comps.Close()
		srv := service.NewAPI(comps, "127.0.0.1", 0)
		if err := srv.Start(ctx); err != nil {
			log.Fatal(err)
		}
		defer srv.Stop()
		*url = "http://" + srv.Addr().String()
	}

	cli, err := client.New(*url)
	if err != nil {
		log.Fatal(err)
	}
	cli.SetRetries(*retries)
	cli.SetTimeout(*timeout)
	info, err := cli.Info()
	if err != nil {
		log.Fatal(err)
	}
	log.Infow("connected to registry", "url", *url, "round", info.RoundID.String(), "voters", info.Voters)

	// use identities unique to this run so a persistent registry can be reused
	prefix := fmt.Sprintf("e2e-%d", time.Now().UnixNano())
	identities := make([]string, *nVoters)
	tokens := make([]string, *nVoters)
	for i := range identities {
		identities[i] = fmt.Sprintf("%s-voter-%d", prefix, i)
		reg, err := cli.RegisterVoter(identities[i])
		if err != nil {
			log.Fatalf("register %s: %v", identities[i], err)
		}
		tokens[i] = reg.ProofToken
	}
	log.Infow("voters registered", "count", len(identities))

	start := time.Now()
	proofs := make([][]byte, len(identities))
	g, _ := errgroup.WithContext(ctx)
	for i, id := range identities {
		g.Go(func() error {
			proof, err := cli.GenerateProof(id, tokens[i])
			if err != nil {
				return fmt.Errorf("proof for %s: %w", id, err)
			}
			proofs[i] = proof
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Fatal(err)
	}
	log.Infow("proofs generated", "count", len(proofs), "took", time.Since(start).String())

	yesBefore, noBefore, err := cli.Tally()
	if err != nil {
		log.Fatal(err)
	}

	// every voter casts twice concurrently with the same proof, exactly one
	// of each pair must be accepted
	var accepted, rejected atomic.Int64
	wantYes := 0
	g, _ = errgroup.WithContext(ctx)
	for i, id := range identities {
		choice := i%2 == 0
		if choice {
			wantYes++
		}
		for range 2 {
			g.Go(func() error {
				err := cli.CastVote(id, choice, proofs[i])
				apiErr := &client.APIError{}
				switch {
				case err == nil:
					accepted.Add(1)
				case errors.As(err, &apiErr) && apiErr.Code == api.ErrVoterAlreadyVoted.Code:
					rejected.Add(1)
				default:
					return fmt.Errorf("cast %s: %w", id, err)
				}
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		log.Fatal(err)
	}
	if accepted.Load() != int64(len(identities)) || rejected.Load() != int64(len(identities)) {
		log.Fatalf("expected %d accepted and rejected ballots, got %d and %d",
			len(identities), accepted.Load(), rejected.Load())
	}

	// a proof of one voter does not open the gate for another, and neither
	// does the proof token of another voter
	if len(identities) > 1 {
		intruder := prefix + "-intruder"
		if _, err := cli.RegisterVoter(intruder); err != nil {
			log.Fatal(err)
		}
		err := cli.CastVote(intruder, true, proofs[0])
		apiErr := &client.APIError{}
		if !errors.As(err, &apiErr) || apiErr.Code != api.ErrInvalidProof.Code {
			log.Fatalf("expected invalid proof, got %v", err)
		}
		_, err = cli.GenerateProof(identities[1], tokens[0])
		if !errors.As(err, &apiErr) || apiErr.Code != api.ErrUnauthorized.Code {
			log.Fatalf("expected unauthorized, got %v", err)
		}
	}

	yes, no, err := cli.Tally()
	if err != nil {
		log.Fatal(err)
	}
	if yes-yesBefore != wantYes || no-noBefore != len(identities)-wantYes {
		log.Fatalf("unexpected tally yes=%d no=%d", yes, no)
	}
	for _, id := range identities {
		voted, err := cli.HasVoted(id)
		if err != nil {
			log.Fatal(err)
		}
		if !voted {
			log.Fatalf("%s has no recorded ballot", id)
		}
		proof, err := cli.CensusProof(id)
		if err != nil {
			log.Fatal(err)
		}
		if !proof.Verify() {
			log.Fatalf("invalid census proof for %s", id)
		}
	}
	log.Infow("e2e test passed", "yes", yes, "no", no)
}
