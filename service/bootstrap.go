package service

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/consensys/gnark/logger"
	"github.com/vocdoni/arbo/memdb"
	"github.com/vocdoni/ballot-registry/circuits"
	"github.com/vocdoni/ballot-registry/circuits/eligibility"
	"github.com/vocdoni/ballot-registry/config"
	"github.com/vocdoni/ballot-registry/log"
	"github.com/vocdoni/ballot-registry/registry"
	"github.com/vocdoni/ballot-registry/storage"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/metadb"
	"golang.org/x/sync/errgroup"
)

// BootstrapConfig selects where the registry keeps its state.
type BootstrapConfig struct {
	// DataDir holds the ledger database. Empty means an in-memory ledger
	// that is lost on exit.
	DataDir string
	// ArtifactsDir holds the compiled circuit and the Groth16 keys. Empty
	// means circuits.BaseDir.
	ArtifactsDir string
	// Overwrite allows re-registering voters that have not voted.
	Overwrite bool
}

// Components are the long lived parts of a running registry.
type Components struct {
	Backend  *eligibility.Backend
	Storage  *storage.Storage
	Registry *registry.Registry
}

// Close releases the storage.
func (c *Components) Close() {
	if c.Storage != nil {
		c.Storage.Close()
	}
}

// Bootstrap loads the proof backend and opens the ledger concurrently, then
// builds the registry and restores its state from the ledger.
func Bootstrap(ctx context.Context, conf *BootstrapConfig) (*Components, error) {
	if conf == nil {
		conf = &BootstrapConfig{}
	}
	// route the gnark compiler and prover logs through our logger
	logger.Set(log.Logger().With().Str("module", "gnark").Logger())

	comps := &Components{}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		start := time.Now()
		artifacts := circuits.NewCircuitArtifacts(conf.ArtifactsDir, eligibility.ArtifactsName)
		backend, err := eligibility.Load(artifacts)
		if err != nil {
			return fmt.Errorf("load proof backend: %w", err)
		}
		comps.Backend = backend
		log.Infow("proof backend ready", "took", time.Since(start).String())
		return nil
	})
	g.Go(func() error {
		database, err := openDatabase(conf.DataDir)
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			_ = database.Close()
			return err
		}
		stg, err := storage.New(database)
		if err != nil {
			_ = database.Close()
			return fmt.Errorf("open ledger: %w", err)
		}
		comps.Storage = stg
		return nil
	})
	if err := g.Wait(); err != nil {
		comps.Close()
		return nil, err
	}

	opts := []registry.Option{
		registry.WithLedger(comps.Storage),
		registry.WithRoundID(comps.Storage.RoundID()),
	}
	if conf.Overwrite {
		opts = append(opts, registry.WithOverwrite())
	}
	comps.Registry = registry.New(comps.Backend, opts...)
	if err := comps.Registry.Restore(); err != nil {
		comps.Close()
		return nil, fmt.Errorf("restore registry: %w", err)
	}
	return comps, nil
}

// openDatabase opens the pebble ledger database in dataDir, or an in-memory
// database if dataDir is empty.
func openDatabase(dataDir string) (db.Database, error) {
	if dataDir == "" {
		return memdb.New(), nil
	}
	dir := filepath.Join(dataDir, config.LedgerDBName)
	database, err := metadb.New(db.TypePebble, dir)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", dir, err)
	}
	return database, nil
}
