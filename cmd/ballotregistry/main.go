package main

import (
	"cmp"
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	flag "github.com/spf13/pflag"

	"github.com/vocdoni/ballot-registry/circuits"
	"github.com/vocdoni/ballot-registry/config"
	"github.com/vocdoni/ballot-registry/log"
	"github.com/vocdoni/ballot-registry/service"
)

func main() {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.TempDir()
	}
	host := flag.String("host", cmp.Or(os.Getenv(config.EnvHost), config.DefaultHost), "API listen address")
	port := flag.Int("port", envInt(config.EnvPort, config.DefaultPort), "API port")
	dataDir := flag.String("datadir", cmp.Or(os.Getenv(config.EnvDataDir), filepath.Join(home, config.DefaultDataDirName)),
		"directory of the ledger database")
	artifactsDir := flag.String("artifacts", cmp.Or(os.Getenv(config.EnvArtifactsDir), circuits.BaseDir),
		"directory of the circuit artifacts cache")
	logLevel := flag.String("log.level", cmp.Or(os.Getenv(config.EnvLogLevel), config.DefaultLogLevel),
		"log level (debug, info, warn, error)")
	logOutput := flag.String("log.output", cmp.Or(os.Getenv(config.EnvLogOutput), config.DefaultLogOutput),
		"log output (stdout, stderr or a file path)")
	logErrorFile := flag.String("log.errorFile", os.Getenv(config.EnvLogErrorFile), "also write errors to this file")
	overwrite := flag.Bool("overwrite", envBool(config.EnvOverwrite), "allow re-registering voters that have not voted")
	flag.Parse()

	var errorOutput *os.File
	if *logErrorFile != "" {
		errorOutput, err = os.OpenFile(*logErrorFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
		if err != nil {
			panic(err)
		}
		defer errorOutput.Close()
	}
	if errorOutput != nil {
		log.Init(*logLevel, *logOutput, errorOutput)
	} else {
		log.Init(*logLevel, *logOutput, nil)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	comps, err := service.Bootstrap(ctx, &service.BootstrapConfig{
		DataDir:      *dataDir,
		ArtifactsDir: *artifactsDir,
		Overwrite:    *overwrite,
	})
	if err != nil {
		log.Fatal(err)
	}
	defer comps.Close()

	api := service.NewAPI(comps, *host, *port)
	if err := api.Start(ctx); err != nil {
		log.Fatal(err)
	}
	voters, ballots := comps.Registry.Stats()
	log.Infow("ballot registry running",
		"round", comps.Registry.RoundID().String(),
		"voters", voters,
		"ballots", ballots,
		"datadir", *dataDir)

	<-ctx.Done()
	log.Info("shutting down")
	api.Stop()
}

func envInt(name string, def int) int {
	v, err := strconv.Atoi(os.Getenv(name))
	if err != nil {
		return def
	}
	return v
}

func envBool(name string) bool {
	v, _ := strconv.ParseBool(os.Getenv(name))
	return v
}
