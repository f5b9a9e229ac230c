// Package config holds the defaults and the environment variable names of
// the ballot registry daemon.
package config

import "time"

const (
	// DefaultHost is the default API listen address.
	DefaultHost = "0.0.0.0"
	// DefaultPort is the default API port.
	DefaultPort = 9090
	// DefaultDataDirName is the directory, under the user home, used when no
	// data directory is given.
	DefaultDataDirName = ".ballotregistry"
	// LedgerDBName is the subdirectory of the data directory holding the
	// public ledger database.
	LedgerDBName = "ledger"
	// DefaultLogLevel is the default log level.
	DefaultLogLevel = "info"
	// DefaultLogOutput is the default log output.
	DefaultLogOutput = "stdout"
	// ShutdownTimeout bounds the graceful shutdown of the API server.
	ShutdownTimeout = 10 * time.Second
)

// Environment variables that override the flag defaults.
const (
	EnvHost         = "BALLOT_HOST"
	EnvPort         = "BALLOT_PORT"
	EnvDataDir      = "BALLOT_DATADIR"
	EnvArtifactsDir = "BALLOT_ARTIFACTS_DIR"
	EnvLogLevel     = "BALLOT_LOG_LEVEL"
	EnvLogOutput    = "BALLOT_LOG_OUTPUT"
	EnvLogErrorFile = "BALLOT_LOG_ERRORFILE"
	EnvOverwrite    = "BALLOT_OVERWRITE"
)
