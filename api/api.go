package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/vocdoni/ballot-registry/log"
	"github.com/vocdoni/ballot-registry/registry"
	stg "github.com/vocdoni/ballot-registry/storage"
)

// APIConfig type represents the configuration for the API HTTP server.
// It includes the host, port, the registry to serve and optionally the
// storage backing it and the verifying key of the proof backend.
type APIConfig struct {
	Host         string
	Port         int
	Registry     *registry.Registry
	Storage      *stg.Storage // Optional: enables the census endpoints
	VerifyingKey []byte       // Optional: published by the info endpoint
}

// API type represents the API HTTP server of the ballot registry.
type API struct {
	router       *chi.Mux
	registry     *registry.Registry
	storage      *stg.Storage
	verifyingKey []byte
	proofTokens  *proofTokens
	server       *http.Server
	listener     net.Listener
}

// New creates a new API instance with the given configuration. The router
// is ready to use but the server is not listening until Start is called.
func New(conf *APIConfig) (*API, error) {
	if conf == nil {
		return nil, fmt.Errorf("missing API configuration")
	}
	if conf.Registry == nil {
		return nil, fmt.Errorf("missing registry instance")
	}
	a := &API{
		registry:     conf.Registry,
		storage:      conf.Storage,
		verifyingKey: conf.VerifyingKey,
		proofTokens:  newProofTokens(),
	}

	// Initialize router
	a.initRouter()
	a.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", conf.Host, conf.Port),
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return a, nil
}

// Start listens on the configured address and serves the API in the
// background. Port 0 picks a free port, see Addr.
func (a *API) Start() error {
	ln, err := net.Listen("tcp", a.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.server.Addr, err)
	}
	a.listener = ln
	go func() {
		log.Infow("Starting API server", "address", ln.Addr().String())
		if err := a.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorw(err, "API server stopped")
		}
	}()
	return nil
}

// Addr returns the address the server listens on, or nil if not started.
func (a *API) Addr() net.Addr {
	if a.listener == nil {
		return nil
	}
	return a.listener.Addr()
}

// Stop gracefully shuts down the server.
func (a *API) Stop(ctx context.Context) error {
	return a.server.Shutdown(ctx)
}

// Router returns the chi router for testing purposes
func (a *API) Router() *chi.Mux {
	return a.router
}

// registerHandlers registers all the API handlers.
func (a *API) registerHandlers() {
	log.Infow("register handler", "endpoint", PingEndpoint, "method", "GET")
	a.router.Get(PingEndpoint, func(w http.ResponseWriter, r *http.Request) {
		httpWriteOK(w)
	})
	log.Infow("register handler", "endpoint", InfoEndpoint, "method", "GET")
	a.router.Get(InfoEndpoint, a.info)
	// voters
	log.Infow("register handler", "endpoint", VotersEndpoint, "method", "POST")
	a.router.Post(VotersEndpoint, a.newVoter)
	log.Infow("register handler", "endpoint", VotersEndpoint, "method", "GET")
	a.router.Get(VotersEndpoint, a.voters)
	log.Infow("register handler", "endpoint", VoterCommitmentEndpoint, "method", "GET")
	a.router.Get(VoterCommitmentEndpoint, a.voterCommitment)
	log.Infow("register handler", "endpoint", VoterProofEndpoint, "method", "POST")
	a.router.Post(VoterProofEndpoint, a.voterProof)
	log.Infow("register handler", "endpoint", VoterVotedEndpoint, "method", "GET")
	a.router.Get(VoterVotedEndpoint, a.voterVoted)
	log.Infow("register handler", "endpoint", VoterCensusEndpoint, "method", "GET")
	a.router.Get(VoterCensusEndpoint, a.voterCensusProof)
	// votes
	log.Infow("register handler", "endpoint", VotesEndpoint, "method", "POST")
	a.router.Post(VotesEndpoint, a.newVote)
	log.Infow("register handler", "endpoint", TallyEndpoint, "method", "GET")
	a.router.Get(TallyEndpoint, a.tally)
}

// initRouter creates the router with all the routes and middleware.
func (a *API) initRouter() {
	// Create the router with a basic middleware stack
	a.router = chi.NewRouter()
	a.router.Use(cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}).Handler)
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Throttle(100))
	a.router.Use(middleware.ThrottleBacklog(5000, 40000, 60*time.Second))
	a.router.Use(middleware.Timeout(45 * time.Second))
	a.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		ErrResourceNotFound.Withf("%s %s", r.Method, r.URL.Path).Write(w)
	})

	// Register the API handlers
	a.registerHandlers()
}
