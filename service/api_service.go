package service

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/vocdoni/ballot-registry/api"
	"github.com/vocdoni/ballot-registry/config"
	"github.com/vocdoni/ballot-registry/log"
)

// APIService represents a service that manages the HTTP API server.
type APIService struct {
	comps *Components
	api   *api.API
	mu    sync.Mutex
	host  string
	port  int
}

// NewAPI creates a new APIService instance serving the registry of comps.
func NewAPI(comps *Components, host string, port int) *APIService {
	return &APIService{
		comps: comps,
		host:  host,
		port:  port,
	}
}

// Start begins the API server. It returns an error if the service
// is already running or if it fails to start.
func (as *APIService) Start(_ context.Context) error {
	as.mu.Lock()
	defer as.mu.Unlock()

	if as.api != nil {
		return fmt.Errorf("service already running")
	}

	conf := &api.APIConfig{
		Host:     as.host,
		Port:     as.port,
		Registry: as.comps.Registry,
		Storage:  as.comps.Storage,
	}
	if as.comps.Backend != nil {
		vk, err := as.comps.Backend.VerifyingKey()
		if err != nil {
			return fmt.Errorf("failed to encode verifying key: %w", err)
		}
		conf.VerifyingKey = vk
	}
	a, err := api.New(conf)
	if err != nil {
		return fmt.Errorf("failed to create API server: %w", err)
	}
	if err := a.Start(); err != nil {
		return fmt.Errorf("failed to start API server: %w", err)
	}
	as.api = a
	return nil
}

// Stop halts the API server. The components are not closed.
func (as *APIService) Stop() {
	as.mu.Lock()
	defer as.mu.Unlock()

	if as.api == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if err := as.api.Stop(ctx); err != nil {
		log.Warnw("API server shutdown", "error", err.Error())
	}
	as.api = nil
}

// Addr returns the address the API server listens on, or nil if it is not
// running.
func (as *APIService) Addr() net.Addr {
	as.mu.Lock()
	defer as.mu.Unlock()
	if as.api == nil {
		return nil
	}
	return as.api.Addr()
}

// HostPort returns the host and port of the API server.
func (as *APIService) HostPort() (string, int) {
	return as.host, as.port
}
