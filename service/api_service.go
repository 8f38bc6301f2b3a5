// Package service wraps the long-running pieces of the node behind a
// uniform Start/Stop lifecycle.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/slushie/slushie-node/api"
	"github.com/slushie/slushie-node/ledger"
	"github.com/slushie/slushie-node/log"
	"github.com/slushie/slushie-node/storage"
)

const shutdownTimeout = 10 * time.Second

// APIService represents a service that manages the HTTP API server.
type APIService struct {
	storage *storage.Storage
	ledger  *ledger.Ledger
	API     *api.API

	mu     sync.Mutex
	cancel context.CancelFunc
	group  *errgroup.Group
	host   string
	port   int
}

// NewAPI creates a new APIService instance. The server is not started until
// Start is called.
func NewAPI(stg *storage.Storage, led *ledger.Ledger, host string, port int) *APIService {
	return &APIService{
		storage: stg,
		ledger:  led,
		host:    host,
		port:    port,
	}
}

// Start begins serving the API. It returns an error if the service is
// already running or if the API cannot be built.
func (as *APIService) Start(ctx context.Context) error {
	as.mu.Lock()
	defer as.mu.Unlock()

	if as.cancel != nil {
		return fmt.Errorf("service already running")
	}

	var err error
	as.API, err = api.New(&api.APIConfig{
		Ledger:  as.ledger,
		Storage: as.storage,
	})
	if err != nil {
		return fmt.Errorf("failed to build API: %w", err)
	}

	srvCtx, cancel := context.WithCancel(ctx)
	as.cancel = cancel

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", as.host, as.port),
		Handler: as.API.Router(),
	}

	group, groupCtx := errgroup.WithContext(srvCtx)
	group.Go(func() error {
		log.Infow("starting API server", "host", as.host, "port", as.port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("API server failed: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
		defer done()
		return srv.Shutdown(shutdownCtx)
	})
	as.group = group

	return nil
}

// Stop halts the API server and waits for in-flight requests to drain.
func (as *APIService) Stop() error {
	as.mu.Lock()
	defer as.mu.Unlock()

	if as.cancel == nil {
		return nil
	}
	as.cancel()
	as.cancel = nil
	err := as.group.Wait()
	as.group = nil
	return err
}

// HostPort returns the host and port of the API server.
func (as *APIService) HostPort() (string, int) {
	return as.host, as.port
}
