// Package api exposes the mixer ledger operations over HTTP as plain JSON
// values. The transport is deliberately thin: every handler parses, calls
// one ledger operation and maps its error to a coded API error.
package api

import (
	"fmt"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/slushie/slushie-node/ledger"
	"github.com/slushie/slushie-node/storage"
)

// APIConfig type represents the configuration for the API HTTP server.
type APIConfig struct {
	Ledger  *ledger.Ledger
	Storage *storage.Storage
}

// API type represents the mixer HTTP API.
type API struct {
	router  *chi.Mux
	ledger  *ledger.Ledger
	storage *storage.Storage
}

// New creates a new API instance with the given configuration.
func New(conf *APIConfig) (*API, error) {
	if conf == nil {
		return nil, fmt.Errorf("missing API configuration")
	}
	if conf.Ledger == nil {
		return nil, fmt.Errorf("missing ledger instance")
	}
	if conf.Storage == nil {
		return nil, fmt.Errorf("missing storage instance")
	}
	a := &API{
		ledger:  conf.Ledger,
		storage: conf.Storage,
	}
	a.initRouter()
	return a, nil
}

// Router returns the chi router, ready to be served.
func (a *API) Router() *chi.Mux {
	return a.router
}

// initRouter creates the router with all the routes and middleware.
func (a *API) initRouter() {
	a.router = chi.NewRouter()
	a.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.ThrottleBacklog(100, 5000, 30*time.Second))

	a.router.Get(PingEndpoint, a.pingHandler)
	a.router.Get(InfoEndpoint, a.infoHandler)
	a.router.Get(RootEndpoint, a.rootHandler)
	a.router.Get(RootStatusEndpoint, a.rootStatusHandler)
	a.router.Post(DepositsEndpoint, a.depositHandler)
	a.router.Post(WithdrawalsEndpoint, a.withdrawHandler)
	a.router.Get(FactsEndpoint, a.factsHandler)
	a.router.Get(FactByIDEndpoint, a.factByIDHandler)
}
