package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/metadb"

	"github.com/slushie/slushie-node/custody"
	"github.com/slushie/slushie-node/ledger"
	"github.com/slushie/slushie-node/log"
	"github.com/slushie/slushie-node/service"
	"github.com/slushie/slushie-node/storage"
	"github.com/slushie/slushie-node/types"
)

// Services holds all the running services
type Services struct {
	Storage *storage.Storage
	Custody *custody.MemLedger
	Ledger  *ledger.Ledger
	API     *service.APIService
}

func main() {
	// Load configuration
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logging
	log.Init(cfg.Log.Level, cfg.Log.Output)
	log.Infow("starting slushied", "version", Version)

	// Validate configuration
	if err := validateConfig(cfg); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Create context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup services
	services, err := setupServices(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to setup services: %v", err)
	}
	defer shutdownServices(services)

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	sig := <-sigCh
	log.Infow("received signal, shutting down", "signal", sig.String())
}

// setupServices initializes and starts all required services
func setupServices(ctx context.Context, cfg *Config) (*Services, error) {
	services := &Services{}

	// Initialize storage database
	log.Infow("initializing storage", "datadir", cfg.Datadir, "type", db.TypePebble)
	storagedb, err := metadb.New(db.TypePebble, cfg.Datadir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	services.Storage = storage.New(storagedb)

	// Initialize the in-process custody ledger
	services.Custody, err = custody.NewMemLedger(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize custody ledger: %w", err)
	}

	depositSize := new(types.BigInt)
	if err := depositSize.UnmarshalText([]byte(cfg.Mixer.DepositSize)); err != nil {
		return nil, fmt.Errorf("invalid deposit size %q: %w", cfg.Mixer.DepositSize, err)
	}

	// Open the mixer ledger, restoring persisted accumulator state if any
	services.Ledger, err = ledger.New(services.Storage, services.Custody, ledger.Config{
		DepositSize: depositSize,
		Hasher:      cfg.Mixer.Hasher,
		Depth:       cfg.Mixer.Depth,
		HistorySize: cfg.Mixer.History,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open mixer ledger: %w", err)
	}
	log.Infow("mixer ledger ready",
		"hasher", cfg.Mixer.Hasher,
		"depth", cfg.Mixer.Depth,
		"history", cfg.Mixer.History,
		"depositSize", depositSize.String(),
		"leafCount", services.Ledger.LeafCount(),
		"root", services.Ledger.CurrentRoot().String())

	// Start API service
	log.Infow("starting API service", "host", cfg.API.Host, "port", cfg.API.Port)
	services.API = service.NewAPI(services.Storage, services.Ledger, cfg.API.Host, cfg.API.Port)
	if err := services.API.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start API service: %w", err)
	}

	log.Info("slushied is running, ready to mix!")
	return services, nil
}

// shutdownServices gracefully shuts down all services
func shutdownServices(services *Services) {
	if services == nil {
		return
	}

	if services.API != nil {
		if err := services.API.Stop(); err != nil {
			log.Errorw(err, "failed to stop API service")
		}
	}
	if services.Storage != nil {
		services.Storage.Close()
	}
}
