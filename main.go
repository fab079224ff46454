package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	dbm "github.com/cometbft/cometbft-db"

	"github.com/nkysggsy/citrea/pkg/config"
	"github.com/nkysggsy/citrea/pkg/database"
	"github.com/nkysggsy/citrea/pkg/dispatch"
	"github.com/nkysggsy/citrea/pkg/kvdb"
	"github.com/nkysggsy/citrea/pkg/node"
	"github.com/nkysggsy/citrea/pkg/storagemanager"
)

func main() {
	log.SetOutput(os.Stdout)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	var (
		configPath = flag.String("config", "", "Path to a YAML config file (overrides env defaults)")
		showHelp   = flag.Bool("help", false, "Show help message")
	)
	flag.Parse()

	if *showHelp {
		printHelp()
		return
	}

	log.Printf("starting prover node core")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	if err := os.MkdirAll(cfg.LedgerDataDir, 0755); err != nil {
		log.Fatalf("failed to create ledger data dir %s: %v", cfg.LedgerDataDir, err)
	}
	if err := os.MkdirAll(cfg.StorageDataDir, 0755); err != nil {
		log.Fatalf("failed to create storage data dir %s: %v", cfg.StorageDataDir, err)
	}

	ledgerDB, err := dbm.NewGoLevelDB("ledger", cfg.LedgerDataDir)
	if err != nil {
		log.Fatalf("failed to open ledger database at %s: %v", cfg.LedgerDataDir, err)
	}
	defer ledgerDB.Close()

	storageDB, err := dbm.NewGoLevelDB("storage", cfg.StorageDataDir)
	if err != nil {
		log.Fatalf("failed to open storage database at %s: %v", cfg.StorageDataDir, err)
	}
	defer storageDB.Close()

	kv := kvdb.NewAdapter(ledgerDB)
	storage := storagemanager.NewCometBFT(storageDB)

	var mirror dispatch.RelationalMirror
	if cfg.DatabaseURL != "" {
		dbClient, err := database.NewClient(cfg, database.WithLogger(log.New(log.Writer(), "[Database] ", log.LstdFlags)))
		if err != nil {
			log.Fatalf("failed to connect to relational mirror database: %v", err)
		}
		defer dbClient.Close()

		if err := dbClient.MigrateUp(context.Background()); err != nil {
			log.Fatalf("failed to run database migrations: %v", err)
		}
		mirror = database.NewProofMirror(dbClient)
		log.Printf("relational proof_data mirror enabled")
	}

	collab, err := buildCollaborators(cfg, kv, storage, mirror)
	if err != nil {
		log.Fatalf("failed to build collaborators: %v", err)
	}

	n, err := node.New(cfg, collab, log.New(log.Writer(), "[Node] ", log.LstdFlags))
	if err != nil {
		log.Fatalf("failed to wire node: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	startL1, err := n.Bootstrap(ctx)
	if err != nil {
		cancel()
		log.Fatalf("failed to bootstrap node: %v", err)
	}

	runErrCh := make(chan error, 1)
	go func() {
		runErrCh <- n.Run(ctx, startL1)
	}()

	go func() {
		if err := n.ServeHTTP(ctx, cfg.ListenAddr); err != nil {
			log.Printf("health/metrics server error: %v", err)
		}
	}()

	log.Printf("prover node core ready, scanning from l1 height %d", startL1)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Printf("shutdown signal received")
	case err := <-runErrCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("scan loop stopped: %v", err)
		}
	}

	cancel()

	select {
	case <-runErrCh:
	case <-time.After(30 * time.Second):
		log.Printf("timed out waiting for scan loop to stop")
	}

	log.Printf("prover node core stopped")
}

// buildCollaborators constructs the external adapters this core is wired
// around. The DA client, sequencer RPC client, STF host/guest pair, and
// zkVM prover client are deliberately out of scope for this core
// (spec.md §1) -- only their interfaces (pkg/da, pkg/sequencerclient,
// pkg/stf, pkg/prover) are specified here. A concrete deployment supplies
// its own implementations of these interfaces; this entrypoint is the
// composition root they get wired into.
func buildCollaborators(cfg *config.Config, kv *kvdb.Adapter, storage storagemanager.Manager, mirror dispatch.RelationalMirror) (node.Collaborators, error) {
	return node.Collaborators{}, fmt.Errorf("buildCollaborators: no DA/sequencer/STF/prover adapters registered for endpoints da=%s sequencer=%s prover=%s -- wire concrete implementations of pkg/da.Service, pkg/sequencerclient.Client, pkg/stf.Function and pkg/prover.Service for this deployment", cfg.DAEndpoint, cfg.SequencerEndpoint, cfg.ProverEndpoint)
}

func printHelp() {
	fmt.Println("Prover node core")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  prover [flags]")
	fmt.Println()
	fmt.Println("Flags:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  DA_ENDPOINT, SEQUENCER_ENDPOINT, PROVER_ENDPOINT")
	fmt.Println("  SEQUENCER_DA_PUBLIC_KEY, PROVER_DA_PUBLIC_KEY, SEQUENCER_PUBLIC_KEY (hex)")
	fmt.Println("  PROOF_SAMPLING_NUMBER, SKIP_PROOF_SUBMISSION_UNTIL_L1")
	fmt.Println("  LEDGER_DATA_DIR, STORAGE_DATA_DIR, DATABASE_URL, LISTEN_ADDR")
}
