// Package cli wires together internal/config, internal/applog,
// internal/disk, internal/bufferpool, internal/btree, and internal/txns
// behind a cobra command tree, the way the teacher's src/app.APIEntrypoint
// wires its own subsystems before Run (init, then run, then close).
package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/pagedb/pagedb/internal/applog"
	"github.com/pagedb/pagedb/internal/bufferpool"
	"github.com/pagedb/pagedb/internal/common"
	"github.com/pagedb/pagedb/internal/config"
	"github.com/pagedb/pagedb/internal/disk"
	"github.com/pagedb/pagedb/internal/engine"
	"github.com/pagedb/pagedb/internal/txns"
)

var envFile string

// Execute runs the root command.
func Execute() error {
	root := &cobra.Command{
		Use:   "pagedb",
		Short: "A single-node disk-based storage engine (buffer pool + B+ tree + lock manager)",
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "optional .env file to load before reading configuration")

	root.AddCommand(newShellCmd(), newBenchCmd(), newCheckCmd())
	return root.Execute()
}

// engineHandle bundles everything a subcommand needs: the disk-backed
// buffer pool, one table over it, the lock manager and its background
// detector, and a logger. Close releases the detector and flushes pages.
type engineHandle struct {
	cfg    config.Config
	logger applog.Logger

	disk  *disk.Manager
	bp    *bufferpool.Manager
	locks *txns.LockManager

	table *engine.Table

	stopDetector context.CancelFunc
}

const defaultTableOID txns.ObjectID = 1
const defaultFileID common.FileID = 1
const defaultTableFile = "table.page"

func newEngineHandle() (*engineHandle, error) {
	cfg := config.MustLoad(envFile)

	logger, err := applog.New(cfg.Environment == config.EnvDev)
	if err != nil {
		return nil, fmt.Errorf("cli: building logger: %w", err)
	}

	dm, err := disk.New(afero.NewOsFs(), cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("cli: opening data directory %q: %w", cfg.DataDir, err)
	}
	if err := dm.RegisterFile(defaultFileID, defaultTableFile); err != nil {
		return nil, fmt.Errorf("cli: registering table file: %w", err)
	}

	bp := bufferpool.New(cfg.PoolSize, cfg.LRUKSize, dm)
	bp.SetLogger(logger)

	locks := txns.NewLockManager()

	table := engine.NewTable(defaultTableOID, bp, defaultFileID, locks, cfg.InternalMaxSize, cfg.LeafMaxSize)

	detector := txns.NewDetector(locks, time.Duration(cfg.DeadlockDetectionInterval)*time.Millisecond)
	detector.SetLogger(logger)
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = detector.Run(ctx) }()

	return &engineHandle{
		cfg:          cfg,
		logger:       logger,
		disk:         dm,
		bp:           bp,
		locks:        locks,
		table:        table,
		stopDetector: cancel,
	}, nil
}

func (h *engineHandle) Close() error {
	h.stopDetector()
	h.bp.FlushAllPages()
	return h.logger.Sync()
}
