package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"

	"clipforge/internal/api"
	"clipforge/internal/config"
	"clipforge/internal/deps"
	"clipforge/internal/events"
	"clipforge/internal/jobs"
	"clipforge/internal/library"
	"clipforge/internal/logging"
	"clipforge/internal/media"
	"clipforge/internal/media/ffmpegcodec"
	"clipforge/internal/merge"
)

// Daemon coordinates the clip library, the merge worker pool, and the HTTP
// API, and enforces single-instance execution via a lock file.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *library.Store
	hub      *events.Hub
	registry *jobs.Registry
	pool     *jobs.Pool
	libSvc   *api.LibraryService
	mergeSvc *merge.Service
	server   *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running       bool
	PID           int
	LibraryDBPath string
	LockFilePath  string
	ClipCount     int
	MergedCount   int
	JobCounts     map[jobs.Status]int
	Subscribers   int
	WorkerCount   int
	QueueDepth    int
	Dependencies  []deps.Status
}

// New constructs a daemon with initialized dependencies. A nil codec
// selects the ffmpeg implementation.
func New(cfg *config.Config, store *library.Store, codec media.Codec, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil {
		return nil, errors.New("daemon requires config and store")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if codec == nil {
		codec = ffmpegcodec.New(cfg.Merge.FFmpegBinary, cfg.Merge.FFprobeBinary)
	}

	hub := events.NewHub(0, logger)
	registry := jobs.NewRegistry(cfg.Jobs.RetainTerminal)
	pool := jobs.NewPool(cfg.Merge.Workers, cfg.Merge.QueueDepth, logger)
	libSvc := api.NewLibraryService(cfg, store, codec, logger)
	mergeSvc := merge.NewService(cfg, store, registry, pool, hub, codec, logger)

	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		hub:      hub,
		registry: registry,
		pool:     pool,
		libSvc:   libSvc,
		mergeSvc: mergeSvc,
		lockPath: filepath.Join(cfg.Paths.DataDir, "clipforged.lock"),
	}
	d.lock = flock.New(d.lockPath)
	d.server = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the daemon lock, launches the worker pool, and begins
// serving the API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another clipforge daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.pool.Start(runCtx)
	if err := d.server.start(runCtx); err != nil {
		d.pool.Stop()
		cancel()
		d.cancel = nil
		_ = d.lock.Unlock()
		return err
	}

	d.running.Store(true)
	d.logger.Info("clipforge daemon started",
		logging.String("lock", d.lockPath),
		logging.Int("pid", os.Getpid()))
	return nil
}

// Stop shuts down the API, drains the worker pool, and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	d.server.stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.pool.Stop()
	d.hub.Close()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("clipforge daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Addr reports the bound API address, or "" before Start.
func (d *Daemon) Addr() string {
	return d.server.addr()
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:       d.running.Load(),
		PID:           os.Getpid(),
		LibraryDBPath: d.store.Path(),
		LockFilePath:  d.lockPath,
		JobCounts:     d.registry.Counts(),
		Subscribers:   d.hub.SubscriberCount(),
		WorkerCount:   d.cfg.Merge.Workers,
		QueueDepth:    d.cfg.Merge.QueueDepth,
		Dependencies:  deps.CheckBinaries(deps.Defaults(d.cfg.Merge.FFmpegBinary, d.cfg.Merge.FFprobeBinary)),
	}
	if clips, err := d.store.ListUnmerged(ctx); err == nil {
		status.ClipCount = len(clips)
	}
	if merged, err := d.store.ListMerged(ctx); err == nil {
		status.MergedCount = len(merged)
	}
	return status
}
