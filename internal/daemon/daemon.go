package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/eskarasu/merge-videos/internal/api"
	"github.com/eskarasu/merge-videos/internal/config"
	"github.com/eskarasu/merge-videos/internal/dispatch"
	"github.com/eskarasu/merge-videos/internal/ffmpeg"
	"github.com/eskarasu/merge-videos/internal/notify"
	"github.com/eskarasu/merge-videos/internal/queue"
	"github.com/eskarasu/merge-videos/internal/workflow"
)

const shutdownTimeout = 10 * time.Second

// Daemon owns the background services and enforces single-instance execution.
type Daemon struct {
	cfg        *config.Config
	logger     *slog.Logger
	store      *queue.Store
	hub        *notify.Hub
	dispatcher *dispatch.Dispatcher
	service    *workflow.Service
	server     *api.Server

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// New constructs a daemon with fully wired dependencies.
func New(cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon requires configuration")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("prepare directories: %w", err)
	}

	var hub *notify.Hub
	var publisher notify.Publisher = notify.Noop{}
	if cfg.Notifications.Enabled {
		hub = notify.NewHub(logger, cfg.Notifications.Buffer)
		publisher = hub
	}

	store, err := queue.Open(cfg, publisher)
	if err != nil {
		if hub != nil {
			hub.Close()
		}
		return nil, fmt.Errorf("open job store: %w", err)
	}

	merger := ffmpeg.NewMerger(ffmpeg.WithBinary(cfg.FFmpeg.Binary))
	dispatcher := dispatch.New(logger, cfg.Workflow.Workers, cfg.Workflow.QueueCapacity)

	service, err := workflow.NewService(store, merger, dispatcher, cfg.Paths.MediaDir, logger)
	if err != nil {
		_ = store.Close()
		if hub != nil {
			hub.Close()
		}
		return nil, err
	}

	server, err := api.NewServer(service, hub, cfg.Paths.MediaDir, logger)
	if err != nil {
		_ = store.Close()
		if hub != nil {
			hub.Close()
		}
		return nil, err
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "mergevidd.lock")
	return &Daemon{
		cfg:        cfg,
		logger:     logger,
		store:      store,
		hub:        hub,
		dispatcher: dispatcher,
		service:    service,
		server:     server,
		lockPath:   lockPath,
		lock:       flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock, launches the workers, and begins
// serving the API in the background.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another merge daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	err = d.dispatcher.Start(runCtx, func(ctx context.Context, ownerID int64, jobID uuid.UUID) error {
		_, err := d.service.ProcessJob(ctx, ownerID, jobID)
		return err
	})
	if err != nil {
		_ = d.lock.Unlock()
		cancel()
		d.cancel = nil
		return fmt.Errorf("start workers: %w", err)
	}

	go func() {
		if err := d.server.Start(d.cfg.Paths.APIBind); err != nil && !errors.Is(err, http.ErrServerClosed) {
			d.logger.Error("api server stopped", "error", err)
		}
	}()

	d.running.Store(true)
	d.logger.Info("merge daemon started",
		"bind", d.cfg.Paths.APIBind,
		"lock", d.lockPath,
		"workers", d.cfg.Workflow.Workers)
	return nil
}

// Stop drains the workers, shuts down the API server, and releases the
// daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := d.server.Shutdown(shutdownCtx); err != nil {
		d.logger.Warn("api shutdown failed", "error", err)
	}

	d.dispatcher.Stop()

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.hub != nil {
		d.hub.Close()
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", "error", err)
	}
	d.running.Store(false)
	d.logger.Info("merge daemon stopped")
}

// Close stops the daemon and releases the job store.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Running reports whether Start has completed without a matching Stop.
func (d *Daemon) Running() bool {
	return d.running.Load()
}
