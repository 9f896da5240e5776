// Package remote keeps the local record store in step with a remote
// key-value endpoint that holds one snapshot per club.
//
// Sync is best effort. Failures are logged, counted and exposed through
// Status; they never reach the caller of the background loop and never touch
// local data. Conflicts resolve by last write wins on the snapshot
// timestamp.
package remote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/mmynk/clubhouse/internal/models"
	"github.com/mmynk/clubhouse/internal/records"
	"github.com/mmynk/clubhouse/internal/snapshot"
)

// DefaultPollInterval is how often the remote is pulled while enabled.
const DefaultPollInterval = 10 * time.Second

// DefaultPushRate limits how often local edits are pushed.
var DefaultPushRate = rate.Every(2 * time.Second)

var (
	ErrDisabled     = errors.New("sync is disabled")
	ErrPullInFlight = errors.New("a pull is already in flight")
	ErrStale        = errors.New("sync settings changed while the request was in flight")
	ErrRunning      = errors.New("sync loop already running")
)

// Store is the part of the record store the adapter reads, watches and
// keeps its settings in.
type Store interface {
	snapshot.Source
	SettingsStore
	LastModified(ctx context.Context) int64
	Subscribe(fn func(records.Change)) (unsubscribe func())
}

// Remote transfers snapshots. *Client implements it.
type Remote interface {
	Push(ctx context.Context, clubID string, snap models.Snapshot) error
	Pull(ctx context.Context, clubID string) (models.PartialSnapshot, bool, error)
}

// Applier applies a pulled snapshot under last-write-wins. *importer.Engine
// implements it.
type Applier interface {
	ApplyIfNewer(ctx context.Context, remote models.PartialSnapshot) (bool, error)
}

// Options tune an Adapter. Zero values select defaults.
type Options struct {
	PollInterval time.Duration
	// Timeout bounds each push or pull attempt.
	Timeout    time.Duration
	PushRate   rate.Limit
	Clock      Clock
	Logger     *slog.Logger
	Registerer prometheus.Registerer
	NewClubID  func() string
}

// Adapter runs the sync state machine. Enable and Disable switch it on and
// off; Start and Stop own the background scheduler.
type Adapter struct {
	store   Store
	remote  Remote
	applier Applier
	builder *snapshot.Builder

	clock     Clock
	logger    *slog.Logger
	interval  time.Duration
	timeout   time.Duration
	limiter   *rate.Limiter
	newClubID func() string
	metrics   *metrics
	status    statusStore

	mu         sync.Mutex
	settings   Settings
	lastSynced int64
	runCancel  context.CancelFunc
	done       chan struct{}

	// gate orders settings changes against applying pull results, so a
	// result from before Disable or SetClubID is never applied after it.
	gate    sync.RWMutex
	epoch   atomic.Uint64
	pulling atomic.Bool
	pushMu  sync.Mutex
	pushCh  chan struct{}
}

// NewAdapter creates an adapter with the settings persisted in store.
func NewAdapter(ctx context.Context, store Store, remote Remote, applier Applier, opts Options) *Adapter {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.PushRate == 0 {
		opts.PushRate = DefaultPushRate
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.NewClubID == nil {
		opts.NewClubID = uuid.NewString
	}

	a := &Adapter{
		store:     store,
		remote:    remote,
		applier:   applier,
		builder:   snapshot.NewBuilder(store, opts.Clock.Now),
		clock:     opts.Clock,
		logger:    opts.Logger.With("component", "sync"),
		interval:  opts.PollInterval,
		timeout:   opts.Timeout,
		limiter:   rate.NewLimiter(opts.PushRate, 1),
		newClubID: opts.NewClubID,
		metrics:   newMetrics(opts.Registerer),
		settings:  LoadSettings(ctx, store),
		pushCh:    make(chan struct{}, 1),
	}
	a.status.setSettings(a.settings)
	return a
}

// Settings returns the current sync settings.
func (a *Adapter) Settings() Settings {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.settings
}

// Status returns the latest sync status.
func (a *Adapter) Status() Status {
	return a.status.snapshot()
}

// Enable switches sync on, generating a club id when none is set, and pulls
// once straight away. A failed pull is recorded in Status, not returned.
func (a *Adapter) Enable(ctx context.Context) error {
	a.gate.Lock()
	a.mu.Lock()
	next := a.settings
	next.Enabled = true
	if next.ClubID == "" {
		next.ClubID = a.newClubID()
	}
	if err := saveSettings(ctx, a.store, next); err != nil {
		a.mu.Unlock()
		a.gate.Unlock()
		return fmt.Errorf("enable sync: %w", err)
	}
	a.settings = next
	a.epoch.Add(1)
	a.mu.Unlock()
	a.gate.Unlock()

	a.status.setSettings(next)
	a.logger.Info("Sync enabled", "club_id", next.ClubID)
	_ = a.PullNow(ctx)
	return nil
}

// Disable switches sync off. Results of requests still in flight are
// discarded.
func (a *Adapter) Disable(ctx context.Context) error {
	a.gate.Lock()
	a.mu.Lock()
	if err := a.store.SaveSyncEnabled(ctx, false); err != nil {
		a.mu.Unlock()
		a.gate.Unlock()
		return fmt.Errorf("disable sync: %w", err)
	}
	a.settings.Enabled = false
	a.lastSynced = 0
	a.epoch.Add(1)
	next := a.settings
	a.mu.Unlock()
	a.gate.Unlock()

	select {
	case <-a.pushCh:
	default:
	}
	a.status.setSettings(next)
	a.logger.Info("Sync disabled")
	return nil
}

// SetClubID points sync at another club document. When sync is enabled the
// new document is pulled straight away.
func (a *Adapter) SetClubID(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" || strings.ContainsAny(id, "/?#% ") {
		return fmt.Errorf("%w: %q", ErrInvalidClubID, id)
	}

	a.gate.Lock()
	a.mu.Lock()
	if err := a.store.SaveClubID(ctx, id); err != nil {
		a.mu.Unlock()
		a.gate.Unlock()
		return fmt.Errorf("set club id: %w", err)
	}
	a.settings.ClubID = id
	a.lastSynced = 0
	a.epoch.Add(1)
	next := a.settings
	a.mu.Unlock()
	a.gate.Unlock()

	a.status.setSettings(next)
	a.logger.Info("Sync club changed", "club_id", id)
	if next.Enabled {
		_ = a.PullNow(ctx)
	}
	return nil
}

// Start launches the scheduler: a pull now and on every tick while enabled,
// and a rate-limited push after local changes. It returns immediately.
func (a *Adapter) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.runCancel != nil {
		a.mu.Unlock()
		return ErrRunning
	}
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	a.runCancel = cancel
	a.done = done
	a.mu.Unlock()

	unsubscribe := a.store.Subscribe(a.onChange)
	ticker := a.clock.NewTicker(a.interval)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		a.pollLoop(runCtx, ticker, &wg)
	}()
	go func() {
		defer wg.Done()
		a.pushLoop(runCtx)
	}()
	go func() {
		wg.Wait()
		ticker.Stop()
		unsubscribe()
		close(done)
	}()

	a.logger.Info("Sync scheduler started", "interval", a.interval)
	return nil
}

// Stop halts the scheduler and waits for it to exit.
func (a *Adapter) Stop() {
	a.mu.Lock()
	cancel, done := a.runCancel, a.done
	a.runCancel, a.done = nil, nil
	a.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	a.logger.Info("Sync scheduler stopped")
}

// SyncOnce pulls and then pushes, for one-shot use outside the scheduler.
func (a *Adapter) SyncOnce(ctx context.Context) error {
	return errors.Join(a.PullNow(ctx), a.PushNow(ctx))
}

// PullNow makes a single pull attempt and applies the result when it is
// newer than local data. It returns ErrPullInFlight rather than overlapping
// another pull.
func (a *Adapter) PullNow(ctx context.Context) error {
	settings, epoch := a.current()
	if !settings.Enabled || settings.ClubID == "" {
		return ErrDisabled
	}
	if !a.pulling.CompareAndSwap(false, true) {
		a.metrics.pulls.WithLabelValues(resultSkipped).Inc()
		return ErrPullInFlight
	}
	defer a.pulling.Store(false)

	reqCtx, cancel := context.WithTimeout(ctx, a.timeout)
	remote, found, err := a.remote.Pull(reqCtx, settings.ClubID)
	cancel()

	a.gate.RLock()
	defer a.gate.RUnlock()

	if a.epoch.Load() != epoch {
		a.metrics.pulls.WithLabelValues(resultDiscarded).Inc()
		a.logger.Debug("Discarded pull result after settings change", "club_id", settings.ClubID)
		return ErrStale
	}

	now := a.clock.Now()
	if err != nil {
		a.status.recordPull(now, false, err)
		a.metrics.pulls.WithLabelValues(resultError).Inc()
		a.logger.Warn("Sync pull failed", "club_id", settings.ClubID, "error", err)
		return fmt.Errorf("pull: %w", err)
	}

	if !found {
		a.status.recordPull(now, false, nil)
		a.metrics.pulls.WithLabelValues(resultEmpty).Inc()
		a.metrics.lastSuccess.SetToCurrentTime()
		a.logger.Debug("Remote has no snapshot yet", "club_id", settings.ClubID)
		a.requestPush()
		return nil
	}

	applied, err := a.applier.ApplyIfNewer(ctx, remote)
	if err != nil {
		a.status.recordPull(now, false, err)
		a.metrics.pulls.WithLabelValues(resultError).Inc()
		a.logger.Error("Applying remote snapshot failed", "club_id", settings.ClubID, "error", err)
		return fmt.Errorf("apply remote snapshot: %w", err)
	}

	remoteAt := remote.Timestamp()
	localAt := a.store.LastModified(ctx)
	switch {
	case applied:
		a.markSynced(remoteAt)
		a.metrics.applied.Inc()
		a.logger.Info("Applied remote snapshot", "club_id", settings.ClubID, "updated_at", remoteAt)
	case remoteAt == localAt:
		a.markSynced(localAt)
	case localAt > remoteAt:
		a.requestPush()
	}

	a.status.recordPull(now, applied, nil)
	a.metrics.pulls.WithLabelValues(resultOK).Inc()
	a.metrics.lastSuccess.SetToCurrentTime()
	return nil
}

// PushNow sends the local snapshot, stamped with the store's modification
// time, unless the remote already has it.
func (a *Adapter) PushNow(ctx context.Context) error {
	settings, epoch := a.current()
	if !settings.Enabled || settings.ClubID == "" {
		return ErrDisabled
	}

	a.pushMu.Lock()
	defer a.pushMu.Unlock()

	modified := a.store.LastModified(ctx)
	if modified == 0 || modified <= a.synced() {
		a.metrics.pushes.WithLabelValues(resultSkipped).Inc()
		return nil
	}
	snap := a.builder.BuildAt(ctx, modified)

	reqCtx, cancel := context.WithTimeout(ctx, a.timeout)
	err := a.remote.Push(reqCtx, settings.ClubID, snap)
	cancel()

	a.gate.RLock()
	defer a.gate.RUnlock()

	if a.epoch.Load() != epoch {
		a.metrics.pushes.WithLabelValues(resultDiscarded).Inc()
		return ErrStale
	}

	now := a.clock.Now()
	a.status.recordPush(now, err)
	if err != nil {
		a.metrics.pushes.WithLabelValues(resultError).Inc()
		a.logger.Warn("Sync push failed", "club_id", settings.ClubID, "error", err)
		return fmt.Errorf("push: %w", err)
	}

	a.markSynced(modified)
	a.metrics.pushes.WithLabelValues(resultOK).Inc()
	a.metrics.lastSuccess.SetToCurrentTime()
	a.logger.Debug("Pushed snapshot", "club_id", settings.ClubID, "updated_at", modified)
	return nil
}

func (a *Adapter) pollLoop(ctx context.Context, ticker Ticker, wg *sync.WaitGroup) {
	pull := func() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = a.PullNow(ctx)
		}()
	}

	if a.Settings().Enabled {
		pull()
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			if a.Settings().Enabled {
				pull()
			}
		}
	}
}

func (a *Adapter) pushLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-a.pushCh:
		}
		if err := a.limiter.Wait(ctx); err != nil {
			return
		}
		_ = a.PushNow(ctx)
	}
}

// onChange queues a push for local edits. Writes applied from the remote
// are never echoed back.
func (a *Adapter) onChange(c records.Change) {
	if !c.Data() || c.Origin != records.OriginLocal {
		return
	}
	if a.Settings().Enabled {
		a.requestPush()
	}
}

// NotifyExternalChange queues a push after the store was changed by another
// process. A push is only sent if the stored modification time moved past
// what was last synced.
func (a *Adapter) NotifyExternalChange() {
	if a.Settings().Enabled {
		a.requestPush()
	}
}

// requestPush coalesces push requests into at most one pending signal.
func (a *Adapter) requestPush() {
	select {
	case a.pushCh <- struct{}{}:
	default:
	}
}

func (a *Adapter) current() (Settings, uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.settings, a.epoch.Load()
}

func (a *Adapter) synced() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastSynced
}

func (a *Adapter) markSynced(at int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if at > a.lastSynced {
		a.lastSynced = at
	}
}
