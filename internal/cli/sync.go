package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/mmynk/clubhouse/internal/models"
	"github.com/mmynk/clubhouse/internal/remote"
	"github.com/mmynk/clubhouse/internal/telemetry"
	"github.com/mmynk/clubhouse/internal/watch"
)

var errNoEndpoint = errors.New("no sync endpoint configured (set sync.endpoint or CLUBHOUSE_ENDPOINT)")

// offline stands in for the remote when no endpoint is configured, so
// settings can still be changed.
type offline struct{}

func (offline) Push(context.Context, string, models.Snapshot) error { return errNoEndpoint }
func (offline) Pull(context.Context, string) (models.PartialSnapshot, bool, error) {
	return models.PartialSnapshot{}, false, errNoEndpoint
}

func runSync(ctx context.Context, a *app, args []string) error {
	sub, rest := subcommand(args, "status")
	switch sub {
	case "status":
		adapter, err := a.syncAdapter(ctx, false, nil)
		if err != nil {
			return err
		}
		a.printSyncStatus(ctx, adapter)
		return nil

	case "enable":
		adapter, err := a.syncAdapter(ctx, true, nil)
		if err != nil {
			return err
		}
		if err := adapter.Enable(ctx); err != nil {
			return err
		}
		a.printSyncStatus(ctx, adapter)
		return nil

	case "disable":
		adapter, err := a.syncAdapter(ctx, false, nil)
		if err != nil {
			return err
		}
		if err := adapter.Disable(ctx); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "Sync disabled.")
		return nil

	case "club":
		if len(rest) != 1 {
			return usageErr(a, "sync club <id>")
		}
		adapter, err := a.syncAdapter(ctx, false, nil)
		if err != nil {
			return err
		}
		if err := adapter.SetClubID(ctx, rest[0]); err != nil {
			return err
		}
		a.printSyncStatus(ctx, adapter)
		return nil

	case "once":
		adapter, err := a.syncAdapter(ctx, true, nil)
		if err != nil {
			return err
		}
		if err := adapter.SyncOnce(ctx); err != nil {
			return err
		}
		a.printSyncStatus(ctx, adapter)
		return nil

	case "run":
		return a.runSyncLoop(ctx, rest)

	default:
		return unknownSub(a, "sync", sub, "status", "enable", "disable", "club", "once", "run")
	}
}

// syncAdapter builds the adapter from config. With needRemote, a missing
// endpoint is an error; otherwise settings can be managed offline.
func (a *app) syncAdapter(ctx context.Context, needRemote bool, reg prometheus.Registerer) (*remote.Adapter, error) {
	var rem remote.Remote = offline{}
	if a.cfg.Sync.Endpoint != "" {
		client, err := remote.NewClient(a.cfg.Sync.Endpoint, remote.WithTimeout(a.cfg.Sync.Timeout))
		if err != nil {
			return nil, err
		}
		rem = client
	} else if needRemote {
		return nil, errNoEndpoint
	}

	opts := remote.Options{
		PollInterval: a.cfg.Sync.PollInterval,
		Timeout:      a.cfg.Sync.Timeout,
		Logger:       a.logger,
		Registerer:   reg,
	}
	if a.cfg.Sync.PushInterval > 0 {
		opts.PushRate = rate.Every(a.cfg.Sync.PushInterval)
	}
	return remote.NewAdapter(ctx, a.store, rem, a.engine, opts), nil
}

func (a *app) printSyncStatus(ctx context.Context, adapter *remote.Adapter) {
	st := adapter.Status()
	state := "off"
	if st.Enabled {
		state = "on"
	}
	endpoint := a.cfg.Sync.Endpoint
	if endpoint == "" {
		endpoint = "(none)"
	}
	fmt.Fprintf(a.out, "sync       %s\n", state)
	fmt.Fprintf(a.out, "endpoint   %s\n", endpoint)
	fmt.Fprintf(a.out, "club id    %s\n", orDash(st.ClubID))
	if at := a.store.LastModified(ctx); at > 0 {
		fmt.Fprintf(a.out, "modified   %s\n", time.UnixMilli(at).Format(time.DateTime))
	}
	if !st.LastPull.IsZero() {
		fmt.Fprintf(a.out, "last pull  %s\n", st.LastPull.Format(time.DateTime))
	}
	if !st.LastPush.IsZero() {
		fmt.Fprintf(a.out, "last push  %s\n", st.LastPush.Format(time.DateTime))
	}
	if st.LastError != nil {
		fmt.Fprintf(a.out, "error      %v\n", st.LastError)
	}
}

// runSyncLoop keeps the store in sync until ctx is cancelled. Edits made by
// other clubhouse processes are picked up by watching the store file.
func (a *app) runSyncLoop(ctx context.Context, args []string) error {
	fs := newFlags("sync run", a)
	metricsAddr := fs.String("metrics", "", "serve Prometheus metrics on this address")
	if err := parse(fs, args); err != nil {
		return err
	}

	shutdown, err := telemetry.Setup(ctx, telemetry.Config{
		Endpoint:    a.cfg.Telemetry.OTLPEndpoint,
		ServiceName: a.cfg.Telemetry.ServiceName,
	})
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(flushCtx); err != nil {
			a.logger.Warn("Telemetry shutdown failed", "error", err)
		}
	}()

	reg := prometheus.NewRegistry()
	adapter, err := a.syncAdapter(ctx, true, reg)
	if err != nil {
		return err
	}
	if !adapter.Settings().Enabled {
		return errors.New("sync is disabled; run `clubhouse sync enable` first")
	}

	if *metricsAddr != "" {
		srv := &http.Server{
			Addr:              *metricsAddr,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("Metrics server failed", "error", err)
			}
		}()
		defer srv.Close()
		a.logger.Info("Serving metrics", "addr", *metricsAddr)
	}

	if err := adapter.Start(ctx); err != nil {
		return err
	}
	defer adapter.Stop()

	fmt.Fprintf(a.out, "Syncing club %s with %s. Press Ctrl-C to stop.\n", adapter.Settings().ClubID, a.cfg.Sync.Endpoint)
	return watch.File(ctx, a.cfg.StorePath, 0, a.logger, adapter.NotifyExternalChange)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
