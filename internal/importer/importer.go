// Package importer applies snapshots to the record store.
//
// Import is a whole-collection overwrite: every field present in the
// snapshot replaces the local collection outright, absent fields are left
// alone. There is no per-record merge.
package importer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mmynk/clubhouse/internal/models"
	"github.com/mmynk/clubhouse/internal/records"
	"github.com/mmynk/clubhouse/internal/snapshot"
)

// Store is the write side of the record store used by the engine.
type Store interface {
	SaveMembers(ctx context.Context, members []models.Member) error
	SaveOutings(ctx context.Context, outings []models.Outing) error
	SaveScores(ctx context.Context, scores []models.RoundScore) error
	SaveFees(ctx context.Context, fees []models.FeeRecord) error
	SaveCarryover(ctx context.Context, amount int64) error
	LastModified(ctx context.Context) int64
	SetLastModified(ctx context.Context, ms int64) error
}

// Engine applies snapshots.
type Engine struct {
	store  Store
	logger *slog.Logger
}

// New creates an Engine. A nil logger uses slog.Default().
func New(store Store, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{store: store, logger: logger}
}

// Import overwrites each collection present in p. Writes happen one
// collection at a time; a failure stops the import and is returned, leaving
// earlier collections already replaced.
func (e *Engine) Import(ctx context.Context, p models.PartialSnapshot) error {
	var err error
	step := func(name string, present bool, save func() error) {
		if !present || err != nil {
			return
		}
		if serr := save(); serr != nil {
			err = fmt.Errorf("import %s: %w", name, serr)
		}
	}

	step(records.KeyMembers, p.Members != nil, func() error { return e.store.SaveMembers(ctx, *p.Members) })
	step(records.KeyOutings, p.Outings != nil, func() error { return e.store.SaveOutings(ctx, *p.Outings) })
	step(records.KeyScores, p.Scores != nil, func() error { return e.store.SaveScores(ctx, *p.Scores) })
	step(records.KeyFees, p.Fees != nil, func() error { return e.store.SaveFees(ctx, *p.Fees) })
	step(records.KeyCarryover, p.Carryover != nil, func() error { return e.store.SaveCarryover(ctx, *p.Carryover) })

	if err != nil {
		e.logger.Error("Import stopped part way", "error", err)
		return err
	}

	members, outings, scores, fees := p.Counts()
	e.logger.Info("Imported snapshot",
		"origin", records.OriginFrom(ctx),
		"members", members,
		"outings", outings,
		"scores", scores,
		"fees", fees,
		"carryover_present", p.Carryover != nil,
	)
	return nil
}

// ImportToken decodes token and imports it. A token that does not decode
// returns the *snapshot.DecodeError and writes nothing.
func (e *Engine) ImportToken(ctx context.Context, token string) error {
	p, err := snapshot.Decode(token)
	if err != nil {
		e.logger.Warn("Rejected import token", "error", err)
		return err
	}
	return e.Import(ctx, p)
}

// ApplyIfNewer applies remote when its timestamp is strictly after the
// store's last modification. Applied writes carry remote origin and the
// store's modification time becomes the remote timestamp. A snapshot
// without a timestamp is never newer.
func (e *Engine) ApplyIfNewer(ctx context.Context, remote models.PartialSnapshot) (bool, error) {
	local := e.store.LastModified(ctx)
	incoming := remote.Timestamp()
	if incoming <= local {
		e.logger.Debug("Remote snapshot not newer", "remote_updated_at", incoming, "local_updated_at", local)
		return false, nil
	}

	rctx := records.WithOrigin(ctx, records.OriginRemote)
	if err := e.Import(rctx, remote); err != nil {
		return false, err
	}
	if err := e.store.SetLastModified(rctx, incoming); err != nil {
		return true, fmt.Errorf("record remote timestamp: %w", err)
	}
	return true, nil
}
