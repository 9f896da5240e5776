// Package snapshot builds the aggregate club snapshot and converts it to and
// from the text token used for links, clipboard sharing and sync.
package snapshot

import (
	"context"
	"time"

	"github.com/mmynk/clubhouse/internal/models"
)

// Source is the read side of the record store.
type Source interface {
	LoadMembers(ctx context.Context) []models.Member
	LoadOutings(ctx context.Context) []models.Outing
	LoadScores(ctx context.Context) []models.RoundScore
	LoadFees(ctx context.Context) []models.FeeRecord
	LoadCarryover(ctx context.Context) int64
}

// Builder assembles snapshots from a Source.
type Builder struct {
	src Source
	now func() time.Time
}

// NewBuilder returns a Builder. A nil now uses time.Now.
func NewBuilder(src Source, now func() time.Time) *Builder {
	if now == nil {
		now = time.Now
	}
	return &Builder{src: src, now: now}
}

// Build reads every collection and the carryover and stamps the result with
// the current time. It never writes.
func (b *Builder) Build(ctx context.Context) models.Snapshot {
	now := b.now()
	s := b.BuildAt(ctx, now.UnixMilli())
	s.ExportedAt = now.UTC().Format(time.RFC3339)
	return s
}

// BuildAt is Build with an explicit updatedAt, used when the snapshot must
// carry the store's own modification time rather than the read time.
func (b *Builder) BuildAt(ctx context.Context, updatedAt int64) models.Snapshot {
	s := models.Snapshot{
		Members:   b.src.LoadMembers(ctx),
		Outings:   b.src.LoadOutings(ctx),
		Scores:    b.src.LoadScores(ctx),
		Fees:      b.src.LoadFees(ctx),
		Carryover: b.src.LoadCarryover(ctx),
		UpdatedAt: updatedAt,
		Version:   models.SnapshotVersion,
	}
	return s.Normalize()
}
