// Package records provides typed, durable accessors for the club's
// collections and settings on top of a storage.KV.
//
// Every collection is stored whole under a fixed key and replaced whole on
// save. Loads never fail: a missing key or content that no longer parses is
// reported as "no data yet" and logged.
package records

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mmynk/clubhouse/internal/models"
	"github.com/mmynk/clubhouse/internal/storage"
)

// Keys used in the underlying KV store.
const (
	KeyMembers     = "members"
	KeyOutings     = "outings"
	KeyScores      = "scores"
	KeyFees        = "fees"
	KeyCarryover   = "carryover"
	KeySyncEnabled = "sync_enabled"
	KeyClubID      = "club_id"
	KeyUpdatedAt   = "updated_at"
)

// legacyKeys are the keys the first version of the club app wrote. They are
// read when the current key has never been written.
var legacyKeys = map[string]string{
	KeyMembers:   "zoo_members",
	KeyOutings:   "zoo_outings",
	KeyScores:    "zoo_scores",
	KeyFees:      "zoo_fees",
	KeyCarryover: "zoo_carryover",
}

// DataKeys are the keys whose content travels in a snapshot.
var DataKeys = []string{KeyMembers, KeyOutings, KeyScores, KeyFees, KeyCarryover}

// IsDataKey reports whether key holds snapshot content.
func IsDataKey(key string) bool {
	for _, k := range DataKeys {
		if k == key {
			return true
		}
	}
	return false
}

// Store is the record layer. It is safe for concurrent use.
type Store struct {
	kv     storage.KV
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	subs    map[int]func(Change)
	nextSub int
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for absorbed failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithClock overrides the time source used for modification stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates a Store over kv.
func New(kv storage.KV, opts ...Option) *Store {
	s := &Store{
		kv:     kv,
		logger: slog.Default(),
		now:    time.Now,
		subs:   make(map[int]func(Change)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LoadMembers returns the roster, or nil when none has been saved.
func (s *Store) LoadMembers(ctx context.Context) []models.Member {
	return loadList[models.Member](ctx, s, KeyMembers)
}

// SaveMembers replaces the roster.
func (s *Store) SaveMembers(ctx context.Context, members []models.Member) error {
	return saveList(ctx, s, KeyMembers, members)
}

// LoadOutings returns all outings, or nil when none have been saved.
func (s *Store) LoadOutings(ctx context.Context) []models.Outing {
	return loadList[models.Outing](ctx, s, KeyOutings)
}

// SaveOutings replaces all outings.
func (s *Store) SaveOutings(ctx context.Context, outings []models.Outing) error {
	return saveList(ctx, s, KeyOutings, outings)
}

// LoadScores returns all round scores, or nil when none have been saved.
func (s *Store) LoadScores(ctx context.Context) []models.RoundScore {
	return loadList[models.RoundScore](ctx, s, KeyScores)
}

// SaveScores replaces all round scores.
func (s *Store) SaveScores(ctx context.Context, scores []models.RoundScore) error {
	return saveList(ctx, s, KeyScores, scores)
}

// LoadFees returns all fee records, or nil when none have been saved.
func (s *Store) LoadFees(ctx context.Context) []models.FeeRecord {
	return loadList[models.FeeRecord](ctx, s, KeyFees)
}

// SaveFees replaces all fee records.
func (s *Store) SaveFees(ctx context.Context, fees []models.FeeRecord) error {
	return saveList(ctx, s, KeyFees, fees)
}

// LoadCarryover returns the opening balance, zero when absent.
func (s *Store) LoadCarryover(ctx context.Context) int64 {
	raw, ok := s.read(ctx, KeyCarryover)
	if !ok {
		return 0
	}
	raw = strings.TrimSpace(raw)
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n
	}
	// Older clients stored whatever Number.toString produced.
	if f, err := strconv.ParseFloat(raw, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) &&
		f >= math.MinInt64 && f < math.MaxInt64 {
		return int64(f)
	}
	s.logger.Warn("Ignoring unparseable carryover", "value", raw)
	return 0
}

// SaveCarryover replaces the opening balance.
func (s *Store) SaveCarryover(ctx context.Context, amount int64) error {
	return s.write(ctx, KeyCarryover, strconv.FormatInt(amount, 10))
}

// LoadSyncEnabled reports whether remote sync is switched on. Defaults to false.
func (s *Store) LoadSyncEnabled(ctx context.Context) bool {
	raw, ok := s.read(ctx, KeySyncEnabled)
	if !ok {
		return false
	}
	enabled, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		s.logger.Warn("Ignoring unparseable sync flag", "value", raw)
		return false
	}
	return enabled
}

// SaveSyncEnabled stores the sync switch.
func (s *Store) SaveSyncEnabled(ctx context.Context, enabled bool) error {
	return s.write(ctx, KeySyncEnabled, strconv.FormatBool(enabled))
}

// LoadClubID returns the remote club identifier, "" when unset.
func (s *Store) LoadClubID(ctx context.Context) string {
	raw, _ := s.read(ctx, KeyClubID)
	return raw
}

// SaveClubID stores the remote club identifier.
func (s *Store) SaveClubID(ctx context.Context, id string) error {
	return s.write(ctx, KeyClubID, id)
}

// LastModified returns the Unix-millisecond time of the last local change
// or of the last remote snapshot applied, zero when unknown.
func (s *Store) LastModified(ctx context.Context) int64 {
	raw, ok := s.read(ctx, KeyUpdatedAt)
	if !ok {
		return 0
	}
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		s.logger.Warn("Ignoring unparseable modification time", "value", raw)
		return 0
	}
	return n
}

// SetLastModified overwrites the modification stamp.
func (s *Store) SetLastModified(ctx context.Context, ms int64) error {
	return s.write(ctx, KeyUpdatedAt, strconv.FormatInt(ms, 10))
}

// Has reports whether key has ever been written (under its current or
// legacy name).
func (s *Store) Has(ctx context.Context, key string) bool {
	_, ok := s.read(ctx, key)
	return ok
}

func loadList[T any](ctx context.Context, s *Store, key string) []T {
	raw, ok := s.read(ctx, key)
	if !ok {
		return nil
	}
	var items []T
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		s.logger.Warn("Ignoring unparseable collection", "key", key, "error", err)
		return nil
	}
	return items
}

func saveList[T any](ctx context.Context, s *Store, key string, items []T) error {
	if items == nil {
		items = []T{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return err
	}
	return s.write(ctx, key, string(data))
}

// read returns the raw value for key, falling back to its legacy name.
// Substrate errors are logged and reported as absence.
func (s *Store) read(ctx context.Context, key string) (string, bool) {
	raw, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		s.logger.Warn("Record read failed", "key", key, "error", err)
		return "", false
	}
	if ok {
		return raw, true
	}
	legacy, hasLegacy := legacyKeys[key]
	if !hasLegacy {
		return "", false
	}
	raw, ok, err = s.kv.Get(ctx, legacy)
	if err != nil {
		s.logger.Warn("Record read failed", "key", legacy, "error", err)
		return "", false
	}
	if ok && raw == "" {
		return "", false
	}
	return raw, ok
}

// write stores value and, for snapshot content written locally, stamps the
// modification time before notifying subscribers.
func (s *Store) write(ctx context.Context, key, value string) error {
	if err := s.kv.Set(ctx, key, value); err != nil {
		s.logger.Error("Record write failed", "key", key, "error", err)
		return err
	}

	origin := OriginFrom(ctx)
	if origin == OriginLocal && IsDataKey(key) {
		stamp := strconv.FormatInt(s.nextStamp(ctx), 10)
		if err := s.kv.Set(ctx, KeyUpdatedAt, stamp); err != nil {
			s.logger.Error("Record write failed", "key", KeyUpdatedAt, "error", err)
		}
	}

	s.notify(Change{Key: key, Origin: origin})
	return nil
}

// nextStamp is the modification time for a local write. It never falls
// behind the current stamp, even when the clock lags an applied remote
// snapshot.
func (s *Store) nextStamp(ctx context.Context) int64 {
	now := s.now().UnixMilli()
	if last := s.LastModified(ctx); now < last {
		return last + 1
	}
	return now
}
