// Package club implements the everyday operations on the roster, outings,
// scores and fee ledger on top of the record store.
package club

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/clubhouse/internal/models"
)

var (
	// ErrNotFound means no record has the requested identifier.
	ErrNotFound = errors.New("not found")
	// ErrInvalid means a record failed validation. The wrapped message names
	// the offending field.
	ErrInvalid = errors.New("invalid")
)

// Store is the part of the record store the service needs.
// *records.Store implements it.
type Store interface {
	LoadMembers(ctx context.Context) []models.Member
	SaveMembers(ctx context.Context, members []models.Member) error
	LoadOutings(ctx context.Context) []models.Outing
	SaveOutings(ctx context.Context, outings []models.Outing) error
	LoadScores(ctx context.Context) []models.RoundScore
	SaveScores(ctx context.Context, scores []models.RoundScore) error
	LoadFees(ctx context.Context) []models.FeeRecord
	SaveFees(ctx context.Context, fees []models.FeeRecord) error
	LoadCarryover(ctx context.Context) int64
	SaveCarryover(ctx context.Context, amount int64) error
	Has(ctx context.Context, key string) bool
}

// Service mutates club records. Each operation loads the collection it
// touches, changes it and saves it back, so every call is one durable write.
type Service struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithClock replaces time.Now, used for default dates.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator replaces uuid.NewString.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

// NewService creates a Service over store.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: slog.Default(),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) today() string {
	return s.now().Format(dateLayout)
}

const dateLayout = "2006-01-02"

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

func validDate(d string) bool {
	_, err := time.Parse(dateLayout, d)
	return err == nil
}

func findIndex[T any](items []T, id string, idOf func(T) string) int {
	for i, item := range items {
		if idOf(item) == id {
			return i
		}
	}
	return -1
}

func trimmed(s string) string { return strings.TrimSpace(s) }
