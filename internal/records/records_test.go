package records

import (
	"context"
	"testing"
	"time"

	"github.com/mmynk/clubhouse/internal/models"
	"github.com/mmynk/clubhouse/internal/storage/memory"
)

func fixedClock(ms int64) func() time.Time {
	return func() time.Time { return time.UnixMilli(ms) }
}

func TestStore_CollectionsRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := New(memory.New(), WithClock(fixedClock(1_700_000_000_000)))

	members := []models.Member{
		{ID: "m1", Name: "김철수", Nickname: "독수리", Handicap: 18, Avatar: "🦅", AnnualFeeTarget: 300000},
		{ID: "m2", Name: "Alex", Handicap: 0},
	}
	if err := s.SaveMembers(ctx, members); err != nil {
		t.Fatalf("SaveMembers failed: %v", err)
	}
	got := s.LoadMembers(ctx)
	if len(got) != 2 || got[0].Nickname != "독수리" || got[1].Name != "Alex" {
		t.Errorf("LoadMembers = %+v", got)
	}

	fees := []models.FeeRecord{{ID: "f1", MemberID: "m1", Amount: 100000, Date: "2024-03-01", Purpose: "annual", Status: models.FeePaid}}
	if err := s.SaveFees(ctx, fees); err != nil {
		t.Fatalf("SaveFees failed: %v", err)
	}
	if got := s.LoadFees(ctx); len(got) != 1 || got[0].Amount != 100000 {
		t.Errorf("LoadFees = %+v", got)
	}

	if err := s.SaveCarryover(ctx, 50000); err != nil {
		t.Fatalf("SaveCarryover failed: %v", err)
	}
	if got := s.LoadCarryover(ctx); got != 50000 {
		t.Errorf("LoadCarryover = %d, want 50000", got)
	}
}

func TestStore_LoadsNeverFail(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		seed  map[string]string
		check func(t *testing.T, s *Store)
	}{
		{
			name: "fresh store has no data",
			check: func(t *testing.T, s *Store) {
				if s.LoadMembers(ctx) != nil || s.LoadOutings(ctx) != nil || s.LoadScores(ctx) != nil || s.LoadFees(ctx) != nil {
					t.Error("expected nil collections on a fresh store")
				}
				if s.LoadCarryover(ctx) != 0 || s.LoadSyncEnabled(ctx) || s.LoadClubID(ctx) != "" || s.LastModified(ctx) != 0 {
					t.Error("expected zero scalars on a fresh store")
				}
			},
		},
		{
			name: "corrupt collection reads as absent",
			seed: map[string]string{KeyOutings: "{not json"},
			check: func(t *testing.T, s *Store) {
				if got := s.LoadOutings(ctx); got != nil {
					t.Errorf("LoadOutings = %+v, want nil", got)
				}
			},
		},
		{
			name: "garbage scalars read as defaults",
			seed: map[string]string{KeyCarryover: "lots", KeySyncEnabled: "maybe", KeyUpdatedAt: "yesterday"},
			check: func(t *testing.T, s *Store) {
				if s.LoadCarryover(ctx) != 0 || s.LoadSyncEnabled(ctx) || s.LastModified(ctx) != 0 {
					t.Error("expected defaults for unparseable scalars")
				}
			},
		},
		{
			name: "fractional carryover truncates",
			seed: map[string]string{KeyCarryover: "12000.0"},
			check: func(t *testing.T, s *Store) {
				if got := s.LoadCarryover(ctx); got != 12000 {
					t.Errorf("LoadCarryover = %d, want 12000", got)
				}
			},
		},
		{
			name: "non-finite carryover reads as zero",
			seed: map[string]string{KeyCarryover: "NaN"},
			check: func(t *testing.T, s *Store) {
				for _, raw := range []string{"NaN", "Inf", "-Infinity", "1e300"} {
					s.kv.Set(ctx, KeyCarryover, raw)
					if got := s.LoadCarryover(ctx); got != 0 {
						t.Errorf("LoadCarryover(%q) = %d, want 0", raw, got)
					}
				}
			},
		},
		{
			name: "legacy keys are read when current keys are absent",
			seed: map[string]string{
				"zoo_members":   `[{"id":"old","name":"Legacy","handicap":20,"avatar":"","annualFeeTarget":0}]`,
				"zoo_carryover": "7000",
			},
			check: func(t *testing.T, s *Store) {
				if got := s.LoadMembers(ctx); len(got) != 1 || got[0].ID != "old" {
					t.Errorf("LoadMembers = %+v, want legacy roster", got)
				}
				if got := s.LoadCarryover(ctx); got != 7000 {
					t.Errorf("LoadCarryover = %d, want 7000", got)
				}
			},
		},
		{
			name: "current key shadows legacy key",
			seed: map[string]string{
				"zoo_fees": `[{"id":"old"}]`,
				KeyFees:    `[]`,
			},
			check: func(t *testing.T, s *Store) {
				if got := s.LoadFees(ctx); len(got) != 0 {
					t.Errorf("LoadFees = %+v, want empty", got)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kv := memory.New()
			for k, v := range tt.seed {
				if err := kv.Set(ctx, k, v); err != nil {
					t.Fatalf("seed %s: %v", k, err)
				}
			}
			tt.check(t, New(kv))
		})
	}
}

func TestStore_SaveEmptyCollectionWritesArray(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()
	s := New(kv)

	if err := s.SaveScores(ctx, nil); err != nil {
		t.Fatalf("SaveScores failed: %v", err)
	}
	if raw := kv.Dump()[KeyScores]; raw != "[]" {
		t.Errorf("stored %q, want []", raw)
	}
	if !s.Has(ctx, KeyScores) {
		t.Error("Has(scores) = false after save")
	}
}

func TestStore_SaveFailureIsReturned(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()
	kv.FailSetsOn(KeyOutings)
	s := New(kv)

	var changes []Change
	s.Subscribe(func(c Change) { changes = append(changes, c) })

	if err := s.SaveOutings(ctx, []models.Outing{{ID: "o1"}}); err == nil {
		t.Fatal("SaveOutings succeeded, want error")
	}
	if len(changes) != 0 {
		t.Errorf("failed save notified subscribers: %+v", changes)
	}
	if s.LastModified(ctx) != 0 {
		t.Error("failed save stamped updated_at")
	}
}

func TestStore_ModificationStamp(t *testing.T) {
	ctx := context.Background()

	t.Run("local data writes stamp now", func(t *testing.T) {
		s := New(memory.New(), WithClock(fixedClock(1_000)))
		if err := s.SaveCarryover(ctx, 1); err != nil {
			t.Fatal(err)
		}
		if got := s.LastModified(ctx); got != 1_000 {
			t.Errorf("LastModified = %d, want 1000", got)
		}
	})

	t.Run("local writes move past an applied remote stamp", func(t *testing.T) {
		s := New(memory.New(), WithClock(fixedClock(1_000)))
		if err := s.SetLastModified(WithOrigin(ctx, OriginRemote), 5_000); err != nil {
			t.Fatal(err)
		}
		if err := s.SaveCarryover(ctx, 1); err != nil {
			t.Fatal(err)
		}
		if got := s.LastModified(ctx); got != 5_001 {
			t.Errorf("LastModified = %d, want 5001", got)
		}
		if err := s.SaveCarryover(ctx, 2); err != nil {
			t.Fatal(err)
		}
		if got := s.LastModified(ctx); got != 5_002 {
			t.Errorf("LastModified = %d, want 5002", got)
		}
	})

	t.Run("settings writes do not stamp", func(t *testing.T) {
		s := New(memory.New(), WithClock(fixedClock(1_000)))
		if err := s.SaveClubID(ctx, "club"); err != nil {
			t.Fatal(err)
		}
		if err := s.SaveSyncEnabled(ctx, true); err != nil {
			t.Fatal(err)
		}
		if got := s.LastModified(ctx); got != 0 {
			t.Errorf("LastModified = %d, want 0", got)
		}
		if !s.LoadSyncEnabled(ctx) || s.LoadClubID(ctx) != "club" {
			t.Error("settings did not round-trip")
		}
	})

	t.Run("remote writes do not stamp", func(t *testing.T) {
		s := New(memory.New(), WithClock(fixedClock(1_000)))
		rctx := WithOrigin(ctx, OriginRemote)
		if err := s.SaveMembers(rctx, []models.Member{{ID: "m"}}); err != nil {
			t.Fatal(err)
		}
		if got := s.LastModified(ctx); got != 0 {
			t.Errorf("LastModified = %d, want 0", got)
		}
		if err := s.SetLastModified(rctx, 500); err != nil {
			t.Fatal(err)
		}
		if got := s.LastModified(ctx); got != 500 {
			t.Errorf("LastModified = %d, want 500", got)
		}
	})
}

func TestStore_Subscribe(t *testing.T) {
	ctx := context.Background()
	s := New(memory.New())

	var got []Change
	unsubscribe := s.Subscribe(func(c Change) { got = append(got, c) })

	if err := s.SaveFees(ctx, nil); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveMembers(WithOrigin(ctx, OriginRemote), nil); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveClubID(ctx, "x"); err != nil {
		t.Fatal(err)
	}

	want := []Change{
		{Key: KeyFees, Origin: OriginLocal},
		{Key: KeyMembers, Origin: OriginRemote},
		{Key: KeyClubID, Origin: OriginLocal},
	}
	if len(got) != len(want) {
		t.Fatalf("changes = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("change[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
	if !got[0].Data() || got[2].Data() {
		t.Error("Data() misclassified keys")
	}

	unsubscribe()
	if err := s.SaveFees(ctx, nil); err != nil {
		t.Fatal(err)
	}
	if len(got) != len(want) {
		t.Errorf("received change after unsubscribe: %+v", got[len(want):])
	}
}
