package club

import (
	"context"
	"sort"
	"time"

	"github.com/mmynk/clubhouse/internal/ledger"
	"github.com/mmynk/clubhouse/internal/models"
)

const (
	leaderboardSize = 5
	recentPhotoSize = 3
	trendSize       = 5
)

// Dashboard is the club overview.
type Dashboard struct {
	Members      int
	Upcoming     []models.Outing
	UnpaidCount  int
	Ledger       ledger.Summary
	AverageScore float64 // Zero when no rounds are recorded
	Leaderboard  []Standing
	RecentPhotos []models.RoundScore
	Trend        []int // Most recent totals, oldest first
}

// Standing is one row of the best-rounds leaderboard.
type Standing struct {
	Score    models.RoundScore
	Name     string
	Nickname string
}

// Dashboard gathers the overview from the current records.
func (s *Service) Dashboard(ctx context.Context) Dashboard {
	members := s.ListMembers(ctx)
	outings := s.store.LoadOutings(ctx)
	scores := s.store.LoadScores(ctx)
	fees := s.store.LoadFees(ctx)

	d := Dashboard{
		Members: len(members),
		Ledger:  ledger.Summarize(fees, s.store.LoadCarryover(ctx)),
	}
	for _, o := range outings {
		if o.Status == models.OutingUpcoming {
			d.Upcoming = append(d.Upcoming, o)
		}
	}
	for _, f := range fees {
		if f.Status == models.FeeUnpaid {
			d.UnpaidCount++
		}
	}

	if len(scores) > 0 {
		total := 0
		for _, sc := range scores {
			total += sc.TotalScore
		}
		d.AverageScore = float64(total) / float64(len(scores))
	}

	d.Leaderboard = Leaderboard(members, scores, leaderboardSize)
	d.RecentPhotos = recentPhotos(scores, recentPhotoSize)
	d.Trend = trend(scores, trendSize)
	return d
}

// Leaderboard ranks rounds by fewest strokes, earlier rounds first on ties,
// and keeps the best n. n <= 0 keeps all of them.
func Leaderboard(members []models.Member, scores []models.RoundScore, n int) []Standing {
	ranked := append([]models.RoundScore(nil), scores...)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].TotalScore != ranked[j].TotalScore {
			return ranked[i].TotalScore < ranked[j].TotalScore
		}
		return ranked[i].Date < ranked[j].Date
	})
	if n > 0 && len(ranked) > n {
		ranked = ranked[:n]
	}

	idx := models.IndexMembers(members)
	out := make([]Standing, len(ranked))
	for i, sc := range ranked {
		out[i] = Standing{Score: sc, Name: idx.Name(sc.MemberID)}
		if m, ok := idx.Lookup(sc.MemberID); ok {
			out[i].Nickname = m.Nickname
		}
	}
	return out
}

// ScoresInMonth keeps the rounds played in the given year and month. A zero
// month keeps the whole year. Rounds with an unreadable date are dropped.
func ScoresInMonth(scores []models.RoundScore, year int, month time.Month) []models.RoundScore {
	var out []models.RoundScore
	for _, sc := range scores {
		played, err := time.Parse(dateLayout, sc.Date)
		if err != nil || played.Year() != year {
			continue
		}
		if month != 0 && played.Month() != month {
			continue
		}
		out = append(out, sc)
	}
	return out
}

// MonthlyLeaderboard ranks the rounds of one month, or of the whole year when
// month is zero.
func (s *Service) MonthlyLeaderboard(ctx context.Context, year int, month time.Month, n int) []Standing {
	return Leaderboard(s.ListMembers(ctx), ScoresInMonth(s.store.LoadScores(ctx), year, month), n)
}

func recentPhotos(scores []models.RoundScore, n int) []models.RoundScore {
	var photos []models.RoundScore
	for _, sc := range scores {
		if sc.HasPhoto() {
			photos = append(photos, sc)
		}
	}
	sort.SliceStable(photos, func(i, j int) bool { return photos[i].Date > photos[j].Date })
	if len(photos) > n {
		photos = photos[:n]
	}
	return photos
}

// trend lists the totals of the n most recent rounds, oldest first. The
// score list is newest first.
func trend(scores []models.RoundScore, n int) []int {
	if len(scores) > n {
		scores = scores[:n]
	}
	out := make([]int, len(scores))
	for i, sc := range scores {
		out[len(scores)-1-i] = sc.TotalScore
	}
	return out
}
