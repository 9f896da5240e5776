package club

import (
	"context"
	"fmt"

	"github.com/mmynk/clubhouse/internal/models"
)

// ListScores returns scores most recent first.
func (s *Service) ListScores(ctx context.Context) []models.RoundScore {
	return s.store.LoadScores(ctx)
}

// AddScore records a round at the front of the score list. The member must
// be on the roster and the outing must exist unless the round is external.
// A blank date means today.
func (s *Service) AddScore(ctx context.Context, sc models.RoundScore) (models.RoundScore, error) {
	s.logger.Info("AddScore request received",
		"member_id", sc.MemberID,
		"outing_id", sc.OutingID,
		"total", sc.TotalScore,
	)

	if err := s.validateScore(ctx, &sc); err != nil {
		return models.RoundScore{}, err
	}
	sc.ID = s.newID()

	scores := append([]models.RoundScore{sc}, s.store.LoadScores(ctx)...)
	if err := s.store.SaveScores(ctx, scores); err != nil {
		s.logger.Error("AddScore failed", "error", err)
		return models.RoundScore{}, fmt.Errorf("save scores: %w", err)
	}

	s.logger.Info("Score recorded", "score_id", sc.ID)
	return sc, nil
}

// UpdateScore replaces the score with the same id.
func (s *Service) UpdateScore(ctx context.Context, sc models.RoundScore) (models.RoundScore, error) {
	s.logger.Info("UpdateScore request received", "score_id", sc.ID)

	scores := s.store.LoadScores(ctx)
	i := findIndex(scores, sc.ID, scoreID)
	if i < 0 {
		return models.RoundScore{}, fmt.Errorf("score %q: %w", sc.ID, ErrNotFound)
	}
	if err := s.validateScore(ctx, &sc); err != nil {
		return models.RoundScore{}, err
	}
	scores[i] = sc
	if err := s.store.SaveScores(ctx, scores); err != nil {
		s.logger.Error("UpdateScore failed", "score_id", sc.ID, "error", err)
		return models.RoundScore{}, fmt.Errorf("save scores: %w", err)
	}

	s.logger.Info("Score updated", "score_id", sc.ID)
	return sc, nil
}

// DeleteScore removes a score.
func (s *Service) DeleteScore(ctx context.Context, id string) error {
	s.logger.Info("DeleteScore request received", "score_id", id)

	scores := s.store.LoadScores(ctx)
	i := findIndex(scores, id, scoreID)
	if i < 0 {
		return fmt.Errorf("score %q: %w", id, ErrNotFound)
	}
	scores = append(scores[:i], scores[i+1:]...)
	if err := s.store.SaveScores(ctx, scores); err != nil {
		s.logger.Error("DeleteScore failed", "score_id", id, "error", err)
		return fmt.Errorf("save scores: %w", err)
	}

	s.logger.Info("Score deleted", "score_id", id)
	return nil
}

func (s *Service) validateScore(ctx context.Context, sc *models.RoundScore) error {
	if sc.TotalScore < models.MinPlausibleScore || sc.TotalScore > models.MaxPlausibleScore {
		return invalid("total score %d is outside %d-%d", sc.TotalScore, models.MinPlausibleScore, models.MaxPlausibleScore)
	}
	if sc.Putts != nil && (*sc.Putts < 0 || *sc.Putts > sc.TotalScore) {
		return invalid("putts %d do not fit a total of %d", *sc.Putts, sc.TotalScore)
	}
	if sc.FairwaysHit != nil && (*sc.FairwaysHit < 0 || *sc.FairwaysHit > 18) {
		return invalid("fairways hit %d is outside 0-18", *sc.FairwaysHit)
	}
	if sc.Date == "" {
		sc.Date = s.today()
	}
	if !validDate(sc.Date) {
		return invalid("score date %q is not YYYY-MM-DD", sc.Date)
	}

	if _, err := s.GetMember(ctx, sc.MemberID); err != nil {
		return invalid("member %q is not on the roster", sc.MemberID)
	}
	if sc.OutingID == "" {
		sc.OutingID = models.ExternalOutingID
	}
	if !sc.IsExternal() && findIndex(s.store.LoadOutings(ctx), sc.OutingID, outingID) < 0 {
		return invalid("outing %q does not exist", sc.OutingID)
	}
	return nil
}

func scoreID(sc models.RoundScore) string { return sc.ID }
