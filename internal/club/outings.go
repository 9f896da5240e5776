package club

import (
	"context"
	"fmt"

	"github.com/mmynk/clubhouse/internal/models"
)

// ListOutings returns outings newest first.
func (s *Service) ListOutings(ctx context.Context) []models.Outing {
	return s.store.LoadOutings(ctx)
}

// AddOuting validates o, assigns it an id and puts it at the front of the
// list. A blank status becomes upcoming.
func (s *Service) AddOuting(ctx context.Context, o models.Outing) (models.Outing, error) {
	s.logger.Info("AddOuting request received", "title", o.Title, "date", o.Date)

	if err := validateOuting(&o); err != nil {
		return models.Outing{}, err
	}
	o.ID = s.newID()

	outings := append([]models.Outing{o}, s.store.LoadOutings(ctx)...)
	if err := s.store.SaveOutings(ctx, outings); err != nil {
		s.logger.Error("AddOuting failed", "error", err)
		return models.Outing{}, fmt.Errorf("save outings: %w", err)
	}

	s.logger.Info("Outing created", "outing_id", o.ID)
	return o, nil
}

// UpdateOuting replaces the outing with the same id.
func (s *Service) UpdateOuting(ctx context.Context, o models.Outing) (models.Outing, error) {
	s.logger.Info("UpdateOuting request received", "outing_id", o.ID)

	if err := validateOuting(&o); err != nil {
		return models.Outing{}, err
	}
	err := s.modifyOuting(ctx, o.ID, func(existing *models.Outing) error {
		*existing = o
		return nil
	})
	if err != nil {
		return models.Outing{}, err
	}

	s.logger.Info("Outing updated", "outing_id", o.ID)
	return o, nil
}

// ToggleParticipant adds memberID to the outing's participants or removes
// it, and reports whether the member now participates. Tee groups are not
// touched.
func (s *Service) ToggleParticipant(ctx context.Context, outingID, memberID string) (bool, error) {
	s.logger.Info("ToggleParticipant request received", "outing_id", outingID, "member_id", memberID)

	var joined bool
	err := s.modifyOuting(ctx, outingID, func(o *models.Outing) error {
		joined = o.ToggleParticipant(memberID)
		return nil
	})
	if err != nil {
		return false, err
	}

	s.logger.Info("Participant toggled", "outing_id", outingID, "member_id", memberID, "joined", joined)
	return joined, nil
}

// SetGroups replaces the outing's tee groups. Participants are not touched.
func (s *Service) SetGroups(ctx context.Context, outingID string, groups []models.Group) error {
	s.logger.Info("SetGroups request received", "outing_id", outingID, "groups_count", len(groups))

	for i := range groups {
		groups[i].Name = trimmed(groups[i].Name)
		if groups[i].Name == "" {
			groups[i].Name = fmt.Sprintf("Group %d", i+1)
		}
		if groups[i].MemberIDs == nil {
			groups[i].MemberIDs = []string{}
		}
	}
	err := s.modifyOuting(ctx, outingID, func(o *models.Outing) error {
		o.Groups = groups
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("Groups updated", "outing_id", outingID)
	return nil
}

// DeleteOuting removes an outing. Scores recorded against it are kept.
func (s *Service) DeleteOuting(ctx context.Context, id string) error {
	s.logger.Info("DeleteOuting request received", "outing_id", id)

	outings := s.store.LoadOutings(ctx)
	i := findIndex(outings, id, outingID)
	if i < 0 {
		return fmt.Errorf("outing %q: %w", id, ErrNotFound)
	}
	outings = append(outings[:i], outings[i+1:]...)
	if err := s.store.SaveOutings(ctx, outings); err != nil {
		s.logger.Error("DeleteOuting failed", "outing_id", id, "error", err)
		return fmt.Errorf("save outings: %w", err)
	}

	s.logger.Info("Outing deleted", "outing_id", id)
	return nil
}

func (s *Service) modifyOuting(ctx context.Context, id string, fn func(*models.Outing) error) error {
	outings := s.store.LoadOutings(ctx)
	i := findIndex(outings, id, outingID)
	if i < 0 {
		return fmt.Errorf("outing %q: %w", id, ErrNotFound)
	}
	if err := fn(&outings[i]); err != nil {
		return err
	}
	if err := s.store.SaveOutings(ctx, outings); err != nil {
		s.logger.Error("Saving outings failed", "outing_id", id, "error", err)
		return fmt.Errorf("save outings: %w", err)
	}
	return nil
}

func validateOuting(o *models.Outing) error {
	o.Title = trimmed(o.Title)
	o.CourseName = trimmed(o.CourseName)
	if o.Title == "" {
		return invalid("outing title is required")
	}
	if !validDate(o.Date) {
		return invalid("outing date %q is not YYYY-MM-DD", o.Date)
	}
	if o.Status == "" {
		o.Status = models.OutingUpcoming
	}
	if !o.Status.Valid() {
		return invalid("unknown outing status %q", o.Status)
	}
	o.SetParticipants(o.Participants)
	return nil
}

func outingID(o models.Outing) string { return o.ID }
