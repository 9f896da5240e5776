package club

import (
	"context"
	"fmt"

	"github.com/mmynk/clubhouse/internal/models"
	"github.com/mmynk/clubhouse/internal/records"
)

// DefaultMembers is the roster a brand-new club starts with.
func DefaultMembers() []models.Member {
	return []models.Member{
		{ID: "1", Name: "김철수", Nickname: "독수리", Handicap: 12, Avatar: "https://picsum.photos/seed/chulsoo/100", AnnualFeeTarget: 600000},
		{ID: "2", Name: "이영희", Nickname: "버디퀸", Handicap: 18, Avatar: "https://picsum.photos/seed/younghee/100", AnnualFeeTarget: 400000},
		{ID: "3", Name: "박지성", Nickname: "산소탱크", Handicap: 5, Avatar: "https://picsum.photos/seed/jisung/100", AnnualFeeTarget: 1000000},
	}
}

// ListMembers returns the roster. A store that has never held a roster
// yields DefaultMembers; they are written on the first roster change, so a
// fresh device does not look newer than the club's shared data.
func (s *Service) ListMembers(ctx context.Context) []models.Member {
	if !s.store.Has(ctx, records.KeyMembers) {
		return DefaultMembers()
	}
	return s.store.LoadMembers(ctx)
}

// GetMember returns the member with id.
func (s *Service) GetMember(ctx context.Context, id string) (models.Member, error) {
	members := s.ListMembers(ctx)
	i := findIndex(members, id, memberID)
	if i < 0 {
		return models.Member{}, fmt.Errorf("member %q: %w", id, ErrNotFound)
	}
	return members[i], nil
}

// AddMember validates m, assigns it a new id and appends it to the roster.
func (s *Service) AddMember(ctx context.Context, m models.Member) (models.Member, error) {
	s.logger.Info("AddMember request received", "name", m.Name, "handicap", m.Handicap)

	if err := validateMember(&m); err != nil {
		return models.Member{}, err
	}
	m.ID = s.newID()
	if m.Avatar == "" {
		m.Avatar = "https://picsum.photos/seed/" + m.ID + "/100"
	}

	members := append(s.ListMembers(ctx), m)
	if err := s.store.SaveMembers(ctx, members); err != nil {
		s.logger.Error("AddMember failed", "error", err)
		return models.Member{}, fmt.Errorf("save members: %w", err)
	}

	s.logger.Info("Member added", "member_id", m.ID)
	return m, nil
}

// UpdateMember replaces the member with the same id.
func (s *Service) UpdateMember(ctx context.Context, m models.Member) (models.Member, error) {
	s.logger.Info("UpdateMember request received", "member_id", m.ID)

	if err := validateMember(&m); err != nil {
		return models.Member{}, err
	}
	members := s.ListMembers(ctx)
	i := findIndex(members, m.ID, memberID)
	if i < 0 {
		return models.Member{}, fmt.Errorf("member %q: %w", m.ID, ErrNotFound)
	}
	members[i] = m
	if err := s.store.SaveMembers(ctx, members); err != nil {
		s.logger.Error("UpdateMember failed", "member_id", m.ID, "error", err)
		return models.Member{}, fmt.Errorf("save members: %w", err)
	}

	s.logger.Info("Member updated", "member_id", m.ID)
	return m, nil
}

// DeleteMember removes a member from the roster. Scores, fees and outing
// lists that mention the member are left alone and render as an unknown
// member from then on.
func (s *Service) DeleteMember(ctx context.Context, id string) error {
	s.logger.Info("DeleteMember request received", "member_id", id)

	members := s.ListMembers(ctx)
	i := findIndex(members, id, memberID)
	if i < 0 {
		return fmt.Errorf("member %q: %w", id, ErrNotFound)
	}
	members = append(members[:i], members[i+1:]...)
	if err := s.store.SaveMembers(ctx, members); err != nil {
		s.logger.Error("DeleteMember failed", "member_id", id, "error", err)
		return fmt.Errorf("save members: %w", err)
	}

	s.logger.Info("Member deleted", "member_id", id)
	return nil
}

func validateMember(m *models.Member) error {
	m.Name = trimmed(m.Name)
	m.Nickname = trimmed(m.Nickname)
	if m.Name == "" {
		return invalid("member name is required")
	}
	if m.Handicap < 0 || m.Handicap > models.MaxHandicap {
		return invalid("handicap %d is outside 0-%d", m.Handicap, models.MaxHandicap)
	}
	if m.AnnualFeeTarget < 0 {
		return invalid("annual fee target cannot be negative")
	}
	return nil
}

func memberID(m models.Member) string { return m.ID }
