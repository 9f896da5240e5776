package club

import (
	"context"
	"fmt"

	"github.com/mmynk/clubhouse/internal/models"
)

// ListFees returns the ledger newest first.
func (s *Service) ListFees(ctx context.Context) []models.FeeRecord {
	return s.store.LoadFees(ctx)
}

// AddFee puts a ledger line at the front of the list. A blank status means
// unpaid and a blank date means today.
func (s *Service) AddFee(ctx context.Context, f models.FeeRecord) (models.FeeRecord, error) {
	s.logger.Info("AddFee request received",
		"member_id", f.MemberID,
		"amount", f.Amount,
		"purpose", f.Purpose,
	)

	if err := s.validateFee(ctx, &f); err != nil {
		return models.FeeRecord{}, err
	}
	f.ID = s.newID()

	fees := append([]models.FeeRecord{f}, s.store.LoadFees(ctx)...)
	if err := s.store.SaveFees(ctx, fees); err != nil {
		s.logger.Error("AddFee failed", "error", err)
		return models.FeeRecord{}, fmt.Errorf("save fees: %w", err)
	}

	s.logger.Info("Fee recorded", "fee_id", f.ID, "status", f.Status)
	return f, nil
}

// UpdateFee replaces the ledger line with the same id.
func (s *Service) UpdateFee(ctx context.Context, f models.FeeRecord) (models.FeeRecord, error) {
	s.logger.Info("UpdateFee request received", "fee_id", f.ID)

	fees := s.store.LoadFees(ctx)
	i := findIndex(fees, f.ID, feeID)
	if i < 0 {
		return models.FeeRecord{}, fmt.Errorf("fee %q: %w", f.ID, ErrNotFound)
	}
	if err := s.validateFee(ctx, &f); err != nil {
		return models.FeeRecord{}, err
	}
	fees[i] = f
	if err := s.store.SaveFees(ctx, fees); err != nil {
		s.logger.Error("UpdateFee failed", "fee_id", f.ID, "error", err)
		return models.FeeRecord{}, fmt.Errorf("save fees: %w", err)
	}

	s.logger.Info("Fee updated", "fee_id", f.ID)
	return f, nil
}

// ToggleFee flips a ledger line between paid and unpaid and returns the new
// status.
func (s *Service) ToggleFee(ctx context.Context, id string) (models.FeeStatus, error) {
	s.logger.Info("ToggleFee request received", "fee_id", id)

	fees := s.store.LoadFees(ctx)
	i := findIndex(fees, id, feeID)
	if i < 0 {
		return "", fmt.Errorf("fee %q: %w", id, ErrNotFound)
	}
	fees[i].Toggle()
	if err := s.store.SaveFees(ctx, fees); err != nil {
		s.logger.Error("ToggleFee failed", "fee_id", id, "error", err)
		return "", fmt.Errorf("save fees: %w", err)
	}

	s.logger.Info("Fee toggled", "fee_id", id, "status", fees[i].Status)
	return fees[i].Status, nil
}

// DeleteFee removes a ledger line.
func (s *Service) DeleteFee(ctx context.Context, id string) error {
	s.logger.Info("DeleteFee request received", "fee_id", id)

	fees := s.store.LoadFees(ctx)
	i := findIndex(fees, id, feeID)
	if i < 0 {
		return fmt.Errorf("fee %q: %w", id, ErrNotFound)
	}
	fees = append(fees[:i], fees[i+1:]...)
	if err := s.store.SaveFees(ctx, fees); err != nil {
		s.logger.Error("DeleteFee failed", "fee_id", id, "error", err)
		return fmt.Errorf("save fees: %w", err)
	}

	s.logger.Info("Fee deleted", "fee_id", id)
	return nil
}

// Carryover returns the balance brought forward.
func (s *Service) Carryover(ctx context.Context) int64 {
	return s.store.LoadCarryover(ctx)
}

// SetCarryover replaces the balance brought forward. It may be negative.
func (s *Service) SetCarryover(ctx context.Context, amount int64) error {
	s.logger.Info("SetCarryover request received", "amount", amount)

	if err := s.store.SaveCarryover(ctx, amount); err != nil {
		s.logger.Error("SetCarryover failed", "error", err)
		return fmt.Errorf("save carryover: %w", err)
	}
	return nil
}

func (s *Service) validateFee(ctx context.Context, f *models.FeeRecord) error {
	f.Purpose = trimmed(f.Purpose)
	f.Memo = trimmed(f.Memo)
	if f.Amount <= 0 {
		return invalid("fee amount must be positive")
	}
	if f.Purpose == "" {
		return invalid("fee purpose is required")
	}
	if f.Status == "" {
		f.Status = models.FeeUnpaid
	}
	if !f.Status.Valid() {
		return invalid("unknown fee status %q", f.Status)
	}
	if f.Date == "" {
		f.Date = s.today()
	}
	if !validDate(f.Date) {
		return invalid("fee date %q is not YYYY-MM-DD", f.Date)
	}
	if _, err := s.GetMember(ctx, f.MemberID); err != nil {
		return invalid("member %q is not on the roster", f.MemberID)
	}
	return nil
}

func feeID(f models.FeeRecord) string { return f.ID }
