package models

// FeeStatus is whether a fee has been collected.
type FeeStatus string

const (
	FeePaid   FeeStatus = "paid"
	FeeUnpaid FeeStatus = "unpaid"
)

// Valid reports whether s is paid or unpaid.
func (s FeeStatus) Valid() bool {
	return s == FeePaid || s == FeeUnpaid
}

// FeeRecord is a single ledger line.
type FeeRecord struct {
	ID       string `json:"id"`
	MemberID string `json:"memberId"`

	// Amount is positive, in whole currency units.
	Amount int64 `json:"amount"`

	Date string `json:"date"`

	// Purpose is a free-text category such as dues or sponsorship.
	Purpose string `json:"purpose"`

	Status FeeStatus `json:"status"`
	Memo   string    `json:"memo,omitempty"`
}

// Toggle flips the record between paid and unpaid.
func (f *FeeRecord) Toggle() {
	if f.Status == FeePaid {
		f.Status = FeeUnpaid
		return
	}
	f.Status = FeePaid
}
