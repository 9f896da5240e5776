// Package ledger totals the club's fee records.
package ledger

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mmynk/clubhouse/internal/models"
)

// Summary is the club-wide fee position.
type Summary struct {
	Collected int64 // Sum of paid fees
	Unpaid    int64 // Sum of fees still owed
	Carryover int64 // Balance brought forward from the previous year
	Balance   int64 // Carryover + Collected
}

// Summarize totals fees against the carried-over balance.
// Unpaid amounts never count towards the balance.
func Summarize(fees []models.FeeRecord, carryover int64) Summary {
	s := Summary{Carryover: carryover}
	for _, f := range fees {
		switch f.Status {
		case models.FeePaid:
			s.Collected += f.Amount
		case models.FeeUnpaid:
			s.Unpaid += f.Amount
		}
	}
	s.Balance = s.Carryover + s.Collected
	return s
}

// Progress is one member's dues paid against their annual target.
type Progress struct {
	MemberID  string
	Name      string
	Nickname  string
	Paid      int64
	Target    int64
	Remaining int64 // Never negative
	Known     bool  // False when the member has left the roster
}

// Percent is the share of the target paid, capped at 100. A member without
// a target reports 100 once anything has been paid.
func (p Progress) Percent() int {
	if p.Target <= 0 {
		if p.Paid > 0 {
			return 100
		}
		return 0
	}
	pct := p.Paid * 100 / p.Target
	if pct > 100 {
		pct = 100
	}
	return int(pct)
}

// MemberProgress reports paid dues per member in roster order. Paid fees
// whose member has been deleted are collected into a single trailing
// entry named models.UnknownMemberName.
func MemberProgress(members []models.Member, fees []models.FeeRecord) []Progress {
	idx := models.IndexMembers(members)
	paid := make(map[string]int64, len(members))
	var orphaned int64
	for _, f := range fees {
		if f.Status != models.FeePaid {
			continue
		}
		if _, ok := idx.Lookup(f.MemberID); ok {
			paid[f.MemberID] += f.Amount
		} else {
			orphaned += f.Amount
		}
	}

	out := make([]Progress, 0, len(members)+1)
	for _, m := range members {
		p := Progress{
			MemberID: m.ID,
			Name:     m.Name,
			Nickname: m.Nickname,
			Paid:     paid[m.ID],
			Target:   m.AnnualFeeTarget,
			Known:    true,
		}
		if rem := p.Target - p.Paid; rem > 0 {
			p.Remaining = rem
		}
		out = append(out, p)
	}
	if orphaned > 0 {
		out = append(out, Progress{Name: models.UnknownMemberName, Paid: orphaned})
	}
	return out
}

// StatusFilter selects fee records by status.
type StatusFilter string

const (
	All    StatusFilter = "all"
	Paid   StatusFilter = "paid"
	Unpaid StatusFilter = "unpaid"
)

// ParseStatusFilter accepts all, paid or unpaid. The empty string means all.
func ParseStatusFilter(s string) (StatusFilter, error) {
	switch f := StatusFilter(strings.ToLower(strings.TrimSpace(s))); f {
	case "", All:
		return All, nil
	case Paid, Unpaid:
		return f, nil
	default:
		return "", fmt.Errorf("unknown fee filter %q (want all, paid or unpaid)", s)
	}
}

// Filter returns the fees matching status, preserving order.
func Filter(fees []models.FeeRecord, status StatusFilter) []models.FeeRecord {
	out := make([]models.FeeRecord, 0, len(fees))
	for _, f := range fees {
		if status == All || status == "" || string(f.Status) == string(status) {
			out = append(out, f)
		}
	}
	return out
}

// Search keeps fees whose member's name or nickname contains term,
// ignoring case. Fees of deleted members never match a non-empty term.
func Search(fees []models.FeeRecord, members []models.Member, term string) []models.FeeRecord {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return fees
	}
	idx := models.IndexMembers(members)
	out := make([]models.FeeRecord, 0, len(fees))
	for _, f := range fees {
		m, ok := idx.Lookup(f.MemberID)
		if !ok {
			continue
		}
		if strings.Contains(strings.ToLower(m.Name), term) || strings.Contains(strings.ToLower(m.Nickname), term) {
			out = append(out, f)
		}
	}
	return out
}

// ByPurpose totals paid fees per purpose, sorted by purpose.
func ByPurpose(fees []models.FeeRecord) []PurposeTotal {
	totals := make(map[string]int64)
	for _, f := range fees {
		if f.Status == models.FeePaid {
			totals[f.Purpose] += f.Amount
		}
	}
	out := make([]PurposeTotal, 0, len(totals))
	for p, amt := range totals {
		out = append(out, PurposeTotal{Purpose: p, Amount: amt})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Purpose < out[j].Purpose })
	return out
}

// PurposeTotal is the paid total for one purpose.
type PurposeTotal struct {
	Purpose string
	Amount  int64
}
