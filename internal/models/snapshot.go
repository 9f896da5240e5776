package models

import "time"

// SnapshotVersion identifies the snapshot layout written by this module.
const SnapshotVersion = "2.0"

// Snapshot is the complete club state at a point in time. It is always
// complete: every collection is present even when empty.
type Snapshot struct {
	Members   []Member     `json:"members"`
	Outings   []Outing     `json:"outings"`
	Scores    []RoundScore `json:"scores"`
	Fees      []FeeRecord  `json:"fees"`
	Carryover int64        `json:"carryover"`

	// UpdatedAt is the snapshot timestamp in Unix milliseconds. Last-write-wins
	// compares this value.
	UpdatedAt int64 `json:"updatedAt"`

	Version    string `json:"version,omitempty"`
	ExportedAt string `json:"exportedAt,omitempty"`
}

// UpdatedTime returns UpdatedAt as a time.Time.
func (s Snapshot) UpdatedTime() time.Time {
	return time.UnixMilli(s.UpdatedAt)
}

// Normalize puts s into canonical form: top-level collections and required
// nested lists are non-nil, optional nested lists are nil when empty. Two
// snapshots that encode to the same JSON are equal after normalization.
func (s Snapshot) Normalize() Snapshot {
	s.Members = nonNil(s.Members)
	s.Outings = normalizeOutings(s.Outings)
	s.Scores = nonNil(s.Scores)
	s.Fees = nonNil(s.Fees)
	return s
}

// Partial converts s into an import payload with every field present.
func (s Snapshot) Partial() PartialSnapshot {
	n := s.Normalize()
	return PartialSnapshot{
		Members:    &n.Members,
		Outings:    &n.Outings,
		Scores:     &n.Scores,
		Fees:       &n.Fees,
		Carryover:  &n.Carryover,
		UpdatedAt:  &n.UpdatedAt,
		Version:    n.Version,
		ExportedAt: n.ExportedAt,
	}
}

// PartialSnapshot is the input side of an import. A nil field was absent
// from the payload (or null) and must leave local data untouched.
type PartialSnapshot struct {
	Members   *[]Member     `json:"members,omitempty"`
	Outings   *[]Outing     `json:"outings,omitempty"`
	Scores    *[]RoundScore `json:"scores,omitempty"`
	Fees      *[]FeeRecord  `json:"fees,omitempty"`
	Carryover *int64        `json:"carryover,omitempty"`
	UpdatedAt *int64        `json:"updatedAt,omitempty"`

	Version    string `json:"version,omitempty"`
	ExportedAt string `json:"exportedAt,omitempty"`
}

// IsEmpty reports whether no importable field is present.
func (p PartialSnapshot) IsEmpty() bool {
	return p.Members == nil && p.Outings == nil && p.Scores == nil && p.Fees == nil && p.Carryover == nil
}

// Timestamp returns UpdatedAt, or zero when absent.
func (p PartialSnapshot) Timestamp() int64 {
	if p.UpdatedAt == nil {
		return 0
	}
	return *p.UpdatedAt
}

// Full fills absent fields with empty values and returns a normalized
// snapshot.
func (p PartialSnapshot) Full() Snapshot {
	var s Snapshot
	if p.Members != nil {
		s.Members = *p.Members
	}
	if p.Outings != nil {
		s.Outings = *p.Outings
	}
	if p.Scores != nil {
		s.Scores = *p.Scores
	}
	if p.Fees != nil {
		s.Fees = *p.Fees
	}
	if p.Carryover != nil {
		s.Carryover = *p.Carryover
	}
	s.UpdatedAt = p.Timestamp()
	s.Version = p.Version
	s.ExportedAt = p.ExportedAt
	return s.Normalize()
}

// Counts summarises a partial snapshot for confirmation prompts. Absent
// collections report -1.
func (p PartialSnapshot) Counts() (members, outings, scores, fees int) {
	members, outings, scores, fees = -1, -1, -1, -1
	if p.Members != nil {
		members = len(*p.Members)
	}
	if p.Outings != nil {
		outings = len(*p.Outings)
	}
	if p.Scores != nil {
		scores = len(*p.Scores)
	}
	if p.Fees != nil {
		fees = len(*p.Fees)
	}
	return members, outings, scores, fees
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func nilIfEmpty[T any](items []T) []T {
	if len(items) == 0 {
		return nil
	}
	return items
}

func normalizeOutings(outings []Outing) []Outing {
	if outings == nil {
		return []Outing{}
	}
	out := make([]Outing, len(outings))
	for i, o := range outings {
		o.Participants = nonNil(o.Participants)
		if len(o.Groups) == 0 {
			o.Groups = nil
		} else {
			groups := make([]Group, len(o.Groups))
			for j, g := range o.Groups {
				g.MemberIDs = nonNil(g.MemberIDs)
				g.Guests = nilIfEmpty(g.Guests)
				groups[j] = g
			}
			o.Groups = groups
		}
		out[i] = o
	}
	return out
}
