package models

// UnknownMemberName is shown wherever a record points at a member that has
// been deleted from the roster.
const UnknownMemberName = "unknown member"

// MaxHandicap is the conventional upper bound for a member's handicap.
const MaxHandicap = 72

// Member represents one person on the club roster.
type Member struct {
	// ID is the unique identifier for the member (UUID format for new members).
	ID string `json:"id"`

	// Name is the display name.
	Name string `json:"name"`

	// Nickname is optional and shown next to the name on leaderboards.
	Nickname string `json:"nickname,omitempty"`

	// Handicap is conventionally 0-72.
	Handicap int `json:"handicap"`

	// Avatar is a URI for the member's picture.
	Avatar string `json:"avatar"`

	// AnnualFeeTarget is how much the member is expected to pay in a year,
	// in whole currency units.
	AnnualFeeTarget int64 `json:"annualFeeTarget"`
}

// MemberIndex resolves member identifiers held by other records.
type MemberIndex map[string]Member

// IndexMembers builds a lookup table from a roster.
func IndexMembers(members []Member) MemberIndex {
	idx := make(MemberIndex, len(members))
	for _, m := range members {
		idx[m.ID] = m
	}
	return idx
}

// Lookup returns the member and whether it is still on the roster.
func (idx MemberIndex) Lookup(id string) (Member, bool) {
	m, ok := idx[id]
	return m, ok
}

// Name returns the member's display name, or UnknownMemberName when the
// identifier no longer resolves.
func (idx MemberIndex) Name(id string) string {
	if m, ok := idx[id]; ok {
		return m.Name
	}
	return UnknownMemberName
}
