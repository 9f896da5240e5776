package models

// ExternalOutingID marks a round that was not played at a club outing.
const ExternalOutingID = "external"

// Plausible gross score range for an 18-hole round.
const (
	MinPlausibleScore = 50
	MaxPlausibleScore = 150
)

// RoundScore is one member's result for a round.
type RoundScore struct {
	ID string `json:"id"`

	// OutingID is the owning outing, or ExternalOutingID.
	OutingID string `json:"outingId"`

	MemberID string `json:"memberId"`

	// TotalScore is the gross stroke count.
	TotalScore int `json:"totalScore"`

	Putts       *int `json:"putts,omitempty"`
	FairwaysHit *int `json:"fairwaysHit,omitempty"`

	Date string `json:"date"`

	// ImageURL is usually a data URI of a scorecard or group photo.
	ImageURL string `json:"imageUrl,omitempty"`
}

// IsExternal reports whether the round was played outside a club outing.
func (s RoundScore) IsExternal() bool {
	return s.OutingID == "" || s.OutingID == ExternalOutingID
}

// HasPhoto reports whether an image is attached.
func (s RoundScore) HasPhoto() bool {
	return s.ImageURL != ""
}
