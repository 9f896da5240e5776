package models

// OutingStatus is the lifecycle state of an outing.
type OutingStatus string

const (
	OutingUpcoming  OutingStatus = "upcoming"
	OutingCompleted OutingStatus = "completed"
	OutingCancelled OutingStatus = "cancelled"
)

// Valid reports whether s is one of the known statuses.
func (s OutingStatus) Valid() bool {
	switch s {
	case OutingUpcoming, OutingCompleted, OutingCancelled:
		return true
	}
	return false
}

// Outing is a scheduled golf round.
//
// Meal planning is stored as flat fields so snapshots stay compatible with
// the format other club devices already exchange; Lunch and Dinner give a
// structured view.
type Outing struct {
	ID         string       `json:"id"`
	Title      string       `json:"title"`
	Date       string       `json:"date"` // YYYY-MM-DD
	CourseName string       `json:"courseName"`
	Location   string       `json:"location"`
	Status     OutingStatus `json:"status"`

	// Participants is a set of member identifiers. Order is not meaningful.
	Participants []string `json:"participants"`

	// Groups are tee groups. They are maintained independently of
	// Participants.
	Groups []Group `json:"groups,omitempty"`

	LunchLocation  string `json:"lunchLocation,omitempty"`
	LunchTime      string `json:"lunchTime,omitempty"`
	LunchAddress   string `json:"lunchAddress,omitempty"`
	LunchLink      string `json:"lunchLink,omitempty"`
	DinnerLocation string `json:"dinnerLocation,omitempty"`
	DinnerTime     string `json:"dinnerTime,omitempty"`
	DinnerAddress  string `json:"dinnerAddress,omitempty"`
	DinnerLink     string `json:"dinnerLink,omitempty"`
}

// Group is a tee group inside an outing.
type Group struct {
	Name      string   `json:"name"`
	MemberIDs []string `json:"memberIds"`
	Guests    []string `json:"guests,omitempty"`
	TeeTime   string   `json:"teeTime,omitempty"`
}

// MealPlan describes where and when the group eats.
type MealPlan struct {
	Location string
	Time     string
	Address  string
	Link     string
}

// IsZero reports whether no meal has been planned.
func (m MealPlan) IsZero() bool {
	return m == MealPlan{}
}

// Lunch returns the lunch plan.
func (o Outing) Lunch() MealPlan {
	return MealPlan{Location: o.LunchLocation, Time: o.LunchTime, Address: o.LunchAddress, Link: o.LunchLink}
}

// Dinner returns the dinner plan.
func (o Outing) Dinner() MealPlan {
	return MealPlan{Location: o.DinnerLocation, Time: o.DinnerTime, Address: o.DinnerAddress, Link: o.DinnerLink}
}

// SetLunch replaces the lunch plan.
func (o *Outing) SetLunch(m MealPlan) {
	o.LunchLocation, o.LunchTime, o.LunchAddress, o.LunchLink = m.Location, m.Time, m.Address, m.Link
}

// SetDinner replaces the dinner plan.
func (o *Outing) SetDinner(m MealPlan) {
	o.DinnerLocation, o.DinnerTime, o.DinnerAddress, o.DinnerLink = m.Location, m.Time, m.Address, m.Link
}

// IsParticipant reports whether memberID is on the participant list.
func (o Outing) IsParticipant(memberID string) bool {
	for _, id := range o.Participants {
		if id == memberID {
			return true
		}
	}
	return false
}

// ToggleParticipant adds memberID to the participant set or removes it.
// Groups are left as they are. It reports whether the member is now a
// participant.
func (o *Outing) ToggleParticipant(memberID string) bool {
	for i, id := range o.Participants {
		if id == memberID {
			o.Participants = append(o.Participants[:i:i], o.Participants[i+1:]...)
			return false
		}
	}
	o.Participants = append(o.Participants, memberID)
	return true
}

// Roster returns the union of participants and grouped members without
// duplicates, participants first. It does not modify the outing.
func (o Outing) Roster() []string {
	seen := make(map[string]bool, len(o.Participants))
	var out []string
	add := func(id string) {
		if id == "" || seen[id] {
			return
		}
		seen[id] = true
		out = append(out, id)
	}
	for _, id := range o.Participants {
		add(id)
	}
	for _, g := range o.Groups {
		for _, id := range g.MemberIDs {
			add(id)
		}
	}
	return out
}

// SetParticipants replaces the participant set, dropping repeated
// identifiers.
func (o *Outing) SetParticipants(ids []string) {
	o.Participants = dedupe(ids)
}

// dedupe removes repeated identifiers, keeping first occurrences.
func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
