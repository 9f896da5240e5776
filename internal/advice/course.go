package advice

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
)

//go:embed course.json
var courseJSON []byte

// Hole is one hole of a course.
type Hole struct {
	Number      int    `json:"number"`
	Par         int    `json:"par"`
	Distance    string `json:"distance"`
	Handicap    int    `json:"handicap"`
	Description string `json:"description"`
	Strategy    string `json:"strategy"`
	MapURL      string `json:"mapUrl,omitempty"`
}

// Course is a nine-hole course.
type Course struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	MapURL string `json:"courseMapUrl"`
	Holes  []Hole `json:"holes"`
}

// Venue is the club's home venue.
type Venue struct {
	Name    string   `json:"name"`
	Courses []Course `json:"courses"`
}

// HomeVenue returns the embedded venue guide.
func HomeVenue() (Venue, error) {
	var v Venue
	if err := json.Unmarshal(courseJSON, &v); err != nil {
		return Venue{}, fmt.Errorf("decode venue guide: %w", err)
	}
	return v, nil
}

// Hole returns hole n of the course whose id or name contains course,
// ignoring case.
func (v Venue) Hole(course string, n int) (Course, Hole, bool) {
	c, ok := v.Course(course)
	if !ok {
		return Course{}, Hole{}, false
	}
	for _, h := range c.Holes {
		if h.Number == n {
			return c, h, true
		}
	}
	return c, Hole{}, false
}

// Course finds a course by id or by a fragment of its name.
func (v Venue) Course(query string) (Course, bool) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return Course{}, false
	}
	for _, c := range v.Courses {
		if c.ID == q || strings.Contains(strings.ToLower(c.Name), q) {
			return c, true
		}
	}
	return Course{}, false
}

// mentioned lists the courses named in text.
func (v Venue) mentioned(text string) []Course {
	t := strings.ToLower(text)
	var out []Course
	for _, c := range v.Courses {
		if strings.Contains(t, c.ID) || strings.Contains(t, strings.ToLower(firstWord(c.Name))) {
			out = append(out, c)
		}
	}
	return out
}

func firstWord(s string) string {
	if f := strings.Fields(s); len(f) > 0 {
		return f[0]
	}
	return s
}
