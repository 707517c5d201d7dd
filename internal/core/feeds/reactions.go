package feeds

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Mood is an emotion a writer attaches to a story and a viewer reacts with
type Mood string

const (
	MoodHappy     Mood = "HAPPY"
	MoodSad       Mood = "SAD"
	MoodAngry     Mood = "ANGRY"
	MoodSurprised Mood = "SURPRISED"
)

// Moods lists every mood in display order
var Moods = []Mood{MoodHappy, MoodSad, MoodAngry, MoodSurprised}

// Valid reports whether m is one of the four moods
func (m Mood) Valid() bool {
	switch m {
	case MoodHappy, MoodSad, MoodAngry, MoodSurprised:
		return true
	}
	return false
}

// ParseMood accepts wire codes case-insensitively
func ParseMood(s string) (Mood, error) {
	m := Mood(strings.ToUpper(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", NewValidationError("mood", fmt.Sprintf("unknown mood %q", s))
	}
	return m, nil
}

// ParseOptionalMood returns nil for an empty string
func ParseOptionalMood(s string) (*Mood, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	m, err := ParseMood(s)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Reactions holds the per-mood counters of a story and the viewer's own selection.
// Counters are never negative and Selected is nil or exactly one mood.
type Reactions struct {
	counts   map[Mood]int
	Selected *Mood
}

// NewReactions builds a counter set, clamping negative inputs to zero
func NewReactions(counts map[Mood]int, selected *Mood) Reactions {
	r := Reactions{counts: make(map[Mood]int, len(Moods))}
	for m, n := range counts {
		if !m.Valid() {
			continue
		}
		r.counts[m] = max(n, 0)
	}
	if selected != nil && selected.Valid() {
		s := *selected
		r.Selected = &s
	}
	return r
}

// Count returns the counter for m
func (r Reactions) Count(m Mood) int {
	return r.counts[m]
}

// Total returns the sum of all counters
func (r Reactions) Total() int {
	total := 0
	for _, m := range Moods {
		total += r.counts[m]
	}
	return total
}

// IsSelected reports whether the viewer currently reacts with m
func (r Reactions) IsSelected(m Mood) bool {
	return r.Selected != nil && *r.Selected == m
}

// Clone returns an independent copy
func (r Reactions) Clone() Reactions {
	return NewReactions(r.counts, r.Selected)
}

// Validate checks the counter invariants
func (r Reactions) Validate() error {
	for m, n := range r.counts {
		if !m.Valid() {
			return NewValidationError("reactions", fmt.Sprintf("unknown mood %q", m))
		}
		if n < 0 {
			return NewValidationError("reactions", fmt.Sprintf("negative %s counter", m))
		}
	}
	if r.Selected != nil && !r.Selected.Valid() {
		return NewValidationError("selectedReaction", fmt.Sprintf("unknown mood %q", *r.Selected))
	}
	return nil
}

// ReactionChange is a precomputed counter delta plus the selection that results from it.
// A nil Select clears the viewer's selection.
type ReactionChange struct {
	Delta  map[Mood]int
	Select *Mood
}

// Apply mutates the counters by c.Delta and replaces the selection.
// Counters that would go below zero are clamped at zero and returned so the caller
// can report the inconsistency.
func (r *Reactions) Apply(c ReactionChange) []Mood {
	if r.counts == nil {
		r.counts = make(map[Mood]int, len(Moods))
	}

	var clamped []Mood
	for _, m := range Moods {
		d, ok := c.Delta[m]
		if !ok || d == 0 {
			continue
		}
		next := r.counts[m] + d
		if next < 0 {
			clamped = append(clamped, m)
			next = 0
		}
		r.counts[m] = next
	}

	if c.Select != nil {
		s := *c.Select
		r.Selected = &s
	} else {
		r.Selected = nil
	}
	return clamped
}

type reactionsJSON struct {
	Selected  *Mood `json:"selected,omitempty"`
	Happy     int   `json:"happy"`
	Sad       int   `json:"sad"`
	Angry     int   `json:"angry"`
	Surprised int   `json:"surprised"`
	Total     int   `json:"total"`
}

// MarshalJSON renders the four counters as named fields
func (r Reactions) MarshalJSON() ([]byte, error) {
	return json.Marshal(reactionsJSON{
		Happy:     r.Count(MoodHappy),
		Sad:       r.Count(MoodSad),
		Angry:     r.Count(MoodAngry),
		Surprised: r.Count(MoodSurprised),
		Total:     r.Total(),
		Selected:  r.Selected,
	})
}

// UnmarshalJSON is the inverse of MarshalJSON; the total is recomputed
func (r *Reactions) UnmarshalJSON(data []byte) error {
	var raw reactionsJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = NewReactions(map[Mood]int{
		MoodHappy:     raw.Happy,
		MoodSad:       raw.Sad,
		MoodAngry:     raw.Angry,
		MoodSurprised: raw.Surprised,
	}, raw.Selected)
	return nil
}
