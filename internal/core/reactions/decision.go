package reactions

import (
	"fmt"

	"Feedsync/internal/core/feeds"
)

// Action is what the viewer does to their reaction on an item
type Action int

const (
	// ActionAdd sets the viewer's reaction to a mood
	ActionAdd Action = iota
	// ActionRemove clears the viewer's reaction
	ActionRemove
)

func (a Action) String() string {
	switch a {
	case ActionAdd:
		return "add"
	case ActionRemove:
		return "remove"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// Mutation is one reaction change requested by the viewer.
// Previous is the reaction the viewer had before, as the presentation layer knows it.
type Mutation struct {
	Previous *feeds.Mood
	Mood     feeds.Mood
	ItemID   int64
	Action   Action
}

// remoteCall names the acknowledgement a decision needs
type remoteCall int

const (
	callNone remoteCall = iota
	callPost
	callCancel
)

// Decision is the outcome of the decision table, computed before any I/O
type Decision struct {
	Change feeds.ReactionChange
	call   remoteCall
}

// NoOp reports whether the mutation needs neither a remote call nor a local write
func (d Decision) NoOp() bool {
	return d.call == callNone
}

// Decide maps a mutation to the counter change applied after acknowledgement:
//
//	Add(m), previous none      -> m+1, select m
//	Add(m), previous p != m    -> m+1, p-1, select m
//	Add(m), previous m         -> no-op
//	Remove, previous p         -> p-1, clear selection
//	Remove, previous none      -> clear selection
func Decide(m Mutation) (Decision, error) {
	if m.ItemID <= 0 {
		return Decision{}, fmt.Errorf("%w: %d", ErrInvalidItemID, m.ItemID)
	}
	if m.Previous != nil && !m.Previous.Valid() {
		return Decision{}, fmt.Errorf("%w: previous %q", ErrInvalidMood, *m.Previous)
	}

	switch m.Action {
	case ActionAdd:
		if !m.Mood.Valid() {
			return Decision{}, fmt.Errorf("%w: %q", ErrInvalidMood, m.Mood)
		}
		if m.Previous != nil && *m.Previous == m.Mood {
			return Decision{}, nil
		}

		delta := map[feeds.Mood]int{m.Mood: 1}
		if m.Previous != nil {
			delta[*m.Previous] = -1
		}
		mood := m.Mood
		return Decision{
			Change: feeds.ReactionChange{Delta: delta, Select: &mood},
			call:   callPost,
		}, nil

	case ActionRemove:
		delta := map[feeds.Mood]int{}
		if m.Previous != nil {
			delta[*m.Previous] = -1
		}
		return Decision{
			Change: feeds.ReactionChange{Delta: delta},
			call:   callCancel,
		}, nil

	default:
		return Decision{}, fmt.Errorf("%w: %s", ErrUnknownAction, m.Action)
	}
}
