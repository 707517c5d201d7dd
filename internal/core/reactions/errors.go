package reactions

import "errors"

var (
	// ErrInvalidMood indicates the mood is not one of the four known moods
	ErrInvalidMood = errors.New("invalid mood: must be HAPPY, SAD, ANGRY or SURPRISED")

	// ErrInvalidItemID indicates a non-positive item id
	ErrInvalidItemID = errors.New("invalid item id")

	// ErrUnknownAction indicates a mutation with neither Add nor Remove
	ErrUnknownAction = errors.New("unknown reaction action")
)
