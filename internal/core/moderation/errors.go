package moderation

import "errors"

var (
	// ErrInvalidReportCode indicates a report code outside the known set
	ErrInvalidReportCode = errors.New("invalid report code: must be SPAM, ABUSE, SEXUAL, ILLEGAL or ETC")

	// ErrInvalidOwnerID indicates a non-positive owner id
	ErrInvalidOwnerID = errors.New("invalid owner id")

	// ErrInvalidItemID indicates a non-positive item id
	ErrInvalidItemID = errors.New("invalid item id")
)
