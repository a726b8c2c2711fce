// Package fact provides the read side of the daily fact: today's record, the
// recent list and the grouped archive shown next to it.
package fact

import "errors"

var (
	// ErrFactNotFound indicates that no fact is published for the requested day.
	ErrFactNotFound = errors.New("fact not found")

	// ErrInvalidLimit indicates a list limit below one.
	ErrInvalidLimit = errors.New("invalid limit: must be at least 1")

	// ErrInvalidDate indicates a date not in YYYY-MM-DD form.
	ErrInvalidDate = errors.New("invalid date: must be YYYY-MM-DD")
)
