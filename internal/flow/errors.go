package flow

import "errors"

// Validation failures surfaced by the onboarding input validators. The engine
// maps each to a re-prompt in the active language without advancing the
// session cursor.
var (
	// ErrInvalidDate indicates a date of birth that does not parse as
	// DD-MM-YYYY.
	ErrInvalidDate = errors.New("invalid date")

	// ErrAgeOutOfRange indicates a parsed date of birth outside the
	// permitted 18-75 age band.
	ErrAgeOutOfRange = errors.New("age out of range")

	// ErrInvalidNumber indicates a monthly income that does not parse as a
	// positive number.
	ErrInvalidNumber = errors.New("invalid number")

	// ErrInvalidChoice indicates a reply identifier that does not match any
	// currently valid option, such as an unknown offer id.
	ErrInvalidChoice = errors.New("invalid choice")
)
