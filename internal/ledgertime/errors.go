package ledgertime

import "errors"

var (
	// ErrBeforeEpoch is returned for times before the Unix epoch.
	ErrBeforeEpoch = errors.New("time is before the unix epoch")

	// ErrAfterMaxTime is returned when a timestamp computation exceeds the
	// representable range.
	ErrAfterMaxTime = errors.New("time is after the maximum representable timestamp")
)
