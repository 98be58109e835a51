package report

import "errors"

var (
	// ErrUnknownScript is returned for a script name that is not registered.
	ErrUnknownScript = errors.New("unknown script")

	// ErrMissingArg is returned when a required positional argument is absent.
	ErrMissingArg = errors.New("missing required argument")

	// ErrMissingInput is returned when INFILE is absent or does not exist.
	ErrMissingInput = errors.New("input file not found")

	// ErrTooManyRuns is returned when all run slots stay occupied for the
	// limiter's wait time.
	ErrTooManyRuns = errors.New("too many concurrent runs, please try again later")
)
