package ephemeris

import "errors"

var (
	// ErrInvalidDateFormat is returned for strings that are not DD.MM.YYYY
	// or that name a day the calendar does not have.
	ErrInvalidDateFormat = errors.New("invalid date format. Please use DD.MM.YYYY")

	// ErrInvalidCoordinates wraps observer coordinate validation failures.
	ErrInvalidCoordinates = errors.New("invalid coordinates")
)

// ComputationError reports an unexpected failure while computing positions.
type ComputationError struct {
	Err error
}

func (e *ComputationError) Error() string {
	return "failed to calculate celestial data: " + e.Err.Error()
}

func (e *ComputationError) Unwrap() error {
	return e.Err
}
