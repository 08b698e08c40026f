package render

import "github.com/cockroachdb/errors"

var (
	// ErrOutOfDate marks a swapchain that no longer matches its surface. It
	// is recovered from by rebuilding the chain.
	ErrOutOfDate = errors.New("swapchain out of date")

	// ErrStaleSurface is returned when rebuilding never yields a usable chain.
	ErrStaleSurface = errors.New("surface stayed out of date")
)

// MarkOutOfDate tags err so that errors.Is(err, ErrOutOfDate) holds.
func MarkOutOfDate(err error) error {
	return errors.Mark(err, ErrOutOfDate)
}

type State int

const (
	Idle State = iota
	Acquiring
	Recording
	Submitting
	Presented
	OutOfDate
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Acquiring:
		return "acquiring"
	case Recording:
		return "recording"
	case Submitting:
		return "submitting"
	case Presented:
		return "presented"
	case OutOfDate:
		return "out-of-date"
	}
	return "unknown"
}
