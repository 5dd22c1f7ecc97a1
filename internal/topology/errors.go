package topology

import (
	"errors"
	"fmt"
)

var (
	// ErrDataUnavailable means the source holds no matrix for the requested
	// (shell, timeslot). Callers skip the slot.
	ErrDataUnavailable = errors.New("topology: data unavailable")

	// ErrMalformedMatrix marks a contract breach by the topology source.
	ErrMalformedMatrix = errors.New("topology: malformed latency matrix")

	// ErrInvalidWeight marks a weigher that produced a negative or non-finite weight.
	ErrInvalidWeight = errors.New("topology: invalid edge weight")
)

// MatrixError pinpoints the offending cell of a malformed matrix.
type MatrixError struct {
	Row, Col int
	Value    float64
	Reason   string
}

func (e *MatrixError) Error() string {
	if e.Row < 0 {
		return fmt.Sprintf("%v: %s", ErrMalformedMatrix, e.Reason)
	}
	return fmt.Sprintf("%v: [%d][%d]=%v: %s", ErrMalformedMatrix, e.Row, e.Col, e.Value, e.Reason)
}

func (e *MatrixError) Unwrap() error { return ErrMalformedMatrix }

func unavailable(shell string, slot int) error {
	return fmt.Errorf("%w: shell %q timeslot %d", ErrDataUnavailable, shell, slot)
}
