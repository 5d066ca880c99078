package decode

import "fmt"

// OverflowError reports a read that would pass the end of the record
// payload. The reader position is unchanged when one is returned, so a
// failing read can be retried or abandoned safely.
type OverflowError struct {
	Op        string
	Need      int
	Remaining int
}

func (e *OverflowError) Error() string {
	return fmt.Sprintf("buffer overflow reading %s: need %d bytes, have %d", e.Op, e.Need, e.Remaining)
}
