package fasta

import "fmt"

// DefaultWindowSize is the input length expected by sequence-to-function models.
const DefaultWindowSize = 131072

// Window returns seq[start:start+size]. Coordinates are 0-based and match the
// reference one-to-one, so no re-alignment is needed. The window must lie
// entirely inside the sequence.
func Window(seq []byte, start, size int) ([]byte, error) {
	if size <= 0 {
		return nil, fmt.Errorf("window size must be positive, got %d", size)
	}
	if start < 0 {
		return nil, fmt.Errorf("window start must be >= 0, got %d", start)
	}
	if start+size > len(seq) {
		return nil, fmt.Errorf("window %d-%d exceeds sequence length %d", start, start+size, len(seq))
	}
	return seq[start : start+size], nil
}

// WindowID names a window as "id:start-end" using 0-based, half-open coordinates.
func WindowID(id string, start, size int) string {
	return fmt.Sprintf("%s:%d-%d", id, start, start+size)
}
