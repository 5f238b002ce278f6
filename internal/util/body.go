package util

import (
	"fmt"
	"io"
)

// RewindBody seeks a request body back to its start so a fresh transfer
// attempt can resend it. It reports false when the body does not support
// seeking at all; a body that supports seeking but fails to seek yields an
// error.
func RewindBody(body io.Reader) (bool, error) {
	seeker, ok := body.(io.Seeker)
	if !ok {
		return false, nil
	}
	if _, err := seeker.Seek(0, io.SeekStart); err != nil {
		return true, fmt.Errorf("failed to rewind request body: %w", err)
	}
	return true, nil
}
