package core

import "time"

// TransferStats accumulates timing and size information for one transfer
// attempt. The well-known fields cover what every transport can report;
// transport-specific details go into Extra.
type TransferStats struct {
	Start         time.Time      `json:"start"`
	End           time.Time      `json:"end"`
	SentBytes     int64          `json:"sent_bytes"`
	ReceivedBytes int64          `json:"received_bytes"`

	// Code is the low-level completion code reported by the multiplexing
	// layer, zero when the transport does not use numeric codes.
	Code int `json:"code,omitempty"`

	Extra map[string]any `json:"extra,omitempty"`
}

// NewTransferStats returns stats with the start timestamp set to now.
func NewTransferStats() *TransferStats {
	return &TransferStats{Start: time.Now(), Extra: map[string]any{}}
}

// Finish records the end timestamp.
func (s *TransferStats) Finish() { s.End = time.Now() }

// Duration returns the elapsed wall time between Start and End. Zero when the
// attempt has not finished.
func (s *TransferStats) Duration() time.Duration {
	if s.End.IsZero() {
		return 0
	}
	return s.End.Sub(s.Start)
}
