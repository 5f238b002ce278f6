package engine

import (
	"github.com/hupe1980/httpflow/core"
	"github.com/hupe1980/httpflow/internal/util"
)

// outcome classifies one completed exchange. The drain loop consumes this
// explicit variant instead of overloading errors for control flow; only the
// reporting cases go through the event mechanism.
type outcome int

const (
	// outcomeSuccess: a response is present and the multiplexing layer
	// reported no failure.
	outcomeSuccess outcome = iota

	// outcomeTransportFailure: the multiplexing layer reported a non-OK
	// completion for the exchange.
	outcomeTransportFailure

	// outcomeRetryableGap: no response and no transport failure, but the
	// request body was rewound successfully. The exchange is silently
	// retried with a fresh transport handle; the failed attempt emits no
	// events.
	outcomeRetryableGap

	// outcomeMissingBody: no response, no transport failure and no
	// request body to resend. Anomalous; reported as a diagnostic
	// failure.
	outcomeMissingBody

	// outcomeUnrewindableBody: no response and no transport failure, but
	// the request body is not seekable or failed to rewind. Reported as
	// a non-retryable failure.
	outcomeUnrewindableBody
)

// classify inspects a completion and decides how the drain loop handles it.
// For outcomeRetryableGap the request body has already been rewound to its
// start; for outcomeUnrewindableBody rewindErr explains a failed seek, nil
// when the body simply is not seekable.
func classify(c core.Completion, tx *core.Transaction) (o outcome, rewindErr error) {
	if c.Err != nil {
		return outcomeTransportFailure, nil
	}
	if tx.Response != nil {
		return outcomeSuccess, nil
	}

	// Missing response despite an OK completion: the transport dropped
	// the exchange, typically after partially consuming the request body.
	// Only a provably clean restart (a body rewound to its start) is
	// retried; every other shape is a hard error.
	body := tx.Request.Body()
	if body == nil {
		return outcomeMissingBody, nil
	}
	rewindable, err := util.RewindBody(body)
	if !rewindable {
		return outcomeUnrewindableBody, nil
	}
	if err != nil {
		return outcomeUnrewindableBody, err
	}
	return outcomeRetryableGap, nil
}
