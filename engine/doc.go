// Package engine implements the concurrent transfer engine at the heart of
// httpflow: it drives many HTTP exchanges to completion in parallel over a
// bounded pool of reusable multiplexing handles.
//
// # Model
//
// One batch is driven by one goroutine running a poll/drain loop against a
// single multiplexing handle checked out of the pool. "Concurrency" means I/O
// multiplexing, not preemptive parallelism: up to the configured parallelism
// many transport handles advance inside the multiplexing handle while the
// loop blocks only at the bounded readiness wait.
//
// Each exchange passes through the lifecycle coordinated by package core:
// "before" (where listeners may intercept by attaching a response, skipping
// the transport entirely), optionally "headers", then exactly one of
// "complete" or "error" per attempt. An exchange that finishes with no
// response and no transport failure is silently retried when, and only when,
// its request body can be rewound; the failed attempt emits no events.
//
// # Failure escalation
//
// Send runs its single exchange in a batch that propagates every unrecovered
// failure to the caller. SendAll reports unrecovered failures through the
// "error" event per exchange and keeps sibling exchanges running, unless a
// failure is flagged for immediate propagation, in which case the whole batch
// is drained and aborted.
package engine
