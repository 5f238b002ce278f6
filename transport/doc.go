// Package transport provides the default production transport for httpflow:
// a core.HandleFactory and core.MultiHandle built on net/http.
//
// Each transport handle drives its exchange on a goroutine owned by the multi
// handle; finished exchanges funnel into a completion channel that the
// engine's poll/drain loop consumes through the non-blocking Perform /
// bounded Wait / Completions contract. From the engine's point of view the
// behavior is identical to a native polling multiplexer: Perform never
// blocks, Wait blocks for at most the select timeout, and completions are
// reported exactly once.
//
// The package plays the same role for the engine that a pluggable backend
// plays behind any core interface: swap it out via engine.Options to use an
// alternate transport or a test double.
package transport
