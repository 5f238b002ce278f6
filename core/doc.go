// Package core contains the shared data model of httpflow: transactions,
// message interfaces, transfer statistics, the recoverable failure type, the
// per-request event emitter and the lifecycle coordinator that ties them
// together.
//
// The package is deliberately transport-agnostic. Everything the transfer
// engine needs from a concrete HTTP implementation is expressed as small
// interfaces (Request, Response, TransportHandle, MultiHandle, HandleFactory,
// MessageFactory) so alternate transports and test doubles can be swapped in
// without touching engine code.
package core
