// Package message provides the default concrete implementations of the
// core.Request and core.Response interfaces plus the message factory the
// transport uses to turn raw transport bytes into responses.
//
// The engine itself never depends on these types; it consumes the core
// interfaces only. Applications that bring their own message layer can ignore
// this package entirely.
package message
