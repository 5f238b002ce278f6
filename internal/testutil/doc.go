// Package testutil contains helper builders and scripted transport doubles
// used across tests to reduce boilerplate when constructing transactions and
// driving the engine without real network I/O. These helpers are
// intentionally minimal and avoid adding third‑party dependencies. They are
// not intended for production usage.
package testutil
