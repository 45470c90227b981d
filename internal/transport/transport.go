// SPDX-License-Identifier: MIT

// Package transport exposes the screening engine over HTTP: the JSON
// API, the live spectrum WebSocket and the wiring that feeds analysis
// frames to connected monitors.
package transport

// Transport defines a generic interface for sending processed data or events.
// Implementations should be thread-safe.
type Transport interface {
	Send(data any) error
	Close() error
}
