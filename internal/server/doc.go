// Package server implements the HTTP and WebSocket surface of the chat
// service.
//
// A single Hub goroutine owns the chat coordinator and every client
// connection; client pumps only decode and encode frames. The implementation
// is organized into specialized files for configuration, hub management,
// clients, routing, and HTTP handlers.
package server
