// Package server wires HTTP handlers into a ServeMux for the chat
// application via routing helpers.
package server

import (
	"log"
	"net/http"
)

// SetupRoutes configures and returns an HTTP ServeMux with all application
// routes. When clientDir is set its files are served at the root; otherwise
// the root answers like the health endpoint.
func SetupRoutes(hub *Hub, clientDir string) *http.ServeMux {
	mux := http.NewServeMux()
	if clientDir != "" {
		log.Printf("Serving client assets from %s", clientDir)
		mux.Handle("/", http.FileServer(http.Dir(clientDir)))
	} else {
		mux.HandleFunc("/", HealthHandler)
	}
	mux.HandleFunc("/health", HealthHandler)
	mux.HandleFunc("/ws", hub.WebSocketHandler)
	mux.HandleFunc("/test", TestPageHandler)
	return mux
}
