package main

import (
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Tyrowin/overflowchat/internal/server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	log.Println("Starting room chat server...")

	config := server.NewConfigFromEnv()
	server.SetConfig(config)

	hub := server.NewHub()
	go hub.Run()
	log.Println("Hub started and ready to manage WebSocket connections")

	mux := server.SetupRoutes(hub, config.ClientDir)
	httpServer := server.CreateServer(config.Port, mux)

	errc := make(chan error, 1)
	go func() {
		errc <- server.StartServer(httpServer, config.TLS)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	case sig := <-stop:
		log.Printf("Received %s", sig)
	}

	if err := server.ShutdownServer(httpServer, shutdownTimeout); err != nil {
		log.Printf("HTTP shutdown: %v", err)
	}
	if err := hub.Shutdown(shutdownTimeout); err != nil {
		log.Printf("Hub shutdown: %v", err)
	}
}
