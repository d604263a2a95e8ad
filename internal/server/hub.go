// Package server coordinates client registration, event dispatch, and
// connection cleanup for the chat WebSocket system via the Hub type.
package server

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/Tyrowin/overflowchat/internal/chat"
	"github.com/Tyrowin/overflowchat/internal/transport"
)

// Hub owns every client connection and the chat coordinator. All
// coordinator calls happen on the Run goroutine, one event at a time, so the
// chat state needs no locking. The hub is also the coordinator's transport:
// it tracks which clients are present in which room and fans broadcasts out
// to their send channels.
type Hub struct {
	clients     map[*Client]bool
	byID        map[string]*Client
	presence    map[string]map[string]struct{}
	inbound     chan InboundMessage
	register    chan *Client
	unregister  chan *Client
	coordinator *chat.Coordinator
	upgrader    transport.Upgrader
	mutex       sync.RWMutex
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	done        chan struct{}
}

// NewHub creates a Hub configured from the active configuration. The
// returned Hub is ready to manage WebSocket connections once Run is started.
func NewHub() *Hub {
	cfg := currentConfig()
	ctx, cancel := context.WithCancel(context.Background())

	h := &Hub{
		clients:    make(map[*Client]bool),
		byID:       make(map[string]*Client),
		presence:   make(map[string]map[string]struct{}),
		inbound:    make(chan InboundMessage),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	h.coordinator = chat.NewCoordinator(h, chat.Options{
		Rooms: chat.RoomOptions{
			DefaultCapacity:  cfg.Rooms.DefaultCapacity,
			Capacities:       cfg.Rooms.Capacities,
			MaxOverflowRooms: cfg.Rooms.MaxOverflowRooms,
		},
		AtomicJoin: cfg.Rooms.AtomicJoin,
	})

	opts := transport.Options{
		MaxMessageSize: cfg.MaxMessageSize,
		CheckOrigin:    checkOrigin,
	}
	upgrader, err := transport.NewUpgrader(cfg.Transport, opts)
	if err != nil {
		log.Printf("Falling back to %s transport: %v", transport.Gorilla, err)
		upgrader, _ = transport.NewUpgrader(transport.Gorilla, opts)
	}
	h.upgrader = upgrader

	return h
}

// ClientCount returns the number of registered clients.
func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// Run starts the hub's main event loop, handling client registration,
// unregistration and inbound chat events. This method should be called in a
// separate goroutine as it runs until Shutdown.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownClients()
			return

		case client := <-h.register:
			h.handleRegister(client)

		case client := <-h.unregister:
			h.handleUnregister(client)

		case msg := <-h.inbound:
			h.handleInbound(msg)
		}
	}
}

func (h *Hub) handleRegister(client *Client) {
	if client == nil {
		log.Printf("Received nil client registration; skipping")
		return
	}

	if err := h.coordinator.Connect(client.ID()); err != nil {
		log.Printf("Refusing connection %s from %s: %v", client.id, client.addr, err)
		if err := client.conn.Close(); err != nil && !transport.IsExpectedClose(err) {
			log.Printf("Error closing duplicate connection from %s: %v", client.addr, err)
		}
		return
	}

	h.mutex.Lock()
	h.clients[client] = true
	h.byID[client.ID()] = client
	clientCount := len(h.clients)
	h.mutex.Unlock()
	log.Printf("Client %s registered from %s. Total clients: %d", client.id, client.addr, clientCount)

	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		client.writePump()
	}()
	go func() {
		defer h.wg.Done()
		client.readPump()
	}()
}

func (h *Hub) handleUnregister(client *Client) {
	h.mutex.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mutex.Unlock()
		return
	}
	delete(h.clients, client)
	delete(h.byID, client.id)
	clientCount := len(h.clients)
	h.mutex.Unlock()

	h.closeSend(client)
	h.coordinator.Disconnect(client.ID())
	for room := range h.presence {
		h.LeaveRoom(client.id, room)
	}
	log.Printf("Client %s unregistered from %s. Total clients: %d", client.id, client.addr, clientCount)
}

func (h *Hub) handleInbound(msg InboundMessage) {
	if _, ok := h.clients[msg.Sender]; !ok {
		return
	}

	reply, replied, err := h.coordinator.Dispatch(msg.Sender.id, msg.Envelope.Event, msg.Envelope.Data)
	if err != nil {
		log.Printf("Dropping %q from %s: %v", msg.Envelope.Event, msg.Sender.addr, err)
		return
	}
	if !replied {
		return
	}

	payload, err := encodeEnvelope(msg.Envelope.Event, reply, msg.Envelope.Ack)
	if err != nil {
		log.Printf("Error encoding %q reply for %s: %v", msg.Envelope.Event, msg.Sender.addr, err)
		return
	}
	h.sendTo([]*Client{msg.Sender}, payload)
}

// unregisterClient queues client for removal unless the hub is stopping.
func (h *Hub) unregisterClient(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.ctx.Done():
	}
}

// Broadcast sends event to every registered client.
func (h *Hub) Broadcast(event string, payload any) {
	message, err := encodeEnvelope(event, payload, nil)
	if err != nil {
		log.Printf("Error encoding %q broadcast: %v", event, err)
		return
	}
	h.sendTo(h.getClientSnapshot(), message)
}

// BroadcastToRoom sends event to every client present in room.
func (h *Hub) BroadcastToRoom(room, event string, payload any) {
	ids := h.presence[room]
	if len(ids) == 0 {
		return
	}
	message, err := encodeEnvelope(event, payload, nil)
	if err != nil {
		log.Printf("Error encoding %q broadcast to %q: %v", event, room, err)
		return
	}

	targets := make([]*Client, 0, len(ids))
	for id := range ids {
		if client, ok := h.byID[id]; ok {
			targets = append(targets, client)
		}
	}
	h.sendTo(targets, message)
}

// InRoom reports whether the client with id is present in room.
func (h *Hub) InRoom(id, room string) bool {
	_, ok := h.presence[room][id]
	return ok
}

// JoinRoom makes the client with id receive broadcasts to room.
func (h *Hub) JoinRoom(id, room string) {
	ids, ok := h.presence[room]
	if !ok {
		ids = make(map[string]struct{})
		h.presence[room] = ids
	}
	ids[id] = struct{}{}
}

// LeaveRoom stops room broadcasts to the client with id.
func (h *Hub) LeaveRoom(id, room string) {
	ids, ok := h.presence[room]
	if !ok {
		return
	}
	delete(ids, id)
	if len(ids) == 0 {
		delete(h.presence, room)
	}
}

func (h *Hub) safeSend(client *Client, message []byte) bool {
	if client.closed {
		return true
	}

	select {
	case client.send <- message:
		return true
	default:
		return false
	}
}

// sendTo queues message for every target and drops clients whose send
// buffer is full.
func (h *Hub) sendTo(targets []*Client, message []byte) {
	var failed []*Client
	for _, client := range targets {
		if !h.safeSend(client, message) {
			failed = append(failed, client)
		}
	}
	h.removeFailedClients(failed)
}

// getClientSnapshot returns a thread-safe snapshot of all current clients
func (h *Hub) getClientSnapshot() []*Client {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	return clients
}

// removeFailedClients closes the send channel of clients that could not keep
// up. Their write pump then closes the connection and the read pump
// unregisters them, which runs the normal disconnect handling.
func (h *Hub) removeFailedClients(clientsToRemove []*Client) {
	for _, client := range clientsToRemove {
		log.Printf("Client %s from %s dropped due to full send buffer", client.id, client.addr)
		h.closeSend(client)
	}
}

func (h *Hub) closeSend(client *Client) {
	if client.closed {
		return
	}
	client.closed = true
	close(client.send)
}

// shutdownClients gracefully closes all active client connections
func (h *Hub) shutdownClients() {
	log.Println("Shutting down all client connections...")

	clients := h.getClientSnapshot()
	for _, client := range clients {
		h.closeSend(client)
		if err := client.conn.Close(); err != nil && !transport.IsExpectedClose(err) {
			log.Printf("Error closing client connection from %s: %v", client.addr, err)
		}
	}

	log.Printf("Closed %d client connections", len(clients))
}

// Shutdown initiates graceful shutdown of the hub and waits for all goroutines to complete.
// It returns after all client connections are closed and goroutines have finished,
// or when the timeout is reached.
func (h *Hub) Shutdown(timeout time.Duration) error {
	log.Println("Initiating hub shutdown...")

	h.cancel()
	<-h.done

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("Hub shutdown completed successfully")
		return nil
	case <-time.After(timeout):
		log.Println("Hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
