// Package hub implements the connection registry: the actor-owned set of
// live subscriber connections, multiplexed per user.
//
// All state lives inside a single goroutine fed by a command channel, so
// registrations, unregistrations and sends from many request and sweep
// contexts never race. Delivery is best-effort: payloads are handed to
// bounded per-connection queues and a connection whose queue is full is
// evicted, never waited on.
package hub

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/pscheid92/taskhub/internal/metrics"
)

type userClients map[*websocket.Conn]*clientWriter

// --- Command types ---

type hubCmd interface{ isHubCmd() }

type baseHubCmd struct{}

func (baseHubCmd) isHubCmd() {}

type registerCmd struct {
	baseHubCmd
	userID       uuid.UUID
	connection   *websocket.Conn
	errorChannel chan error
}

type unregisterCmd struct {
	baseHubCmd
	userID     uuid.UUID
	connection *websocket.Conn
}

type broadcastCmd struct {
	baseHubCmd
	payload []byte
}

type sendToUserCmd struct {
	baseHubCmd
	userID  uuid.UUID
	payload []byte
}

type clientCountCmd struct {
	baseHubCmd
	userID       *uuid.UUID // nil means system-wide
	replyChannel chan int
}

type stopCmd struct {
	baseHubCmd
}

// --- Hub ---

// Hub multiplexes many live connections per user and serves targeted and
// system-wide sends.
type Hub struct {
	cmdCh             chan hubCmd
	clock             clockwork.Clock
	maxClientsPerUser int
	connectionsByUser map[uuid.UUID]userClients
}

// New creates a hub and starts its actor goroutine. maxClientsPerUser bounds
// how many simultaneous connections (tabs, devices) one user may hold.
func New(maxClientsPerUser int, clock clockwork.Clock) *Hub {
	h := &Hub{
		cmdCh:             make(chan hubCmd, 256),
		clock:             clock,
		maxClientsPerUser: maxClientsPerUser,
		connectionsByUser: make(map[uuid.UUID]userClients),
	}
	go h.run()
	return h
}

// Register adds a live connection for a user. Returns an error only when the
// per-user connection limit is reached.
func (h *Hub) Register(userID uuid.UUID, conn *websocket.Conn) error {
	errCh := make(chan error, 1)
	h.cmdCh <- registerCmd{userID: userID, connection: conn, errorChannel: errCh}
	return <-errCh
}

// Unregister removes a connection. Idempotent: unregistering an already
// removed connection is a no-op.
func (h *Hub) Unregister(userID uuid.UUID, conn *websocket.Conn) {
	h.cmdCh <- unregisterCmd{userID: userID, connection: conn}
}

// Broadcast hands the payload to every live connection system-wide.
func (h *Hub) Broadcast(payload []byte) {
	h.cmdCh <- broadcastCmd{payload: payload}
}

// SendToUser hands the payload to every live connection of one user.
// Sending to a user with no connections delivers to zero connections
// without error.
func (h *Hub) SendToUser(userID uuid.UUID, payload []byte) {
	h.cmdCh <- sendToUserCmd{userID: userID, payload: payload}
}

// ClientCount returns the number of live connections for one user.
func (h *Hub) ClientCount(userID uuid.UUID) int {
	replyCh := make(chan int, 1)
	h.cmdCh <- clientCountCmd{userID: &userID, replyChannel: replyCh}
	return <-replyCh
}

// TotalClientCount returns the number of live connections system-wide.
func (h *Hub) TotalClientCount() int {
	replyCh := make(chan int, 1)
	h.cmdCh <- clientCountCmd{replyChannel: replyCh}
	return <-replyCh
}

// Stop shuts down the hub, closing every connection.
func (h *Hub) Stop() {
	h.cmdCh <- stopCmd{}
}

func (h *Hub) run() {
	for cmd := range h.cmdCh {
		switch c := cmd.(type) {
		case registerCmd:
			h.handleRegister(c)
		case unregisterCmd:
			h.handleUnregister(c.userID, c.connection)
		case broadcastCmd:
			h.handleBroadcast(c.payload)
		case sendToUserCmd:
			h.handleSendToUser(c.userID, c.payload)
		case clientCountCmd:
			h.handleClientCount(c)
		case stopCmd:
			h.handleStop()
			return
		default:
			slog.Warn("Hub: unknown command type", "command", fmt.Sprintf("%T", cmd))
		}
	}
}

func (h *Hub) handleRegister(c registerCmd) {
	clients, exists := h.connectionsByUser[c.userID]
	if !exists {
		clients = make(userClients)
		h.connectionsByUser[c.userID] = clients
	}

	if len(clients) >= h.maxClientsPerUser {
		slog.Warn("Rejecting connection: per-user limit reached",
			"user_id", c.userID, "limit", h.maxClientsPerUser)
		_ = c.connection.Close()
		if len(clients) == 0 {
			delete(h.connectionsByUser, c.userID)
		}
		c.errorChannel <- fmt.Errorf("max connections per user (%d) reached", h.maxClientsPerUser)
		return
	}

	clients[c.connection] = newClientWriter(c.connection, h.clock)
	slog.Debug("Connection registered", "user_id", c.userID, "total", len(clients))
	h.updateGauges()
	c.errorChannel <- nil
}

func (h *Hub) handleUnregister(userID uuid.UUID, conn *websocket.Conn) {
	clients, exists := h.connectionsByUser[userID]
	if !exists {
		return
	}

	cw, exists := clients[conn]
	if !exists {
		return
	}

	cw.stop()
	delete(clients, conn)

	if len(clients) == 0 {
		delete(h.connectionsByUser, userID)
		slog.Debug("Last connection closed for user", "user_id", userID)
	} else {
		slog.Debug("Connection unregistered", "user_id", userID, "remaining", len(clients))
	}
	h.updateGauges()
}

func (h *Hub) handleBroadcast(payload []byte) {
	for userID, clients := range h.connectionsByUser {
		h.deliver(userID, clients, payload)
	}
}

func (h *Hub) handleSendToUser(userID uuid.UUID, payload []byte) {
	clients, exists := h.connectionsByUser[userID]
	if !exists {
		return
	}
	h.deliver(userID, clients, payload)
}

// deliver enqueues the payload on every connection of one user, evicting
// connections whose queue is full so a stalled subscriber never delays the
// rest.
func (h *Hub) deliver(userID uuid.UUID, clients userClients, payload []byte) {
	var slow []*websocket.Conn
	for conn, cw := range clients {
		select {
		case cw.sendChannel <- payload:
			metrics.BroadcastDeliveries.Inc()
		default:
			slow = append(slow, conn)
		}
	}

	for _, conn := range slow {
		slog.Warn("Disconnecting slow subscriber", "user_id", userID)
		metrics.BroadcastDrops.Inc()
		h.handleUnregister(userID, conn)
	}
}

func (h *Hub) handleClientCount(c clientCountCmd) {
	if c.userID != nil {
		c.replyChannel <- len(h.connectionsByUser[*c.userID])
		return
	}
	total := 0
	for _, clients := range h.connectionsByUser {
		total += len(clients)
	}
	c.replyChannel <- total
}

func (h *Hub) handleStop() {
	for userID, clients := range h.connectionsByUser {
		for _, cw := range clients {
			cw.stop()
		}
		delete(h.connectionsByUser, userID)
	}
	h.updateGauges()
}

func (h *Hub) updateGauges() {
	total := 0
	for _, clients := range h.connectionsByUser {
		total += len(clients)
	}
	metrics.ConnectedClients.Set(float64(total))
	metrics.ConnectedUsers.Set(float64(len(h.connectionsByUser)))
}
