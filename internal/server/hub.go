// Package server coordinates client connections and drives the relay core
// through a single-consumer event loop via the Hub type.
package server

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pairchat/pairchat/internal/relay"
)

// inboundEvent is one decoded client frame queued for the hub's event loop.
type inboundEvent struct {
	client   *Client
	envelope Envelope
}

// Hub owns every live WebSocket connection and the relay service behind them.
// All connection bookkeeping, relay state mutation, and outbound emits happen
// on the single goroutine running Run; the register, unregister, and events
// channels are the mailbox feeding it. That loop confinement is what lets the
// relay package run lock-free: each event is handled to completion, emits
// included, before the next one is dequeued.
type Hub struct {
	cfg        *Config
	clients    map[string]*Client
	events     chan inboundEvent
	register   chan *Client
	unregister chan *Client
	service    *relay.Service
	log        *zap.Logger
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewHub creates a hub wired to a fresh relay service. The hub is ready to
// manage connections once Run is started in its own goroutine.
func NewHub(cfg *Config, log *zap.Logger) *Hub {
	if cfg == nil {
		cfg = NewConfig()
	}
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		cfg:        cfg,
		clients:    make(map[string]*Client),
		events:     make(chan inboundEvent),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		log:        log,
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	h.service = relay.NewService(h, log)
	return h
}

// GetRegisterChan returns the channel used for registering new clients with the hub.
func (h *Hub) GetRegisterChan() chan<- *Client {
	return h.register
}

// GetUnregisterChan returns the channel used for unregistering clients from the hub.
func (h *Hub) GetUnregisterChan() chan<- *Client {
	return h.unregister
}

// Run starts the hub's main event loop, handling connection registration,
// unregistration, and inbound client events. This method should be called in
// a separate goroutine as it runs until Shutdown.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownClients()
			return

		case client := <-h.register:
			if client == nil {
				h.log.Warn("received nil client registration; skipping")
				continue
			}

			client.closed = false
			h.clients[client.id] = client
			h.log.Info("client connected",
				zap.String("connection_id", client.id),
				zap.String("remote_addr", client.addr),
				zap.Int("total_clients", len(h.clients)))

			h.wg.Add(2)
			go func() {
				defer h.wg.Done()
				client.writePump()
			}()
			go func() {
				defer h.wg.Done()
				client.readPump()
			}()

		case client := <-h.unregister:
			h.removeClient(client)

		case ev := <-h.events:
			h.dispatch(ev)
		}
	}
}

// dispatch routes one inbound frame to the matching relay handler. Frames
// from connections already removed, unknown event names, and undecodable
// payloads are dropped; none of these surface an error to the client.
func (h *Hub) dispatch(ev inboundEvent) {
	if _, ok := h.clients[ev.client.id]; !ok {
		return
	}

	switch ev.envelope.Event {
	case relay.EventRegister:
		var reg relay.Registration
		if err := json.Unmarshal(ev.envelope.Data, &reg); err != nil {
			h.logBadPayload(ev, err)
			return
		}
		h.service.HandleRegister(ev.client.id, reg)

	case relay.EventConversation:
		var msg relay.Message
		if err := json.Unmarshal(ev.envelope.Data, &msg); err != nil {
			h.logBadPayload(ev, err)
			return
		}
		h.service.HandleMessage(ev.client.id, msg)

	case relay.EventGetConversation:
		var req relay.HistoryRequest
		if err := json.Unmarshal(ev.envelope.Data, &req); err != nil {
			h.logBadPayload(ev, err)
			return
		}
		h.service.HandleHistory(ev.client.id, req)

	default:
		h.log.Warn("dropping unknown event",
			zap.String("event", ev.envelope.Event),
			zap.String("connection_id", ev.client.id))
	}
}

func (h *Hub) logBadPayload(ev inboundEvent, err error) {
	h.log.Warn("dropping event with undecodable payload",
		zap.String("event", ev.envelope.Event),
		zap.String("connection_id", ev.client.id),
		zap.Error(err))
}

// removeClient takes a connection out of the hub and tells the relay so
// presence can be cleaned up and the roster rebroadcast. Safe against
// duplicate unregisters.
func (h *Hub) removeClient(client *Client) {
	if client == nil {
		return
	}
	if _, ok := h.clients[client.id]; !ok {
		return
	}

	delete(h.clients, client.id)
	client.closed = true
	close(client.send)
	h.log.Info("client disconnected",
		zap.String("connection_id", client.id),
		zap.String("remote_addr", client.addr),
		zap.Int("total_clients", len(h.clients)))

	h.service.HandleDisconnect(client.id)
}

// Emit delivers one event to one connection. Unknown connection ids are a
// silent no-op; a connection whose send buffer is full is scheduled for
// removal. Part of the relay.Emitter contract; called from the event loop only.
func (h *Hub) Emit(connectionID, event string, payload any) {
	client, ok := h.clients[connectionID]
	if !ok {
		return
	}

	frame, err := encodeEnvelope(event, payload)
	if err != nil {
		h.log.Error("failed to encode outbound event", zap.String("event", event), zap.Error(err))
		return
	}

	if !h.send(client, frame) {
		h.scheduleRemoval(client)
	}
}

// BroadcastExcept delivers one event to every connection except the given
// one. Part of the relay.Emitter contract; called from the event loop only.
func (h *Hub) BroadcastExcept(connectionID, event string, payload any) {
	frame, err := encodeEnvelope(event, payload)
	if err != nil {
		h.log.Error("failed to encode outbound event", zap.String("event", event), zap.Error(err))
		return
	}

	var failed []*Client
	for id, client := range h.clients {
		if id == connectionID {
			continue
		}
		if !h.send(client, frame) {
			failed = append(failed, client)
		}
	}
	for _, client := range failed {
		h.scheduleRemoval(client)
	}
}

// send queues a frame on the client's buffered channel without blocking.
func (h *Hub) send(client *Client, frame []byte) bool {
	if client.closed {
		return false
	}
	select {
	case client.send <- frame:
		return true
	default:
		return false
	}
}

// scheduleRemoval queues an unregister for a client that could not accept a
// frame. The removal goes through the mailbox rather than running inline so
// the relay handler that triggered the failed send finishes first.
func (h *Hub) scheduleRemoval(client *Client) {
	h.log.Warn("scheduling removal of client with full send buffer",
		zap.String("connection_id", client.id))
	go func() {
		select {
		case h.unregister <- client:
		case <-h.ctx.Done():
		}
	}()
}

// shutdownClients closes all active client connections. Runs on the event
// loop goroutine as the final step before Run returns.
func (h *Hub) shutdownClients() {
	h.log.Info("shutting down all client connections", zap.Int("total_clients", len(h.clients)))

	for _, client := range h.clients {
		client.closed = true
		if client.conn != nil {
			if err := client.conn.Close(); err != nil && !isExpectedCloseError(err) {
				h.log.Warn("error closing client connection",
					zap.String("connection_id", client.id),
					zap.Error(err))
			}
		}
	}
}

// Shutdown initiates graceful shutdown of the hub and waits for all client
// goroutines to complete, or until the timeout is reached.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.log.Info("initiating hub shutdown")

	h.cancel()
	<-h.done

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.log.Info("hub shutdown completed")
		return nil
	case <-time.After(timeout):
		h.log.Warn("hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
