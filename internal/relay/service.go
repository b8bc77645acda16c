package relay

import "go.uber.org/zap"

// Emitter delivers named, JSON-serializable payloads to live connections. It
// is the relay's view of the transport boundary and is implemented by the
// websocket hub. Emits must not block; delivery to a connection that is gone
// is a silent no-op.
type Emitter interface {
	// Emit delivers an event to one specific connection.
	Emit(connectionID, event string, payload any)
	// BroadcastExcept delivers an event to every connection except one.
	BroadcastExcept(connectionID, event string, payload any)
}

// Service is the protocol state machine behind the chat relay. It owns the
// presence registry and conversation store and reacts to the four inbound
// events: register, send-message, fetch-history, and disconnect. Every
// handler is total: malformed input is dropped and unknown users or
// conversations degrade to safe defaults, never to a client-visible error.
//
// Handlers must be invoked from a single goroutine (the hub's event loop);
// each one runs to completion, including its emits, before the next event is
// processed, which is what makes read-modify-append on a log atomic without
// locks.
type Service struct {
	registry *Registry
	store    *Store
	emitter  Emitter
	log      *zap.Logger
}

// NewService builds a relay service with freshly initialized state. State is
// owned by the returned service, so isolated instances can coexist in tests.
func NewService(emitter Emitter, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		registry: NewRegistry(),
		store:    NewStore(),
		emitter:  emitter,
		log:      log,
	}
}

// HandleRegister records or rebinds a user's presence and pushes the full
// roster to the registering connection and to everyone else. Clients filter
// their own entry out of the list; the server always sends the complete
// snapshot. User ids are not validated and duplicate usernames are allowed,
// identity is by user id alone.
func (s *Service) HandleRegister(connectionID string, reg Registration) {
	s.registry.Upsert(reg.UserID, reg.Username, connectionID)
	s.log.Info("user registered",
		zap.String("user_id", reg.UserID),
		zap.String("username", reg.Username),
		zap.String("connection_id", connectionID))

	roster := s.registry.ListAll()
	s.emitter.Emit(connectionID, EventUsers, roster)
	s.emitter.BroadcastExcept(connectionID, EventUsers, roster)
}

// HandleMessage stores a message and relays it. The sending connection always
// receives the updated log back, so its UI renders from the authoritative
// history rather than optimistically. The recipient receives the same log
// only if currently online; an offline recipient is not an error, the message
// simply waits in the store until fetched. A message without a recipient is
// dropped with no state change.
//
// The claimed sender is not verified against the connection's registered
// identity; any connection may submit any sender id. Preserved as-is, see
// DESIGN.md.
func (s *Service) HandleMessage(connectionID string, msg Message) {
	if msg.To == "" {
		s.log.Warn("dropping message with no recipient",
			zap.String("sender", msg.Sender),
			zap.String("connection_id", connectionID))
		return
	}

	key := DeriveKey(msg.Sender, msg.To)
	s.store.Append(key, msg)
	history := s.store.Get(key)

	s.emitter.Emit(connectionID, EventConversations, Conversation{
		PartnerID: msg.To,
		Messages:  history,
	})

	recipient, online := s.registry.FindByUser(msg.To)
	if !online {
		s.log.Debug("recipient offline, message stored only",
			zap.String("recipient", msg.To),
			zap.String("conversation", key))
		return
	}
	s.emitter.Emit(recipient.ConnectionID, EventConversations, Conversation{
		PartnerID: msg.Sender,
		Messages:  history,
	})
}

// HandleHistory replies to the requesting connection with the full log for a
// pair of users, empty if they never exchanged a message. No mutation, and no
// check that the claimed sender matches the requesting connection.
func (s *Service) HandleHistory(connectionID string, req HistoryRequest) {
	history := s.store.Get(DeriveKey(req.Sender, req.Receiver))
	s.emitter.Emit(connectionID, EventConversations, Conversation{
		PartnerID: req.Receiver,
		Messages:  history,
	})
}

// HandleDisconnect removes the presence entry bound to a connection, if any,
// and pushes the shrunken roster to every remaining connection. A disconnect
// before register is a no-op.
func (s *Service) HandleDisconnect(connectionID string) {
	entry, ok := s.registry.FindByConnection(connectionID)
	if !ok {
		return
	}
	s.registry.Remove(entry.UserID)
	s.log.Info("user disconnected",
		zap.String("user_id", entry.UserID),
		zap.String("connection_id", connectionID))

	s.emitter.BroadcastExcept(connectionID, EventUsers, s.registry.ListAll())
}
