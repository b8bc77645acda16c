package relay

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type emitted struct {
	connectionID string
	event        string
	payload      any
}

// captureEmitter records every emit so tests can assert on the outbound
// traffic the service produced.
type captureEmitter struct {
	emits      []emitted
	broadcasts []emitted // connectionID holds the excluded connection
}

func (c *captureEmitter) Emit(connectionID, event string, payload any) {
	c.emits = append(c.emits, emitted{connectionID: connectionID, event: event, payload: payload})
}

func (c *captureEmitter) BroadcastExcept(connectionID, event string, payload any) {
	c.broadcasts = append(c.broadcasts, emitted{connectionID: connectionID, event: event, payload: payload})
}

func (c *captureEmitter) reset() {
	c.emits = nil
	c.broadcasts = nil
}

func newTestService() (*Service, *captureEmitter) {
	emitter := &captureEmitter{}
	return NewService(emitter, nil), emitter
}

func TestService_Register_PushesRosterToSelfAndOthers(t *testing.T) {
	req := require.New(t)
	svc, emitter := newTestService()

	// When Alice and Bob register
	svc.HandleRegister("conn-1", Registration{UserID: "u1", Username: "Alice"})
	svc.HandleRegister("conn-2", Registration{UserID: "u2", Username: "Bob"})

	// Then each registration produced one direct emit and one broadcast
	req.Len(emitter.emits, 2)
	req.Len(emitter.broadcasts, 2)

	// And the final roster carries both users; clients filter out their own
	// entry, the server always sends the full snapshot
	last := emitter.emits[1]
	req.Equal("conn-2", last.connectionID)
	req.Equal(EventUsers, last.event)
	req.Equal([]User{
		{UserID: "u1", Username: "Alice"},
		{UserID: "u2", Username: "Bob"},
	}, last.payload)

	lastBroadcast := emitter.broadcasts[1]
	req.Equal("conn-2", lastBroadcast.connectionID)
	req.Equal(last.payload, lastBroadcast.payload)
}

func TestService_Register_SameUserAgainDoesNotGrowRoster(t *testing.T) {
	req := require.New(t)
	svc, emitter := newTestService()

	svc.HandleRegister("conn-1", Registration{UserID: "u1", Username: "Alice"})
	svc.HandleRegister("conn-9", Registration{UserID: "u1", Username: "Alice"})

	roster := emitter.emits[1].payload.([]User)
	req.Len(roster, 1)

	entry, ok := svc.registry.FindByUser("u1")
	req.True(ok)
	req.Equal("conn-9", entry.ConnectionID)
}

func TestService_Message_EchoesToSenderAndRelaysToRecipient(t *testing.T) {
	req := require.New(t)
	svc, emitter := newTestService()

	svc.HandleRegister("conn-1", Registration{UserID: "u1", Username: "Alice"})
	svc.HandleRegister("conn-2", Registration{UserID: "u2", Username: "Bob"})
	emitter.reset()

	msg := Message{ID: "m1", Content: "hi", Sender: "u1", Timestamp: 1000, To: "u2"}
	svc.HandleMessage("conn-1", msg)

	req.Len(emitter.emits, 2)
	req.Empty(emitter.broadcasts)

	// Sender gets the log framed against the recipient
	echo := emitter.emits[0]
	req.Equal("conn-1", echo.connectionID)
	req.Equal(EventConversations, echo.event)
	req.Equal(Conversation{PartnerID: "u2", Messages: []Message{msg}}, echo.payload)

	// Recipient gets the same log framed against the sender
	delivery := emitter.emits[1]
	req.Equal("conn-2", delivery.connectionID)
	req.Equal(Conversation{PartnerID: "u1", Messages: []Message{msg}}, delivery.payload)
}

func TestService_Message_OfflineRecipientStillStoredAndEchoed(t *testing.T) {
	req := require.New(t)
	svc, emitter := newTestService()

	svc.HandleRegister("conn-1", Registration{UserID: "u1", Username: "Alice"})
	emitter.reset()

	msg := Message{ID: "m1", Content: "hello?", Sender: "u1", Timestamp: 1000, To: "u3"}
	svc.HandleMessage("conn-1", msg)

	// Only the sender's echo fires
	req.Len(emitter.emits, 1)
	req.Equal("conn-1", emitter.emits[0].connectionID)

	// The message waits in the store under the pair's key
	req.Equal([]Message{msg}, svc.store.Get(DeriveKey("u1", "u3")))
}

func TestService_Message_MissingRecipientIsDropped(t *testing.T) {
	req := require.New(t)
	svc, emitter := newTestService()

	svc.HandleRegister("conn-1", Registration{UserID: "u1", Username: "Alice"})
	emitter.reset()

	svc.HandleMessage("conn-1", Message{ID: "m1", Content: "lost", Sender: "u1", Timestamp: 1000})

	// No emit, no state change
	req.Empty(emitter.emits)
	req.Empty(emitter.broadcasts)
	req.Empty(svc.store.logs)
}

func TestService_History_ReturnsSharedLogToEitherSide(t *testing.T) {
	req := require.New(t)
	svc, emitter := newTestService()

	svc.HandleRegister("conn-1", Registration{UserID: "u1", Username: "Alice"})
	svc.HandleRegister("conn-2", Registration{UserID: "u2", Username: "Bob"})

	msg := Message{ID: "m1", Content: "hi", Sender: "u1", Timestamp: 1000, To: "u2"}
	svc.HandleMessage("conn-1", msg)
	emitter.reset()

	// Bob fetches the conversation he never explicitly opened before
	svc.HandleHistory("conn-2", HistoryRequest{Sender: "u2", Receiver: "u1"})

	req.Len(emitter.emits, 1)
	reply := emitter.emits[0]
	req.Equal("conn-2", reply.connectionID)
	req.Equal(EventConversations, reply.event)
	req.Equal(Conversation{PartnerID: "u1", Messages: []Message{msg}}, reply.payload)
}

func TestService_History_UnknownPairYieldsEmptyLog(t *testing.T) {
	req := require.New(t)
	svc, emitter := newTestService()

	svc.HandleHistory("conn-1", HistoryRequest{Sender: "u1", Receiver: "u2"})

	req.Len(emitter.emits, 1)
	conv := emitter.emits[0].payload.(Conversation)
	req.Equal("u2", conv.PartnerID)
	req.NotNil(conv.Messages)
	req.Empty(conv.Messages)
}

func TestService_Disconnect_RemovesUserAndNotifiesOthers(t *testing.T) {
	req := require.New(t)
	svc, emitter := newTestService()

	svc.HandleRegister("conn-1", Registration{UserID: "u1", Username: "Alice"})
	svc.HandleRegister("conn-2", Registration{UserID: "u2", Username: "Bob"})
	emitter.reset()

	svc.HandleDisconnect("conn-1")

	req.Empty(emitter.emits)
	req.Len(emitter.broadcasts, 1)
	req.Equal("conn-1", emitter.broadcasts[0].connectionID)
	req.Equal(EventUsers, emitter.broadcasts[0].event)
	req.Equal([]User{{UserID: "u2", Username: "Bob"}}, emitter.broadcasts[0].payload)
}

func TestService_Disconnect_BeforeRegisterIsNoOp(t *testing.T) {
	req := require.New(t)
	svc, emitter := newTestService()

	svc.HandleDisconnect("conn-unknown")

	req.Empty(emitter.emits)
	req.Empty(emitter.broadcasts)
}

func TestService_Disconnect_ThenReregisterRestoresPresence(t *testing.T) {
	req := require.New(t)
	svc, emitter := newTestService()

	svc.HandleRegister("conn-1", Registration{UserID: "u1", Username: "Alice"})
	svc.HandleDisconnect("conn-1")
	emitter.reset()

	// The registry does not remember usernames across disconnects; the client
	// resends the full registration
	svc.HandleRegister("conn-5", Registration{UserID: "u1", Username: "Alice"})

	roster := emitter.emits[0].payload.([]User)
	req.Equal([]User{{UserID: "u1", Username: "Alice"}}, roster)
}
