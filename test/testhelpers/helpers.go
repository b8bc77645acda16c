// Package testhelpers provides common utilities for integration tests of the
// PairChat server: dialing websocket connections, speaking the event envelope
// protocol, and asserting on roster and conversation payloads.
package testhelpers

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/pairchat/pairchat/internal/relay"
)

// TestOrigin is the origin header used by test connections; test server
// configs must include it in their allow-list.
const TestOrigin = "http://localhost:8080"

// Envelope mirrors the server's wire frame for decoding in tests.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// ConnectWebSocket dials the websocket endpoint with the test origin header.
func ConnectWebSocket(t *testing.T, url string) *websocket.Conn {
	t.Helper()

	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	headers := http.Header{}
	headers.Set("Origin", TestOrigin)

	conn, resp, err := dialer.Dial(url, headers)
	if resp != nil {
		_ = resp.Body.Close()
	}
	require.NoError(t, err, "failed to connect to %s", url)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// SendEvent writes one event envelope as a websocket text message.
func SendEvent(t *testing.T, conn *websocket.Conn, event string, payload any) {
	t.Helper()

	data, err := json.Marshal(payload)
	require.NoError(t, err)
	frame, err := json.Marshal(Envelope{Event: event, Data: data})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, frame))
}

// Register sends a register event for the given identity.
func Register(t *testing.T, conn *websocket.Conn, userID, username string) {
	t.Helper()
	SendEvent(t, conn, relay.EventRegister, relay.Registration{UserID: userID, Username: username})
}

// SendMessage sends a conversation event carrying the given message.
func SendMessage(t *testing.T, conn *websocket.Conn, msg relay.Message) {
	t.Helper()
	SendEvent(t, conn, relay.EventConversation, msg)
}

// FetchHistory sends a get-conversation event for the given pair.
func FetchHistory(t *testing.T, conn *websocket.Conn, sender, receiver string) {
	t.Helper()
	SendEvent(t, conn, relay.EventGetConversation, relay.HistoryRequest{Sender: sender, Receiver: receiver})
}

// ReceiveEvent reads the next envelope from the connection, failing the test
// if nothing arrives within the timeout.
func ReceiveEvent(t *testing.T, conn *websocket.Conn, timeout time.Duration) Envelope {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(timeout)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err, "expected an event, got read error")

	var env Envelope
	require.NoError(t, json.Unmarshal(raw, &env))
	return env
}

// ReceiveUsers reads the next event and requires it to be a users roster.
func ReceiveUsers(t *testing.T, conn *websocket.Conn) []relay.User {
	t.Helper()

	env := ReceiveEvent(t, conn, 2*time.Second)
	require.Equal(t, relay.EventUsers, env.Event)

	var users []relay.User
	require.NoError(t, json.Unmarshal(env.Data, &users))
	return users
}

// ReceiveConversation reads the next event and requires it to be a
// conversations payload.
func ReceiveConversation(t *testing.T, conn *websocket.Conn) relay.Conversation {
	t.Helper()

	env := ReceiveEvent(t, conn, 2*time.Second)
	require.Equal(t, relay.EventConversations, env.Event)

	var conv relay.Conversation
	require.NoError(t, json.Unmarshal(env.Data, &conv))
	return conv
}

// ExpectNoEvent asserts that nothing arrives on the connection within the
// given window.
func ExpectNoEvent(t *testing.T, conn *websocket.Conn, window time.Duration) {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(window)))
	_, raw, err := conn.ReadMessage()
	if err == nil {
		t.Fatalf("expected no event, received: %s", raw)
	}
	netErr, ok := err.(interface{ Timeout() bool })
	if ok && netErr.Timeout() {
		return
	}
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return
	}
	t.Fatalf("unexpected error while waiting for absence of events: %v", err)
}

// CloseWebSocket gracefully closes a websocket connection.
func CloseWebSocket(conn *websocket.Conn) error {
	err := conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if err != nil {
		return err
	}
	return conn.Close()
}

// UserIDs projects a roster down to its user ids, for order-insensitive
// membership asserts.
func UserIDs(users []relay.User) []string {
	ids := make([]string, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.UserID)
	}
	return ids
}
