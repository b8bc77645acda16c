// Package relay implements the presence and conversation core of the PairChat
// server: who is online, how a message finds its recipient's live connection,
// and the per-pair message log.
package relay

// Message is a single chat message. Messages are immutable once stored and
// live for the lifetime of the process.
type Message struct {
	ID        string `json:"id"`
	Content   string `json:"content"`
	Sender    string `json:"sender"`
	Timestamp int64  `json:"timestamp"`
	To        string `json:"to,omitempty"`
}

// User is the public identity of a registered user as carried in roster
// updates. Connection ids are never exposed here.
type User struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// Registration is the payload of the register event. UserID is a
// client-generated opaque identifier that stays stable across reconnects.
type Registration struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// HistoryRequest is the payload of the get-conversation event.
type HistoryRequest struct {
	Sender   string `json:"sender"`
	Receiver string `json:"receiver"`
}

// Conversation is the payload of the conversations event. PartnerID is always
// the other party relative to the connection receiving the event, so a single
// log serves both sides' framing.
type Conversation struct {
	PartnerID string    `json:"partnerId"`
	Messages  []Message `json:"messages"`
}

// Event names on the wire.
const (
	EventRegister        = "register"
	EventConversation    = "conversation"
	EventGetConversation = "get-conversation"
	EventUsers           = "users"
	EventConversations   = "conversations"
)
