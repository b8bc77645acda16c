package relay

// Store holds the per-pair message logs, keyed by conversation key. Logs are
// append-only, insertion-ordered, and unbounded; nothing is evicted for the
// lifetime of the process. Like Registry, it is owned by the hub's event loop
// and carries no locking of its own.
type Store struct {
	logs map[string][]Message
}

// NewStore returns an empty conversation store.
func NewStore() *Store {
	return &Store{logs: make(map[string][]Message)}
}

// Append adds a message to the log for the given conversation key, creating
// the log on first use.
func (s *Store) Append(key string, msg Message) {
	s.logs[key] = append(s.logs[key], msg)
}

// Get returns the full log for a conversation key in insertion order. A key
// that was never appended to yields an empty slice, not nil, so the payload
// marshals as [] on the wire.
func (s *Store) Get(key string) []Message {
	if log, ok := s.logs[key]; ok {
		return log
	}
	return []Message{}
}
