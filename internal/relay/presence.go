package relay

import "github.com/samber/lo"

// Entry records one online user and the live connection currently bound to
// them. There is at most one Entry per user id, and at most one Entry per
// connection id at any instant.
type Entry struct {
	UserID       string
	Username     string
	ConnectionID string
}

// Registry tracks which users are online and which connection each one is
// reachable on. It is not safe for concurrent use: all access happens on the
// hub's event loop goroutine, which is the single owner of relay state.
type Registry struct {
	entries map[string]*Entry
	byConn  map[string]string
	order   []string
}

// NewRegistry returns an empty presence registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]*Entry),
		byConn:  make(map[string]string),
	}
}

// Upsert registers a user or rebinds an existing registration to a new
// connection. Re-registering overwrites the username and connection id in
// place and keeps the user's original roster position. If the connection id
// was previously bound to a different user, that stale registration is
// dropped so a connection never speaks for two users at once.
func (r *Registry) Upsert(userID, username, connectionID string) Entry {
	if prev, ok := r.byConn[connectionID]; ok && prev != userID {
		r.Remove(prev)
	}

	if e, ok := r.entries[userID]; ok {
		delete(r.byConn, e.ConnectionID)
		e.Username = username
		e.ConnectionID = connectionID
		r.byConn[connectionID] = userID
		return *e
	}

	e := &Entry{UserID: userID, Username: username, ConnectionID: connectionID}
	r.entries[userID] = e
	r.byConn[connectionID] = userID
	r.order = append(r.order, userID)
	return *e
}

// FindByUser returns the entry for a user id, if that user is online.
func (r *Registry) FindByUser(userID string) (Entry, bool) {
	e, ok := r.entries[userID]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// FindByConnection returns the entry currently bound to a connection id. Used
// on disconnect, where only the connection id is known.
func (r *Registry) FindByConnection(connectionID string) (Entry, bool) {
	userID, ok := r.byConn[connectionID]
	if !ok {
		return Entry{}, false
	}
	return r.FindByUser(userID)
}

// Remove deletes a user's registration. Removing an unknown user is a no-op.
func (r *Registry) Remove(userID string) {
	e, ok := r.entries[userID]
	if !ok {
		return
	}
	delete(r.entries, userID)
	delete(r.byConn, e.ConnectionID)
	r.order = lo.Without(r.order, userID)
}

// ListAll returns a roster snapshot of every online user in registration
// order, restricted to public identity fields.
func (r *Registry) ListAll() []User {
	return lo.Map(r.order, func(userID string, _ int) User {
		e := r.entries[userID]
		return User{UserID: e.UserID, Username: e.Username}
	})
}

// ListExcluding returns the roster without the given user.
func (r *Registry) ListExcluding(userID string) []User {
	return lo.Filter(r.ListAll(), func(u User, _ int) bool {
		return u.UserID != userID
	})
}
