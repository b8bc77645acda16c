package relay

// keyDelimiter separates the two user ids inside a conversation key. User ids
// are opaque client-generated strings; the delimiter only needs to keep keys
// readable in logs, the sorted pair alone makes them unique per pair.
const keyDelimiter = ":"

// DeriveKey returns the conversation key for a pair of user ids. The pair is
// sorted lexicographically before joining, so DeriveKey(a, b) == DeriveKey(b, a).
// Calling it with the same id twice yields a self-conversation key, which is
// valid.
func DeriveKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + keyDelimiter + b
}
