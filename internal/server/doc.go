// Package server implements the WebSocket transport for the PairChat relay.
//
// It upgrades connections, runs per-client read/write pumps, and feeds every
// decoded client event into a single-consumer hub loop that owns the relay
// core. Configuration, origin policy, and rate limiting live here as well;
// the chat semantics themselves live in internal/relay.
package server
