// Package relay sends worker status messages to the local console and, when
// an observer is configured, to the observer's HTTP console endpoint.
//
// Delivery is best effort. Each message is attempted a bounded number of
// times; when every attempt fails the message is buffered and a circuit
// breaker opens so that later messages are buffered without touching the
// network until the breaker's timeout elapses. A background loop replays the
// buffer while the circuit is closed.
package relay
