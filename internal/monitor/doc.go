// Package monitor implements the observer side of the relay: it accepts
// console messages over HTTP, prints them, keeps a bounded history for
// late-joining viewers and answers health probes.
package monitor
