// Package arbiter owns a fixed set of mutually exclusive resource slots.
// Acquisition is always a non-blocking attempt; release is checked against the
// current holder so that double or foreign releases fail loudly.
package arbiter
