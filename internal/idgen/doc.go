// Package idgen hands out identifiers: monotonic integers for processes and
// opaque UUID strings for runs and messages. It lives under `internal` so
// callers treat the opaque identifiers as strings without relying on format.
package idgen
