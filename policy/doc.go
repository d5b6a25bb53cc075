// Package policy holds the pluggable decisions taken when a process is
// created: which resource it will contend for and, for generated processes,
// how much memory it demands.
package policy
