// Package simulation owns the shared scheduler state: the page table, the
// resource slots, the process registry and the running slot. Every transition
// that crosses more than one of them runs inside a single critical section, so
// loops and observers never see a process half moved.
//
// Lock order is State.mu first, then the component's own lock. Components are
// never called back while their lock is held.
package simulation
