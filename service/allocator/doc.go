// Package allocator runs the admission loop: on every tick it walks the New
// processes oldest first and moves those whose pages fit into Ready.
package allocator
