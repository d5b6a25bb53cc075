// Package processor runs the execution loop. It owns the single running slot:
// it dispatches the head of the Ready queue, holds it for one burst and then
// blocks or terminates it depending on how many cycles it already completed.
package processor
