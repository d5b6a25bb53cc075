// Package progress keeps aggregated transition counters for a simulation
// run so that observers can see how much work each loop has done.
package progress
