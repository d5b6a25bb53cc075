// Package registry owns the canonical set of processes and their membership
// in the New, Ready, Blocked and Terminated lists plus the single running
// slot. It knows nothing about memory or resources; scheduling decisions are
// made by the loops through the simulation coordinator.
package registry
