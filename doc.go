// Package pagesim simulates a paged-memory operating system scheduler.
//
// Processes are admitted into a fixed page table, executed one burst at a
// time, and contend for a small set of exclusive resources. Three polling
// loops run concurrently over a shared simulation state:
//
//   - admission  - allocates pages for New processes and readies them
//   - execution  - runs the head of the Ready queue for one burst
//   - unblocking - returns Blocked processes to Ready once they hold their resource
//
// Typical usage:
//
//	srv, _ := pagesim.New()
//	rt := srv.Runtime()
//	_ = rt.Start(ctx)
//	_, _ = rt.Submit(ctx, 120)
//	fmt.Println(rt.Snapshot())
//	_ = rt.Shutdown(ctx)
package pagesim
