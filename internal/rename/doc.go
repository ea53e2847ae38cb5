// Package rename applies user-chosen gallery names after upload, off the
// critical path. The upload engine queues (gallery id, name) pairs through a
// Handoff; a worker goroutine performs the host-side rename, and anything
// that cannot complete is parked in a bbolt ledger so an unnamed gallery is
// never lost across restarts.
package rename
