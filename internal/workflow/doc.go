// Package workflow drives queued gallery uploads in the background.
//
// The Manager polls the queue store for pending galleries, claims one at a
// time, and runs the upload engine over it with the configured host client.
// It owns the glue the engine deliberately does not: heartbeats while an item
// is uploading, incremental resume persistence, merging resumed runs into one
// result, artifact generation, notifications, and the soft-stop plumbing that
// lets a daemon shut down without abandoning in-flight uploads.
package workflow
