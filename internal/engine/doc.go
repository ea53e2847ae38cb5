// Package engine orchestrates uploading one folder of images as a remote
// gallery. It owns the run's concurrency and failure semantics: the gallery
// is created by uploading the first file synchronously, the remaining files
// fan out across a bounded worker pool, failed files are retried in extra
// passes, and the result list is re-sorted into canonical folder order no
// matter what order uploads completed in. A caller-supplied soft-stop
// predicate stops new submissions between completions while in-flight
// uploads finish, which is what makes interrupted runs resumable.
//
// The engine is generic over the imagehost.Client it drives and discovers
// optional host capabilities (cookie clearing, batch result pages, thumbnail
// backfill) by type assertion.
package engine
