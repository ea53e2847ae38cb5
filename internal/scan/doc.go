// Package scan enumerates gallery folders into canonically ordered image
// listings and gathers the folder-level metadata an upload run needs before
// the first byte goes out.
//
// ListImages applies the extension allow-list, sorts with a naturalsort
// comparator, and partitions files into the pending work list versus resumed,
// excluded, and oversized skips while preserving every file's canonical
// position. ScanDimensions decodes image headers in parallel for the
// dimension summary, and FreeSpace backs the daemon's disk space guard.
package scan
