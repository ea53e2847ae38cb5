// Package naturalsort provides the filename comparators that define the
// canonical order of a gallery folder.
//
// Two strategies exist: a locale-aware collator built from the system locale,
// and a generic numeric-chunk comparator used when no usable locale is
// detected. Both sort digit runs numerically ("img2.jpg" before "img10.jpg")
// and ignore case, so galleries come out in the order a file browser shows.
package naturalsort

import (
	"log/slog"
	"sort"

	"bbdrop/internal/logging"
)

// Comparator orders image filenames into the canonical gallery order.
type Comparator interface {
	// Compare returns a negative number when a sorts before b, zero when
	// the names are equivalent, and a positive number otherwise.
	Compare(a, b string) int
	// Name identifies the active strategy for logs and diagnostics.
	Name() string
}

// New selects the best available comparator for this process. When the
// system locale can be parsed, a locale-aware collator is used; otherwise
// the generic numeric-chunk comparator takes over and the decision is
// logged once, since a different comparator can produce a visibly
// different gallery order.
func New(logger *slog.Logger) Comparator {
	if tag, ok := systemLocale(); ok {
		return NewCollated(tag)
	}
	if logger != nil {
		logger.Info("no usable system locale; falling back to generic natural sort",
			logging.String("strategy", chunkName),
		)
	}
	return NewChunked()
}

// Sort orders names in place using the provided comparator. The sort is
// stable so equivalent names keep their listing order.
func Sort(names []string, cmp Comparator) {
	if cmp == nil {
		cmp = NewChunked()
	}
	sort.SliceStable(names, func(i, j int) bool {
		return cmp.Compare(names[i], names[j]) < 0
	})
}
