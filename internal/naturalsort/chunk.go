package naturalsort

import "strings"

const chunkName = "natural"

type chunkComparator struct{}

// NewChunked returns the generic natural-sort comparator. It splits names
// into digit and non-digit chunks, compares digit chunks by numeric value
// (without parsing, so arbitrarily long runs are safe), and compares text
// chunks case-insensitively.
func NewChunked() Comparator {
	return chunkComparator{}
}

func (chunkComparator) Name() string { return chunkName }

func (chunkComparator) Compare(a, b string) int {
	ai, bi := 0, 0
	for ai < len(a) && bi < len(b) {
		achunk, adigits := nextChunk(a, ai)
		bchunk, bdigits := nextChunk(b, bi)

		var cmp int
		if adigits && bdigits {
			cmp = compareNumeric(achunk, bchunk)
		} else {
			cmp = strings.Compare(strings.ToLower(achunk), strings.ToLower(bchunk))
		}
		if cmp != 0 {
			return cmp
		}
		ai += len(achunk)
		bi += len(bchunk)
	}
	if diff := (len(a) - ai) - (len(b) - bi); diff != 0 {
		if diff < 0 {
			return -1
		}
		return 1
	}
	// Equivalent under folding; compare raw bytes so distinct names
	// always order deterministically ("a01" vs "a1", "A" vs "a").
	return strings.Compare(a, b)
}

func nextChunk(s string, start int) (string, bool) {
	digits := isDigit(s[start])
	end := start + 1
	for end < len(s) && isDigit(s[end]) == digits {
		end++
	}
	return s[start:end], digits
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// compareNumeric compares two digit runs by value. Leading zeros are
// stripped first; the longer remainder is the larger number, and equal
// lengths fall back to byte comparison.
func compareNumeric(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}
