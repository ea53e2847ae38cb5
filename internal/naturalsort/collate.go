package naturalsort

import (
	"os"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

type collatedComparator struct {
	collator *collate.Collator
	name     string
}

// NewCollated returns a locale-aware comparator for the given language tag.
// Digit runs compare numerically and case is ignored.
func NewCollated(tag language.Tag) Comparator {
	return &collatedComparator{
		collator: collate.New(tag, collate.Numeric, collate.IgnoreCase),
		name:     "collate:" + tag.String(),
	}
}

func (c *collatedComparator) Name() string { return c.name }

func (c *collatedComparator) Compare(a, b string) int {
	if cmp := c.collator.CompareString(a, b); cmp != 0 {
		return cmp
	}
	// Equivalent under the collation; order raw bytes so distinct names
	// stay deterministic across runs.
	return strings.Compare(a, b)
}

// systemLocale parses the process locale environment. The C and POSIX
// locales request plain byte ordering, which the chunk comparator models
// more honestly than a Unicode collator, so they report no locale.
func systemLocale() (language.Tag, bool) {
	for _, env := range []string{"LC_ALL", "LC_COLLATE", "LANG"} {
		value := strings.TrimSpace(os.Getenv(env))
		if value == "" {
			continue
		}
		if idx := strings.IndexAny(value, ".@"); idx > 0 {
			value = value[:idx]
		}
		if strings.EqualFold(value, "C") || strings.EqualFold(value, "POSIX") {
			continue
		}
		value = strings.ReplaceAll(value, "_", "-")
		if tag, err := language.Parse(value); err == nil {
			return tag, true
		}
	}
	return language.Und, false
}
