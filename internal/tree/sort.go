package tree

import (
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// sortByLabel orders nodes by locale-aware label comparison, falling back to plain
// string order for labels the collator considers equal.
func sortByLabel(nodes []Node) {
	// Collators keep internal buffers, so one per call.
	c := collate.New(language.Und)
	slices.SortStableFunc(nodes, func(a, b Node) int {
		if r := c.CompareString(a.Label(), b.Label()); r != 0 {
			return r
		}
		return strings.Compare(a.Label(), b.Label())
	})
}
