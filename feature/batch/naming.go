package batch

import (
	"path"
	"strings"

	"submission-composer/core/workflow"
)

// ItemIdentifier derives the item a bitstream belongs to from its object key:
// the base name without extension, cut at the first "_".
//
//	simple-csv/b1/a_1.pdf -> a
//	simple-csv/b1/b.tif   -> b
func ItemIdentifier(key string) string {
	name := path.Base(key)
	name = strings.TrimSuffix(name, path.Ext(name))
	if i := strings.Index(name, "_"); i >= 0 {
		name = name[:i]
	}
	return name
}

// isExcluded reports whether a key relative to the batch path lies in a
// sub-prefix that never holds bitstreams.
func isExcluded(rel string) bool {
	for _, p := range workflow.ExcludedPrefixes {
		if strings.HasPrefix(rel, p) {
			return true
		}
	}
	return false
}
