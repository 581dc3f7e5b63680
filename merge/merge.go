// Package merge combines keyset files into one keyset collection,
// in the manner of the i18n-merge-keysets build step.
package merge

import (
	"github.com/minios-linux/tanker/keyset"
)

// Result describes what a merge changed in the destination.
type Result struct {
	// Added counts keys that were new to the destination.
	Added int
	// Overridden lists "scope/key" entries whose value was replaced by a
	// different one.
	Overridden []string
}

// Merge copies every keyset of src into dst.
// - Scopes missing from dst are appended in src order.
// - Keys missing from dst are appended in src order.
// - Existing keys take the src value and keep their position.
func Merge(dst, src *keyset.Set) Result {
	var res Result
	for _, scope := range src.Names() {
		from, _ := src.Lookup(scope)
		to := dst.Keyset(scope)
		for _, key := range from.Keys() {
			v, _ := from.Get(key)
			if old, ok := to.Get(key); !ok {
				res.Added++
			} else if !old.Equal(v) {
				res.Overridden = append(res.Overridden, scope+"/"+key)
			}
			to.Set(key, v)
		}
	}
	return res
}

// Files parses the given keyset files and merges them in order, so later
// files override earlier ones.
func Files(paths []string) (*keyset.Set, error) {
	set := keyset.NewSet()
	for _, path := range paths {
		src, err := keyset.ParseFile(path)
		if err != nil {
			return nil, err
		}
		Merge(set, src)
	}
	return set, nil
}
