package turtle

import (
	"sort"
	"strconv"
)

// MergePrefixes adds the prefixes of src to dst. A namespace already bound in
// dst is skipped; a prefix name already bound to another namespace is
// renamed by appending the smallest free number (ex, ex1, ex2, ...).
//
// It returns the renamed prefixes as a map from the name in src to the name
// used in dst.
func MergePrefixes(dst, src map[string]string) map[string]string {
	bound := make(map[string]bool, len(dst))
	for _, ns := range dst {
		bound[ns] = true
	}
	names := make([]string, 0, len(src))
	for name := range src {
		names = append(names, name)
	}
	sort.Strings(names)

	renamed := make(map[string]string)
	for _, name := range names {
		ns := src[name]
		if bound[ns] {
			continue
		}
		bound[ns] = true
		if _, ok := dst[name]; !ok {
			dst[name] = ns
			continue
		}
		base := name
		if base == "" {
			base = "ns"
		}
		for i := 1; ; i++ {
			alt := base + strconv.Itoa(i)
			if _, ok := dst[alt]; !ok {
				dst[alt] = ns
				renamed[name] = alt
				break
			}
		}
	}
	return renamed
}
