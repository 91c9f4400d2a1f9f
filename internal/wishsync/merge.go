// Package wishsync reconciles a session's local wishes with the ones
// persisted through the wish API.
package wishsync

// Merge returns the union of local and fetched with exact-string duplicates
// removed. Order is first-seen: local entries in their order, then fetched
// entries not already present. The inputs are not modified.
func Merge(local, fetched []string) []string {
	seen := make(map[string]struct{}, len(local)+len(fetched))
	merged := make([]string, 0, len(local)+len(fetched))
	for _, list := range [][]string{local, fetched} {
		for _, w := range list {
			if _, ok := seen[w]; ok {
				continue
			}
			seen[w] = struct{}{}
			merged = append(merged, w)
		}
	}
	return merged
}
