package reciperepo

import (
	"sort"
	"strings"
)

// matchRank orders results: exact-prefix matches first, then substring
// matches, then subsequence matches (lowest rank number sorts first).
const (
	rankPrefix = iota
	rankSubstring
	rankSubsequence
	rankNone
)

func rankOf(name, query string) int {
	name = strings.ToLower(name)
	query = strings.ToLower(query)

	if strings.HasPrefix(name, query) {
		return rankPrefix
	}
	if strings.Contains(name, query) {
		return rankSubstring
	}
	if isSubsequence(query, name) {
		return rankSubsequence
	}
	return rankNone
}

// isSubsequence reports whether every rune of query appears in name in
// order, not necessarily contiguously.
func isSubsequence(query, name string) bool {
	if query == "" {
		return true
	}
	qi := 0
	qr := []rune(query)
	for _, r := range name {
		if qr[qi] == r {
			qi++
			if qi == len(qr) {
				return true
			}
		}
	}
	return false
}

// Search returns the names of every recipe whose name fuzzy-matches query,
// ordered by (exact-prefix > substring > subsequence), ties broken
// lexicographically by name. Recipes that fail to parse are skipped, same
// as ListAll.
func (s *Store) Search(query string) []string {
	recipes, _ := s.ListAll()

	type scored struct {
		name string
		rank int
	}
	var results []scored
	for _, r := range recipes {
		rank := rankOf(r.Name, query)
		if rank == rankNone {
			continue
		}
		results = append(results, scored{name: r.Name, rank: rank})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].rank != results[j].rank {
			return results[i].rank < results[j].rank
		}
		return results[i].name < results[j].name
	})

	names := make([]string, len(results))
	for i, r := range results {
		names[i] = r.name
	}
	return names
}
