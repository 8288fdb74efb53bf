package main

import (
	"sort"

	"github.com/ancients-collective/hostready/internal/types"
)

// levenshtein computes the edit distance between two strings.
func levenshtein(a, b string) int {
	la, lb := len(a), len(b)
	if la == 0 {
		return lb
	}
	if lb == 0 {
		return la
	}

	if la < lb {
		a, b = b, a
		la, lb = lb, la
	}

	prev := make([]int, lb+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= la; i++ {
		curr := make([]int, lb+1)
		curr[0] = i
		for j := 1; j <= lb; j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev = curr
	}
	return prev[lb]
}

// suggestTypes returns up to 2 machine types closest to input by edit
// distance. Short names tolerate at most 2 edits.
func suggestTypes(input string) []string {
	type candidate struct {
		name string
		dist int
	}

	maxDist := len(input) / 2
	if maxDist < 2 {
		maxDist = 2
	}

	var candidates []candidate
	for _, mt := range types.MachineTypes {
		d := levenshtein(input, string(mt))
		if d <= maxDist && d > 0 {
			candidates = append(candidates, candidate{name: string(mt), dist: d})
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].dist != candidates[j].dist {
			return candidates[i].dist < candidates[j].dist
		}
		return candidates[i].name < candidates[j].name
	})

	limit := min(2, len(candidates))
	result := make([]string, limit)
	for i := 0; i < limit; i++ {
		result[i] = candidates[i].name
	}
	return result
}
