// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package registry

import "github.com/hbollon/go-edlib"

// SuggestName returns the single closest name in candidates to input by
// Jaro-Winkler similarity, for "did you mean" hints when a CLI lookup
// (resolve/db-info/watch start, ...) misses on a typo'd database name.
// Returns "" if candidates is empty or nothing clears the similarity
// floor.
func SuggestName(input string, candidates []string) string {
	const minSimilarity = 0.7

	best := ""
	bestScore := float32(minSimilarity)
	for _, c := range candidates {
		score, err := edlib.StringsSimilarity(input, c, edlib.JaroWinkler)
		if err != nil {
			continue
		}
		if score > bestScore {
			bestScore = score
			best = c
		}
	}
	return best
}
