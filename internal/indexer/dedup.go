package indexer

import (
	"regexp"
	"strings"

	"github.com/agnivade/levenshtein"
)

// dedupThreshold is the maximum normalized Levenshtein distance (as a
// fraction of the longer title's length) for two results to be considered
// the same release surfaced by different indexers.
const dedupThreshold = 0.12

// sizeBucketTolerance groups results whose sizes are within 5% of each
// other into the same dedup bucket.
const sizeBucketTolerance = 0.05

var nonWordRe = regexp.MustCompile(`[^a-z0-9]+`)

func normalizeTitle(title string) string {
	return strings.Trim(nonWordRe.ReplaceAllString(strings.ToLower(title), " "), " ")
}

func sameSizeBucket(a, b int64) bool {
	if a == 0 || b == 0 {
		return a == b
	}
	diff := float64(a-b) / float64(a)
	if diff < 0 {
		diff = -diff
	}
	return diff <= sizeBucketTolerance
}

// Dedupe collapses results that are almost certainly the same release
// (near-identical normalized title, size within 5%) regardless of which
// indexer surfaced them, keeping the first-seen copy of each.
func Dedupe(results []SearchResult) []SearchResult {
	kept := make([]SearchResult, 0, len(results))

	for _, r := range results {
		norm := normalizeTitle(r.Title)
		duplicate := false

		for _, k := range kept {
			if !sameSizeBucket(r.Size, k.Size) {
				continue
			}
			kNorm := normalizeTitle(k.Title)
			if norm == kNorm {
				duplicate = true
				break
			}
			dist := levenshtein.ComputeDistance(norm, kNorm)
			longest := len(norm)
			if len(kNorm) > longest {
				longest = len(kNorm)
			}
			if longest == 0 {
				continue
			}
			if float64(dist)/float64(longest) <= dedupThreshold {
				duplicate = true
				break
			}
		}

		if !duplicate {
			kept = append(kept, r)
		}
	}

	return kept
}
