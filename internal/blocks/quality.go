package blocks

import "strings"

// scoreQuality combines a length-ratio score (how close the rewrite landed
// to the target size) with a Jaccard token-overlap score (how much of the
// original content's vocabulary survived) into a single [0,1] quality
// figure used to gate rewrite acceptance against min_quality.
func scoreQuality(original, rewritten string, targetLen int) float64 {
	lengthScore := lengthRatioScore(len(rewritten), targetLen)
	overlapScore := jaccard(tokenize(original), tokenize(rewritten))
	return 0.5*lengthScore + 0.5*overlapScore
}

func lengthRatioScore(actual, target int) float64 {
	if target <= 0 {
		return 0
	}
	ratio := float64(actual) / float64(target)
	if ratio > 1 {
		ratio = 1 / ratio
	}
	return ratio
}

func tokenize(s string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(s))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	intersection := 0
	for t := range a {
		if _, ok := b[t]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
