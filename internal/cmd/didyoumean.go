package cmd

import "strings"

// maxSuggestDistance is the largest edit distance still offered as a suggestion.
const maxSuggestDistance = 3

// levenshtein computes the edit distance between a and b.
func levenshtein(a, b string) int {
	if a == "" {
		return len(b)
	}
	if b == "" {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

// closest returns the candidate nearest to input, or "" when none is within
// maxSuggestDistance. key normalizes both sides before comparing.
func closest(input string, candidates []string, key func(string) string) string {
	target := key(input)
	if target == "" {
		return ""
	}
	best, bestDist := "", maxSuggestDistance+1
	for _, c := range candidates {
		if d := levenshtein(target, key(c)); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

// suggestCommand finds the closest command name to the unknown input.
func suggestCommand(unknown string, commands []string) string {
	return closest(unknown, commands, strings.ToLower)
}

// suggestFlag finds the closest flag to the unknown input, ignoring leading
// dashes, and returns it with its original prefix.
func suggestFlag(unknown string, flags []string) string {
	return closest(unknown, flags, func(s string) string {
		return strings.ToLower(strings.TrimLeft(s, "-"))
	})
}
