package validate

// levenshtein computes the edit distance between two rune slices using
// the two-row dynamic programming form
func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

// Similarity returns a [0,1] ratio between two strings:
// 1 − distance/maxLen. Identical strings score 1, disjoint ones
// approach 0. Two empty strings are identical.
func Similarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	longest := len(ra)
	if len(rb) > longest {
		longest = len(rb)
	}
	if longest == 0 {
		return 1.0
	}
	dist := levenshtein(ra, rb)
	return 1.0 - float64(dist)/float64(longest)
}

// bestWindowSimilarity slides a needle-sized window over the haystack
// and returns the best similarity found. Used for the expanded-window
// retry, where slightly-off offsets put the real text somewhere inside
// a wider slice.
func bestWindowSimilarity(needle, haystack string) float64 {
	rn, rh := []rune(needle), []rune(haystack)
	if len(rn) == 0 || len(rh) == 0 {
		return Similarity(needle, haystack)
	}
	if len(rh) <= len(rn) {
		return Similarity(needle, haystack)
	}

	best := 0.0
	for start := 0; start+len(rn) <= len(rh); start++ {
		sim := Similarity(needle, string(rh[start:start+len(rn)]))
		if sim > best {
			best = sim
		}
		if best == 1.0 {
			break
		}
	}
	return best
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
