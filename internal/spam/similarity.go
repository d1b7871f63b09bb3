package spam

import "unicode"

// Ratio computes a normalized similarity between two strings in [0,1] based
// on the length of their longest common subsequence: 2*lcs/(len(a)+len(b)).
// Comparison is rune-wise, so multi-byte text behaves sensibly. Equality at
// the configured threshold counts as a match; ties never depend on
// evaluation order.
func Ratio(a, b string) float64 {
	if a == b {
		return 1.0
	}
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 || len(rb) == 0 {
		return 0
	}

	// Keep the DP row on the shorter string.
	if len(rb) > len(ra) {
		ra, rb = rb, ra
	}

	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for i := 1; i <= len(ra); i++ {
		for j := 1; j <= len(rb); j++ {
			if ra[i-1] == rb[j-1] {
				cur[j] = prev[j-1] + 1
			} else if prev[j] >= cur[j-1] {
				cur[j] = prev[j]
			} else {
				cur[j] = cur[j-1]
			}
		}
		prev, cur = cur, prev
	}

	lcs := prev[len(rb)]
	return 2.0 * float64(lcs) / float64(len(ra)+len(rb))
}

// hasCharRun reports whether text contains a run of at least n identical
// runes.
func hasCharRun(text string, n int) bool {
	var last rune = -1
	run := 0
	for _, r := range text {
		if r == last {
			run++
			if run >= n {
				return true
			}
		} else {
			last = r
			run = 1
			if run >= n {
				return true
			}
		}
	}
	return false
}

// countWordChars counts alphanumeric runes plus underscore, mirroring the
// \w character class.
func countWordChars(text string) int {
	count := 0
	for _, r := range text {
		if r == '_' || isLetterOrDigit(r) {
			count++
		}
	}
	return count
}

func isLetterOrDigit(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	}
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
