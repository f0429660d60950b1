// Package levenshtein computes edit distances for domain typo detection.
package levenshtein

// Distance returns the Levenshtein edit distance between s and t,
// counted in runes.
func Distance(s, t string) int {
	d, _ := bounded([]rune(s), []rune(t), -1)
	return d
}

// Within reports whether s and t are at most limit edits apart, and the
// distance when they are. It stops as soon as every cell of a row exceeds
// limit, so far-apart strings cost little.
func Within(s, t string, limit int) (int, bool) {
	if limit < 0 {
		return 0, false
	}
	return bounded([]rune(s), []rune(t), limit)
}

// bounded runs the single-row DP. A negative limit disables the cut-off.
func bounded(a, b []rune, limit int) (int, bool) {
	if len(a) < len(b) {
		a, b = b, a
	}
	if limit >= 0 && len(a)-len(b) > limit {
		return 0, false
	}
	if len(b) == 0 {
		return len(a), true
	}

	// row[j] is the distance between the consumed prefix of a and b[:j].
	row := make([]int, len(b)+1)
	for j := range row {
		row[j] = j
	}
	for i, ra := range a {
		diag := row[0]
		row[0] = i + 1
		best := row[0]
		for j, rb := range b {
			up := row[j+1]
			sub := diag
			if ra != rb {
				sub++
			}
			row[j+1] = min(up+1, row[j]+1, sub)
			diag = up
			best = min(best, row[j+1])
		}
		if limit >= 0 && best > limit {
			return 0, false
		}
	}

	d := row[len(b)]
	if limit >= 0 && d > limit {
		return 0, false
	}
	return d, true
}

// Closest returns the candidate nearest to s within maxDist edits.
// An exact match returns ("", 0): nothing needs correcting. Ties keep the
// earlier candidate.
func Closest(s string, candidates []string, maxDist int) (string, int) {
	if maxDist < 0 {
		return "", 0
	}
	for _, c := range candidates {
		if s == c {
			return "", 0
		}
	}

	// each hit tightens the limit so later candidates must be strictly closer
	src := []rune(s)
	best, bestDist := "", 0
	limit := maxDist
	for _, c := range candidates {
		d, ok := bounded(src, []rune(c), limit)
		if !ok {
			continue
		}
		best, bestDist, limit = c, d, d-1
		if limit < 0 {
			break
		}
	}
	return best, bestDist
}
