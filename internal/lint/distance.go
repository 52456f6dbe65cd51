package lint

// BoundedDistance computes the optimal string alignment distance between
// a and b (Levenshtein plus adjacent transposition), cutting off early
// once the distance provably exceeds max. It returns max+1 in that case.
//
// Transpositions cost 1 so that common typing slips like "tset" for
// "test" rank as close as a single substitution.
func BoundedDistance(a, b string, max int) int {
	ra := []rune(a)
	rb := []rune(b)

	la, lb := len(ra), len(rb)
	if abs(la-lb) > max {
		return max + 1
	}
	if la == 0 {
		return lb
	}
	if lb == 0 {
		return la
	}

	// Three rolling rows: two previous rows are needed for the
	// transposition case.
	prev2 := make([]int, lb+1)
	prev := make([]int, lb+1)
	curr := make([]int, lb+1)

	for j := 0; j <= lb; j++ {
		prev[j] = j
	}

	for i := 1; i <= la; i++ {
		curr[0] = i
		rowMin := curr[0]

		for j := 1; j <= lb; j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}

			d := minInt(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution or match
			)
			if i > 1 && j > 1 && ra[i-1] == rb[j-2] && ra[i-2] == rb[j-1] {
				if t := prev2[j-2] + 1; t < d {
					d = t
				}
			}

			curr[j] = d
			if d < rowMin {
				rowMin = d
			}
		}

		if rowMin > max {
			return max + 1
		}

		prev2, prev, curr = prev, curr, prev2
	}

	if prev[lb] > max {
		return max + 1
	}
	return prev[lb]
}

func minInt(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
