package catalog

// MatchGlob reports whether s matches pattern. '*' matches any run of
// characters (including none) and '?' matches exactly one character.
// Every other character, including '[' and '\', matches itself.
// Matching is case-sensitive and works on code points, not bytes.
func MatchGlob(pattern, s string) bool {
	p := []rune(pattern)
	r := []rune(s)

	pi, si := 0, 0
	// Position of the last '*' seen and the input index it was tried at.
	star, mark := -1, 0

	for si < len(r) {
		switch {
		case pi < len(p) && (p[pi] == '?' || (p[pi] != '*' && p[pi] == r[si])):
			pi++
			si++
		case pi < len(p) && p[pi] == '*':
			star = pi
			mark = si
			pi++
		case star >= 0:
			// Let the last '*' swallow one more character and retry.
			pi = star + 1
			mark++
			si = mark
		default:
			return false
		}
	}

	for pi < len(p) && p[pi] == '*' {
		pi++
	}
	return pi == len(p)
}
