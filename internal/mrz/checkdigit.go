package mrz

// charValue maps the restricted alphabet to check digit values: digits keep
// their value, A-Z map to 10-35, the filler counts as zero.
func charValue(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'A' && c <= 'Z':
		return int(c-'A') + 10
	default:
		return 0
	}
}

var weights = [3]int{7, 3, 1}

// CheckDigit computes the ICAO 9303 check digit over s.
func CheckDigit(s string) int {
	sum := 0
	for i := 0; i < len(s); i++ {
		sum += charValue(s[i]) * weights[i%3]
	}
	return sum % 10
}

// checks verifies that the character at the check position matches the
// computed digit over the data slice.
func checks(data string, check byte) bool {
	if check < '0' || check > '9' {
		return false
	}
	return CheckDigit(data) == int(check-'0')
}
