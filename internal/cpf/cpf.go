// Package cpf validates and normalizes Brazilian CPF identity numbers.
package cpf

import "strings"

// Length is the number of digits in a normalized CPF.
const Length = 11

// Normalize strips every non-digit character from raw.
func Normalize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Valid reports whether raw is a well-formed CPF. Punctuation is ignored.
// Sequences of one repeated digit pass the check-digit arithmetic but are
// never issued, so they are rejected.
func Valid(raw string) bool {
	if raw == "" {
		return false
	}
	digits := Normalize(raw)
	if len(digits) != Length {
		return false
	}
	if strings.Count(digits, digits[:1]) == Length {
		return false
	}

	d := make([]int, Length)
	for i := range digits {
		d[i] = int(digits[i] - '0')
	}
	return checkDigit(d[:9]) == d[9] && checkDigit(d[:10]) == d[10]
}

// checkDigit computes the verifier for the given prefix. Weights descend
// from len(prefix)+1 down to 2.
func checkDigit(prefix []int) int {
	sum := 0
	weight := len(prefix) + 1
	for _, v := range prefix {
		sum += v * weight
		weight--
	}
	rem := (sum * 10) % 11
	if rem == 10 || rem == 11 {
		return 0
	}
	return rem
}

// Format renders a CPF as 000.000.000-00. Input that does not normalize to
// eleven digits is returned unchanged.
func Format(raw string) string {
	d := Normalize(raw)
	if len(d) != Length {
		return raw
	}
	return d[0:3] + "." + d[3:6] + "." + d[6:9] + "-" + d[9:11]
}
