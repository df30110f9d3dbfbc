// Package mask normalises Brazilian document and phone numbers to their display masks.
package mask

import (
	"strings"
	"unicode"
)

// Digits strips everything but ASCII digits.
func Digits(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// CPF formats up to 11 digits as ###.###.###-##. Partial input is masked progressively.
func CPF(raw string) string {
	return apply(Digits(raw), 11, []rune("###.###.###-##"))
}

// ValidCPF reports whether the value carries exactly 11 digits.
func ValidCPF(raw string) bool {
	return len(Digits(raw)) == 11
}

// Phone formats a mobile number as (##) # ####-####.
func Phone(raw string) string {
	return apply(Digits(raw), 11, []rune("(##) # ####-####"))
}

// Landline formats a fixed-line number as (##) ####-####.
func Landline(raw string) string {
	return apply(Digits(raw), 10, []rune("(##) ####-####"))
}

// Date formats up to 8 digits as ##/##/####.
func Date(raw string) string {
	return apply(Digits(raw), 8, []rune("##/##/####"))
}

func apply(digits string, max int, pattern []rune) string {
	if len(digits) > max {
		digits = digits[:max]
	}
	if digits == "" {
		return ""
	}
	var b strings.Builder
	i := 0
	for _, p := range pattern {
		if i >= len(digits) {
			break
		}
		if p == '#' {
			b.WriteByte(digits[i])
			i++
			continue
		}
		b.WriteRune(p)
	}
	return strings.TrimRightFunc(b.String(), func(r rune) bool {
		return !unicode.IsDigit(r) && r != ')'
	})
}
