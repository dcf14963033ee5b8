// Package policy implements the stateless password policy validator.
//
// Validation is a pure function: every rule is checked independently and
// all violations are reported together, so callers can render the complete
// list instead of fixing one rule at a time.
package policy

import (
	"strings"
	"unicode/utf8"
)

// Violation identifies a single failed password rule.
type Violation string

const (
	// ViolationTooShort means the password is shorter than MinLength.
	ViolationTooShort Violation = "too_short"
	// ViolationMissingUppercase means no character in [A-Z] is present.
	ViolationMissingUppercase Violation = "missing_uppercase"
	// ViolationMissingLowercase means no character in [a-z] is present.
	ViolationMissingLowercase Violation = "missing_lowercase"
	// ViolationMissingDigit means no character in [0-9] is present.
	ViolationMissingDigit Violation = "missing_digit"
	// ViolationMissingSymbol means no character from SymbolSet is present.
	ViolationMissingSymbol Violation = "missing_symbol"
	// ViolationBreached means the password appears in the known-breach corpus.
	ViolationBreached Violation = "breached"
)

// MinLength is the minimum accepted password length in characters
// (Unicode code points, not bytes).
const MinLength = 12

// SymbolSet is the fixed set of accepted special characters.
const SymbolSet = "!@#$%^&*()-_=+[]{};:,.<>?/|~"

// Result reports the outcome of a validation pass. Valid is true iff
// Violations is empty.
type Result struct {
	Valid      bool
	Violations []Violation
}

// Validate checks password against every rule and returns the full set of
// violations. It has no side effects and is safe for concurrent use.
func Validate(password string) Result {
	var violations []Violation

	if utf8.RuneCountInString(password) < MinLength {
		violations = append(violations, ViolationTooShort)
	}

	var hasUpper, hasLower, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= '0' && r <= '9':
			hasDigit = true
		case strings.ContainsRune(SymbolSet, r):
			hasSymbol = true
		}
	}

	if !hasUpper {
		violations = append(violations, ViolationMissingUppercase)
	}
	if !hasLower {
		violations = append(violations, ViolationMissingLowercase)
	}
	if !hasDigit {
		violations = append(violations, ViolationMissingDigit)
	}
	if !hasSymbol {
		violations = append(violations, ViolationMissingSymbol)
	}
	if isBreached(password) {
		violations = append(violations, ViolationBreached)
	}

	return Result{
		Valid:      len(violations) == 0,
		Violations: violations,
	}
}
