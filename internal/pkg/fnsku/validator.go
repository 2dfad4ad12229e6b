// Package fnsku converts seller FNSKUs to Amazon ASINs. It validates input,
// serves earlier outcomes from a persistent cache and otherwise runs an
// ordered chain of conversion strategies.
package fnsku

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Length is the length of both FNSKUs and ASINs.
const Length = 10

var (
	asinPattern     = regexp.MustCompile(`^B[A-Z0-9]{9}$`)
	alphanumPattern = regexp.MustCompile(`^[A-Z0-9]+$`)
)

// ValidationResult describes a validated FNSKU. Suggestions are advisory
// and never applied to Formatted.
type ValidationResult struct {
	Original    string   `json:"original"`
	Formatted   string   `json:"formatted"`
	Valid       bool     `json:"valid"`
	Errors      []string `json:"errors"`
	Suggestions []string `json:"suggestions"`
}

// IsASIN reports whether s has the shape of an ASIN.
func IsASIN(s string) bool {
	return asinPattern.MatchString(s)
}

// Validate normalizes raw (trim, uppercase) and checks it against the FNSKU
// format. All checks run so every problem is reported at once.
func Validate(raw string) ValidationResult {
	formatted := strings.ToUpper(strings.TrimSpace(raw))
	result := ValidationResult{
		Original:    raw,
		Formatted:   formatted,
		Errors:      []string{},
		Suggestions: []string{},
	}

	if formatted == "" {
		result.Errors = append(result.Errors, "FNSKU is required")
		return result
	}

	if n := utf8.RuneCountInString(formatted); n != Length {
		result.Errors = append(result.Errors, fmt.Sprintf("FNSKU must be exactly %d characters, got %d", Length, n))
		if n == Length-1 || n == Length+1 {
			result.Suggestions = append(result.Suggestions, "check for a missing or extra character")
		}
	}

	if !alphanumPattern.MatchString(formatted) {
		result.Errors = append(result.Errors, "FNSKU must contain only letters and digits")
		if strings.ContainsAny(formatted, " -_.") {
			result.Suggestions = append(result.Suggestions, "remove extra characters such as spaces, dashes or underscores")
		}
	}

	if IsASIN(formatted) {
		result.Errors = append(result.Errors, "value looks like an ASIN; FNSKUs never start with 'B'")
		result.Suggestions = append(result.Suggestions, "this looks like an ASIN, use the product lookup instead")
	}

	if hasLower(raw) {
		result.Suggestions = append(result.Suggestions, "try uppercase; FNSKUs are printed in capital letters")
	}

	result.Valid = len(result.Errors) == 0
	return result
}

func hasLower(s string) bool {
	for _, r := range s {
		if unicode.IsLower(r) {
			return true
		}
	}
	return false
}
