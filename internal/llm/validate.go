package llm

import (
	"fmt"
	"regexp"
	"unicode/utf8"
)

// Input limits, in characters.
const (
	MaxInstructionsLen = 4000
	MaxProfileLen      = 50000
	MaxEnhanceLen      = 4000
)

// InputError reports a request field that failed validation.
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// ValidateInput rejects values over limit characters or not valid UTF-8.
func ValidateInput(field, s string, limit int) error {
	if !utf8.ValidString(s) {
		return &InputError{Field: field, Reason: "not valid UTF-8"}
	}
	if n := utf8.RuneCountInString(s); n > limit {
		return &InputError{Field: field, Reason: fmt.Sprintf("%d characters exceeds limit of %d", n, limit)}
	}
	return nil
}

var injectionPattern = regexp.MustCompile(
	`(?i)(ignore\s+(previous|all|above)|system\s*prompt|you\s+are\s+now|` +
		`forget\s+(everything|all)|new\s+instructions|disregard\s+(the|all|previous))`,
)

// Suspicious reports text that reads like an attempt to replace the
// prompt. Callers log it; the request still goes through.
func Suspicious(s string) bool {
	return injectionPattern.MatchString(s)
}
