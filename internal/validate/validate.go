// Package validate implements the pattern check applied to job input strings.
package validate

import (
	"fmt"
	"regexp"
)

// PatternError indicates the pattern itself could not be compiled.
// Callers must treat this as a terminal Invalid decision, not a crash.
type PatternError struct {
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("invalid pattern %q: %v", e.Pattern, e.Err)
}

func (e *PatternError) Unwrap() error { return e.Err }

// Evaluate reports whether pattern matches input. The pattern's own anchoring
// is respected: a pattern without ^/$ matches substrings. Evaluate is pure and
// safe for concurrent use.
func Evaluate(input, pattern string) (bool, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, &PatternError{Pattern: pattern, Err: err}
	}
	return re.MatchString(input), nil
}
