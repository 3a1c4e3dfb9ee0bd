package config

import (
	"fmt"
	"os"
	"strings"
)

const envRefPrefix = "${ENV:"

// interpolateEnv expands ${ENV:NAME} references in s in a single pass.
// Substituted values are copied verbatim, so a value that itself contains
// a reference is not expanded again. An unset or empty variable is an error;
// an unterminated reference is kept as literal text.
func interpolateEnv(s string) (string, error) {
	var b strings.Builder
	rest := s
	for {
		before, after, found := strings.Cut(rest, envRefPrefix)
		b.WriteString(before)
		if !found {
			return b.String(), nil
		}
		name, tail, closed := strings.Cut(after, "}")
		if !closed {
			b.WriteString(envRefPrefix)
			b.WriteString(after)
			return b.String(), nil
		}
		value := os.Getenv(name)
		if value == "" {
			return "", fmt.Errorf("required env var %q is not set", name)
		}
		b.WriteString(value)
		rest = tail
	}
}
