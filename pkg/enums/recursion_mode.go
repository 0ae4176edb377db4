package enums

import (
	"fmt"
	"strings"
)

// RecursionMode selects in which direction a trace query walks the HU lineage.
type RecursionMode string

const (
	RecursionModeNone     RecursionMode = "NONE"
	RecursionModeBackward RecursionMode = "BACKWARD"
	RecursionModeForward  RecursionMode = "FORWARD"
)

var validRecursionModes = []RecursionMode{
	RecursionModeNone,
	RecursionModeBackward,
	RecursionModeForward,
}

func (m RecursionMode) IsValid() bool {
	for _, candidate := range validRecursionModes {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseRecursionMode is case-insensitive; an empty value means NONE.
func ParseRecursionMode(value string) (RecursionMode, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(value))
	if trimmed == "" {
		return RecursionModeNone, nil
	}
	for _, candidate := range validRecursionModes {
		if string(candidate) == trimmed {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid recursion mode %q", value)
}
