package task

import (
	"strings"

	apperrors "github.com/louisbranch/taskmanager/internal/platform/errors"
)

// Priority is the closed set of task urgencies.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

// ErrInvalidPriority indicates a priority outside the closed set.
var ErrInvalidPriority = apperrors.Validation("priority", "invalid priority value")

var prioritiesByName = map[string]Priority{
	"low":    PriorityLow,
	"medium": PriorityMedium,
	"high":   PriorityHigh,
}

// ParsePriority accepts low, medium, or high in any letter case.
func ParsePriority(raw string) (Priority, error) {
	priority, ok := prioritiesByName[strings.ToLower(strings.TrimSpace(raw))]
	if !ok {
		return "", ErrInvalidPriority
	}
	return priority, nil
}

// String returns the canonical uppercase form.
func (p Priority) String() string {
	return string(p)
}
