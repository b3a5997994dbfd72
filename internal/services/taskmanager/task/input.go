package task

import (
	"strings"
	"time"

	apperrors "github.com/louisbranch/taskmanager/internal/platform/errors"
	"golang.org/x/text/unicode/norm"
)

var (
	// ErrEmptyTitle indicates a missing title.
	ErrEmptyTitle = apperrors.Validation("title", "title is required")
	// ErrEmptyDescription indicates a missing description.
	ErrEmptyDescription = apperrors.Validation("description", "description is required")
	// ErrEmptyPriority indicates a missing priority.
	ErrEmptyPriority = apperrors.Validation("priority", "priority is required")
	// ErrEmptyDueDate indicates a missing due date.
	ErrEmptyDueDate = apperrors.Validation("dueDate", "due date is required")
	// ErrInvalidDueDate indicates a due date in no accepted layout.
	ErrInvalidDueDate = apperrors.Validation("dueDate", "invalid due date")
)

// dueDateLayouts lists accepted due date layouts, most specific first.
var dueDateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Input is the caller-supplied task content for create and update.
type Input struct {
	Title       string
	Description string
	Priority    string
	DueDate     string
	Tags        []string
	FolderID    string
}

// normalized is Input after validation.
type normalized struct {
	Title       string
	Description string
	Priority    Priority
	DueDate     time.Time
	Tags        []string
	FolderID    string
}

func normalizeText(value string) string {
	return norm.NFC.String(strings.TrimSpace(value))
}

func normalizeInput(input Input) (normalized, error) {
	out := normalized{
		Title:       normalizeText(input.Title),
		Description: normalizeText(input.Description),
		FolderID:    strings.TrimSpace(input.FolderID),
	}
	if out.Title == "" {
		return normalized{}, ErrEmptyTitle
	}
	if out.Description == "" {
		return normalized{}, ErrEmptyDescription
	}

	if strings.TrimSpace(input.Priority) == "" {
		return normalized{}, ErrEmptyPriority
	}
	priority, err := ParsePriority(input.Priority)
	if err != nil {
		return normalized{}, err
	}
	out.Priority = priority

	dueDate, err := ParseDueDate(input.DueDate)
	if err != nil {
		return normalized{}, err
	}
	out.DueDate = dueDate

	out.Tags = NormalizeTags(input.Tags)
	return out, nil
}

// ParseDueDate parses a due date in any accepted layout and returns it in UTC.
// Layouts without an offset are read as UTC.
func ParseDueDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, ErrEmptyDueDate
	}
	for _, layout := range dueDateLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed.UTC(), nil
		}
	}
	return time.Time{}, ErrInvalidDueDate
}

// NormalizeTags trims each tag and drops blanks, keeping order. The result is
// never nil.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = normalizeText(tag)
		if tag == "" {
			continue
		}
		out = append(out, tag)
	}
	return out
}
