package task

import (
	"reflect"
	"testing"
	"time"

	apperrors "github.com/louisbranch/taskmanager/internal/platform/errors"
)

func TestParseDueDateLayouts(t *testing.T) {
	tests := []struct {
		raw  string
		want time.Time
	}{
		{raw: "2026-05-01", want: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)},
		{raw: "2026-05-01T10:30:00", want: time.Date(2026, 5, 1, 10, 30, 0, 0, time.UTC)},
		{raw: "2026-05-01T10:30:00Z", want: time.Date(2026, 5, 1, 10, 30, 0, 0, time.UTC)},
		{raw: "2026-05-01T10:30:00.250Z", want: time.Date(2026, 5, 1, 10, 30, 0, 250_000_000, time.UTC)},
		{raw: "2026-05-01T12:30:00+02:00", want: time.Date(2026, 5, 1, 10, 30, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := ParseDueDate(tt.raw)
		if err != nil {
			t.Fatalf("ParseDueDate(%q): %v", tt.raw, err)
		}
		if !got.Equal(tt.want) || got.Location() != time.UTC {
			t.Fatalf("ParseDueDate(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestParseDueDateRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"", "  ", "tomorrow", "05/01/2026", "2026-13-01"} {
		if _, err := ParseDueDate(raw); !apperrors.HasCode(err, apperrors.CodeValidation) {
			t.Fatalf("ParseDueDate(%q): expected validation error, got %v", raw, err)
		}
	}
}

func TestNormalizeTags(t *testing.T) {
	got := NormalizeTags([]string{" work ", "", "  ", "home", "work"})
	want := []string{"work", "home", "work"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("NormalizeTags = %v, want %v", got, want)
	}
	if got := NormalizeTags(nil); got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil tags, got %#v", got)
	}
}

func TestNormalizeInputRequiredFields(t *testing.T) {
	valid := Input{Title: "T", Description: "D", Priority: "low", DueDate: "2026-05-01"}

	tests := []struct {
		name   string
		mutate func(*Input)
		field  string
	}{
		{name: "title", mutate: func(in *Input) { in.Title = " " }, field: "title"},
		{name: "description", mutate: func(in *Input) { in.Description = "" }, field: "description"},
		{name: "priority", mutate: func(in *Input) { in.Priority = "" }, field: "priority"},
		{name: "bad priority", mutate: func(in *Input) { in.Priority = "urgent" }, field: "priority"},
		{name: "due date", mutate: func(in *Input) { in.DueDate = "" }, field: "dueDate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := valid
			tt.mutate(&input)
			_, err := normalizeInput(input)
			domainErr, ok := apperrors.As(err)
			if !ok || domainErr.Code != apperrors.CodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
			if domainErr.Metadata["Field"] != tt.field {
				t.Fatalf("field = %q, want %q", domainErr.Metadata["Field"], tt.field)
			}
		})
	}
}
