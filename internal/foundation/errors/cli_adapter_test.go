package errors

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestCLIErrorAdapter_ExitCodeFor(t *testing.T) {
	adapter := NewCLIErrorAdapter(false, slog.Default())

	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"nil error", nil, 0},
		{"validation error", ValidationError("malformed xhtml").Build(), 2},
		{"config error", ConfigError("no bookspec").Build(), 7},
		{"resolve error", ResolveError("ambiguous pattern").Build(), 9},
		{"build error", BuildError("unknown extension").Build(), 11},
		{"archive error", ArchiveError("zip failed").Build(), 11},
		{"internal error", InternalError("bug").Build(), 10},
		{"unclassified error", errors.New("unknown error"), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := adapter.ExitCodeFor(tt.err); got != tt.expected {
				t.Errorf("ExitCodeFor() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestCLIErrorAdapter_FormatError(t *testing.T) {
	quiet := NewCLIErrorAdapter(false, slog.Default())
	verbose := NewCLIErrorAdapter(true, slog.Default())

	resolveErr := ResolveError("found too many files for pattern `cover`").WithContext("pattern", "cover").Build()

	if got := quiet.FormatError(resolveErr); got != "[!] found too many files for pattern `cover`" {
		t.Errorf("unexpected quiet format: %q", got)
	}
	if got := verbose.FormatError(resolveErr); !strings.Contains(got, "[resolve:fatal]") {
		t.Errorf("expected verbose format to include category, got %q", got)
	}
	if got := quiet.FormatError(InternalError("nil pointer").Build()); !strings.Contains(got, "use -v") {
		t.Errorf("expected internal errors to be hidden, got %q", got)
	}
	if got := quiet.FormatError(errors.New("boom")); got != "Error: boom" {
		t.Errorf("unexpected unclassified format: %q", got)
	}
}

func TestCLIErrorAdapter_HandleError(t *testing.T) {
	var stderr bytes.Buffer
	var logs bytes.Buffer
	adapter := NewCLIErrorAdapter(true, slog.New(slog.NewTextHandler(&logs, nil)))
	adapter.stderr = &stderr
	code := -1
	adapter.exit = func(c int) { code = c }

	adapter.HandleError(ArchiveError("zip exited with status 12").Build())

	if code != 11 {
		t.Errorf("expected exit code 11, got %d", code)
	}
	if !strings.Contains(stderr.String(), "zip exited with status 12") {
		t.Errorf("expected message on stderr, got %q", stderr.String())
	}
	if !strings.Contains(logs.String(), "category=archive") {
		t.Errorf("expected category in log output, got %q", logs.String())
	}
}
