package observability

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestWithBuildID(t *testing.T) {
	ctx := WithBuildID(context.Background(), "build-123")

	if lc := GetContext(ctx); lc.BuildID != "build-123" {
		t.Errorf("expected build-123, got %s", lc.BuildID)
	}
}

func TestMultipleContextValues(t *testing.T) {
	ctx := context.Background()
	ctx = WithBuildID(ctx, "build-1")
	ctx = WithTarget(ctx, "ibooks")
	ctx = WithStage(ctx, "toc")

	lc := GetContext(ctx)
	if lc.BuildID != "build-1" || lc.Target != "ibooks" || lc.Stage != "toc" {
		t.Errorf("unexpected context: %+v", lc)
	}
}

func TestOverwriteContextValue(t *testing.T) {
	ctx := WithStage(context.Background(), "toc")
	ctx = WithStage(ctx, "reconcile")

	if lc := GetContext(ctx); lc.Stage != "reconcile" {
		t.Errorf("expected reconcile, got %s", lc.Stage)
	}
}

func TestEmptyContext(t *testing.T) {
	lc := GetContext(context.Background())
	if lc.BuildID != "" || lc.Target != "" || lc.Stage != "" {
		t.Error("expected empty context")
	}
}

func TestInfoContextIncludesAttributes(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	defer slog.SetDefault(prev)

	ctx := WithTarget(WithBuildID(context.Background(), "b-9"), "kindle")
	InfoContext(ctx, "processing toc item", slog.String("pattern", "intro"))

	out := buf.String()
	for _, want := range []string{"build.id=b-9", "target=kindle", "pattern=intro", "processing toc item"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in %q", want, out)
		}
	}
}
