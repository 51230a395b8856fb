package logger

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestContextFieldsPropagate(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "test", Output: &buf})

	ctx := logg.WithQueryKind(context.Background(), "funnel")
	ctx = logg.WithTableVersion(ctx, "abc123")
	logg.Info(ctx, "query.complete")

	line := buf.String()
	for _, want := range []string{`"query_kind":"funnel"`, `"table_version":"abc123"`, `"service":"test"`} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %s in log line: %s", want, line)
		}
	}
}

func TestParseLevelFallsBackToInfo(t *testing.T) {
	if lvl := ParseLevel("definitely-not-a-level"); lvl != zerolog.InfoLevel {
		t.Fatalf("unexpected level: %v", lvl)
	}
	if lvl := ParseLevel("warn"); lvl != zerolog.WarnLevel {
		t.Fatalf("unexpected level: %v", lvl)
	}
}

func TestErrorIncludesStack(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "test", Output: &buf})

	logg.Error(context.Background(), "boom", nil)

	if !strings.Contains(buf.String(), `"stack"`) {
		t.Fatalf("expected stack field in error log: %s", buf.String())
	}
}
