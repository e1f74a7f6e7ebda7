package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	return m
}

func TestLogger_StampsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelDebug, Format: "json", Component: ComponentTags, Output: &buf})

	logger.Info("hello", FieldTagID, 7)

	line := decodeLine(t, &buf)
	if line[FieldComponent] != ComponentTags {
		t.Errorf("component = %v, want %q", line[FieldComponent], ComponentTags)
	}
	if line[FieldTagID] != float64(7) {
		t.Errorf("tag_id = %v, want 7", line[FieldTagID])
	}

	buf.Reset()
	logger.WithComponent(ComponentWorker).Debug("switched")
	line = decodeLine(t, &buf)
	if line[FieldComponent] != ComponentWorker {
		t.Errorf("component = %v, want %q", line[FieldComponent], ComponentWorker)
	}
}

func TestLogFields(t *testing.T) {
	single := NewFields().WithTags(3)
	if single[FieldTagID] != int64(3) || single[FieldTagCount] != 1 {
		t.Errorf("WithTags(3) = %v", single)
	}

	many := NewFields().WithTags(1, 2)
	if _, ok := many[FieldTagIDs]; !ok || many[FieldTagCount] != 2 {
		t.Errorf("WithTags(1, 2) = %v", many)
	}

	if _, ok := NewFields().WithError(nil)[FieldError]; ok {
		t.Error("WithError(nil) should not add an error field")
	}
	if got := NewFields().WithError(errors.New("boom"))[FieldError]; got != "boom" {
		t.Errorf("WithError() = %v", got)
	}

	if got := len(NewFields().WithUser(1).WithRowCount(2).ToSlice()); got != 4 {
		t.Errorf("ToSlice() length = %d, want 4", got)
	}
}

func TestWithLogger_FromContext(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Format: "json", Component: ComponentHTTP, Output: &buf})

	ctx := WithLogger(context.Background(), logger.With(FieldRequestID, "req-1"))
	got := FromContext(ctx)
	got.Info("inside")

	if got.Component() != ComponentHTTP {
		t.Fatalf("FromContext() component = %q, want http", got.Component())
	}
	if line := decodeLine(t, &buf); line[FieldRequestID] != "req-1" {
		t.Errorf("request_id = %v, want req-1", line[FieldRequestID])
	}

	if FromContext(context.Background()).Component() != "unknown" {
		t.Error("FromContext without logger should fall back to the default")
	}
}

func TestStructuredLogger(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Format: "json", Component: ComponentHTTP, Output: &buf}))
	ctx := context.Background()

	sl.LogTagsCreated(ctx, 7, []int64{3, 4})
	line := decodeLine(t, &buf)
	if line[FieldUserID] != float64(7) || line[FieldTagCount] != float64(2) {
		t.Errorf("tags created line = %v", line)
	}

	buf.Reset()
	sl.LogError(ctx, "Request failed", errors.New("boom"), ComponentHTTP, OpLink,
		NewFields().WithErrorType(ErrorTypeDatabase))
	line = decodeLine(t, &buf)
	if line[FieldError] != "boom" || line[FieldErrorType] != ErrorTypeDatabase || line[FieldOperation] != OpLink {
		t.Errorf("error line = %v", line)
	}
	if line["level"] != "ERROR" {
		t.Errorf("level = %v, want ERROR", line["level"])
	}
}

func TestStructuredLogger_LogHTTPEnd(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Format: "json", Component: ComponentTrace, Output: &buf}))

	r := httptest.NewRequest(http.MethodGet, "/api/tags?user=7", nil)
	sl.LogHTTPEnd(context.Background(), r, http.StatusNotFound, 12, "198.51.100.1")

	line := decodeLine(t, &buf)
	if line[FieldComponent] != ComponentTrace {
		t.Errorf("component = %v, want %q", line[FieldComponent], ComponentTrace)
	}
	if line["level"] != "WARN" {
		t.Errorf("level = %v, want WARN", line["level"])
	}
	if line[FieldStatusCode] != float64(404) || line[FieldQuery] != "user=7" || line[FieldClientIP] != "198.51.100.1" {
		t.Errorf("request line = %v", line)
	}
}
