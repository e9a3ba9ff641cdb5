package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lastEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[len(lines)-1], &entry))
	return entry
}

func TestWithAddsFields(t *testing.T) {
	var buf bytes.Buffer
	base := FromSlog(slog.New(slog.NewJSONHandler(&buf, nil)))

	base.With("component", "matcher").Warn(context.Background(), "template skipped", "template_id", 7)

	entry := lastEntry(t, &buf)
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "template skipped", entry["msg"])
	assert.Equal(t, "matcher", entry["component"])
	assert.EqualValues(t, 7, entry["template_id"])
}

func TestContextFields(t *testing.T) {
	var buf bytes.Buffer
	l := FromSlog(slog.New(slog.NewJSONHandler(&buf, nil)))

	ctx := ContextWith(context.Background(), "request_id", "r-1")
	child := ContextWith(ctx, "user", "u-9")

	l.Info(child, "login", "role", "ADMIN")
	entry := lastEntry(t, &buf)
	assert.Equal(t, "r-1", entry["request_id"])
	assert.Equal(t, "u-9", entry["user"])
	assert.Equal(t, "ADMIN", entry["role"])

	// the parent context is unchanged
	l.Info(ctx, "logout")
	entry = lastEntry(t, &buf)
	assert.Equal(t, "r-1", entry["request_id"])
	assert.NotContains(t, entry, "user")
}

func TestNew_ProductionWritesJSONWithService(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, "production", "worker").Error(context.Background(), "job failed", "job_id", "j-1")

	entry := lastEntry(t, &buf)
	assert.Equal(t, "worker", entry["service"])
	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, "j-1", entry["job_id"])
}

func TestNew_DevelopmentWritesText(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, "development", "api").Info(context.Background(), "ready")

	assert.Contains(t, buf.String(), "service=api")
	assert.Contains(t, buf.String(), "msg=ready")
}

func TestDiscard(t *testing.T) {
	l := Discard()
	l.Info(context.Background(), "nothing")
	l.Error(context.Background(), "still nothing")
}
