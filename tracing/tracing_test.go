package tracing

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracingFile(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "span_test.txt")
	require.NoError(t, Init("procfork", "0.0.1", fname))

	ctx, span := StartSpan(context.Background(), "fork", "INTERNAL")
	span.WithAttributes(map[string]string{"k": "v"}).WithPID("process.pid", 7)
	_, child := StartSpan(ctx, "child", "")
	EndSpan(child, errors.New("boom"))
	EndSpan(span, nil)

	current, ok := SpanFromContext(ctx)
	assert.True(t, ok)
	assert.NotNil(t, current)

	data, err := os.ReadFile(fname)
	require.NoError(t, err)
	assert.Contains(t, string(data), "process.pid")
	assert.Contains(t, string(data), "parent.span_id")
}

func TestSpanFromContext_Empty(t *testing.T) {
	_, ok := SpanFromContext(context.Background())
	assert.False(t, ok)
}

func TestNilSpan(t *testing.T) {
	var span *Span
	assert.Nil(t, span.WithAttributes(map[string]string{"a": "b"}))
	span.SetStatus(nil)
	EndSpan(span, nil)
}
