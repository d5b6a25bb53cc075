package tracing

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracingFile(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "span_test.txt")
	require.NoError(t, Init("pagesim", "0.0.1", fname))

	ctx, span := StartSpan(context.Background(), "allocator.admit")
	span.WithAttributes(map[string]string{"admitted": Bool(true)}).WithProcess(1)
	_, child := StartSpan(ctx, "child")
	EndSpan(child, nil)
	EndSpan(span, nil)

	data, err := os.ReadFile(fname)
	require.NoError(t, err)
	assert.Contains(t, string(data), "allocator.admit")
	assert.Contains(t, string(data), "parent.span_id")
}

func TestNilSpan(t *testing.T) {
	var span *Span
	assert.Nil(t, span.WithAttributes(map[string]string{"k": "v"}))
	assert.Nil(t, span.WithProcess(1))
	span.SetStatus(nil)
	EndSpan(nil, nil)
	assert.NoError(t, InitWithExporter("pagesim", "0.0.1", nil))
}
