package syllabus

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"gopkg.in/yaml.v3"

	cachesvc "github.com/academictoken/registry/services/cache"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestProcessorCache(t *testing.T) {
	ctx := context.Background()
	p := NewProcessor(cachesvc.NewMemoryCache(), nil, 0)

	first := p.Process(ctx, "a.txt", englishSyllabus)
	require.Empty(t, first.Error)
	assert.False(t, first.Cached)

	second := p.Process(ctx, "b.txt", englishSyllabus)
	require.Empty(t, second.Error)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Document, second.Document)

	failed := p.Process(ctx, "c.txt", "   ")
	assert.Equal(t, ErrEmpty.Error(), failed.Error)
	assert.Nil(t, failed.Document)

	assert.Equal(t, Stats{Processed: 3, CacheHits: 1, Failed: 1}, p.Stats())
}

func TestProcessorBatch(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "calculus.txt", englishSyllabus)
	writeFile(t, dir, "calculo.md", portugueseSyllabus)
	writeFile(t, dir, "notes.pdf", "ignored")

	paths, err := Files(dir)
	require.NoError(t, err)
	require.Len(t, paths, 2)
	paths = append(paths, filepath.Join(dir, "missing.txt"))

	p := NewProcessor(nil, nil, 2)
	results, err := p.Batch(context.Background(), paths)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "Cálculo Diferencial", results[0].Document.Title)
	assert.Equal(t, "Calculus I", results[1].Document.Title)
	assert.Equal(t, paths[2], results[2].Source)
	assert.Contains(t, results[2].Error, "reading syllabus")
}

func TestProcessorBatchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewProcessor(nil, nil, 1)
	_, err := p.Batch(ctx, []string{"a.txt", "b.txt"})
	assert.Equal(t, context.Canceled, errors.Cause(err))
}

func TestProcessorWatch(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	p := NewProcessor(nil, nil, 0)
	ctx, cancel := context.WithCancel(context.Background())

	results := make(chan Result, 4)
	done := make(chan error, 1)
	go func() {
		done <- p.Watch(ctx, dir, func(res Result) { results <- res })
	}()

	// give the watcher time to register the directory
	time.Sleep(100 * time.Millisecond)
	path := writeFile(t, dir, "calculus.txt", englishSyllabus)
	writeFile(t, dir, "ignored.pdf", "binary")

	select {
	case res := <-results:
		assert.Equal(t, path, res.Source)
		require.NotNil(t, res.Document)
		assert.Equal(t, "MAT101", res.Document.Code)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the watcher")
	}

	cancel()
	require.NoError(t, <-done)
}

func TestEncode(t *testing.T) {
	doc, err := Parse(portugueseSyllabus)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, FormatYAML, doc))
	var decoded Document
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, doc.Title, decoded.Title)
	assert.Equal(t, doc.PrerequisiteGroups[0].GroupType, decoded.PrerequisiteGroups[0].GroupType)

	buf.Reset()
	require.NoError(t, Encode(&buf, FormatJSON, doc))
	assert.Contains(t, buf.String(), `"code": "MAT201"`)

	assert.Equal(t, ErrUnknownFormat, errors.Cause(Encode(&buf, "xml", doc)))
}
