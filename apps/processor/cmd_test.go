package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/academictoken/registry/core"
	"github.com/academictoken/registry/core/syllabus"
	cachesvc "github.com/academictoken/registry/services/cache"
)

const calculus = `MAT101 - Calculus I
Credits: 4
Workload: 60 hours

Objectives:
- Understand limits and continuity
- Compute derivatives
`

const physics = `PHY101 - Physics I
Credits: 6
Workload: 90 hours
`

// syncBuffer is written by the watcher while the test reads it.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newCLI() *commandLine {
	cache := cachesvc.NewMemoryCache()
	return &commandLine{
		logger: core.NopLogger{},
		newCache: func(context.Context) (core.Cache, func() error, error) {
			return cache, nil, nil
		},
	}
}

func execute(ctx context.Context, cli *commandLine, stdin string, args ...string) (string, string, error) {
	root := cli.rootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	return out.String(), errOut.String(), err
}

func writeFiles(t *testing.T, files map[string]string) string {
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
	}
	return dir
}

func Test_commandLine_parse(t *testing.T) {
	ctx := context.Background()
	dir := writeFiles(t, map[string]string{"calculus.txt": calculus, "physics.md": physics, "empty.txt": "  "})

	_, _, err := execute(ctx, newCLI(), "")
	assert.Equal(t, errHelp, err)
	_, _, err = execute(ctx, newCLI(), "", "parse")
	assert.Error(t, err)

	out, _, err := execute(ctx, newCLI(), "", "parse", filepath.Join(dir, "calculus.txt"), filepath.Join(dir, "physics.md"))
	require.NoError(t, err)
	var results []syllabus.Result
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 2)
	assert.Equal(t, "MAT101", results[0].Document.Code)
	assert.Equal(t, "PHY101", results[1].Document.Code)
	assert.Equal(t, uint64(6), results[1].Document.Credits)

	out, _, err = execute(ctx, newCLI(), "", "parse", filepath.Join(dir, "calculus.txt"), filepath.Join(dir, "empty.txt"))
	assert.EqualError(t, err, "1 of 2 syllabi failed")
	var partial []syllabus.Result
	require.NoError(t, json.Unmarshal([]byte(out), &partial))
	require.Len(t, partial, 2)
	assert.NotEmpty(t, partial[1].Error)
	assert.Nil(t, partial[1].Document)
}

func Test_commandLine_parseStdin(t *testing.T) {
	out, _, err := execute(context.Background(), newCLI(), calculus, "parse", "-", "--format", "yaml")
	require.NoError(t, err)

	var res syllabus.Result
	require.NoError(t, yaml.Unmarshal([]byte(out), &res))
	assert.Equal(t, "stdin", res.Source)
	assert.Contains(t, out, "code: MAT101")

	_, _, err = execute(context.Background(), newCLI(), calculus, "parse", "-", "--format", "xml")
	assert.Error(t, err)
}

func Test_commandLine_dir(t *testing.T) {
	ctx := context.Background()
	dir := writeFiles(t, map[string]string{"a.txt": calculus, "b.txt": calculus, "notes.pdf": "ignored"})
	cli := newCLI()

	out, errOut, err := execute(ctx, cli, "", "dir", dir, "--stats", "--workers", "1")
	require.NoError(t, err)
	var results []syllabus.Result
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 2)
	assert.Equal(t, results[0].Document.ContentHash, results[1].Document.ContentHash)

	var stats syllabus.Stats
	require.NoError(t, json.Unmarshal([]byte(errOut), &stats))
	assert.Equal(t, 2, stats.Processed)
	assert.Equal(t, 1, stats.CacheHits, "same text twice")

	// the cache outlives one command
	out, _, err = execute(ctx, cli, "", "dir", dir)
	require.NoError(t, err)
	var again []syllabus.Result
	require.NoError(t, json.Unmarshal([]byte(out), &again))
	require.Len(t, again, 2)
	assert.True(t, again[0].Cached)
	assert.True(t, again[1].Cached)

	_, errOut, err = execute(ctx, newCLI(), "", "dir", dir, "--no-cache", "--stats")
	require.NoError(t, err)
	var uncached syllabus.Stats
	require.NoError(t, json.Unmarshal([]byte(errOut), &uncached))
	assert.Equal(t, syllabus.Stats{Processed: 2}, uncached)

	_, _, err = execute(ctx, newCLI(), "", "dir", filepath.Join(dir, "lol"))
	assert.Error(t, err)
}

func Test_commandLine_watch(t *testing.T) {
	dir := t.TempDir()
	cli := newCLI()

	_, _, err := execute(context.Background(), cli, "", "watch", filepath.Join(dir, "lol"))
	assert.EqualError(t, err, filepath.Join(dir, "lol")+" is not a directory")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	root := cli.rootCmd()
	out := &syncBuffer{}
	root.SetOut(out)
	root.SetArgs([]string{"watch", dir})
	done := make(chan error, 1)
	go func() { done <- root.ExecuteContext(ctx) }()

	// the watcher starts asynchronously; keep rewriting, slower than the debounce, until it notices
	path := filepath.Join(dir, "calculus.txt")
	require.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte(calculus), 0o600)
		return strings.Contains(out.String(), `"code": "MAT101"`)
	}, 5*time.Second, 500*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop with its context")
	}
}
