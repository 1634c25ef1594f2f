package syllabus

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/academictoken/registry/core"
)

// Output formats
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

const (
	defaultWorkers = 4
	resultTTL      = 7 * 24 * time.Hour
	debounce       = 300 * time.Millisecond
	cachePrefix    = "syllabus:"
)

var Extensions = []string{".txt", ".md"}

var ErrUnknownFormat = errors.New("unknown output format")

// Processor parses syllabi, caching documents by the hash of their source text.
type Processor struct {
	cache   core.Cache
	logger  core.Logger
	workers int

	mu    sync.Mutex
	stats Stats
}

type Stats struct {
	Processed int `json:"processed" yaml:"processed"`
	CacheHits int `json:"cache_hits" yaml:"cache_hits"`
	Failed    int `json:"failed" yaml:"failed"`
}

func NewProcessor(cache core.Cache, logger core.Logger, workers int) *Processor {
	if cache == nil {
		cache = core.NopCache{}
	}
	if logger == nil {
		logger = core.NopLogger{}
	}
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Processor{cache: cache, logger: logger, workers: workers}
}

func (p *Processor) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

func (p *Processor) count(res Result) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stats.Processed++
	switch {
	case res.Error != "":
		p.stats.Failed++
	case res.Cached:
		p.stats.CacheHits++
	}
}

// Parse returns the document of text, from the cache when the same text was already parsed.
func (p *Processor) Parse(ctx context.Context, text string) (Document, bool, error) {
	key, err := core.ContentHash(text)
	if err != nil {
		return Document{}, false, errors.Wrap(err, "hashing syllabus text")
	}
	key = cachePrefix + key

	var doc Document
	err = p.cache.Get(ctx, key, &doc)
	switch {
	case err == nil:
		return doc, true, nil
	case errors.Cause(err) != core.ErrCacheMiss:
		p.logger.Warn("syllabus cache read failed", err)
	}

	if doc, err = Parse(text); err != nil {
		return Document{}, false, err
	}
	if err = p.cache.Set(ctx, key, doc, resultTTL); err != nil {
		p.logger.Warn("syllabus cache write failed", err)
	}
	return doc, false, nil
}

// Process parses one named source; failures are reported in the result.
func (p *Processor) Process(ctx context.Context, source, text string) Result {
	res := Result{Source: source}
	doc, cached, err := p.Parse(ctx, text)
	if err != nil {
		res.Error = err.Error()
	} else {
		res.Document, res.Cached = &doc, cached
	}
	p.count(res)
	return res
}

func (p *Processor) ProcessFile(ctx context.Context, path string) Result {
	data, err := os.ReadFile(path)
	if err != nil {
		res := Result{Source: path, Error: errors.Wrap(err, "reading syllabus").Error()}
		p.count(res)
		return res
	}
	return p.Process(ctx, path, string(data))
}

// Batch processes the files concurrently. Results keep the order of paths.
func (p *Processor) Batch(ctx context.Context, paths []string) ([]Result, error) {
	results := make([]Result, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = p.ProcessFile(gctx, path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Files lists the syllabus files of dir, sorted by name.
func Files(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", dir)
	}
	var paths []string
	for _, e := range entries {
		if !e.IsDir() && isSyllabus(e.Name()) {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	return paths, nil
}

func isSyllabus(name string) bool {
	return core.ContainsString(Extensions, strings.ToLower(filepath.Ext(name)))
}

// Watch processes every syllabus file created or written in dir until ctx is done.
// Rapid successive writes to the same file are processed once.
func (p *Processor) Watch(ctx context.Context, dir string, handle func(Result)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "creating watcher")
	}
	defer func() { _ = watcher.Close() }()

	if err = watcher.Add(dir); err != nil {
		return errors.Wrapf(err, "watching %s", dir)
	}
	p.logger.Info("watching " + dir)

	pending := make(map[string]time.Time)
	ticker := time.NewTicker(debounce / 3)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 || !isSyllabus(ev.Name) {
				continue
			}
			pending[ev.Name] = time.Now()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			p.logger.Error("syllabus watcher", err)

		case now := <-ticker.C:
			for path, last := range pending {
				if now.Sub(last) < debounce {
					continue
				}
				delete(pending, path)
				handle(p.ProcessFile(ctx, path))
			}
		}
	}
}

// Encode writes v as indented JSON or YAML.
func Encode(w io.Writer, format string, v interface{}) error {
	switch strings.ToLower(format) {
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return errors.Wrap(enc.Encode(v), "encoding json")
	case FormatYAML, "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return errors.Wrap(err, "encoding yaml")
		}
		return errors.Wrap(enc.Close(), "encoding yaml")
	default:
		return errors.Wrap(ErrUnknownFormat, format)
	}
}
