// Package adapter normalizes format-specific policy files into the
// canonical model. One adapter per source format; the CollectionLoader
// drives either adapter over a directory of files.
package adapter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	logger "github.com/thefaftek-git/CA-Scanner-sub006/logging"
	"github.com/thefaftek-git/CA-Scanner-sub006/model"
)

// Adapter parses one file of its format into canonical policies.
type Adapter interface {
	Format() model.SourceFormat
	// Extensions lists the file extensions this adapter claims, with dots.
	Extensions() []string
	// Normalize parses a single file's content. A returned error means the
	// whole file is unusable; it becomes a ParseError diagnostic, not a
	// run failure.
	Normalize(file string, content []byte) ([]model.CanonicalPolicy, error)
}

// Collection is the normalized form of one input directory.
type Collection struct {
	Policies    []model.CanonicalPolicy
	Diagnostics []model.Diagnostic
}

// CollectionLoader reads every file an adapter claims from a directory,
// bounded by the configured parallelism. Files with other extensions are
// skipped silently; unparseable files are recorded and skipped.
type CollectionLoader struct {
	adapter       Adapter
	concurrency   int
	caseSensitive bool
}

// NewCollectionLoader builds a loader. caseSensitive governs duplicate
// detection the same way it governs matching: with it off, identifiers
// differing only by case collide.
func NewCollectionLoader(a Adapter, concurrency int, caseSensitive bool) *CollectionLoader {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &CollectionLoader{adapter: a, concurrency: concurrency, caseSensitive: caseSensitive}
}

type fileResult struct {
	file     string
	policies []model.CanonicalPolicy
	diag     *model.Diagnostic
}

// Load normalizes a directory into a Collection. A missing or unreadable
// directory is an environment error and fails the load; anything wrong
// inside a single file is a diagnostic.
func (l *CollectionLoader) Load(ctx context.Context, dir string) (*Collection, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "reading policy directory %s", dir)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if l.claims(entry.Name()) {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}

	results := make([]fileResult, len(files))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)
	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res := l.loadFile(file)
			mu.Lock()
			results[i] = res
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Results keep directory order so duplicate resolution and the final
	// report are deterministic.
	collection := &Collection{}
	seen := make(map[string]string)
	for _, res := range results {
		if res.diag != nil {
			collection.Diagnostics = append(collection.Diagnostics, *res.diag)
			continue
		}
		for _, policy := range res.policies {
			key := strings.TrimSpace(policy.Key())
			if !l.caseSensitive {
				key = strings.ToLower(key)
			}
			if key == "" {
				collection.Policies = append(collection.Policies, policy)
				continue
			}
			if first, dup := seen[key]; dup {
				collection.Diagnostics = append(collection.Diagnostics, model.Diagnostic{
					Kind:   model.DiagDuplicateIdentifier,
					File:   res.file,
					Detail: fmt.Sprintf("identifier %q already declared in %s", key, first),
				})
				continue
			}
			seen[key] = res.file
			collection.Policies = append(collection.Policies, policy)
		}
	}

	logger.Debug("Collection loaded",
		zap.String("dir", dir),
		zap.String("format", string(l.adapter.Format())),
		zap.Int("policies", len(collection.Policies)),
		zap.Int("diagnostics", len(collection.Diagnostics)))

	return collection, nil
}

func (l *CollectionLoader) loadFile(file string) fileResult {
	content, err := os.ReadFile(file)
	if err != nil {
		return fileResult{file: file, diag: &model.Diagnostic{
			Kind:   model.DiagParseError,
			File:   file,
			Detail: err.Error(),
		}}
	}

	policies, err := l.adapter.Normalize(file, content)
	if err != nil {
		logger.Warn("Skipping unparseable policy file",
			zap.String("file", file), zap.Error(err))
		return fileResult{file: file, diag: &model.Diagnostic{
			Kind:   model.DiagParseError,
			File:   file,
			Detail: err.Error(),
		}}
	}
	return fileResult{file: file, policies: policies}
}

func (l *CollectionLoader) claims(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, candidate := range l.adapter.Extensions() {
		if ext == candidate {
			return true
		}
	}
	return false
}

// NormalizeState folds the state spellings of both formats onto the
// canonical enum. Unknown spellings pass through untouched so they show
// up in diffs instead of being silently coerced.
func NormalizeState(raw string) model.PolicyState {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "enabled", "on":
		return model.StateEnabled
	case "disabled", "off":
		return model.StateDisabled
	case "enabledforreportingbutnotenforced", "reportonly", "report_only":
		return model.StateReportOnly
	}
	return model.PolicyState(raw)
}
