// Package service wires the comparison pipeline: load both collections,
// match, compare each pair, aggregate. The pipeline owns no shared mutable
// state between pairs, so comparison fans out across a bounded errgroup
// and fans back in at the aggregator.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/thefaftek-git/CA-Scanner-sub006/adapter"
	"github.com/thefaftek-git/CA-Scanner-sub006/audit"
	"github.com/thefaftek-git/CA-Scanner-sub006/comparator"
	logger "github.com/thefaftek-git/CA-Scanner-sub006/logging"
	"github.com/thefaftek-git/CA-Scanner-sub006/matcher"
	"github.com/thefaftek-git/CA-Scanner-sub006/model"
	"github.com/thefaftek-git/CA-Scanner-sub006/report"
	"github.com/thefaftek-git/CA-Scanner-sub006/util"
)

// Options carries the per-run configuration surface of the pipeline.
type Options struct {
	Strategy                 matcher.Strategy
	CaseSensitive            bool
	CustomMappings           map[string]string
	EnableSemanticComparison bool
	EnableDetailedDiffs      bool
	Concurrency              int
}

// ComparisonService runs one comparison per call. It publishes coarse
// progress events to the bus; subscribers are optional and never block
// the pipeline.
type ComparisonService struct {
	sourceLoader    *adapter.CollectionLoader
	referenceLoader *adapter.CollectionLoader
	eventBus        *util.EventBus
	auditSvc        audit.Service
	opts            Options
}

// NewComparisonService builds the pipeline with the JSON adapter on the
// source side and the HCL adapter on the reference side.
func NewComparisonService(eventBus *util.EventBus, auditSvc audit.Service, opts Options) *ComparisonService {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	return &ComparisonService{
		sourceLoader:    adapter.NewCollectionLoader(adapter.NewJSONAdapter(), opts.Concurrency, opts.CaseSensitive),
		referenceLoader: adapter.NewCollectionLoader(adapter.NewHCLAdapter(), opts.Concurrency, opts.CaseSensitive),
		eventBus:        eventBus,
		auditSvc:        auditSvc,
		opts:            opts,
	}
}

// Run compares the JSON policies under sourceDir against the Terraform
// policies under referenceDir. Per-file problems surface as diagnostics in
// the result; only environment failures (unreadable directories) return an
// error.
func (s *ComparisonService) Run(ctx context.Context, sourceDir, referenceDir string) (*model.ComparisonResult, error) {
	startedAt := time.Now().UTC()
	runID := uuid.NewString()

	logger.Info("Comparison run starting",
		zap.String("runID", runID),
		zap.String("sourceDir", sourceDir),
		zap.String("referenceDir", referenceDir),
		zap.String("strategy", string(s.opts.Strategy)))
	s.eventBus.Publish(ctx, util.EventRunStarted, runID)

	source, reference, err := s.loadCollections(ctx, sourceDir, referenceDir)
	if err != nil {
		return nil, err
	}

	matched := matcher.Match(source.Policies, reference.Policies, matcher.Options{
		Strategy:       s.opts.Strategy,
		CaseSensitive:  s.opts.CaseSensitive,
		CustomMappings: s.opts.CustomMappings,
	})

	outcomes, err := s.comparePairs(ctx, matched.Pairs)
	if err != nil {
		return nil, err
	}

	diagnostics := make([]model.Diagnostic, 0,
		len(source.Diagnostics)+len(reference.Diagnostics)+len(matched.Diagnostics))
	diagnostics = append(diagnostics, source.Diagnostics...)
	diagnostics = append(diagnostics, reference.Diagnostics...)
	diagnostics = append(diagnostics, matched.Diagnostics...)

	result := report.Aggregate(outcomes, diagnostics)

	s.eventBus.Publish(ctx, util.EventRunCompleted, util.RunCompletedPayload{
		TotalSource:    result.Summary.TotalSource,
		TotalReference: result.Summary.TotalReference,
		Different:      result.Summary.Different,
	})

	record := audit.RunRecord{
		RunID:        runID,
		StartedAt:    startedAt,
		CompletedAt:  time.Now().UTC(),
		SourceDir:    sourceDir,
		ReferenceDir: referenceDir,
		Strategy:     string(s.opts.Strategy),
		Summary:      result.Summary,
		Diagnostics:  len(result.Diagnostics),
	}
	if err := s.auditSvc.LogRun(ctx, record); err != nil {
		// Audit is best effort; a failed write never fails the run.
		logger.Warn("Failed to write audit record", zap.Error(err), zap.String("runID", runID))
	}

	logger.Info("Comparison run completed",
		zap.String("runID", runID),
		zap.Int("totalSource", result.Summary.TotalSource),
		zap.Int("totalReference", result.Summary.TotalReference),
		zap.Int("different", result.Summary.Different))

	return result, nil
}

func (s *ComparisonService) loadCollections(ctx context.Context, sourceDir, referenceDir string) (*adapter.Collection, *adapter.Collection, error) {
	var source, reference *adapter.Collection

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		collection, err := s.sourceLoader.Load(gctx, sourceDir)
		if err != nil {
			return err
		}
		source = collection
		s.eventBus.Publish(gctx, util.EventCollectionLoaded, util.CollectionLoadedPayload{
			Role:        "source",
			Dir:         sourceDir,
			Policies:    len(collection.Policies),
			Diagnostics: len(collection.Diagnostics),
		})
		return nil
	})
	g.Go(func() error {
		collection, err := s.referenceLoader.Load(gctx, referenceDir)
		if err != nil {
			return err
		}
		reference = collection
		s.eventBus.Publish(gctx, util.EventCollectionLoaded, util.CollectionLoadedPayload{
			Role:        "reference",
			Dir:         referenceDir,
			Policies:    len(collection.Policies),
			Diagnostics: len(collection.Diagnostics),
		})
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return source, reference, nil
}

// comparePairs fans comparison out across pairs. Results land in a slice
// indexed by pair, so completion order does not matter; the aggregator
// re-orders by match key anyway.
func (s *ComparisonService) comparePairs(ctx context.Context, pairs []model.MatchPair) ([]model.PairResult, error) {
	opts := comparator.Options{
		EnableSemanticComparison: s.opts.EnableSemanticComparison,
		EnableDetailedDiffs:      s.opts.EnableDetailedDiffs,
	}

	outcomes := make([]model.PairResult, len(pairs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)
	for i := range pairs {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcomes[i] = comparator.Compare(pairs[i], opts)
			s.eventBus.Publish(gctx, util.EventPairCompared, util.PairComparedPayload{
				MatchKey: pairs[i].MatchKey,
				Outcome:  string(outcomes[i].Outcome),
			})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}
