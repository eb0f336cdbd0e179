package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	flags "github.com/jessevdk/go-flags"
	"go.uber.org/zap"

	"github.com/thefaftek-git/CA-Scanner-sub006/audit"
	"github.com/thefaftek-git/CA-Scanner-sub006/config"
	logger "github.com/thefaftek-git/CA-Scanner-sub006/logging"
	"github.com/thefaftek-git/CA-Scanner-sub006/matcher"
	"github.com/thefaftek-git/CA-Scanner-sub006/report"
	"github.com/thefaftek-git/CA-Scanner-sub006/service"
	"github.com/thefaftek-git/CA-Scanner-sub006/util"
)

type cliOptions struct {
	SourceDir    string `short:"s" long:"source" description:"Directory of JSON policy exports" required:"true"`
	ReferenceDir string `short:"r" long:"reference" description:"Directory of Terraform policy files" required:"true"`
	Strategy     string `long:"strategy" description:"Matching strategy" choice:"ByIdentifier" choice:"ByName" choice:"CustomMapping"`
	IgnoreCase   bool   `long:"ignore-case" description:"Match identifiers and names case-insensitively"`
	MappingFile  string `long:"mappings" description:"JSON file mapping source policies to reference policies"`
	Exact        bool   `long:"exact" description:"Disable semantic equivalence rules; only exact structural equality counts"`
	NoDetails    bool   `long:"no-details" description:"Omit field-level difference records from the report"`
	Format       string `long:"format" description:"Report format" choice:"console" choice:"json" choice:"csv" choice:"html"`
	Output       string `short:"o" long:"output" description:"Report file (default stdout)"`
	Quiet        bool   `short:"q" long:"quiet" description:"Suppress progress output"`
}

func main() {
	var opts cliOptions
	if _, err := flags.Parse(&opts); err != nil {
		if flags.WroteHelp(err) {
			return
		}
		os.Exit(2)
	}

	// Initialize configuration
	if err := config.InitConfig(); err != nil {
		log.Fatalf("Failed to initialize config: %v", err)
	}
	cfg := config.GetConfig()
	applyFlags(cfg, &opts)

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Initialize logger
	logger.InitLogger(cfg.Log.Level)
	defer logger.Sync()

	strategy, err := matcher.ParseStrategy(cfg.Scan.Strategy)
	if err != nil {
		logger.Fatal("Invalid matching strategy", zap.String("strategy", cfg.Scan.Strategy))
	}

	// Initialize EventBus
	eventBus := util.NewEventBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	eventBus.Start(ctx)
	if !opts.Quiet {
		subscribeProgress(eventBus)
	}

	var auditSvc audit.Service = audit.NopService{}
	if cfg.Audit.Enabled {
		auditSvc = audit.NewService(audit.NewFileRepository(cfg.Audit.Path))
	}

	comparisonSvc := service.NewComparisonService(eventBus, auditSvc, service.Options{
		Strategy:                 strategy,
		CaseSensitive:            cfg.Scan.CaseSensitive,
		CustomMappings:           cfg.Scan.CustomMappings,
		EnableSemanticComparison: cfg.Scan.EnableSemanticComparison,
		EnableDetailedDiffs:      cfg.Scan.EnableDetailedDiffs,
		Concurrency:              cfg.Scan.Concurrency,
	})

	result, err := comparisonSvc.Run(ctx, cfg.Scan.SourceDir, cfg.Scan.ReferenceDir)
	if err != nil {
		logger.Fatal("Comparison run failed", zap.Error(err))
	}
	eventBus.Drain()

	renderer, err := report.ForFormat(cfg.Report.Format)
	if err != nil {
		logger.Fatal("Unsupported report format", zap.String("format", cfg.Report.Format))
	}

	out := os.Stdout
	if cfg.Report.Output != "" {
		file, err := os.Create(cfg.Report.Output)
		if err != nil {
			logger.Fatal("Failed to create report file", zap.Error(err))
		}
		defer file.Close()
		out = file
	}
	if err := renderer.Render(out, result); err != nil {
		logger.Fatal("Failed to render report", zap.Error(err))
	}

	// Non-zero exit when drift was found, so CI can gate on it.
	if result.Summary.Different+result.Summary.SourceOnly+result.Summary.ReferenceOnly > 0 {
		os.Exit(1)
	}
}

func applyFlags(cfg *config.Configuration, opts *cliOptions) {
	cfg.Scan.SourceDir = opts.SourceDir
	cfg.Scan.ReferenceDir = opts.ReferenceDir
	if opts.Strategy != "" {
		cfg.Scan.Strategy = opts.Strategy
	}
	if opts.IgnoreCase {
		cfg.Scan.CaseSensitive = false
	}
	if opts.Exact {
		cfg.Scan.EnableSemanticComparison = false
	}
	if opts.NoDetails {
		cfg.Scan.EnableDetailedDiffs = false
	}
	if opts.Format != "" {
		cfg.Report.Format = opts.Format
	}
	if opts.Output != "" {
		cfg.Report.Output = opts.Output
	}
	if opts.MappingFile != "" {
		mappings, err := loadMappings(opts.MappingFile)
		if err != nil {
			log.Fatalf("Failed to load mapping file: %v", err)
		}
		cfg.Scan.CustomMappings = mappings
	}
}

func loadMappings(path string) (map[string]string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	mappings := make(map[string]string)
	if err := json.Unmarshal(content, &mappings); err != nil {
		return nil, err
	}
	return mappings, nil
}

func subscribeProgress(eventBus *util.EventBus) {
	eventBus.Subscribe(util.EventCollectionLoaded, func(ctx context.Context, event util.Event) error {
		payload := event.Payload.(util.CollectionLoadedPayload)
		fmt.Fprintf(os.Stderr, "loaded %d %s policies from %s (%d diagnostics)\n",
			payload.Policies, payload.Role, payload.Dir, payload.Diagnostics)
		return nil
	})
	eventBus.Subscribe(util.EventRunCompleted, func(ctx context.Context, event util.Event) error {
		payload := event.Payload.(util.RunCompletedPayload)
		fmt.Fprintf(os.Stderr, "compared %d source against %d reference policies, %d different\n",
			payload.TotalSource, payload.TotalReference, payload.Different)
		return nil
	})
}
