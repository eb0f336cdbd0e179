package service_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/thefaftek-git/CA-Scanner-sub006/audit"
	"github.com/thefaftek-git/CA-Scanner-sub006/logging"
	"github.com/thefaftek-git/CA-Scanner-sub006/matcher"
	"github.com/thefaftek-git/CA-Scanner-sub006/model"
	"github.com/thefaftek-git/CA-Scanner-sub006/service"
	mock_audit "github.com/thefaftek-git/CA-Scanner-sub006/test/mock"
	"github.com/thefaftek-git/CA-Scanner-sub006/util"
)

func TestMain(m *testing.M) {
	logging.InitLogger("error")
	os.Exit(m.Run())
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func defaultOptions() service.Options {
	return service.Options{
		Strategy:                 matcher.StrategyByName,
		CaseSensitive:            false,
		EnableSemanticComparison: true,
		EnableDetailedDiffs:      true,
		Concurrency:              4,
	}
}

// The canonical three-policy scenario: one identical pair, one pair that
// differs in state, one source-only policy and one reference-only policy.
func TestComparisonService_Run(t *testing.T) {
	sourceDir := t.TempDir()
	referenceDir := t.TempDir()

	writeFile(t, sourceDir, "require_mfa.json", `{
		"Id": "aaa-111",
		"DisplayName": "Require MFA",
		"State": "enabled",
		"Conditions": {
			"Applications": {"IncludeApplications": ["All"]},
			"Users": {"IncludeUsers": ["All"]}
		},
		"GrantControls": {"Operator": "OR", "BuiltInControls": ["mfa"]}
	}`)
	writeFile(t, sourceDir, "block_legacy.json", `{
		"Id": "bbb-222",
		"DisplayName": "Block Legacy",
		"State": "enabled",
		"Conditions": {
			"Users": {"IncludeUsers": ["All"]},
			"ClientAppTypes": ["exchangeActiveSync", "other"]
		},
		"GrantControls": {"Operator": "OR", "BuiltInControls": ["block"]}
	}`)
	writeFile(t, sourceDir, "source_only.json", `{
		"Id": "ccc-333",
		"DisplayName": "Source Only",
		"State": "enabled"
	}`)

	writeFile(t, referenceDir, "require_mfa.tf", `
resource "azuread_conditional_access_policy" "require_mfa" {
  display_name = "require mfa"
  state        = "enabled"

  conditions {
    applications {
      included_applications = ["All"]
    }
    users {
      included_users = ["All"]
    }
  }

  grant_controls {
    operator          = "OR"
    built_in_controls = ["mfa"]
  }
}
`)
	writeFile(t, referenceDir, "block_legacy.tf", `
resource "azuread_conditional_access_policy" "block_legacy" {
  display_name = "Block Legacy"
  state        = "disabled"

  conditions {
    client_app_types = ["other", "exchangeActiveSync"]
    users {
      included_users = ["All"]
    }
  }

  grant_controls {
    operator          = "OR"
    built_in_controls = ["block"]
  }
}
`)
	writeFile(t, referenceDir, "reference_only.tf", `
resource "azuread_conditional_access_policy" "reference_only" {
  display_name = "Reference Only"
  state        = "enabled"
}
`)

	ctx := context.Background()
	eventBus := util.NewEventBus()
	eventBus.Start(ctx)

	var progressMu sync.Mutex
	compared := 0
	eventBus.Subscribe(util.EventPairCompared, func(ctx context.Context, event util.Event) error {
		progressMu.Lock()
		compared++
		progressMu.Unlock()
		return nil
	})

	auditSvc := new(mock_audit.MockAuditService)
	auditSvc.On("LogRun", mock.Anything, mock.MatchedBy(func(record audit.RunRecord) bool {
		return record.Summary.TotalSource == 3 && record.Summary.Different == 1
	})).Return(nil)

	svc := service.NewComparisonService(eventBus, auditSvc, defaultOptions())

	result, err := svc.Run(ctx, sourceDir, referenceDir)
	require.NoError(t, err)
	eventBus.Drain()

	s := result.Summary
	assert.Equal(t, 3, s.TotalSource)
	assert.Equal(t, 3, s.TotalReference)
	assert.Equal(t, 1, s.Identical)
	assert.Equal(t, 0, s.SemanticallyEquivalent)
	assert.Equal(t, 1, s.Different)
	assert.Equal(t, 1, s.SourceOnly)
	assert.Equal(t, 1, s.ReferenceOnly)

	outcomes := make(map[string]model.ComparisonOutcome)
	for _, pair := range result.Pairs {
		outcomes[pair.Pair.MatchKey] = pair.Outcome
	}
	assert.Equal(t, model.OutcomeIdentical, outcomes["require mfa"])
	assert.Equal(t, model.OutcomeDifferent, outcomes["block legacy"])
	assert.Equal(t, model.OutcomeSourceOnly, outcomes["source only"])
	assert.Equal(t, model.OutcomeReferenceOnly, outcomes["reference only"])

	for _, pair := range result.Pairs {
		if pair.Outcome != model.OutcomeDifferent {
			continue
		}
		require.Len(t, pair.Diffs, 1)
		assert.Equal(t, "state", pair.Diffs[0].FieldPath)
	}

	progressMu.Lock()
	assert.Equal(t, 4, compared)
	progressMu.Unlock()

	auditSvc.AssertExpectations(t)
}

func TestComparisonService_EmptyDirectories(t *testing.T) {
	eventBus := util.NewEventBus()
	eventBus.Start(context.Background())

	auditSvc := new(mock_audit.MockAuditService)
	auditSvc.On("LogRun", mock.Anything, mock.Anything).Return(nil)

	svc := service.NewComparisonService(eventBus, auditSvc, defaultOptions())
	result, err := svc.Run(context.Background(), t.TempDir(), t.TempDir())
	require.NoError(t, err)

	assert.Empty(t, result.Pairs)
	assert.Equal(t, model.Summary{}, result.Summary)
}

func TestComparisonService_ParseFailureDoesNotAbortRun(t *testing.T) {
	sourceDir := t.TempDir()
	referenceDir := t.TempDir()

	writeFile(t, sourceDir, "good.json", `{"Id": "a", "DisplayName": "Good", "State": "enabled"}`)
	writeFile(t, sourceDir, "bad.json", `{"Id": "b",`)
	writeFile(t, referenceDir, "good.tf", `
resource "azuread_conditional_access_policy" "good" {
  display_name = "Good"
  state        = "enabled"
}
`)

	eventBus := util.NewEventBus()
	eventBus.Start(context.Background())
	auditSvc := new(mock_audit.MockAuditService)
	auditSvc.On("LogRun", mock.Anything, mock.Anything).Return(nil)

	svc := service.NewComparisonService(eventBus, auditSvc, defaultOptions())
	result, err := svc.Run(context.Background(), sourceDir, referenceDir)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Summary.TotalSource)
	require.Len(t, result.Diagnostics, 1)
	assert.Equal(t, model.DiagParseError, result.Diagnostics[0].Kind)
}

func TestComparisonService_AuditFailureIsNotFatal(t *testing.T) {
	sourceDir := t.TempDir()
	referenceDir := t.TempDir()

	eventBus := util.NewEventBus()
	eventBus.Start(context.Background())
	auditSvc := new(mock_audit.MockAuditService)
	auditSvc.On("LogRun", mock.Anything, mock.Anything).Return(assert.AnError)

	svc := service.NewComparisonService(eventBus, auditSvc, defaultOptions())
	_, err := svc.Run(context.Background(), sourceDir, referenceDir)
	assert.NoError(t, err)
}
