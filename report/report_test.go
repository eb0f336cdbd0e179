package report_test

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thefaftek-git/CA-Scanner-sub006/model"
	"github.com/thefaftek-git/CA-Scanner-sub006/report"
)

func named(name string) *model.CanonicalPolicy {
	return &model.CanonicalPolicy{DisplayName: name, State: model.StateEnabled}
}

func sampleResults() []model.PairResult {
	return []model.PairResult{
		{
			Pair:    model.MatchPair{Source: named("Zeta"), Reference: named("Zeta"), MatchKey: "zeta"},
			Outcome: model.OutcomeDifferent,
			Diffs: []model.FieldDiff{
				{FieldPath: "state", SourceValue: "enabled", ReferenceValue: "disabled", Kind: model.DiffValueMismatch},
			},
		},
		{
			Pair:    model.MatchPair{Source: named("Alpha"), Reference: named("Alpha"), MatchKey: "alpha"},
			Outcome: model.OutcomeIdentical,
		},
		{
			Pair:    model.MatchPair{Source: named("Mid"), MatchKey: "mid"},
			Outcome: model.OutcomeSourceOnly,
		},
		{
			Pair:    model.MatchPair{Reference: named("Ref"), MatchKey: "ref"},
			Outcome: model.OutcomeReferenceOnly,
		},
		{
			Pair:    model.MatchPair{Source: named("Freq"), Reference: named("Freq"), MatchKey: "freq"},
			Outcome: model.OutcomeSemanticallyEquivalent,
		},
	}
}

func TestAggregate_CountsAndInvariant(t *testing.T) {
	result := report.Aggregate(sampleResults(), nil)

	s := result.Summary
	assert.Equal(t, 4, s.TotalSource)
	assert.Equal(t, 4, s.TotalReference)
	assert.Equal(t, 1, s.Identical)
	assert.Equal(t, 1, s.SemanticallyEquivalent)
	assert.Equal(t, 1, s.Different)
	assert.Equal(t, 1, s.SourceOnly)
	assert.Equal(t, 1, s.ReferenceOnly)

	assert.Equal(t, s.TotalSource, s.Identical+s.SemanticallyEquivalent+s.Different+s.SourceOnly)
	assert.Equal(t, s.TotalReference, s.Identical+s.SemanticallyEquivalent+s.Different+s.ReferenceOnly)
}

func TestAggregate_OrdersByMatchKey(t *testing.T) {
	result := report.Aggregate(sampleResults(), nil)

	var keys []string
	for _, pair := range result.Pairs {
		keys = append(keys, pair.Pair.MatchKey)
	}
	assert.Equal(t, []string{"alpha", "freq", "mid", "ref", "zeta"}, keys)
}

func TestAggregate_Empty(t *testing.T) {
	result := report.Aggregate(nil, nil)
	assert.Empty(t, result.Pairs)
	assert.Equal(t, model.Summary{}, result.Summary)
}

func TestForFormat(t *testing.T) {
	for _, format := range []string{"console", "json", "csv", "html"} {
		renderer, err := report.ForFormat(format)
		require.NoError(t, err)
		assert.NotNil(t, renderer)
	}
	_, err := report.ForFormat("pdf")
	assert.Error(t, err)
}

func TestConsoleRenderer(t *testing.T) {
	result := report.Aggregate(sampleResults(), []model.Diagnostic{
		{Kind: model.DiagParseError, File: "broken.json", Detail: "unexpected end of input"},
	})

	var buf bytes.Buffer
	require.NoError(t, (&report.ConsoleRenderer{}).Render(&buf, result))

	output := buf.String()
	assert.Contains(t, output, "Zeta")
	assert.Contains(t, output, "Different")
	assert.Contains(t, output, "Source policies:    4")
	assert.Contains(t, output, "broken.json")
}

func TestCSVRenderer(t *testing.T) {
	result := report.Aggregate(sampleResults(), nil)

	var buf bytes.Buffer
	require.NoError(t, (&report.CSVRenderer{}).Render(&buf, result))

	rows, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	require.NoError(t, err)

	// Header + five pair rows + one diff row.
	require.Len(t, rows, 7)
	assert.Equal(t, "policy", rows[0][0])

	var diffRows int
	for _, row := range rows[1:] {
		if row[4] != "" {
			diffRows++
			assert.Equal(t, "state", row[4])
		}
	}
	assert.Equal(t, 1, diffRows)
}

func TestJSONRenderer_RoundTrips(t *testing.T) {
	result := report.Aggregate(sampleResults(), nil)

	var buf bytes.Buffer
	require.NoError(t, (&report.JSONRenderer{}).Render(&buf, result))

	var decoded model.ComparisonResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	if diff := cmp.Diff(result.Summary, decoded.Summary); diff != "" {
		t.Errorf("summary mismatch after round trip: -want, +got:\n%s", diff)
	}
	assert.Len(t, decoded.Pairs, len(result.Pairs))
}

func TestHTMLRenderer(t *testing.T) {
	result := report.Aggregate(sampleResults(), nil)

	var buf bytes.Buffer
	require.NoError(t, (&report.HTMLRenderer{}).Render(&buf, result))

	output := buf.String()
	assert.Contains(t, output, "<title>Conditional Access Policy Comparison</title>")
	assert.Contains(t, output, "Zeta")
	assert.Contains(t, output, "SemanticallyEquivalent")
}
