// Package report folds compared pairs into the final result object and
// renders it. The aggregator performs no comparison logic; renderers
// consume the result object and nothing else.
package report

import (
	"sort"

	"github.com/thefaftek-git/CA-Scanner-sub006/model"
)

// Aggregate builds the run's result from already-computed outcomes. Pairs
// are ordered by match key (then name) so the result is deterministic no
// matter what order comparisons completed in.
//
// Count invariant: TotalSource equals Identical + SemanticallyEquivalent +
// Different + SourceOnly, and symmetrically for TotalReference with
// ReferenceOnly.
func Aggregate(pairs []model.PairResult, diagnostics []model.Diagnostic) *model.ComparisonResult {
	ordered := make([]model.PairResult, len(pairs))
	copy(ordered, pairs)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Pair.MatchKey != ordered[j].Pair.MatchKey {
			return ordered[i].Pair.MatchKey < ordered[j].Pair.MatchKey
		}
		return ordered[i].Pair.DisplayName() < ordered[j].Pair.DisplayName()
	})

	result := &model.ComparisonResult{
		Pairs:       ordered,
		Diagnostics: diagnostics,
	}

	for _, pair := range ordered {
		if pair.Pair.Source != nil {
			result.Summary.TotalSource++
		}
		if pair.Pair.Reference != nil {
			result.Summary.TotalReference++
		}
		switch pair.Outcome {
		case model.OutcomeIdentical:
			result.Summary.Identical++
		case model.OutcomeSemanticallyEquivalent:
			result.Summary.SemanticallyEquivalent++
		case model.OutcomeDifferent:
			result.Summary.Different++
		case model.OutcomeSourceOnly:
			result.Summary.SourceOnly++
		case model.OutcomeReferenceOnly:
			result.Summary.ReferenceOnly++
		}
	}

	return result
}
