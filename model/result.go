package model

// MatchConfidence records how a pair was formed.
type MatchConfidence string

const (
	ConfidenceExact           MatchConfidence = "exact"
	ConfidenceHeuristic       MatchConfidence = "heuristic"
	ConfidenceExplicitMapping MatchConfidence = "explicit-mapping"
)

// MatchPair joins a source policy with its reference counterpart. At most
// one side may be nil, never both.
type MatchPair struct {
	Source     *CanonicalPolicy `json:"source,omitempty"`
	Reference  *CanonicalPolicy `json:"reference,omitempty"`
	MatchKey   string           `json:"match_key"`
	Confidence MatchConfidence  `json:"confidence"`

	// Reason is set when the pair shape needs explaining, e.g. a custom
	// mapping whose reference target did not exist.
	Reason string `json:"reason,omitempty"`
}

// DisplayName picks a human-readable name for whichever side is present.
func (p *MatchPair) DisplayName() string {
	if p.Source != nil {
		return p.Source.DisplayName
	}
	if p.Reference != nil {
		return p.Reference.DisplayName
	}
	return ""
}

// ComparisonOutcome classifies a compared pair.
type ComparisonOutcome string

const (
	OutcomeIdentical              ComparisonOutcome = "Identical"
	OutcomeSemanticallyEquivalent ComparisonOutcome = "SemanticallyEquivalent"
	OutcomeDifferent              ComparisonOutcome = "Different"
	OutcomeSourceOnly             ComparisonOutcome = "SourceOnly"
	OutcomeReferenceOnly          ComparisonOutcome = "ReferenceOnly"
)

// DifferenceKind classifies one field-level difference.
type DifferenceKind string

const (
	DiffValueMismatch      DifferenceKind = "ValueMismatch"
	DiffMissingInSource    DifferenceKind = "MissingInSource"
	DiffMissingInReference DifferenceKind = "MissingInReference"
	DiffTypeMismatch       DifferenceKind = "TypeMismatch"
)

// FieldDiff is one surviving difference at a dotted field path.
type FieldDiff struct {
	FieldPath      string         `json:"field_path"`
	SourceValue    any            `json:"source_value"`
	ReferenceValue any            `json:"reference_value"`
	Kind           DifferenceKind `json:"kind"`
}

// PairResult is a matched pair with its computed outcome.
type PairResult struct {
	Pair    MatchPair         `json:"pair"`
	Outcome ComparisonOutcome `json:"outcome"`
	Diffs   []FieldDiff       `json:"diffs,omitempty"`
}

// DiagnosticKind classifies a non-fatal problem recorded during a run.
type DiagnosticKind string

const (
	DiagParseError           DiagnosticKind = "ParseError"
	DiagDuplicateIdentifier  DiagnosticKind = "DuplicateIdentifier"
	DiagMissingMappingTarget DiagnosticKind = "MissingMappingTarget"
)

// Diagnostic records a skipped file or excluded policy. Diagnostics never
// abort a run; they surface in the result for reporting.
type Diagnostic struct {
	Kind   DiagnosticKind `json:"kind"`
	File   string         `json:"file,omitempty"`
	Detail string         `json:"detail"`
}

// Summary holds the aggregate counts for a run.
type Summary struct {
	TotalSource            int `json:"total_source"`
	TotalReference         int `json:"total_reference"`
	Identical              int `json:"identical"`
	SemanticallyEquivalent int `json:"semantically_equivalent"`
	Different              int `json:"different"`
	SourceOnly             int `json:"source_only"`
	ReferenceOnly          int `json:"reference_only"`
}

// ComparisonResult is the sole contract surfaced to report renderers.
// Pairs are ordered by match key; it carries no presentation formatting.
type ComparisonResult struct {
	Pairs       []PairResult `json:"pairs"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
	Summary     Summary      `json:"summary"`
}
