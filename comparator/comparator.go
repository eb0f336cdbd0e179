// Package comparator computes the per-pair structural diff. The walk is
// driven by the canonical schema, field by field with dotted paths, never
// by reflection over the raw formats. Comparison is deterministic and free
// of side effects, so pairs can be compared concurrently.
package comparator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/thefaftek-git/CA-Scanner-sub006/model"
)

// Options toggles the two comparison refinements. With semantic comparison
// off, only exact structural equality is recognized and the
// SemanticallyEquivalent outcome is never produced. With detailed diffs
// off, outcomes are computed as usual but field-level records are dropped
// from the result.
type Options struct {
	EnableSemanticComparison bool
	EnableDetailedDiffs      bool
}

// Compare classifies one matched pair. One-sided pairs inherit their
// outcome from the pair shape without any field comparison.
func Compare(pair model.MatchPair, opts Options) model.PairResult {
	if pair.Source == nil {
		return model.PairResult{Pair: pair, Outcome: model.OutcomeReferenceOnly}
	}
	if pair.Reference == nil {
		return model.PairResult{Pair: pair, Outcome: model.OutcomeSourceOnly}
	}

	w := &walker{opts: opts}
	w.comparePolicies(pair.Source, pair.Reference)

	result := model.PairResult{Pair: pair}
	switch {
	case len(w.diffs) > 0:
		result.Outcome = model.OutcomeDifferent
	case w.semanticHits > 0:
		result.Outcome = model.OutcomeSemanticallyEquivalent
	default:
		result.Outcome = model.OutcomeIdentical
	}
	if opts.EnableDetailedDiffs {
		result.Diffs = w.diffs
	}
	return result
}

type walker struct {
	opts  Options
	diffs []model.FieldDiff

	// semanticHits counts fields whose values matched only through an
	// equivalence rule. Canonicalization (set order, enum casing,
	// defaults) does not count; it distinguishes Identical from
	// SemanticallyEquivalent.
	semanticHits int
}

func (w *walker) comparePolicies(src, ref *model.CanonicalPolicy) {
	w.foldedString("displayName", src.DisplayName, ref.DisplayName)
	w.enumString("state", string(src.State), string(ref.State))

	w.compareConditions("conditions", &src.Conditions, &ref.Conditions)
	w.compareGrantControls("grantControls", src.GrantControls, ref.GrantControls)
	w.compareSessionControls("sessionControls", src.SessionControls, ref.SessionControls)
}

func (w *walker) compareConditions(path string, src, ref *model.Conditions) {
	w.stringSet(path+".applications.include", src.Applications.Include, ref.Applications.Include)
	w.stringSet(path+".applications.exclude", src.Applications.Exclude, ref.Applications.Exclude)
	w.stringSet(path+".applications.includeUserActions", src.Applications.IncludeUserActions, ref.Applications.IncludeUserActions)

	w.stringSet(path+".users.includeUsers", src.Users.IncludeUsers, ref.Users.IncludeUsers)
	w.stringSet(path+".users.excludeUsers", src.Users.ExcludeUsers, ref.Users.ExcludeUsers)
	w.stringSet(path+".users.includeGroups", src.Users.IncludeGroups, ref.Users.IncludeGroups)
	w.stringSet(path+".users.excludeGroups", src.Users.ExcludeGroups, ref.Users.ExcludeGroups)
	w.stringSet(path+".users.includeRoles", src.Users.IncludeRoles, ref.Users.IncludeRoles)
	w.stringSet(path+".users.excludeRoles", src.Users.ExcludeRoles, ref.Users.ExcludeRoles)

	w.stringSet(path+".clientAppTypes", src.ClientAppTypes, ref.ClientAppTypes)

	w.stringSet(path+".locations.include", src.Locations.Include, ref.Locations.Include)
	w.stringSet(path+".locations.exclude", src.Locations.Exclude, ref.Locations.Exclude)

	w.stringSet(path+".platforms.include", src.Platforms.Include, ref.Platforms.Include)
	w.stringSet(path+".platforms.exclude", src.Platforms.Exclude, ref.Platforms.Exclude)

	w.stringSet(path+".signInRiskLevels", src.SignInRiskLevels, ref.SignInRiskLevels)
	w.stringSet(path+".userRiskLevels", src.UserRiskLevels, ref.UserRiskLevels)

	w.compareDeviceFilter(path+".deviceFilter", src.DeviceFilter, ref.DeviceFilter)
}

func (w *walker) compareDeviceFilter(path string, src, ref *model.DeviceFilter) {
	if src == nil && ref == nil {
		return
	}
	if src == nil {
		w.record(path, nil, *ref, model.DiffMissingInSource)
		return
	}
	if ref == nil {
		w.record(path, *src, nil, model.DiffMissingInReference)
		return
	}
	w.enumString(path+".mode", src.Mode, ref.Mode)
	// Filter rules are expressions; compared verbatim.
	w.exactString(path+".rule", src.Rule, ref.Rule)
}

func (w *walker) compareGrantControls(path string, src, ref *model.GrantControls) {
	if src == nil && ref == nil {
		return
	}
	if src == nil {
		w.record(path, nil, *ref, model.DiffMissingInSource)
		return
	}
	if ref == nil {
		w.record(path, *src, nil, model.DiffMissingInReference)
		return
	}
	w.enumString(path+".operator", src.Operator, ref.Operator)
	w.stringSet(path+".builtInControls", src.BuiltInControls, ref.BuiltInControls)
	w.stringSet(path+".customAuthenticationFactors", src.CustomAuthenticationFactors, ref.CustomAuthenticationFactors)
	w.stringSet(path+".termsOfUse", src.TermsOfUse, ref.TermsOfUse)
}

func (w *walker) compareSessionControls(path string, src, ref *model.SessionControls) {
	// Absent session controls equal all-defaults; compare through an
	// empty value rather than short-circuiting so a single configured
	// flag on one side is reported at its own path.
	if src == nil {
		src = &model.SessionControls{}
	}
	if ref == nil {
		ref = &model.SessionControls{}
	}

	w.compareSignInFrequency(path+".signInFrequency", src.SignInFrequency, ref.SignInFrequency)
	w.comparePersistentBrowser(path+".persistentBrowser", src.PersistentBrowser, ref.PersistentBrowser)
	w.compareToggle(path+".applicationEnforcedRestrictions", src.ApplicationEnforcedRestrictions, ref.ApplicationEnforcedRestrictions)
	w.compareCloudAppSecurity(path+".cloudAppSecurity", src.CloudAppSecurity, ref.CloudAppSecurity)
}

func (w *walker) compareSignInFrequency(path string, src, ref *model.SignInFrequency) {
	srcEnabled := src != nil && src.Enabled
	refEnabled := ref != nil && ref.Enabled
	if !srcEnabled && !refEnabled {
		return
	}
	if srcEnabled != refEnabled {
		w.recordPresence(path, src, ref)
		return
	}

	// Non-literal declarations compare as text; "var.freq" on both sides
	// matches, anything else is a real mismatch.
	if src.Expression != "" || ref.Expression != "" {
		if src.Expression == ref.Expression {
			return
		}
		w.record(path, renderFrequency(src), renderFrequency(ref), model.DiffValueMismatch)
		return
	}

	if strings.EqualFold(src.Unit, ref.Unit) && src.Value == ref.Value {
		return
	}

	// Different unit or value: equivalent iff the elapsed times resolve
	// equal, e.g. 8 hours vs 480 minutes.
	if w.opts.EnableSemanticComparison {
		srcMinutes, okSrc := frequencyMinutes(src)
		refMinutes, okRef := frequencyMinutes(ref)
		if okSrc && okRef && srcMinutes == refMinutes {
			w.semanticHits++
			return
		}
	}
	w.record(path, renderFrequency(src), renderFrequency(ref), model.DiffValueMismatch)
}

func (w *walker) comparePersistentBrowser(path string, src, ref *model.PersistentBrowser) {
	srcEnabled := src != nil && src.Enabled
	refEnabled := ref != nil && ref.Enabled
	if !srcEnabled && !refEnabled {
		return
	}
	if srcEnabled != refEnabled {
		w.recordPresence(path, src, ref)
		return
	}
	w.enumString(path+".mode", src.Mode, ref.Mode)
}

func (w *walker) compareToggle(path string, src, ref *model.Toggle) {
	srcEnabled := src != nil && src.Enabled
	refEnabled := ref != nil && ref.Enabled
	if srcEnabled != refEnabled {
		w.recordPresence(path, src, ref)
		return
	}
	if !srcEnabled {
		return
	}
	if src.Expression == ref.Expression {
		return
	}
	w.record(path, toggleValue(src), toggleValue(ref), model.DiffValueMismatch)
}

func toggleValue(t *model.Toggle) any {
	if t.Expression != "" {
		return t.Expression
	}
	return t.Enabled
}

func (w *walker) compareCloudAppSecurity(path string, src, ref *model.CloudAppSecurity) {
	srcEnabled := src != nil && src.Enabled
	refEnabled := ref != nil && ref.Enabled
	if !srcEnabled && !refEnabled {
		return
	}
	if srcEnabled != refEnabled {
		w.recordPresence(path, src, ref)
		return
	}
	w.enumString(path+".mode", src.Mode, ref.Mode)
}

// stringSet compares two list-valued fields under set semantics: trimmed,
// de-duplicated, order-insensitive. The "All" sentinel is equivalent across
// casings only when both sides are literally the sentinel; a sentinel on
// one side and an enumeration that may cover everything on the other is a
// real difference.
func (w *walker) stringSet(path string, src, ref []string) {
	srcSet := canonicalSet(src)
	refSet := canonicalSet(ref)
	if equalSlices(srcSet, refSet) {
		return
	}

	if w.opts.EnableSemanticComparison && isAllSentinel(srcSet) && isAllSentinel(refSet) {
		w.semanticHits++
		return
	}

	kind := model.DiffValueMismatch
	switch {
	case len(srcSet) == 0:
		kind = model.DiffMissingInSource
	case len(refSet) == 0:
		kind = model.DiffMissingInReference
	}
	w.record(path, srcSet, refSet, kind)
}

// enumString compares enumeration-valued fields; casing is cosmetic.
func (w *walker) enumString(path, src, ref string) {
	if strings.EqualFold(strings.TrimSpace(src), strings.TrimSpace(ref)) {
		return
	}
	w.recordString(path, src, ref)
}

// foldedString compares free-form names; trimming and casing are cosmetic.
func (w *walker) foldedString(path, src, ref string) {
	if strings.EqualFold(strings.TrimSpace(src), strings.TrimSpace(ref)) {
		return
	}
	w.recordString(path, src, ref)
}

func (w *walker) exactString(path, src, ref string) {
	if strings.TrimSpace(src) == strings.TrimSpace(ref) {
		return
	}
	w.recordString(path, src, ref)
}

func (w *walker) recordString(path, src, ref string) {
	kind := model.DiffValueMismatch
	switch {
	case src == "":
		kind = model.DiffMissingInSource
	case ref == "":
		kind = model.DiffMissingInReference
	}
	w.record(path, src, ref, kind)
}

// recordPresence reports a nested optional setting configured on only one
// side.
func (w *walker) recordPresence(path string, src, ref any) {
	if isNilOrDisabled(src) {
		w.record(path, nil, ref, model.DiffMissingInSource)
		return
	}
	w.record(path, src, nil, model.DiffMissingInReference)
}

func (w *walker) record(path string, src, ref any, kind model.DifferenceKind) {
	w.diffs = append(w.diffs, model.FieldDiff{
		FieldPath:      path,
		SourceValue:    src,
		ReferenceValue: ref,
		Kind:           kind,
	})
}

func canonicalSet(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func equalSlices(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func isAllSentinel(set []string) bool {
	return len(set) == 1 && strings.EqualFold(set[0], model.AllSentinel)
}

// frequencyMinutes resolves a sign-in frequency to whole minutes. Seconds
// that do not divide evenly cannot equal any whole-minute setting, so they
// resolve through a minutes-scaled representation.
func frequencyMinutes(f *model.SignInFrequency) (int64, bool) {
	v := int64(f.Value)
	switch strings.ToLower(strings.TrimSpace(f.Unit)) {
	case "days":
		return v * 24 * 60, true
	case "hours":
		return v * 60, true
	case "minutes":
		return v, true
	case "seconds":
		if v%60 != 0 {
			return 0, false
		}
		return v / 60, true
	}
	return 0, false
}

func renderFrequency(f *model.SignInFrequency) string {
	if f.Expression != "" {
		return f.Expression
	}
	return fmt.Sprintf("%d %s", f.Value, strings.ToLower(f.Unit))
}

func isNilOrDisabled(v any) bool {
	switch t := v.(type) {
	case *model.SignInFrequency:
		return t == nil || !t.Enabled
	case *model.PersistentBrowser:
		return t == nil || !t.Enabled
	case *model.Toggle:
		return t == nil || !t.Enabled
	case *model.CloudAppSecurity:
		return t == nil || !t.Enabled
	}
	return v == nil
}
