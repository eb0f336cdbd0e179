// Package matcher pairs source-side policies with reference-side policies.
// The strategy set is closed: a switch drives dispatch and each strategy is
// one pure function, so an unhandled strategy is unreachable rather than a
// runtime type error.
package matcher

import (
	"sort"
	"strings"

	scan_errors "github.com/thefaftek-git/CA-Scanner-sub006/errors"
	"github.com/thefaftek-git/CA-Scanner-sub006/model"
)

// Strategy selects how policies are paired. Chosen once per run.
type Strategy string

const (
	StrategyByIdentifier  Strategy = "ByIdentifier"
	StrategyByName        Strategy = "ByName"
	StrategyCustomMapping Strategy = "CustomMapping"
)

// ParseStrategy converts a configuration string into a Strategy.
func ParseStrategy(raw string) (Strategy, error) {
	switch Strategy(raw) {
	case StrategyByIdentifier, StrategyByName, StrategyCustomMapping:
		return Strategy(raw), nil
	}
	return "", scan_errors.ErrInvalidStrategy
}

// Options configures a matching run.
//
// Keys are trimmed before comparison and lower-cased when CaseSensitive is
// false. Unicode normalization is deliberately not performed; names that
// differ only by normalization form will not match.
type Options struct {
	Strategy      Strategy
	CaseSensitive bool
	// CustomMappings maps a source policy id or display name to the
	// reference policy's id, display name, or file base name. Only
	// consulted under StrategyCustomMapping.
	CustomMappings map[string]string
}

// Result carries the pairs plus any diagnostics recorded while matching
// (currently only missing custom-mapping targets).
type Result struct {
	Pairs       []model.MatchPair
	Diagnostics []model.Diagnostic
}

// Match pairs the two collections. Every input policy appears in exactly
// one pair; unpaired policies become SourceOnly/ReferenceOnly pairs. Pair
// order follows source input order, then leftover reference order, so the
// output is deterministic for a given input.
func Match(source, reference []model.CanonicalPolicy, opts Options) Result {
	switch opts.Strategy {
	case StrategyByIdentifier:
		return matchByIdentifier(source, reference, opts)
	case StrategyByName:
		return matchByName(source, reference, opts)
	case StrategyCustomMapping:
		return matchByCustomMapping(source, reference, opts)
	}
	// Validated at configuration time; an unknown strategy cannot reach
	// this point through the public entry points.
	return Result{}
}

func matchByIdentifier(source, reference []model.CanonicalPolicy, opts Options) Result {
	byID := make(map[string][]int)
	for i := range reference {
		key := normalizeKey(reference[i].ID, opts.CaseSensitive)
		if key != "" {
			byID[key] = append(byID[key], i)
		}
	}

	var result Result
	claimed := make(map[int]bool)
	for i := range source {
		policy := &source[i]
		key := normalizeKey(policy.ID, opts.CaseSensitive)
		idx, ok := claimFirst(byID[key], claimed)
		if key == "" || !ok {
			result.Pairs = append(result.Pairs, sourceOnlyPair(policy, normalizeKey(policy.Key(), opts.CaseSensitive), ""))
			continue
		}
		result.Pairs = append(result.Pairs, model.MatchPair{
			Source:     policy,
			Reference:  &reference[idx],
			MatchKey:   key,
			Confidence: model.ConfidenceExact,
		})
	}

	appendReferenceOnly(&result, reference, claimed, opts)
	return result
}

func matchByName(source, reference []model.CanonicalPolicy, opts Options) Result {
	var result Result
	claimed := make(map[int]bool)
	for i := range source {
		policy := &source[i]
		result.Pairs = append(result.Pairs, pairByName(policy, reference, claimed, opts))
	}
	appendReferenceOnly(&result, reference, claimed, opts)
	return result
}

func matchByCustomMapping(source, reference []model.CanonicalPolicy, opts Options) Result {
	var result Result
	claimed := make(map[int]bool)
	pairs := make([]model.MatchPair, len(source))

	// Explicitly mapped policies resolve first so they claim their targets
	// before any heuristic runs; otherwise an earlier unmapped policy's
	// name fallback could take the reference a mapping points at. The
	// fallback pass then fills in the unmapped slots, keeping pair order
	// aligned with source input order.
	var unmapped []int
	for i := range source {
		policy := &source[i]

		target, mapped := lookupMapping(policy, opts)
		if !mapped {
			unmapped = append(unmapped, i)
			continue
		}

		idx, ok := findMappingTarget(reference, target, claimed, opts)
		if !ok {
			key := normalizeKey(policy.Key(), opts.CaseSensitive)
			reason := "custom mapping target " + target + " not found in reference collection"
			pairs[i] = sourceOnlyPair(policy, key, reason)
			result.Diagnostics = append(result.Diagnostics, model.Diagnostic{
				Kind:   model.DiagMissingMappingTarget,
				File:   policy.SourceFile,
				Detail: "policy " + key + ": " + reason,
			})
			continue
		}

		claimed[idx] = true
		pairs[i] = model.MatchPair{
			Source:     policy,
			Reference:  &reference[idx],
			MatchKey:   normalizeKey(policy.Key(), opts.CaseSensitive),
			Confidence: model.ConfidenceExplicitMapping,
		}
	}

	// No explicit mapping: fall back to the name heuristic so a partial
	// mapping table does not strand the rest of the collection.
	for _, i := range unmapped {
		pairs[i] = pairByName(&source[i], reference, claimed, opts)
	}

	result.Pairs = pairs
	appendReferenceOnly(&result, reference, claimed, opts)
	return result
}

// pairByName implements the ByName heuristic for a single source policy:
// equal display name under the configured case sensitivity; among several
// candidates prefer one that also matches on state, else the first in
// reference order.
func pairByName(policy *model.CanonicalPolicy, reference []model.CanonicalPolicy, claimed map[int]bool, opts Options) model.MatchPair {
	key := normalizeKey(policy.DisplayName, opts.CaseSensitive)
	best := -1
	for i := range reference {
		if claimed[i] {
			continue
		}
		if normalizeKey(reference[i].DisplayName, opts.CaseSensitive) != key {
			continue
		}
		if reference[i].State == policy.State {
			best = i
			break
		}
		if best < 0 {
			best = i
		}
	}
	if key == "" || best < 0 {
		return sourceOnlyPair(policy, key, "")
	}
	claimed[best] = true
	return model.MatchPair{
		Source:     policy,
		Reference:  &reference[best],
		MatchKey:   key,
		Confidence: model.ConfidenceHeuristic,
	}
}

// lookupMapping resolves a policy against the mapping table. The id is
// consulted before the display name, and keys are scanned in sorted order,
// so a table carrying entries for both never resolves differently between
// runs.
func lookupMapping(policy *model.CanonicalPolicy, opts Options) (string, bool) {
	if target, ok := matchMappingKey(policy.ID, opts); ok {
		return target, true
	}
	return matchMappingKey(policy.DisplayName, opts)
}

func matchMappingKey(key string, opts Options) (string, bool) {
	want := normalizeKey(key, opts.CaseSensitive)
	if want == "" {
		return "", false
	}
	if target, ok := opts.CustomMappings[key]; ok {
		return target, true
	}
	keys := make([]string, 0, len(opts.CustomMappings))
	for k := range opts.CustomMappings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if normalizeKey(k, opts.CaseSensitive) == want {
			return opts.CustomMappings[k], true
		}
	}
	return "", false
}

// findMappingTarget resolves a mapping value against reference ids, names
// and file base names, in that order.
func findMappingTarget(reference []model.CanonicalPolicy, target string, claimed map[int]bool, opts Options) (int, bool) {
	want := normalizeKey(target, opts.CaseSensitive)
	for i := range reference {
		if claimed[i] {
			continue
		}
		if normalizeKey(reference[i].ID, opts.CaseSensitive) == want && want != "" {
			return i, true
		}
	}
	for i := range reference {
		if claimed[i] {
			continue
		}
		if normalizeKey(reference[i].DisplayName, opts.CaseSensitive) == want {
			return i, true
		}
	}
	for i := range reference {
		if claimed[i] {
			continue
		}
		if normalizeKey(baseName(reference[i].SourceFile), opts.CaseSensitive) == want {
			return i, true
		}
	}
	return 0, false
}

func appendReferenceOnly(result *Result, reference []model.CanonicalPolicy, claimed map[int]bool, opts Options) {
	for i := range reference {
		if claimed[i] {
			continue
		}
		result.Pairs = append(result.Pairs, model.MatchPair{
			Reference:  &reference[i],
			MatchKey:   normalizeKey(reference[i].Key(), opts.CaseSensitive),
			Confidence: model.ConfidenceHeuristic,
		})
	}
}

// sourceOnlyPair keeps the key the strategy tried to match on, so the
// final report groups a missing policy next to where its counterpart
// would have sorted.
func sourceOnlyPair(policy *model.CanonicalPolicy, key, reason string) model.MatchPair {
	return model.MatchPair{
		Source:     policy,
		MatchKey:   key,
		Confidence: model.ConfidenceHeuristic,
		Reason:     reason,
	}
}

func claimFirst(candidates []int, claimed map[int]bool) (int, bool) {
	for _, idx := range candidates {
		if !claimed[idx] {
			claimed[idx] = true
			return idx, true
		}
	}
	return 0, false
}

func normalizeKey(key string, caseSensitive bool) string {
	key = strings.TrimSpace(key)
	if !caseSensitive {
		key = strings.ToLower(key)
	}
	return key
}

func baseName(path string) string {
	if idx := strings.LastIndexByte(path, '/'); idx >= 0 {
		path = path[idx+1:]
	}
	return path
}
