// Package score converts validation findings, coverage shortfalls and
// parse failures into a single deterministic penalty and confidence
// ceiling. The policy is a pure, total function: same inputs, same
// result, every time — and unknown finding kinds are skipped, never
// fatal.
package score

import (
	"fmt"
	"sort"

	"github.com/ppiankov/veridex/internal/model"
)

// penaltyRule is one row of the static rule table: a fixed
// per-occurrence penalty, a per-kind cumulative cap, and an optional
// hard confidence ceiling imposed by the kind's presence.
type penaltyRule struct {
	perOccurrence float64
	cap           float64
	ceiling       float64 // 0 means no ceiling
}

// ruleTable fixes the deterministic penalty policy. Ceilings bind
// regardless of how small the additive penalty is: one
// missing-determinant-proof caps confidence at 0.60 even on an
// otherwise spotless run.
var ruleTable = map[model.FindingKind]penaltyRule{
	model.FindingRangeInvalid:            {perOccurrence: 0.05, cap: 0.20},
	model.FindingPageMismatch:            {perOccurrence: 0.01, cap: 0.05},
	model.FindingExcerptMismatch:         {perOccurrence: 0.03, cap: 0.15},
	model.FindingMissingCitation:         {perOccurrence: 0.02, cap: 0.15},
	model.FindingMissingDeterminantProof: {perOccurrence: 0.15, cap: 0.30, ceiling: 0.60},
	model.FindingParseRecovery:           {perOccurrence: 0.05, cap: 0.20, ceiling: 0.75},
	model.FindingProducerFailure:         {perOccurrence: 0.05, cap: 0.15, ceiling: 0.80},
	model.FindingLowCoverage:             {perOccurrence: 0.10, cap: 0.20},
	model.FindingUnreadablePages:         {perOccurrence: 0.02, cap: 0.10},
	model.FindingLargeGap:                {perOccurrence: 0.02, cap: 0.10},
}

// Policy computes penalty results from findings and coverage
type Policy struct {
	globalCap          float64
	lowCoveragePercent float64
	maxGapChars        int
}

// NewPolicy creates a policy with the given global penalty cap, the
// coverage percent below which a synthetic low-coverage finding fires,
// and the gap size that counts as large
func NewPolicy(globalCap, lowCoveragePercent float64, maxGapChars int) *Policy {
	if globalCap <= 0 {
		globalCap = 0.50
	}
	if lowCoveragePercent <= 0 {
		lowCoveragePercent = 70.0
	}
	if maxGapChars <= 0 {
		maxGapChars = 100
	}
	return &Policy{globalCap: globalCap, lowCoveragePercent: lowCoveragePercent, maxGapChars: maxGapChars}
}

// ComputePenalty sums per-kind penalties (each capped), caps the total,
// subtracts from baseConfidence, clamps to the lowest applicable
// ceiling and finally to [0,1]. Coverage-derived findings are
// synthesized into the same table before summing.
func (p *Policy) ComputePenalty(findings []model.ValidationFinding, cov *model.CoverageReport, baseConfidence float64) model.PenaltyResult {
	all := make([]model.ValidationFinding, 0, len(findings))
	all = append(all, findings...)
	if cov != nil {
		all = append(all, p.CoverageFindings(*cov)...)
	}

	counts := make(map[model.FindingKind]int)
	ignoredSet := make(map[string]bool)
	for _, f := range all {
		if _, known := ruleTable[f.Kind]; !known {
			ignoredSet[string(f.Kind)] = true
			continue
		}
		counts[f.Kind]++
	}

	result := model.PenaltyResult{
		BaseConfidence: baseConfidence,
		ByCategory:     make(map[model.FindingKind]model.CategoryPenalty),
	}

	// Sum in sorted kind order: float addition is not associative, and
	// the result must be bit-identical across runs.
	kinds := make([]model.FindingKind, 0, len(counts))
	for kind := range counts {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })

	total := 0.0
	var lowestCeiling float64 = -1
	for _, kind := range kinds {
		count := counts[kind]
		rule := ruleTable[kind]
		applied := float64(count) * rule.perOccurrence
		capped := false
		if applied > rule.cap {
			applied = rule.cap
			capped = true
		}
		total += applied
		result.ByCategory[kind] = model.CategoryPenalty{Count: count, Applied: applied, Capped: capped}

		if rule.ceiling > 0 && (lowestCeiling < 0 || rule.ceiling < lowestCeiling) {
			lowestCeiling = rule.ceiling
		}
	}

	if total > p.globalCap {
		total = p.globalCap
	}
	result.TotalPenalty = total

	adjusted := baseConfidence - total
	if lowestCeiling >= 0 {
		ceiling := lowestCeiling
		result.ConfidenceCeiling = &ceiling
		if adjusted > ceiling {
			adjusted = ceiling
		}
	}
	if adjusted < 0 {
		adjusted = 0
	}
	if adjusted > 1 {
		adjusted = 1
	}
	result.AdjustedConfidence = adjusted

	for k := range ignoredSet {
		result.IgnoredKinds = append(result.IgnoredKinds, k)
	}
	sort.Strings(result.IgnoredKinds)

	return result
}

// FromErrors converts raw producer error strings into parse-recovery
// findings so they feed the same rule table
func FromErrors(errs []string) []model.ValidationFinding {
	findings := make([]model.ValidationFinding, 0, len(errs))
	for _, e := range errs {
		findings = append(findings, model.ValidationFinding{
			Kind:     model.FindingParseRecovery,
			Severity: model.SeverityWarning,
			Message:  e,
		})
	}
	return findings
}

// CoverageFindings synthesizes findings from coverage shortfalls: low
// total coverage, unreadable pages, and each gap large enough to block
// completeness.
func (p *Policy) CoverageFindings(cov model.CoverageReport) []model.ValidationFinding {
	var findings []model.ValidationFinding

	if cov.TotalChars > 0 && cov.CoveragePercent < p.lowCoveragePercent {
		findings = append(findings, model.ValidationFinding{
			Kind:     model.FindingLowCoverage,
			Severity: model.SeverityWarning,
			Message:  fmt.Sprintf("coverage %.1f%% below %.1f%%", cov.CoveragePercent, p.lowCoveragePercent),
		})
	}

	if n := len(cov.PagesUnreadable); n > 0 {
		findings = append(findings, model.ValidationFinding{
			Kind:     model.FindingUnreadablePages,
			Severity: model.SeverityWarning,
			Message:  fmt.Sprintf("%d page(s) marked unreadable by the ingester", n),
		})
	}

	if !cov.IsComplete {
		for _, gap := range cov.Gaps {
			if gap.Length() >= p.maxGapChars {
				findings = append(findings, model.ValidationFinding{
					Kind:     model.FindingLargeGap,
					Severity: model.SeverityWarning,
					Message:  fmt.Sprintf("uncovered gap [%d,%d) of %d chars", gap.Start, gap.End, gap.Length()),
				})
			}
		}
	}

	return findings
}
