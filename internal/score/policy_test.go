package score

import (
	"reflect"
	"testing"

	"github.com/ppiankov/veridex/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func finding(kind model.FindingKind) model.ValidationFinding {
	return model.ValidationFinding{Kind: kind, Severity: model.SeverityWarning, Message: "test"}
}

func testPolicy() *Policy {
	return NewPolicy(0.50, 70.0, 100)
}

func TestComputePenalty_CleanRun(t *testing.T) {
	result := testPolicy().ComputePenalty(nil, nil, 0.95)

	assert.Equal(t, 0.0, result.TotalPenalty)
	assert.Equal(t, 0.95, result.AdjustedConfidence)
	assert.Nil(t, result.ConfidenceCeiling)
}

func TestComputePenalty_PerKindAccumulationAndCap(t *testing.T) {
	// 3 missing citations at 0.02 each: 0.06, under the 0.15 cap.
	findings := []model.ValidationFinding{
		finding(model.FindingMissingCitation),
		finding(model.FindingMissingCitation),
		finding(model.FindingMissingCitation),
	}
	result := testPolicy().ComputePenalty(findings, nil, 0.95)
	assert.InDelta(t, 0.06, result.TotalPenalty, 1e-9)
	assert.InDelta(t, 0.89, result.AdjustedConfidence, 1e-9)
	assert.False(t, result.ByCategory[model.FindingMissingCitation].Capped)

	// 20 of them: capped at 0.15.
	many := make([]model.ValidationFinding, 20)
	for i := range many {
		many[i] = finding(model.FindingMissingCitation)
	}
	result = testPolicy().ComputePenalty(many, nil, 0.95)
	assert.InDelta(t, 0.15, result.TotalPenalty, 1e-9)
	assert.True(t, result.ByCategory[model.FindingMissingCitation].Capped)
}

func TestComputePenalty_DeterminantCeiling(t *testing.T) {
	// One missing determinant proof caps confidence at 0.60 regardless
	// of base confidence.
	findings := []model.ValidationFinding{finding(model.FindingMissingDeterminantProof)}

	for _, base := range []float64{0.60, 0.80, 0.95, 1.0} {
		result := testPolicy().ComputePenalty(findings, nil, base)
		assert.LessOrEqual(t, result.AdjustedConfidence, 0.60, "base %f", base)
		require.NotNil(t, result.ConfidenceCeiling)
		assert.Equal(t, 0.60, *result.ConfidenceCeiling)
	}
}

func TestComputePenalty_ParseRecoveryCeiling(t *testing.T) {
	findings := []model.ValidationFinding{finding(model.FindingParseRecovery)}
	result := testPolicy().ComputePenalty(findings, nil, 0.99)
	assert.LessOrEqual(t, result.AdjustedConfidence, 0.75)
}

func TestComputePenalty_LowestCeilingWins(t *testing.T) {
	findings := []model.ValidationFinding{
		finding(model.FindingParseRecovery),           // ceiling 0.75
		finding(model.FindingMissingDeterminantProof), // ceiling 0.60
	}
	result := testPolicy().ComputePenalty(findings, nil, 0.99)
	require.NotNil(t, result.ConfidenceCeiling)
	assert.Equal(t, 0.60, *result.ConfidenceCeiling)
}

func TestComputePenalty_Monotonicity(t *testing.T) {
	// Adding one more MissingDeterminantProof never increases adjusted
	// confidence and never raises the ceiling.
	findings := []model.ValidationFinding{}
	prev := testPolicy().ComputePenalty(findings, nil, 0.95)

	for i := 0; i < 6; i++ {
		findings = append(findings, finding(model.FindingMissingDeterminantProof))
		curr := testPolicy().ComputePenalty(findings, nil, 0.95)

		assert.LessOrEqual(t, curr.AdjustedConfidence, prev.AdjustedConfidence, "after %d findings", i+1)
		if prev.ConfidenceCeiling != nil {
			require.NotNil(t, curr.ConfidenceCeiling)
			assert.LessOrEqual(t, *curr.ConfidenceCeiling, *prev.ConfidenceCeiling)
		}
		prev = curr
	}
}

func TestComputePenalty_Idempotence(t *testing.T) {
	findings := []model.ValidationFinding{
		finding(model.FindingMissingCitation),
		finding(model.FindingExcerptMismatch),
		finding(model.FindingParseRecovery),
	}
	cov := &model.CoverageReport{
		TotalChars:      1000,
		CoveredChars:    500,
		CoveragePercent: 50.0,
		Gaps:            []model.CharRange{{Start: 500, End: 1000}},
		IsComplete:      false,
	}

	first := testPolicy().ComputePenalty(findings, cov, 0.9)
	second := testPolicy().ComputePenalty(findings, cov, 0.9)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("expected bit-identical results, got %+v vs %+v", first, second)
	}
}

func TestComputePenalty_StableAcrossRepeatedRuns(t *testing.T) {
	// Several kinds with different per-occurrence penalties: summing
	// them in varying orders would drift in the last float bits.
	findings := []model.ValidationFinding{
		finding(model.FindingMissingCitation),
		finding(model.FindingExcerptMismatch),
		finding(model.FindingRangeInvalid),
		finding(model.FindingPageMismatch),
		finding(model.FindingLowCoverage),
		finding(model.FindingUnreadablePages),
		finding(model.FindingLargeGap),
	}

	first := testPolicy().ComputePenalty(findings, nil, 0.9)
	for i := 0; i < 100; i++ {
		again := testPolicy().ComputePenalty(findings, nil, 0.9)
		if again.TotalPenalty != first.TotalPenalty {
			t.Fatalf("run %d: TotalPenalty %v != %v", i, again.TotalPenalty, first.TotalPenalty)
		}
		if again.AdjustedConfidence != first.AdjustedConfidence {
			t.Fatalf("run %d: AdjustedConfidence %v != %v", i, again.AdjustedConfidence, first.AdjustedConfidence)
		}
	}
}

func TestComputePenalty_GlobalCap(t *testing.T) {
	var findings []model.ValidationFinding
	for _, k := range []model.FindingKind{
		model.FindingRangeInvalid, model.FindingExcerptMismatch,
		model.FindingMissingCitation, model.FindingMissingDeterminantProof,
		model.FindingParseRecovery, model.FindingProducerFailure,
		model.FindingLowCoverage, model.FindingUnreadablePages, model.FindingLargeGap,
	} {
		for i := 0; i < 30; i++ {
			findings = append(findings, finding(k))
		}
	}

	result := testPolicy().ComputePenalty(findings, nil, 1.0)
	assert.LessOrEqual(t, result.TotalPenalty, 0.50)
}

func TestComputePenalty_UnknownKindsIgnored(t *testing.T) {
	findings := []model.ValidationFinding{
		{Kind: model.FindingKind("some_future_kind"), Severity: model.SeverityError, Message: "?"},
		finding(model.FindingMissingCitation),
	}

	result := testPolicy().ComputePenalty(findings, nil, 0.95)

	assert.InDelta(t, 0.02, result.TotalPenalty, 1e-9, "unknown kinds contribute nothing")
	assert.Equal(t, []string{"some_future_kind"}, result.IgnoredKinds)
}

func TestComputePenalty_ClampsToZero(t *testing.T) {
	findings := []model.ValidationFinding{finding(model.FindingMissingDeterminantProof)}
	result := testPolicy().ComputePenalty(findings, nil, 0.05)
	assert.GreaterOrEqual(t, result.AdjustedConfidence, 0.0)
}

func TestCoverageFindings(t *testing.T) {
	p := testPolicy()

	full := model.CoverageReport{TotalChars: 1000, CoveredChars: 1000, CoveragePercent: 100, IsComplete: true}
	assert.Empty(t, p.CoverageFindings(full))

	poor := model.CoverageReport{
		TotalChars:      1000,
		CoveredChars:    400,
		CoveragePercent: 40,
		IsComplete:      false,
		Gaps:            []model.CharRange{{Start: 400, End: 1000}},
		PagesUnreadable: []int{3, 7},
	}
	findings := p.CoverageFindings(poor)

	var ks []model.FindingKind
	for _, f := range findings {
		ks = append(ks, f.Kind)
	}
	assert.Contains(t, ks, model.FindingLowCoverage)
	assert.Contains(t, ks, model.FindingUnreadablePages)
	assert.Contains(t, ks, model.FindingLargeGap)
}

func TestFromErrors(t *testing.T) {
	findings := FromErrors([]string{"truncated JSON", "missing items field"})
	require.Len(t, findings, 2)
	for _, f := range findings {
		assert.Equal(t, model.FindingParseRecovery, f.Kind)
	}
}
