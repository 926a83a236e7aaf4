package aggregate

import (
	"testing"

	"github.com/ppiankov/veridex/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustItem(t *testing.T, producer string, kind model.Kind, value string, start, end int) model.EvidenceItem {
	t.Helper()
	span, err := model.NewSourceSpan("doc-1", producer, start, end, model.MethodText)
	require.NoError(t, err)
	item, err := model.NewEvidenceItem(kind, value, []model.SourceSpan{span})
	require.NoError(t, err)
	return item
}

func TestAggregate_NoLoss(t *testing.T) {
	// The union must be exactly the concatenation: aggregation never
	// drops items, even exact duplicates.
	byProducer := map[string][]model.EvidenceItem{
		"a": {
			mustItem(t, "a", model.KindFact, "same value", 0, 50),
			mustItem(t, "a", model.KindFact, "same value", 0, 50),
		},
		"b": {
			mustItem(t, "b", model.KindFact, "same value", 0, 50),
		},
		"c": {},
	}

	result := Aggregate(byProducer, 100)

	assert.Len(t, result.Items, 3)
	assert.Equal(t, 2, result.ByProducer["a"])
	assert.Equal(t, 1, result.ByProducer["b"])
	assert.Equal(t, 0, result.ByProducer["c"])
}

func TestAggregate_AgreementProducesNoConflict(t *testing.T) {
	byProducer := map[string][]model.EvidenceItem{
		"a": {mustItem(t, "a", model.KindDate, "2024-03-01", 10, 20)},
		"b": {mustItem(t, "b", model.KindDate, "2024-03-01", 15, 25)},
	}

	result := Aggregate(byProducer, 100)

	assert.Len(t, result.Items, 2, "agreeing items stay in the union")
	assert.Empty(t, result.Conflicts, "equal normalized values never conflict")
}

func TestAggregate_ConflictSymmetry(t *testing.T) {
	byProducer := map[string][]model.EvidenceItem{
		"a": {mustItem(t, "a", model.KindAmount, "1500.00", 210, 230)},
		"b": {mustItem(t, "b", model.KindAmount, "1300.00", 220, 240)},
	}

	result := Aggregate(byProducer, 100)

	require.Len(t, result.Conflicts, 1, "differing values in one bucket yield exactly one conflict")
	conflict := result.Conflicts[0]
	assert.Equal(t, model.KindAmount, conflict.Kind)
	require.Len(t, conflict.Values, 2)
	assert.Equal(t, "a", conflict.Values[0].ProducerID)
	assert.Equal(t, "b", conflict.Values[1].ProducerID)
	assert.NotEmpty(t, conflict.ConflictID)
	assert.NotEmpty(t, conflict.LocationKey)
}

func TestAggregate_DifferentKindsDoNotConflict(t *testing.T) {
	byProducer := map[string][]model.EvidenceItem{
		"a": {mustItem(t, "a", model.KindDate, "2024-03-01", 10, 20)},
		"b": {mustItem(t, "b", model.KindAmount, "1500.00", 10, 20)},
	}

	result := Aggregate(byProducer, 100)
	assert.Empty(t, result.Conflicts)
}

func TestAggregate_DistantSpansDoNotConflict(t *testing.T) {
	byProducer := map[string][]model.EvidenceItem{
		"a": {mustItem(t, "a", model.KindFact, "signed in march", 0, 30)},
		"b": {mustItem(t, "b", model.KindFact, "signed in april", 900, 930)},
	}

	result := Aggregate(byProducer, 100)
	assert.Empty(t, result.Conflicts, "spans in different buckets never conflict")
}

func TestAggregate_Deterministic(t *testing.T) {
	byProducer := map[string][]model.EvidenceItem{
		"b": {mustItem(t, "b", model.KindFact, "x", 0, 10)},
		"a": {mustItem(t, "a", model.KindFact, "y", 0, 10)},
		"c": {mustItem(t, "c", model.KindFact, "z", 500, 510)},
	}

	first := Aggregate(byProducer, 100)
	second := Aggregate(byProducer, 100)

	require.Equal(t, len(first.Items), len(second.Items))
	for i := range first.Items {
		assert.Equal(t, first.Items[i].ItemID, second.Items[i].ItemID, "union order must be stable")
	}
	require.Equal(t, len(first.Conflicts), len(second.Conflicts))
	for i := range first.Conflicts {
		assert.Equal(t, first.Conflicts[i].LocationKey, second.Conflicts[i].LocationKey)
		assert.Equal(t, first.Conflicts[i].Values, second.Conflicts[i].Values)
	}
}

func TestAggregate_BucketSizeIsTunable(t *testing.T) {
	// Same inputs, different bucket width: a coarser bucket pulls the
	// two readings into one conflict, a finer one keeps them apart.
	byProducer := map[string][]model.EvidenceItem{
		"a": {mustItem(t, "a", model.KindFact, "v1", 10, 20)},
		"b": {mustItem(t, "b", model.KindFact, "v2", 80, 90)},
	}

	coarse := Aggregate(byProducer, 100)
	assert.Len(t, coarse.Conflicts, 1)

	fine := Aggregate(byProducer, 50)
	assert.Empty(t, fine.Conflicts)
}
