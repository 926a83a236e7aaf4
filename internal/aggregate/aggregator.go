// Package aggregate merges per-producer evidence lists into one union
// and flags same-location/different-value conflicts. Merging never
// deduplicates: collapsing two items risks discarding a uniquely
// observed fact, so the union is the plain concatenation of everything
// every producer reported. Agreement between producers is inferred at
// presentation time by grouping, not by removal here.
package aggregate

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/ppiankov/veridex/internal/model"
)

// Result is the serializable output of one aggregation pass
type Result struct {
	Items      []model.EvidenceItem `json:"items"`
	Conflicts  []model.Conflict     `json:"conflicts"`
	ByProducer map[string]int       `json:"by_producer"`
}

// bucketEntry is one producer's reading inside a spatial bucket
type bucketEntry struct {
	producerID string
	value      string
}

// Aggregate builds the union of all producer evidence lists and detects
// conflicts. Pure function: no side effects, deterministic output for
// identical input (producers are walked in sorted id order).
//
// Conflict detection buckets every span by (kind, doc_id,
// start_char/bucketSize); a bucket holding more than one distinct
// normalized value yields exactly one Conflict listing every
// contributing producer and value. Buckets where everyone agrees yield
// nothing, even with many contributors.
func Aggregate(byProducer map[string][]model.EvidenceItem, bucketSize int) Result {
	if bucketSize <= 0 {
		bucketSize = 100
	}

	producers := make([]string, 0, len(byProducer))
	for id := range byProducer {
		producers = append(producers, id)
	}
	sort.Strings(producers)

	result := Result{
		Items:      make([]model.EvidenceItem, 0),
		Conflicts:  make([]model.Conflict, 0),
		ByProducer: make(map[string]int, len(producers)),
	}

	// Union pass: concatenation only, never deduplication.
	for _, id := range producers {
		items := byProducer[id]
		result.Items = append(result.Items, items...)
		result.ByProducer[id] = len(items)
	}

	// Conflict pass over the union.
	buckets := make(map[string][]bucketEntry)
	kinds := make(map[string]model.Kind)
	var keys []string
	for _, item := range result.Items {
		for _, span := range item.Spans {
			key := bucketKey(item.Kind, span.DocID, span.StartChar, bucketSize)
			if _, seen := buckets[key]; !seen {
				keys = append(keys, key)
				kinds[key] = item.Kind
			}
			buckets[key] = append(buckets[key], bucketEntry{
				producerID: span.ProducerID,
				value:      item.NormalizedValue,
			})
		}
	}
	sort.Strings(keys)

	for _, key := range keys {
		if conflict, ok := bucketConflict(key, kinds[key], buckets[key]); ok {
			result.Conflicts = append(result.Conflicts, conflict)
		}
	}

	return result
}

// bucketKey builds the coarse spatial bucket identifier for a span
func bucketKey(kind model.Kind, docID string, startChar, bucketSize int) string {
	return fmt.Sprintf("%s|%s|%d", kind, docID, startChar/bucketSize)
}

// bucketConflict returns a conflict record when a bucket holds more
// than one distinct normalized value
func bucketConflict(key string, kind model.Kind, entries []bucketEntry) (model.Conflict, bool) {
	distinct := make(map[string]bool)
	for _, e := range entries {
		distinct[e.value] = true
	}
	if len(distinct) < 2 {
		return model.Conflict{}, false
	}

	// One value entry per unique (producer, value) pair, sorted for
	// deterministic output.
	seen := make(map[string]bool)
	var values []model.ConflictValue
	for _, e := range entries {
		pair := e.producerID + "\x00" + e.value
		if seen[pair] {
			continue
		}
		seen[pair] = true
		values = append(values, model.ConflictValue{ProducerID: e.producerID, Value: e.value})
	}
	sort.Slice(values, func(i, j int) bool {
		if values[i].ProducerID != values[j].ProducerID {
			return values[i].ProducerID < values[j].ProducerID
		}
		return values[i].Value < values[j].Value
	})

	return model.Conflict{
		ConflictID:  uuid.NewString(),
		Kind:        kind,
		LocationKey: key,
		Values:      values,
	}, true
}
