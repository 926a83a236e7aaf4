package model

import (
	"errors"
	"sort"

	"github.com/google/uuid"
)

// ErrNoSpans indicates an attempt to build an evidence item without provenance.
// An item with no spans is a contradiction in terms and must fail construction.
var ErrNoSpans = errors.New("evidence item has no source spans")

// Kind classifies the nature of an evidence item
type Kind string

const (
	KindFact     Kind = "fact"      // General factual statement
	KindDate     Kind = "date"      // Date or time reference
	KindAmount   Kind = "amount"    // Monetary or numeric amount
	KindLegalRef Kind = "legal_ref" // Reference to a statute, article or case
	KindEntity   Kind = "entity"    // Named person, company or institution
	KindVisual   Kind = "visual"    // Stamp, signature, table or other visual element
	KindOther    Kind = "other"     // Anything else, including recovered records
)

// KnownKinds lists every valid evidence kind
var KnownKinds = []Kind{KindFact, KindDate, KindAmount, KindLegalRef, KindEntity, KindVisual, KindOther}

// ParseKind maps a raw producer string to a Kind, falling back to KindOther
func ParseKind(raw string) (Kind, bool) {
	for _, k := range KnownKinds {
		if string(k) == raw {
			return k, true
		}
	}
	return KindOther, false
}

// EvidenceItem is a normalized fact together with every span that supports it
type EvidenceItem struct {
	ItemID          string       `json:"item_id"`
	Kind            Kind         `json:"kind"`
	NormalizedValue string       `json:"normalized_value"`
	RawText         string       `json:"raw_text,omitempty"`
	Spans           []SourceSpan `json:"spans"`
	Context         string       `json:"context,omitempty"`

	// Parse-recovery marker: set when the item was salvaged from
	// malformed producer output rather than decoded cleanly
	Recovered     bool     `json:"recovered,omitempty"`
	RecoveryNotes []string `json:"recovery_notes,omitempty"`
}

// NewEvidenceItem constructs an evidence item, failing with ErrNoSpans
// when no provenance is supplied
func NewEvidenceItem(kind Kind, normalizedValue string, spans []SourceSpan) (EvidenceItem, error) {
	if len(spans) == 0 {
		return EvidenceItem{}, ErrNoSpans
	}
	return EvidenceItem{
		ItemID:          uuid.NewString(),
		Kind:            kind,
		NormalizedValue: normalizedValue,
		Spans:           spans,
	}, nil
}

// ExtractorIDs returns the sorted set of producer ids across all spans
func (e EvidenceItem) ExtractorIDs() []string {
	seen := make(map[string]bool)
	var ids []string
	for _, s := range e.Spans {
		if s.ProducerID != "" && !seen[s.ProducerID] {
			seen[s.ProducerID] = true
			ids = append(ids, s.ProducerID)
		}
	}
	sort.Strings(ids)
	return ids
}

// ConflictValue is one producer's reading at a conflicting location
type ConflictValue struct {
	ProducerID string `json:"producer_id"`
	Value      string `json:"value"`
}

// Conflict records that two or more producers reported different values
// for overlapping locations. Conflicts are descriptive, never corrective:
// nothing is resolved or removed at this layer.
type Conflict struct {
	ConflictID  string          `json:"conflict_id"`
	Kind        Kind            `json:"kind"`
	LocationKey string          `json:"location_key"`
	Values      []ConflictValue `json:"values"`
}
