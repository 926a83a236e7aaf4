// Package extract decodes free-form producer output into typed evidence
// records. Decoding always succeeds into either fully-typed records or
// a minimal recovered record: strict decode first, then lenient
// extraction of an embedded JSON document, then the minimal fallback —
// accumulating recovery notes at each step rather than failing.
package extract

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ppiankov/veridex/internal/model"
)

// DecodeResult is the outcome of decoding one producer payload
type DecodeResult struct {
	ProducerID string
	Items      []model.EvidenceItem
	Notes      []string // Recovery notes, empty on a clean strict decode
	Recovered  bool     // True when any fallback or salvage ran
}

// maxMinimalValueLen bounds the text kept in a last-resort record
const maxMinimalValueLen = 280

// Decode parses one producer's raw payload for one document. It never
// returns an error: malformed input degrades step by step and the
// result always carries at least zero items plus the notes explaining
// what was lost.
func Decode(producerID, docID, payload string) DecodeResult {
	result := DecodeResult{ProducerID: producerID}

	trimmed := strings.TrimSpace(payload)
	if trimmed == "" {
		result.Notes = append(result.Notes, "empty payload")
		result.Recovered = true
		result.Items = []model.EvidenceItem{}
		return result
	}

	// Step 1: strict decode of the documented envelope.
	var envelope payloadEnvelope
	if err := json.Unmarshal([]byte(trimmed), &envelope); err == nil && envelope.Items != nil {
		result.Items = convertAll(&result, envelope.Items, producerID, docID)
		return result
	}

	// Also accept a bare array of items.
	var bare []rawItem
	if err := json.Unmarshal([]byte(trimmed), &bare); err == nil && bare != nil {
		result.Notes = append(result.Notes, "payload was a bare array, expected items envelope")
		result.Recovered = true
		result.Items = convertAll(&result, bare, producerID, docID)
		return result
	}

	// Step 2: lenient extraction — producers wrap JSON in prose or
	// markdown fences; pull out the first plausible JSON document.
	if extracted, ok := extractJSON(trimmed); ok {
		result.Notes = append(result.Notes, "strict decode failed, recovered embedded JSON")
		result.Recovered = true

		if err := json.Unmarshal([]byte(extracted), &envelope); err == nil && envelope.Items != nil {
			result.Items = convertAll(&result, envelope.Items, producerID, docID)
			return result
		}
		if err := json.Unmarshal([]byte(extracted), &bare); err == nil && bare != nil {
			result.Items = convertAll(&result, bare, producerID, docID)
			return result
		}
		result.Notes = append(result.Notes, "embedded JSON did not match any known shape")
	} else {
		result.Notes = append(result.Notes, "no JSON document found in payload")
	}

	// Step 3: minimal-record fallback. The payload text itself becomes
	// the value so nothing is silently discarded.
	result.Recovered = true
	value := trimmed
	if len(value) > maxMinimalValueLen {
		// Back the cut up to a rune boundary so the kept text stays
		// valid UTF-8.
		cut := maxMinimalValueLen
		for cut > 0 && !utf8.RuneStart(value[cut]) {
			cut--
		}
		value = value[:cut]
	}
	result.Notes = append(result.Notes, "degraded to minimal record")
	result.Items = []model.EvidenceItem{minimalItem(producerID, docID, value, result.Notes)}
	return result
}

// convertAll validates and converts raw records, salvaging the ones
// that fail struct validation instead of dropping them
func convertAll(result *DecodeResult, raws []rawItem, producerID, docID string) []model.EvidenceItem {
	items := make([]model.EvidenceItem, 0, len(raws))
	for i, r := range raws {
		if err := checkRaw(r); err != nil {
			note := fmt.Sprintf("item %d failed validation: %v", i, err)
			result.Notes = append(result.Notes, note)
			result.Recovered = true
			items = append(items, minimalItem(producerID, docID, r.Value, []string{note}))
			continue
		}
		item, notes := toEvidence(r, producerID, docID)
		if len(notes) > 0 {
			result.Notes = append(result.Notes, notes...)
			result.Recovered = true
		}
		items = append(items, item)
	}
	return items
}

// extractJSON finds the first balanced JSON object or array in a blob
// of prose. Good enough for markdown-fenced and prefixed payloads;
// anything it misses falls through to the minimal record.
func extractJSON(s string) (string, bool) {
	for _, open := range []byte{'{', '['} {
		start := strings.IndexByte(s, open)
		if start < 0 {
			continue
		}
		closer := byte('}')
		if open == '[' {
			closer = ']'
		}
		depth := 0
		inString := false
		escaped := false
		for i := start; i < len(s); i++ {
			ch := s[i]
			if inString {
				switch {
				case escaped:
					escaped = false
				case ch == '\\':
					escaped = true
				case ch == '"':
					inString = false
				}
				continue
			}
			switch ch {
			case '"':
				inString = true
			case open:
				depth++
			case closer:
				depth--
				if depth == 0 {
					return s[start : i+1], true
				}
			}
		}
	}
	return "", false
}
