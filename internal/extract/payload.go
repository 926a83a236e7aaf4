package extract

import (
	"github.com/go-playground/validator/v10"
	"github.com/ppiankov/veridex/internal/model"
)

// payloadEnvelope is the strict shape producers are asked to emit
type payloadEnvelope struct {
	Items []rawItem `json:"items"`
}

// rawItem is one untyped evidence record as a producer emits it.
// Validation tags gate the strict path: records that fail them are
// salvaged individually instead of rejecting the whole payload.
type rawItem struct {
	Kind       string  `json:"kind" validate:"required"`
	Value      string  `json:"value" validate:"required"`
	RawText    string  `json:"raw_text,omitempty"`
	StartChar  int     `json:"start_char" validate:"gte=0"`
	EndChar    int     `json:"end_char" validate:"gtefield=StartChar"`
	Page       *int    `json:"page,omitempty"`
	Method     string  `json:"method,omitempty"`
	Confidence float64 `json:"confidence,omitempty" validate:"gte=0,lte=1"`
	Context    string  `json:"context,omitempty"`
}

// itemValidator is shared: validator.Validate is safe for concurrent use
var itemValidator = validator.New(validator.WithRequiredStructEnabled())

// checkRaw runs struct validation on one raw record
func checkRaw(r rawItem) error {
	return itemValidator.Struct(r)
}

// toEvidence converts a validated raw record into a typed evidence item
func toEvidence(r rawItem, producerID, docID string) (model.EvidenceItem, []string) {
	var notes []string

	kind, known := model.ParseKind(r.Kind)
	if !known {
		notes = append(notes, "unknown kind "+r.Kind+", mapped to other")
	}

	method := model.Method(r.Method)
	switch method {
	case model.MethodText, model.MethodOCR, model.MethodHybrid:
	default:
		method = model.MethodText
	}

	span, err := model.NewSourceSpan(docID, producerID, r.StartChar, r.EndChar, method)
	if err != nil {
		// Invalid offsets degrade to an empty span at origin; the note
		// keeps the original range auditable.
		notes = append(notes, "invalid span range, degraded to empty: "+err.Error())
		span, _ = model.NewSourceSpan(docID, producerID, 0, 0, method)
	}
	span.PageNum = r.Page
	span.RawText = r.RawText
	if r.Confidence > 0 {
		span.Confidence = r.Confidence
	}

	item, err := model.NewEvidenceItem(kind, r.Value, []model.SourceSpan{span})
	if err != nil {
		// Unreachable with a constructed span, but degrade anyway.
		notes = append(notes, "item construction failed: "+err.Error())
		return minimalItem(producerID, docID, r.Value, notes), notes
	}
	item.RawText = r.RawText
	item.Context = r.Context
	if len(notes) > 0 {
		item.Recovered = true
		item.RecoveryNotes = notes
	}
	return item, notes
}

// minimalItem builds the last-resort record: kind other, empty span at
// origin, explicit recovery marker. The pipeline must always have
// something to aggregate.
func minimalItem(producerID, docID, value string, notes []string) model.EvidenceItem {
	span, _ := model.NewSourceSpan(docID, producerID, 0, 0, model.MethodText)
	item, _ := model.NewEvidenceItem(model.KindOther, value, []model.SourceSpan{span})
	item.Recovered = true
	item.RecoveryNotes = notes
	return item
}
