package model

// CategoryPenalty is the transparent per-kind breakdown of a penalty
// computation: how many findings of the kind occurred, what penalty was
// applied, and whether the per-kind cumulative cap kicked in.
type CategoryPenalty struct {
	Count   int     `json:"count"`
	Applied float64 `json:"applied"`
	Capped  bool    `json:"capped"`
}

// PenaltyResult is the single deterministic trust signal produced by the
// confidence policy. Running the policy twice on identical inputs yields
// an identical result.
type PenaltyResult struct {
	BaseConfidence     float64                         `json:"base_confidence"`
	TotalPenalty       float64                         `json:"total_penalty"`
	ConfidenceCeiling  *float64                        `json:"confidence_ceiling,omitempty"`
	AdjustedConfidence float64                         `json:"adjusted_confidence"`
	ByCategory         map[FindingKind]CategoryPenalty `json:"by_category"`

	// Finding kinds the rule table does not know. Skipped, never fatal.
	IgnoredKinds []string `json:"ignored_kinds,omitempty"`
}
