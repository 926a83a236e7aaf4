package model

import "time"

// ProducerStat summarizes one producer's contribution to a run
type ProducerStat struct {
	ProducerID string `json:"producer_id"`
	Items      int    `json:"items"`
	Recovered  int    `json:"recovered"`
	Failed     bool   `json:"failed"`
	Error      string `json:"error,omitempty"`
}

// RunReport is the complete serializable record of one pipeline run.
// The full evidence graph is retained for the lifetime of the run and
// handed to the meta-consistency validator at the end.
type RunReport struct {
	RunID      string    `json:"run_id"`
	DocIDs     []string  `json:"doc_ids"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Producers []ProducerStat `json:"producers"`

	Items     []EvidenceItem `json:"items"`
	Conflicts []Conflict     `json:"conflicts"`
	Coverage  CoverageReport `json:"coverage"`

	Claims        []Claim             `json:"claims,omitempty"`
	CitationTotal int                 `json:"citation_total"`
	Findings      []ValidationFinding `json:"findings"`
	Penalty       PenaltyResult       `json:"penalty"`

	Principles Principles `json:"principles"`
}

// Principles documents the core principles applied to every run
type Principles struct {
	NonNormative bool `json:"non_normative"` // Evaluates provenance, not truth
	Transparent  bool `json:"transparent"`   // Every penalty and conflict explainable
	Lossless     bool `json:"lossless"`      // Aggregation never drops an observation
}

// DefaultPrinciples returns the standard Veridex principles
func DefaultPrinciples() Principles {
	return Principles{
		NonNormative: true,
		Transparent:  true,
		Lossless:     true,
	}
}
