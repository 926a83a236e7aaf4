package model

// Severity classifies how serious a validation finding is
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// FindingKind identifies the rule that produced a validation finding.
// The confidence policy keys its penalty table on this type.
type FindingKind string

const (
	// Citation rule findings
	FindingRangeInvalid            FindingKind = "range_invalid"
	FindingPageMismatch            FindingKind = "page_mismatch"
	FindingExcerptMismatch         FindingKind = "excerpt_mismatch"
	FindingMissingCitation         FindingKind = "missing_citation"
	FindingMissingDeterminantProof FindingKind = "missing_determinant_proof"

	// Producer-side findings
	FindingParseRecovery   FindingKind = "parse_recovery"
	FindingProducerFailure FindingKind = "producer_failure"

	// Synthetic coverage findings
	FindingLowCoverage     FindingKind = "low_coverage"
	FindingUnreadablePages FindingKind = "unreadable_pages"
	FindingLargeGap        FindingKind = "large_gap"
)

// ValidationFinding is an accumulated validation result. Findings are
// data, never exceptions: validation always runs every rule and returns
// everything it recorded.
type ValidationFinding struct {
	Kind     FindingKind `json:"kind"`
	Severity Severity    `json:"severity"`
	Message  string      `json:"message"`
	Location *Citation   `json:"location,omitempty"`
	Source   string      `json:"source,omitempty"` // Claim or producer that triggered the rule
}

// CountBySeverity tallies findings per severity level
func CountBySeverity(findings []ValidationFinding) (errors, warnings, infos int) {
	for _, f := range findings {
		switch f.Severity {
		case SeverityError:
			errors++
		case SeverityWarning:
			warnings++
		case SeverityInfo:
			infos++
		}
	}
	return errors, warnings, infos
}
