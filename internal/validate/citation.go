// Package validate checks downstream claims against the real document
// text. Every rule failure is recorded as a finding, never raised as an
// exception: validation always runs every rule and returns a result.
package validate

import (
	"fmt"
	"time"

	"github.com/ppiankov/veridex/internal/cache"
	"github.com/ppiankov/veridex/internal/docindex"
	"github.com/ppiankov/veridex/internal/model"
)

// Validator validates citations and claims against a document index
type Validator struct {
	cfg      model.MatchConfig
	cache    cache.Cache
	cacheTTL time.Duration
}

// NewValidator creates a validator. The cache is optional; when present
// it memoizes excerpt-match outcomes per citation identity.
func NewValidator(cfg model.MatchConfig, c cache.Cache, cacheTTL time.Duration) *Validator {
	if cfg.Threshold <= 0 {
		cfg.Threshold = 0.6
	}
	if cfg.WideThreshold <= 0 {
		cfg.WideThreshold = 0.5
	}
	if cfg.WindowSlack <= 0 {
		cfg.WindowSlack = 50
	}
	if cacheTTL <= 0 {
		cacheTTL = time.Hour
	}
	return &Validator{cfg: cfg, cache: c, cacheTTL: cacheTTL}
}

// ValidateCitation checks one citation against the document. Rules are
// independent and never short-circuit: a citation with an inverted
// range and a wrong page yields both findings.
func (v *Validator) ValidateCitation(c model.Citation, idx *docindex.Index, source string) (bool, []model.ValidationFinding) {
	var findings []model.ValidationFinding
	loc := c

	record := func(kind model.FindingKind, sev model.Severity, format string, args ...interface{}) {
		findings = append(findings, model.ValidationFinding{
			Kind:     kind,
			Severity: sev,
			Message:  fmt.Sprintf(format, args...),
			Location: &loc,
			Source:   source,
		})
	}

	totalChars := idx.TotalChars()

	// Rule 1: non-negative start.
	if c.StartChar < 0 {
		record(model.FindingRangeInvalid, model.SeverityError, "start_char %d is negative", c.StartChar)
	}

	// Rule 2: end not before start.
	if c.EndChar < c.StartChar {
		record(model.FindingRangeInvalid, model.SeverityError, "end_char %d before start_char %d", c.EndChar, c.StartChar)
	}

	// Rule 3: end within the document. Tolerated as a warning: producer
	// output routinely overshoots by a few characters.
	if c.EndChar > totalChars {
		record(model.FindingRangeInvalid, model.SeverityWarning, "end_char %d beyond document end %d", c.EndChar, totalChars)
	}

	// Rule 4: claimed page must match the page implied by start_char.
	if c.PageNum != nil && idx.HasPages() {
		if implied, ok := idx.PageFor(c.StartChar); ok && implied != *c.PageNum {
			record(model.FindingPageMismatch, model.SeverityWarning, "cited page %d but start_char %d falls on page %d", *c.PageNum, c.StartChar, implied)
		}
	}

	// Rule 5: excerpt must fuzzy-match the actual document substring.
	if c.Excerpt != "" && c.StartChar >= 0 && c.EndChar >= c.StartChar && c.StartChar < totalChars {
		if !v.excerptMatches(c, idx) {
			record(model.FindingExcerptMismatch, model.SeverityWarning, "excerpt does not match document text at [%d,%d)", c.StartChar, c.EndChar)
		}
	}

	for _, f := range findings {
		if f.Severity == model.SeverityError {
			return false, findings
		}
	}
	return true, findings
}

// excerptMatches runs the tight-window comparison and, when it fails,
// retries against a ±slack expanded window at the lower threshold to
// tolerate slightly-off offsets before declaring a mismatch.
func (v *Validator) excerptMatches(c model.Citation, idx *docindex.Index) bool {
	key := cache.Key(fmt.Sprintf("%s:%d:%d:%t:%s", c.DocID, c.StartChar, c.EndChar, v.cfg.OCRTolerant, c.Excerpt))
	if v.cache != nil {
		if val, found := v.cache.Get(key); found && len(val) == 1 {
			return val[0] == '1'
		}
	}

	matched := v.matchExcerpt(c, idx)

	if v.cache != nil {
		b := byte('0')
		if matched {
			b = '1'
		}
		_ = v.cache.Set(key, []byte{b}, v.cacheTTL)
	}
	return matched
}

func (v *Validator) matchExcerpt(c model.Citation, idx *docindex.Index) bool {
	needle := Normalize(c.Excerpt, v.cfg.OCRTolerant)

	tight := Normalize(idx.Slice(c.StartChar, c.EndChar), v.cfg.OCRTolerant)
	if Similarity(needle, tight) >= v.cfg.Threshold {
		return true
	}

	wide := Normalize(idx.Slice(c.StartChar-v.cfg.WindowSlack, c.EndChar+v.cfg.WindowSlack), v.cfg.OCRTolerant)
	return bestWindowSimilarity(needle, wide) >= v.cfg.WideThreshold
}

// ValidateClaim validates every citation a claim carries and checks the
// claim's own support. A determinant claim with zero citations is a
// correctness failure (MissingDeterminantProof, error); an ordinary
// unsupported claim is a completeness nit (MissingCitation, warning).
// Findings are also appended to the claim's audit annotations.
func (v *Validator) ValidateClaim(claim *model.Claim, idx *docindex.Index) []model.ValidationFinding {
	var findings []model.ValidationFinding
	source := claim.ClaimID
	if source == "" {
		source = claim.Source
	}

	if len(claim.Citations) == 0 {
		kind := model.FindingMissingCitation
		sev := model.SeverityWarning
		msg := "claim carries no citations"
		if claim.Determinant {
			kind = model.FindingMissingDeterminantProof
			sev = model.SeverityError
			msg = "determinant claim carries no citations"
		}
		f := model.ValidationFinding{Kind: kind, Severity: sev, Message: msg, Source: source}
		findings = append(findings, f)
		if claim.Determinant {
			claim.AddError(msg)
		} else {
			claim.AddFlag(string(kind))
		}
		return findings
	}

	for _, cit := range claim.Citations {
		ok, fs := v.ValidateCitation(cit, idx, source)
		findings = append(findings, fs...)
		for _, f := range fs {
			claim.AddFlag(string(f.Kind))
		}
		if !ok {
			claim.AddError(fmt.Sprintf("citation [%d,%d) failed validation", cit.StartChar, cit.EndChar))
		}
	}
	return findings
}
