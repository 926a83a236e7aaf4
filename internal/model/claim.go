package model

// Citation is a lightweight pointer into the document used by downstream
// claims. It is not an ownership relation: it is revalidated against the
// document index every time and never trusted at face value.
type Citation struct {
	DocID      string  `json:"doc_id"`
	StartChar  int     `json:"start_char"`
	EndChar    int     `json:"end_char"`
	PageNum    *int    `json:"page_num,omitempty"`
	Excerpt    string  `json:"excerpt,omitempty"`
	Confidence float64 `json:"confidence"`
}

// Claim is a downstream decision point (audit finding, judge point,
// final-decision proof) whose citations must be checked against the
// real document text.
type Claim struct {
	ClaimID string     `json:"claim_id"`
	Source  string     `json:"source,omitempty"` // Which stage produced it (audit, judge, decision)
	Text    string     `json:"text"`

	// Determinant marks an outcome-critical decision point. A determinant
	// claim with zero citations is a correctness failure, not a
	// completeness nit.
	Determinant bool       `json:"determinant,omitempty"`
	Citations   []Citation `json:"citations"`

	// Mutable-by-append audit annotations. Everything else on a claim is
	// immutable once the run has started.
	Flags  []string `json:"flags,omitempty"`
	Errors []string `json:"errors,omitempty"`
}

// AddFlag appends an audit flag to the claim
func (c *Claim) AddFlag(flag string) {
	c.Flags = append(c.Flags, flag)
}

// AddError appends an audit error annotation to the claim
func (c *Claim) AddError(msg string) {
	c.Errors = append(c.Errors, msg)
}
