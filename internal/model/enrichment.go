package model

import "time"

// Verification is the tri-state outcome of checking an inferred domain.
type Verification string

const (
	VerificationUnknown  Verification = "unknown"
	VerificationVerified Verification = "verified"
	VerificationRejected Verification = "rejected"
)

// Enrichment is attached to a record by the domain inference stage.
// Verified encodes the tri-state as null (unknown), true or false.
type Enrichment struct {
	Domains    []string  `json:"domains"`
	Verified   *bool     `json:"verified"`
	Checked    bool      `json:"checked"`
	InferredAt time.Time `json:"inferred_at"`
}

// Status maps the stored flag to its Verification value.
func (e *Enrichment) Status() Verification {
	switch {
	case e == nil || e.Verified == nil:
		return VerificationUnknown
	case *e.Verified:
		return VerificationVerified
	default:
		return VerificationRejected
	}
}

// SetStatus stores v and marks the enrichment as checked unless v is unknown.
func (e *Enrichment) SetStatus(v Verification) {
	switch v {
	case VerificationVerified:
		e.Verified = Ptr(true)
		e.Checked = true
	case VerificationRejected:
		e.Verified = Ptr(false)
		e.Checked = true
	default:
		e.Verified = nil
		e.Checked = false
	}
}
