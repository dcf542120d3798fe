package intake

import (
	"fmt"

	"github.com/docintake/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// ReconciliationStatus is the verdict on whether a document's stored and
// parsed line counts agree with the declared total.
type ReconciliationStatus string

const (
	ReconciliationPending  ReconciliationStatus = "pending"
	ReconciliationMatch    ReconciliationStatus = "match"
	ReconciliationMismatch ReconciliationStatus = "mismatch"
)

// IsValid checks if the reconciliation status is valid
func (s ReconciliationStatus) IsValid() bool {
	switch s {
	case ReconciliationPending, ReconciliationMatch, ReconciliationMismatch:
		return true
	}
	return false
}

// ReconciliationResult is the outcome of comparing declared, stored and
// parsed line counts. CanPost is true only on an exact three-way match.
type ReconciliationResult struct {
	Status  ReconciliationStatus `json:"status"`
	Reason  ReasonCode           `json:"reason,omitempty"`
	Detail  string               `json:"detail,omitempty"`
	CanPost bool                 `json:"can_post"`
}

// ReconcileCounts is the pure reconciliation decision. Storage losing or
// gaining lines relative to the declared source takes precedence over a
// partial parse, since it signals corruption rather than extraction gaps.
func ReconcileCounts(declared, stored, parsed int) ReconciliationResult {
	if stored != declared {
		return ReconciliationResult{
			Status: ReconciliationMismatch,
			Reason: ReasonRawLinesMismatch,
			Detail: fmt.Sprintf("declared %d lines but %d were stored", declared, stored),
		}
	}
	if parsed < declared {
		return ReconciliationResult{
			Status: ReconciliationMismatch,
			Reason: ReasonPartialParse,
			Detail: fmt.Sprintf("declared %d lines but only %d were parsed", declared, parsed),
		}
	}
	// Parsing more records than the source declared means duplicated
	// business records; that must not post either.
	if parsed > declared {
		return ReconciliationResult{
			Status: ReconciliationMismatch,
			Reason: ReasonRawLinesMismatch,
			Detail: fmt.Sprintf("declared %d lines but %d were parsed", declared, parsed),
		}
	}
	return ReconciliationResult{
		Status:  ReconciliationMatch,
		CanPost: true,
	}
}

// RawDocumentRecord tracks how many raw content units a document declared,
// how many were actually persisted, and how many were parsed into business
// records. Counts are never decremented.
type RawDocumentRecord struct {
	shared.BaseEntity
	TransactionID uuid.UUID            `json:"transaction_id"`
	DeclaredLines int                  `json:"declared_lines"`
	StoredLines   int                  `json:"stored_lines"`
	ParsedLines   int                  `json:"parsed_lines"`
	Status        ReconciliationStatus `json:"status"`
	Reason        string               `json:"reason,omitempty"`
	Postable      bool                 `json:"postable"`
}

// NewRawDocumentRecord creates a record at ingestion time, before any
// parsing has happened.
func NewRawDocumentRecord(transactionID uuid.UUID, declaredLines int) (*RawDocumentRecord, error) {
	if transactionID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TRANSACTION_ID", "Transaction ID is required")
	}
	if declaredLines < 0 {
		return nil, shared.NewDomainError("INVALID_LINE_COUNT", "Declared line count cannot be negative")
	}
	return &RawDocumentRecord{
		BaseEntity:    shared.NewBaseEntity(),
		TransactionID: transactionID,
		DeclaredLines: declaredLines,
		Status:        ReconciliationPending,
	}, nil
}

// DeclareLines fills in the declared total after the fact, for sources that
// only embed the count inside the document itself. A non-zero declaration
// is immutable.
func (r *RawDocumentRecord) DeclareLines(n int) error {
	if n < 0 {
		return shared.NewDomainError("INVALID_LINE_COUNT", "Declared line count cannot be negative")
	}
	if r.DeclaredLines != 0 && r.DeclaredLines != n {
		return shared.NewDomainError("INVALID_LINE_COUNT", "Declared line count is already set")
	}
	r.DeclaredLines = n
	r.Touch()
	return nil
}

// RecordCounts updates the stored and parsed counts once parsing completes.
// Counts only move forward.
func (r *RawDocumentRecord) RecordCounts(stored, parsed int) error {
	if stored < r.StoredLines || parsed < r.ParsedLines {
		return shared.NewDomainError("INVALID_LINE_COUNT", "Line counts can never be decremented")
	}
	r.StoredLines = stored
	r.ParsedLines = parsed
	r.Touch()
	return nil
}

// ApplyReconciliation records a reconciliation verdict. A mismatch is a
// hard stop: the document is marked not postable and stays that way until
// a human resolves the exception.
func (r *RawDocumentRecord) ApplyReconciliation(result ReconciliationResult) error {
	if !result.Status.IsValid() || result.Status == ReconciliationPending {
		return shared.NewDomainError("INVALID_RECONCILIATION", "Reconciliation result must be match or mismatch")
	}
	r.Status = result.Status
	r.Postable = result.CanPost
	if result.Status == ReconciliationMismatch {
		r.Reason = string(result.Reason)
		r.Postable = false
	} else {
		r.Reason = ""
	}
	r.Touch()
	return nil
}
