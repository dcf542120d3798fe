package intake

import (
	"time"

	"github.com/docintake/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// ExceptionCategory groups exceptions by the pipeline stage that raised them
type ExceptionCategory string

const (
	ExceptionReview         ExceptionCategory = "review"
	ExceptionReconciliation ExceptionCategory = "reconciliation"
)

// ExceptionSeverity indicates how urgently a human must act
type ExceptionSeverity string

const (
	SeverityLow      ExceptionSeverity = "low"
	SeverityMedium   ExceptionSeverity = "medium"
	SeverityHigh     ExceptionSeverity = "high"
	SeverityCritical ExceptionSeverity = "critical"
)

// IsValid checks if the severity is valid
func (s ExceptionSeverity) IsValid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// ExceptionRecord is a manual-resolution work item. Review exceptions carry
// enough context (missing fields, best candidate and its confidence) for a
// reviewer to act without re-deriving the failure from logs.
type ExceptionRecord struct {
	shared.BaseEntity
	TransactionID uuid.UUID          `json:"transaction_id"`
	Category      ExceptionCategory  `json:"category"`
	Severity      ExceptionSeverity  `json:"severity"`
	ReasonCode    ReasonCode         `json:"reason_code"`
	Reason        string             `json:"reason"`
	Candidate     *AttributionResult `json:"candidate,omitempty"`
	Resolved      bool               `json:"resolved"`
	ResolvedAt    *time.Time         `json:"resolved_at,omitempty"`
	ResolvedBy    *uuid.UUID         `json:"resolved_by,omitempty"`
	Resolution    string             `json:"resolution,omitempty"`
}

// NewExceptionRecord creates an unresolved exception for the review queue
func NewExceptionRecord(
	transactionID uuid.UUID,
	category ExceptionCategory,
	severity ExceptionSeverity,
	code ReasonCode,
	reason string,
) (*ExceptionRecord, error) {
	if transactionID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TRANSACTION_ID", "Transaction ID is required")
	}
	if !severity.IsValid() {
		return nil, shared.NewDomainError("INVALID_SEVERITY", "Unknown exception severity")
	}
	if reason == "" {
		return nil, shared.NewDomainError("INVALID_REASON", "Exception reason cannot be empty")
	}
	return &ExceptionRecord{
		BaseEntity:    shared.NewBaseEntity(),
		TransactionID: transactionID,
		Category:      category,
		Severity:      severity,
		ReasonCode:    code,
		Reason:        reason,
	}, nil
}

// WithCandidate attaches the best attribution candidate for the reviewer
func (e *ExceptionRecord) WithCandidate(candidate *AttributionResult) *ExceptionRecord {
	e.Candidate = candidate
	return e
}

// Resolve marks the exception as handled by a reviewer
func (e *ExceptionRecord) Resolve(by uuid.UUID, resolution string) error {
	if e.Resolved {
		return shared.NewDomainError("ALREADY_RESOLVED", "Exception has already been resolved")
	}
	now := time.Now()
	e.Resolved = true
	e.ResolvedAt = &now
	e.ResolvedBy = &by
	e.Resolution = resolution
	e.Touch()
	return nil
}
