package intake

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Mandatory field names reported back to reviewers when a parse is incomplete.
const (
	FieldIdentityName = "identity_name"
	FieldIdentityCode = "identity_code"
	FieldSourceName   = "source_name"
	FieldIssueDate    = "issue_date"
	FieldDueDate      = "due_date"
	FieldTotalAmount  = "total_amount"
	FieldTaxAmount    = "tax_amount"
)

// ParsedFields is the snapshot of the mandatory fields extracted from a
// document. Optional parser output is intentionally not retained here;
// only the fields the pipeline gates on are part of the transaction.
type ParsedFields struct {
	IdentityName string           `json:"identity_name"`
	IdentityCode string           `json:"identity_code"`
	SourceName   string           `json:"source_name"`
	IssueDate    *time.Time       `json:"issue_date,omitempty"`
	DueDate      *time.Time       `json:"due_date,omitempty"`
	TotalAmount  *decimal.Decimal `json:"total_amount,omitempty"`
	TaxAmount    *decimal.Decimal `json:"tax_amount,omitempty"`
}

// MissingFields returns the names of mandatory fields that are absent or
// empty, in a fixed order so reasons are stable across retries.
func (p *ParsedFields) MissingFields() []string {
	var missing []string
	if strings.TrimSpace(p.IdentityName) == "" {
		missing = append(missing, FieldIdentityName)
	}
	if strings.TrimSpace(p.IdentityCode) == "" {
		missing = append(missing, FieldIdentityCode)
	}
	if strings.TrimSpace(p.SourceName) == "" {
		missing = append(missing, FieldSourceName)
	}
	if p.IssueDate == nil {
		missing = append(missing, FieldIssueDate)
	}
	if p.DueDate == nil {
		missing = append(missing, FieldDueDate)
	}
	if p.TotalAmount == nil {
		missing = append(missing, FieldTotalAmount)
	}
	if p.TaxAmount == nil {
		missing = append(missing, FieldTaxAmount)
	}
	return missing
}

// IsComplete returns true if every mandatory field is present and non-empty
func (p *ParsedFields) IsComplete() bool {
	return len(p.MissingFields()) == 0
}

// AttributionResult records the entity a document was matched to and the
// confidence of that match.
type AttributionResult struct {
	EntityID   uuid.UUID `json:"entity_id"`
	EntityName string    `json:"entity_name"`
	EntityCode string    `json:"entity_code"`
	Confidence float64   `json:"confidence"`
}

// DocumentCategory represents the business category of an ingested document
type DocumentCategory string

const (
	CategoryBankStatement DocumentCategory = "bank_statement"
	CategoryInvoice       DocumentCategory = "invoice"
	CategoryPOSReport     DocumentCategory = "pos_report"
	CategoryOther         DocumentCategory = "other"
)

// IsValid checks if the category is valid
func (c DocumentCategory) IsValid() bool {
	switch c {
	case CategoryBankStatement, CategoryInvoice, CategoryPOSReport, CategoryOther:
		return true
	}
	return false
}

// ClassificationResult records the category assigned to a document and the
// confidence of the classification.
type ClassificationResult struct {
	Category   DocumentCategory `json:"category"`
	Confidence float64          `json:"confidence"`
}
