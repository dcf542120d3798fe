package intake

import (
	"fmt"
	"time"

	"github.com/docintake/backend/internal/domain/shared"
)

// UploadTransaction is the aggregate tracking one ingested file through the
// intake pipeline. It is created at receipt, mutated only through checkpoint
// transitions, and retained forever once it reaches a terminal state.
type UploadTransaction struct {
	shared.BaseAggregateRoot
	SourceID         string                `json:"source_id"`
	FileName         string                `json:"file_name"`
	FileSize         int64                 `json:"file_size"`
	QuarantineKey    string                `json:"quarantine_key"`
	Checksum         *string               `json:"checksum,omitempty"`
	Status           TransactionStatus     `json:"status"`
	DeclaredCategory *DocumentCategory     `json:"declared_category,omitempty"`
	Parsed           *ParsedFields         `json:"parsed,omitempty"`
	Attribution      *AttributionResult    `json:"attribution,omitempty"`
	Classification   *ClassificationResult `json:"classification,omitempty"`
	CanonicalKey     *string               `json:"canonical_key,omitempty"`
	BackupKey        *string               `json:"backup_key,omitempty"`
	Reason           string                `json:"reason,omitempty"`
	ReasonCode       *ReasonCode           `json:"reason_code,omitempty"`
}

// NewUploadTransaction creates a transaction in the Received state.
// The quarantine key must already hold the original bytes.
func NewUploadTransaction(sourceID, fileName string, fileSize int64, quarantineKey string) (*UploadTransaction, error) {
	if sourceID == "" {
		return nil, shared.NewDomainError("INVALID_SOURCE", "Source ID cannot be empty")
	}
	if fileName == "" {
		return nil, shared.NewDomainError("INVALID_FILE_NAME", "File name cannot be empty")
	}
	if fileSize < 0 {
		return nil, shared.NewDomainError("INVALID_FILE_SIZE", "File size cannot be negative")
	}
	if quarantineKey == "" {
		return nil, shared.NewDomainError("INVALID_QUARANTINE_KEY", "Quarantine key cannot be empty")
	}

	return &UploadTransaction{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		SourceID:          sourceID,
		FileName:          fileName,
		FileSize:          fileSize,
		QuarantineKey:     quarantineKey,
		Status:            StatusReceived,
	}, nil
}

// TransitionTo moves the transaction to a new status. It is the only
// status mutator; it validates the transition against the closed table and
// returns the StateChangeEntry the caller must append to the audit log, so
// there is no code path that changes status without producing a log entry.
func (t *UploadTransaction) TransitionTo(to TransactionStatus, reason string, code *ReasonCode) (*StateChangeEntry, error) {
	if !to.IsValid() {
		return nil, shared.NewDomainError("INVALID_STATUS", fmt.Sprintf("Unknown status: %s", to))
	}
	if !CanTransition(t.Status, to) {
		return nil, shared.NewDomainError("INVALID_TRANSITION",
			fmt.Sprintf("Cannot transition from %s to %s", t.Status, to))
	}

	from := t.Status
	t.Status = to
	t.Reason = reason
	t.ReasonCode = code
	t.UpdatedAt = time.Now()
	t.IncrementVersion()

	return NewStateChangeEntry(t.ID, t.Version, from, to, reason, code, nil), nil
}

// SetChecksum records the content checksum computed during the checksum
// checkpoint. The checksum is immutable once set; retries of the same
// transaction re-derive the identical value from the quarantined bytes.
func (t *UploadTransaction) SetChecksum(checksum string) error {
	if checksum == "" {
		return shared.NewDomainError("INVALID_CHECKSUM", "Checksum cannot be empty")
	}
	if t.Checksum != nil && *t.Checksum != checksum {
		return shared.NewDomainError("CHECKSUM_CONFLICT", "Checksum is already set to a different value")
	}
	t.Checksum = &checksum
	return nil
}

// SetDeclaredCategory records the category supplied explicitly by the caller
func (t *UploadTransaction) SetDeclaredCategory(category DocumentCategory) error {
	if !category.IsValid() {
		return shared.NewDomainError("INVALID_CATEGORY", fmt.Sprintf("Unknown document category: %s", category))
	}
	t.DeclaredCategory = &category
	return nil
}

// SetParsed stores the parsed mandatory-field snapshot
func (t *UploadTransaction) SetParsed(fields *ParsedFields) {
	t.Parsed = fields
}

// SetAttribution stores the attribution result
func (t *UploadTransaction) SetAttribution(result *AttributionResult) {
	t.Attribution = result
}

// SetClassification stores the classification result
func (t *UploadTransaction) SetClassification(result *ClassificationResult) {
	t.Classification = result
}

// SetStorageKeys records the canonical and backup locations after a
// successful dual write.
func (t *UploadTransaction) SetStorageKeys(canonical, backup string) error {
	if canonical == "" || backup == "" {
		return shared.NewDomainError("INVALID_STORAGE_KEY", "Canonical and backup keys are both required")
	}
	t.CanonicalKey = &canonical
	t.BackupKey = &backup
	return nil
}

// IsTerminal returns true if the transaction can take no further automated action
func (t *UploadTransaction) IsTerminal() bool {
	return t.Status.IsTerminal()
}
