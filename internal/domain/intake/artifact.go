package intake

import (
	"time"

	"github.com/docintake/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Artifact is one entry in the content-addressable dedup index. The
// checksum is unique among active (non-revoked) artifacts; re-ingesting
// identical bytes resolves to the existing entry.
type Artifact struct {
	shared.BaseEntity
	Checksum      string     `json:"checksum"`
	TransactionID uuid.UUID  `json:"transaction_id"`
	CanonicalKey  string     `json:"canonical_key"`
	BackupKey     string     `json:"backup_key"`
	FileSize      int64      `json:"file_size"`
	Revoked       bool       `json:"revoked"`
	RevokedAt     *time.Time `json:"revoked_at,omitempty"`
}

// NewArtifact creates a dedup index entry for a stored document
func NewArtifact(checksum string, transactionID uuid.UUID, canonicalKey, backupKey string, fileSize int64) (*Artifact, error) {
	if checksum == "" {
		return nil, shared.NewDomainError("INVALID_CHECKSUM", "Checksum cannot be empty")
	}
	if transactionID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TRANSACTION_ID", "Transaction ID is required")
	}
	if canonicalKey == "" || backupKey == "" {
		return nil, shared.NewDomainError("INVALID_STORAGE_KEY", "Canonical and backup keys are both required")
	}
	return &Artifact{
		BaseEntity:    shared.NewBaseEntity(),
		Checksum:      checksum,
		TransactionID: transactionID,
		CanonicalKey:  canonicalKey,
		BackupKey:     backupKey,
		FileSize:      fileSize,
	}, nil
}

// Revoke removes the artifact from dedup consideration without deleting
// it; revoked artifacts no longer block re-ingestion of the same content.
func (a *Artifact) Revoke() error {
	if a.Revoked {
		return shared.NewDomainError("ALREADY_REVOKED", "Artifact is already revoked")
	}
	now := time.Now()
	a.Revoked = true
	a.RevokedAt = &now
	a.Touch()
	return nil
}
