package models

import (
	"encoding/json"
	"time"

	"github.com/docintake/backend/internal/domain/intake"
	"github.com/google/uuid"
)

// UploadTransactionModel is the persistence model for intake.UploadTransaction.
// ParsedJSON, AttributionJSON and ClassificationJSON carry the checkpoint
// snapshots as jsonb so the aggregate round-trips without a join.
type UploadTransactionModel struct {
	AggregateModel
	SourceID           string  `gorm:"not null;size:255;index"`
	FileName           string  `gorm:"not null;size:512"`
	FileSize           int64   `gorm:"not null"`
	QuarantineKey      string  `gorm:"not null;size:1024"`
	Checksum           *string `gorm:"size:64;index"`
	Status             string  `gorm:"not null;size:32;index"`
	DeclaredCategory   *string `gorm:"size:32"`
	ParsedJSON         *string `gorm:"column:parsed;type:jsonb"`
	AttributionJSON    *string `gorm:"column:attribution;type:jsonb"`
	ClassificationJSON *string `gorm:"column:classification;type:jsonb"`
	CanonicalKey       *string `gorm:"size:1024"`
	BackupKey          *string `gorm:"size:1024"`
	Reason             string  `gorm:"type:text"`
	ReasonCode         *string `gorm:"size:64"`
}

// TableName returns the table name for UploadTransactionModel
func (UploadTransactionModel) TableName() string {
	return "upload_transactions"
}

// ToDomain converts the persistence model to the domain aggregate
func (m *UploadTransactionModel) ToDomain() (*intake.UploadTransaction, error) {
	tx := &intake.UploadTransaction{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		SourceID:          m.SourceID,
		FileName:          m.FileName,
		FileSize:          m.FileSize,
		QuarantineKey:     m.QuarantineKey,
		Checksum:          m.Checksum,
		Status:            intake.TransactionStatus(m.Status),
		CanonicalKey:      m.CanonicalKey,
		BackupKey:         m.BackupKey,
		Reason:            m.Reason,
	}
	if m.DeclaredCategory != nil {
		category := intake.DocumentCategory(*m.DeclaredCategory)
		tx.DeclaredCategory = &category
	}
	if m.ReasonCode != nil {
		code := intake.ReasonCode(*m.ReasonCode)
		tx.ReasonCode = &code
	}
	if m.ParsedJSON != nil {
		var parsed intake.ParsedFields
		if err := json.Unmarshal([]byte(*m.ParsedJSON), &parsed); err != nil {
			return nil, err
		}
		tx.Parsed = &parsed
	}
	if m.AttributionJSON != nil {
		var attribution intake.AttributionResult
		if err := json.Unmarshal([]byte(*m.AttributionJSON), &attribution); err != nil {
			return nil, err
		}
		tx.Attribution = &attribution
	}
	if m.ClassificationJSON != nil {
		var classification intake.ClassificationResult
		if err := json.Unmarshal([]byte(*m.ClassificationJSON), &classification); err != nil {
			return nil, err
		}
		tx.Classification = &classification
	}
	return tx, nil
}

// FromDomain populates the persistence model from the domain aggregate
func (m *UploadTransactionModel) FromDomain(tx *intake.UploadTransaction) error {
	m.FromDomainAggregateRoot(tx.BaseAggregateRoot)
	m.SourceID = tx.SourceID
	m.FileName = tx.FileName
	m.FileSize = tx.FileSize
	m.QuarantineKey = tx.QuarantineKey
	m.Checksum = tx.Checksum
	m.Status = string(tx.Status)
	m.CanonicalKey = tx.CanonicalKey
	m.BackupKey = tx.BackupKey
	m.Reason = tx.Reason
	m.DeclaredCategory = nil
	if tx.DeclaredCategory != nil {
		category := string(*tx.DeclaredCategory)
		m.DeclaredCategory = &category
	}
	m.ReasonCode = nil
	if tx.ReasonCode != nil {
		code := string(*tx.ReasonCode)
		m.ReasonCode = &code
	}
	m.ParsedJSON = nil
	if tx.Parsed != nil {
		raw, err := json.Marshal(tx.Parsed)
		if err != nil {
			return err
		}
		s := string(raw)
		m.ParsedJSON = &s
	}
	m.AttributionJSON = nil
	if tx.Attribution != nil {
		raw, err := json.Marshal(tx.Attribution)
		if err != nil {
			return err
		}
		s := string(raw)
		m.AttributionJSON = &s
	}
	m.ClassificationJSON = nil
	if tx.Classification != nil {
		raw, err := json.Marshal(tx.Classification)
		if err != nil {
			return err
		}
		s := string(raw)
		m.ClassificationJSON = &s
	}
	return nil
}

// StateChangeLogModel is the persistence model for audit log entries.
// Rows are insert-only; there is no update path.
type StateChangeLogModel struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key"`
	TransactionID uuid.UUID `gorm:"type:uuid;not null;index:idx_state_change_tx_seq,unique"`
	Sequence      int       `gorm:"not null;index:idx_state_change_tx_seq,unique"`
	FromStatus    string    `gorm:"not null;size:32"`
	ToStatus      string    `gorm:"not null;size:32"`
	Reason        string    `gorm:"type:text"`
	ReasonCode    *string   `gorm:"size:64"`
	MetadataJSON  *string   `gorm:"column:metadata;type:jsonb"`
	CreatedAt     time.Time `gorm:"not null"`
}

// TableName returns the table name for StateChangeLogModel
func (StateChangeLogModel) TableName() string {
	return "state_change_log"
}

// ToDomain converts the persistence model to a domain audit entry
func (m *StateChangeLogModel) ToDomain() (*intake.StateChangeEntry, error) {
	entry := &intake.StateChangeEntry{
		ID:            m.ID,
		TransactionID: m.TransactionID,
		Sequence:      m.Sequence,
		FromStatus:    intake.TransactionStatus(m.FromStatus),
		ToStatus:      intake.TransactionStatus(m.ToStatus),
		Reason:        m.Reason,
		CreatedAt:     m.CreatedAt,
	}
	if m.ReasonCode != nil {
		code := intake.ReasonCode(*m.ReasonCode)
		entry.ReasonCode = &code
	}
	if m.MetadataJSON != nil {
		var metadata map[string]string
		if err := json.Unmarshal([]byte(*m.MetadataJSON), &metadata); err != nil {
			return nil, err
		}
		entry.Metadata = metadata
	}
	return entry, nil
}

// FromDomain populates the persistence model from a domain audit entry
func (m *StateChangeLogModel) FromDomain(entry *intake.StateChangeEntry) error {
	m.ID = entry.ID
	m.TransactionID = entry.TransactionID
	m.Sequence = entry.Sequence
	m.FromStatus = string(entry.FromStatus)
	m.ToStatus = string(entry.ToStatus)
	m.Reason = entry.Reason
	m.CreatedAt = entry.CreatedAt
	m.ReasonCode = nil
	if entry.ReasonCode != nil {
		code := string(*entry.ReasonCode)
		m.ReasonCode = &code
	}
	m.MetadataJSON = nil
	if len(entry.Metadata) > 0 {
		raw, err := json.Marshal(entry.Metadata)
		if err != nil {
			return err
		}
		s := string(raw)
		m.MetadataJSON = &s
	}
	return nil
}

// RawDocumentModel is the persistence model for intake.RawDocumentRecord
type RawDocumentModel struct {
	BaseModel
	TransactionID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	DeclaredLines int       `gorm:"not null"`
	StoredLines   int       `gorm:"not null"`
	ParsedLines   int       `gorm:"not null"`
	Status        string    `gorm:"not null;size:16"`
	Reason        string    `gorm:"size:64"`
	Postable      bool      `gorm:"not null"`
}

// TableName returns the table name for RawDocumentModel
func (RawDocumentModel) TableName() string {
	return "raw_documents"
}

// ToDomain converts the persistence model to the domain record
func (m *RawDocumentModel) ToDomain() *intake.RawDocumentRecord {
	return &intake.RawDocumentRecord{
		BaseEntity:    m.BaseModel.ToDomain(),
		TransactionID: m.TransactionID,
		DeclaredLines: m.DeclaredLines,
		StoredLines:   m.StoredLines,
		ParsedLines:   m.ParsedLines,
		Status:        intake.ReconciliationStatus(m.Status),
		Reason:        m.Reason,
		Postable:      m.Postable,
	}
}

// FromDomain populates the persistence model from the domain record
func (m *RawDocumentModel) FromDomain(record *intake.RawDocumentRecord) {
	m.FromDomainBaseEntity(record.BaseEntity)
	m.TransactionID = record.TransactionID
	m.DeclaredLines = record.DeclaredLines
	m.StoredLines = record.StoredLines
	m.ParsedLines = record.ParsedLines
	m.Status = string(record.Status)
	m.Reason = record.Reason
	m.Postable = record.Postable
}

// RawUnitModel is one persisted content unit (line) of a document. Units
// exist so the stored count can be re-derived from what actually landed in
// the database instead of trusting an in-memory counter.
type RawUnitModel struct {
	ID            uint      `gorm:"primaryKey;autoIncrement"`
	TransactionID uuid.UUID `gorm:"type:uuid;not null;index:idx_raw_units_tx_pos,unique"`
	Position      int       `gorm:"not null;index:idx_raw_units_tx_pos,unique"`
	Content       string    `gorm:"type:text;not null"`
	CreatedAt     time.Time `gorm:"not null"`
}

// TableName returns the table name for RawUnitModel
func (RawUnitModel) TableName() string {
	return "raw_units"
}

// ChecksumIndexModel is the persistence model for intake.Artifact. A partial
// unique index on checksum (active rows only) makes Register an atomic
// insert-if-absent at the database level.
type ChecksumIndexModel struct {
	BaseModel
	Checksum      string     `gorm:"not null;size:64"`
	TransactionID uuid.UUID  `gorm:"type:uuid;not null"`
	CanonicalKey  string     `gorm:"not null;size:1024"`
	BackupKey     string     `gorm:"not null;size:1024"`
	FileSize      int64      `gorm:"not null"`
	Revoked       bool       `gorm:"not null"`
	RevokedAt     *time.Time `gorm:""`
}

// TableName returns the table name for ChecksumIndexModel
func (ChecksumIndexModel) TableName() string {
	return "checksum_index"
}

// ToDomain converts the persistence model to a domain artifact
func (m *ChecksumIndexModel) ToDomain() *intake.Artifact {
	return &intake.Artifact{
		BaseEntity:    m.BaseModel.ToDomain(),
		Checksum:      m.Checksum,
		TransactionID: m.TransactionID,
		CanonicalKey:  m.CanonicalKey,
		BackupKey:     m.BackupKey,
		FileSize:      m.FileSize,
		Revoked:       m.Revoked,
		RevokedAt:     m.RevokedAt,
	}
}

// FromDomain populates the persistence model from a domain artifact
func (m *ChecksumIndexModel) FromDomain(artifact *intake.Artifact) {
	m.FromDomainBaseEntity(artifact.BaseEntity)
	m.Checksum = artifact.Checksum
	m.TransactionID = artifact.TransactionID
	m.CanonicalKey = artifact.CanonicalKey
	m.BackupKey = artifact.BackupKey
	m.FileSize = artifact.FileSize
	m.Revoked = artifact.Revoked
	m.RevokedAt = artifact.RevokedAt
}

// ExceptionModel is the persistence model for intake.ExceptionRecord
type ExceptionModel struct {
	BaseModel
	TransactionID uuid.UUID  `gorm:"type:uuid;not null;index"`
	Category      string     `gorm:"not null;size:32"`
	Severity      string     `gorm:"not null;size:16"`
	ReasonCode    string     `gorm:"not null;size:64"`
	Reason        string     `gorm:"type:text;not null"`
	CandidateJSON *string    `gorm:"column:candidate;type:jsonb"`
	Resolved      bool       `gorm:"not null;index"`
	ResolvedAt    *time.Time `gorm:""`
	ResolvedBy    *uuid.UUID `gorm:"type:uuid"`
	Resolution    string     `gorm:"type:text"`
}

// TableName returns the table name for ExceptionModel
func (ExceptionModel) TableName() string {
	return "exception_records"
}

// ToDomain converts the persistence model to a domain exception record
func (m *ExceptionModel) ToDomain() (*intake.ExceptionRecord, error) {
	record := &intake.ExceptionRecord{
		BaseEntity:    m.BaseModel.ToDomain(),
		TransactionID: m.TransactionID,
		Category:      intake.ExceptionCategory(m.Category),
		Severity:      intake.ExceptionSeverity(m.Severity),
		ReasonCode:    intake.ReasonCode(m.ReasonCode),
		Reason:        m.Reason,
		Resolved:      m.Resolved,
		ResolvedAt:    m.ResolvedAt,
		ResolvedBy:    m.ResolvedBy,
		Resolution:    m.Resolution,
	}
	if m.CandidateJSON != nil {
		var candidate intake.AttributionResult
		if err := json.Unmarshal([]byte(*m.CandidateJSON), &candidate); err != nil {
			return nil, err
		}
		record.Candidate = &candidate
	}
	return record, nil
}

// FromDomain populates the persistence model from a domain exception record
func (m *ExceptionModel) FromDomain(record *intake.ExceptionRecord) error {
	m.FromDomainBaseEntity(record.BaseEntity)
	m.TransactionID = record.TransactionID
	m.Category = string(record.Category)
	m.Severity = string(record.Severity)
	m.ReasonCode = string(record.ReasonCode)
	m.Reason = record.Reason
	m.Resolved = record.Resolved
	m.ResolvedAt = record.ResolvedAt
	m.ResolvedBy = record.ResolvedBy
	m.Resolution = record.Resolution
	m.CandidateJSON = nil
	if record.Candidate != nil {
		raw, err := json.Marshal(record.Candidate)
		if err != nil {
			return err
		}
		s := string(raw)
		m.CandidateJSON = &s
	}
	return nil
}
