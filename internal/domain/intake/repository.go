package intake

import (
	"context"

	"github.com/docintake/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// TransactionFilter narrows transaction listings
type TransactionFilter struct {
	SourceID *string
	Status   *TransactionStatus
}

// TransactionRepository persists upload transactions
type TransactionRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*UploadTransaction, error)
	FindAll(ctx context.Context, filter TransactionFilter, page, pageSize int) (*shared.Paginated[*UploadTransaction], error)
	Save(ctx context.Context, tx *UploadTransaction) error
}

// StateChangeRepository is the append-only audit log. Entries are never
// updated or deleted; History returns them ordered by sequence.
type StateChangeRepository interface {
	Append(ctx context.Context, entry *StateChangeEntry) error
	History(ctx context.Context, transactionID uuid.UUID) ([]*StateChangeEntry, error)
}

// RawDocumentRepository persists line-count reconciliation records and the
// raw content units backing them. StoreUnits returns how many units were
// actually persisted; CountUnits re-reads that number from storage so
// reconciliation never trusts an in-memory count.
type RawDocumentRepository interface {
	FindByTransactionID(ctx context.Context, transactionID uuid.UUID) (*RawDocumentRecord, error)
	Save(ctx context.Context, record *RawDocumentRecord) error
	StoreUnits(ctx context.Context, transactionID uuid.UUID, units []string) (int, error)
	CountUnits(ctx context.Context, transactionID uuid.UUID) (int, error)
}

// ChecksumIndex is the content-addressable dedup index. Register must be
// atomic insert-if-absent: of two concurrent registrations for the same
// checksum exactly one succeeds and the other receives
// shared.ErrDuplicateContent.
type ChecksumIndex interface {
	FindActive(ctx context.Context, checksum string) (*Artifact, error)
	Register(ctx context.Context, artifact *Artifact) error
	Revoke(ctx context.Context, checksum string) error
}

// ExceptionRepository persists manual-resolution work items
type ExceptionRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*ExceptionRecord, error)
	FindUnresolved(ctx context.Context, page, pageSize int) (*shared.Paginated[*ExceptionRecord], error)
	Save(ctx context.Context, record *ExceptionRecord) error
}
