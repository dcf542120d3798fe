package intakeapp

import (
	"context"

	"github.com/docintake/backend/internal/domain/intake"
	"github.com/google/uuid"
)

// ParsedDocument is the parser collaborator's output: the mandatory field
// snapshot, the raw content units extracted from the document, and how many
// of those units were turned into business records.
type ParsedDocument struct {
	Fields        intake.ParsedFields
	RawUnits      []string
	ParsedRecords int
}

// DocumentParser extracts structured content from raw document bytes.
// Implementations must report a missing mandatory field through the
// ParsedFields snapshot rather than silently defaulting it.
type DocumentParser interface {
	Parse(ctx context.Context, content []byte, sourceHint string) (*ParsedDocument, error)
}

// EntityCandidate is one possible match returned by the entity directory.
// The directory does not compute confidence; the caller scores candidates
// with its own rule.
type EntityCandidate struct {
	ID   uuid.UUID
	Name string
	Code string
}

// EntityDirectory looks up candidate entities by free-text name and/or code
type EntityDirectory interface {
	Lookup(ctx context.Context, name, code string) ([]EntityCandidate, error)
}

// QuarantineStore holds unverified uploaded bytes, physically separate from
// canonical storage.
type QuarantineStore interface {
	Put(ctx context.Context, key string, content []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// ArtifactStore performs the dual write of verified bytes to the primary
// and backup locations. PutPair is all-or-nothing: on any failure it rolls
// back partial writes before returning, so a half-written artifact is never
// discoverable.
type ArtifactStore interface {
	PutPair(ctx context.Context, canonicalKey, backupKey string, content []byte) error
	DeletePair(ctx context.Context, canonicalKey, backupKey string) error
}

// SourceAvailability is the circuit breaker surface the orchestrator needs
type SourceAvailability interface {
	Availability(sourceID string) (bool, string)
	RecordResult(sourceID string, success bool)
}

// ChecksumClaimStore breaks ties between concurrent uploads of identical
// bytes before either reaches the dedup index. Claim is atomic: the first
// caller for a checksum wins; later callers receive the winner's
// transaction id.
type ChecksumClaimStore interface {
	Claim(ctx context.Context, checksum string, transactionID uuid.UUID) (winner uuid.UUID, ok bool, err error)
	Release(ctx context.Context, checksum string) error
}

// ReviewQueue receives exception records for manual resolution outside the
// pipeline.
type ReviewQueue interface {
	Submit(ctx context.Context, record *intake.ExceptionRecord) error
}
