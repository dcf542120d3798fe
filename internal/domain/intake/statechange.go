package intake

import (
	"time"

	"github.com/google/uuid"
)

// StateChangeEntry is one immutable record in the append-only audit log.
// Sequence carries the transaction's aggregate version at the time of the
// transition, so replaying entries ordered by sequence reconstructs the
// exact transition history of a transaction.
type StateChangeEntry struct {
	ID            uuid.UUID         `json:"id"`
	TransactionID uuid.UUID         `json:"transaction_id"`
	Sequence      int               `json:"sequence"`
	FromStatus    TransactionStatus `json:"from_status"`
	ToStatus      TransactionStatus `json:"to_status"`
	Reason        string            `json:"reason"`
	ReasonCode    *ReasonCode       `json:"reason_code,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
}

// NewStateChangeEntry creates an audit log entry for a status transition
func NewStateChangeEntry(
	transactionID uuid.UUID,
	sequence int,
	from, to TransactionStatus,
	reason string,
	code *ReasonCode,
	metadata map[string]string,
) *StateChangeEntry {
	return &StateChangeEntry{
		ID:            uuid.New(),
		TransactionID: transactionID,
		Sequence:      sequence,
		FromStatus:    from,
		ToStatus:      to,
		Reason:        reason,
		ReasonCode:    code,
		Metadata:      metadata,
		CreatedAt:     time.Now(),
	}
}

// WithMetadata attaches structured metadata to the entry before it is appended
func (e *StateChangeEntry) WithMetadata(key, value string) *StateChangeEntry {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string)
	}
	e.Metadata[key] = value
	return e
}
