package intake

// TransactionStatus represents the lifecycle stage of an upload transaction
type TransactionStatus string

const (
	StatusReceived              TransactionStatus = "received"
	StatusPendingChecksum       TransactionStatus = "pending_checksum"
	StatusPendingParse          TransactionStatus = "pending_parse"
	StatusPendingAttribution    TransactionStatus = "pending_attribution"
	StatusPendingClassification TransactionStatus = "pending_classification"
	StatusApprovedForStorage    TransactionStatus = "approved_for_storage"
	StatusStorageComplete       TransactionStatus = "storage_complete"
	StatusFailed                TransactionStatus = "failed"
	StatusPendingReview         TransactionStatus = "pending_review"
)

// IsValid checks if the status is valid
func (s TransactionStatus) IsValid() bool {
	switch s {
	case StatusReceived, StatusPendingChecksum, StatusPendingParse,
		StatusPendingAttribution, StatusPendingClassification,
		StatusApprovedForStorage, StatusStorageComplete,
		StatusFailed, StatusPendingReview:
		return true
	}
	return false
}

// IsTerminal returns true if no further automated action is possible.
// PendingReview is recoverable by a human and therefore not terminal.
func (s TransactionStatus) IsTerminal() bool {
	return s == StatusStorageComplete || s == StatusFailed
}

// transitions is the closed transition table for the intake state machine.
// Failed and PendingReview are reachable from every non-terminal state;
// a reviewed transaction may only be resumed at the parse stage or rejected.
var transitions = map[TransactionStatus][]TransactionStatus{
	StatusReceived:              {StatusPendingChecksum, StatusFailed, StatusPendingReview},
	StatusPendingChecksum:       {StatusPendingParse, StatusFailed, StatusPendingReview},
	StatusPendingParse:          {StatusPendingAttribution, StatusFailed, StatusPendingReview},
	StatusPendingAttribution:    {StatusPendingClassification, StatusFailed, StatusPendingReview},
	StatusPendingClassification: {StatusApprovedForStorage, StatusFailed, StatusPendingReview},
	StatusApprovedForStorage:    {StatusStorageComplete, StatusFailed, StatusPendingReview},
	StatusPendingReview:         {StatusPendingParse, StatusFailed},
	StatusStorageComplete:       {},
	StatusFailed:                {},
}

// CanTransition reports whether moving from one status to another is allowed
func CanTransition(from, to TransactionStatus) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
