package intake

// ReasonCode classifies the cause of a failure or review routing decision.
// Expected business outcomes carry one of these codes instead of raising
// an error; errors are reserved for genuinely unexpected faults.
type ReasonCode string

const (
	ReasonDuplicateContent            ReasonCode = "DuplicateContent"
	ReasonParseIncomplete             ReasonCode = "ParseIncomplete"
	ReasonAttributionAmbiguous        ReasonCode = "AttributionAmbiguous"
	ReasonAttributionLowConfidence    ReasonCode = "AttributionLowConfidence"
	ReasonClassificationLowConfidence ReasonCode = "ClassificationLowConfidence"
	ReasonStorageFailure              ReasonCode = "StorageFailure"
	ReasonRawLinesMismatch            ReasonCode = "RAW_LINES_MISMATCH"
	ReasonPartialParse                ReasonCode = "PARTIAL_PARSE"
	ReasonSourceCircuitOpen           ReasonCode = "SourceCircuitOpen"
	ReasonUnexpectedError             ReasonCode = "UnexpectedError"
	ReasonManualResume                ReasonCode = "ManualResume"
	ReasonManualReject                ReasonCode = "ManualReject"
)

// IsValid checks if the reason code is one of the known codes
func (r ReasonCode) IsValid() bool {
	switch r {
	case ReasonDuplicateContent, ReasonParseIncomplete, ReasonAttributionAmbiguous,
		ReasonAttributionLowConfidence, ReasonClassificationLowConfidence,
		ReasonStorageFailure, ReasonRawLinesMismatch, ReasonPartialParse,
		ReasonSourceCircuitOpen, ReasonUnexpectedError,
		ReasonManualResume, ReasonManualReject:
		return true
	}
	return false
}
