package intakeapp

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/docintake/backend/internal/domain/intake"
	"github.com/docintake/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// OrchestratorConfig holds the tunable behavior of the intake pipeline
type OrchestratorConfig struct {
	MinAttributionConfidence    float64
	MinClassificationConfidence float64
	ParseTimeout                time.Duration
	QuarantinePrefix            string
	CanonicalPrefix             string
	BackupPrefix                string
	MaxWorkers                  int64
}

// DefaultOrchestratorConfig returns the production defaults
func DefaultOrchestratorConfig() OrchestratorConfig {
	return OrchestratorConfig{
		MinAttributionConfidence:    DefaultMinConfidence,
		MinClassificationConfidence: DefaultMinConfidence,
		ParseTimeout:                30 * time.Second,
		QuarantinePrefix:            "quarantine",
		CanonicalPrefix:             "documents",
		BackupPrefix:                "backup",
		MaxWorkers:                  8,
	}
}

func (c OrchestratorConfig) normalize() OrchestratorConfig {
	def := DefaultOrchestratorConfig()
	if c.MinAttributionConfidence <= 0 {
		c.MinAttributionConfidence = def.MinAttributionConfidence
	}
	if c.MinClassificationConfidence <= 0 {
		c.MinClassificationConfidence = def.MinClassificationConfidence
	}
	if c.ParseTimeout <= 0 {
		c.ParseTimeout = def.ParseTimeout
	}
	if c.QuarantinePrefix == "" {
		c.QuarantinePrefix = def.QuarantinePrefix
	}
	if c.CanonicalPrefix == "" {
		c.CanonicalPrefix = def.CanonicalPrefix
	}
	if c.BackupPrefix == "" {
		c.BackupPrefix = def.BackupPrefix
	}
	if c.MaxWorkers <= 0 {
		c.MaxWorkers = def.MaxWorkers
	}
	return c
}

// UploadRequest is the front-door input for one document
type UploadRequest struct {
	SourceID      string
	FileName      string
	Content       []byte
	DeclaredLines int                      // 0 means "take the count the parser extracts"
	Category      *intake.DocumentCategory // optional caller-supplied category
}

// UploadResult reports the outcome of an intake run back to the caller
type UploadResult struct {
	TransactionID uuid.UUID                `json:"transaction_id"`
	Status        intake.TransactionStatus `json:"status"`
	Reason        string                   `json:"reason,omitempty"`
	ReasonCode    *intake.ReasonCode       `json:"reason_code,omitempty"`
	// Populated for DuplicateContent so the caller can find the original.
	ExistingTransactionID *uuid.UUID `json:"existing_transaction_id,omitempty"`
	ExistingCanonicalKey  *string    `json:"existing_canonical_key,omitempty"`
	// Populated when the source circuit is open and the parse was not dispatched.
	RetryAfter string `json:"retry_after,omitempty"`
}

// MetricsRecorder receives pipeline events for the observability surface.
// All methods must be cheap and non-blocking.
type MetricsRecorder interface {
	TransactionTransition(ctx context.Context, to intake.TransactionStatus, code *intake.ReasonCode)
	DuplicateRejected(ctx context.Context, sourceID string)
	ReconciliationMismatch(ctx context.Context, reason intake.ReasonCode)
}

// UploadOrchestrator is the checkpointed intake state machine. It sequences
// Receipt, Checksum, Parse, Attribution, Classification and Storage, and is
// the only writer of transaction state. Checkpoints within one transaction
// run strictly sequentially; different transactions run concurrently behind
// a bounded worker semaphore for the parse and storage stages.
type UploadOrchestrator struct {
	transactions intake.TransactionRepository
	auditLog     intake.StateChangeRepository
	rawDocs      intake.RawDocumentRepository
	index        intake.ChecksumIndex
	claims       ChecksumClaimStore
	parser       DocumentParser
	directory    EntityDirectory
	quarantine   QuarantineStore
	artifacts    ArtifactStore
	breaker      SourceAvailability
	recon        *ReconciliationService
	metrics      MetricsRecorder
	logger       *zap.Logger
	cfg          OrchestratorConfig
	workers      *semaphore.Weighted
}

// OrchestratorDeps bundles the orchestrator's collaborators
type OrchestratorDeps struct {
	Transactions intake.TransactionRepository
	AuditLog     intake.StateChangeRepository
	RawDocs      intake.RawDocumentRepository
	Index        intake.ChecksumIndex
	Claims       ChecksumClaimStore
	Parser       DocumentParser
	Directory    EntityDirectory
	Quarantine   QuarantineStore
	Artifacts    ArtifactStore
	Breaker      SourceAvailability
	Recon        *ReconciliationService
	Metrics      MetricsRecorder
	Logger       *zap.Logger
}

// NewUploadOrchestrator creates a new UploadOrchestrator
func NewUploadOrchestrator(deps OrchestratorDeps, cfg OrchestratorConfig) *UploadOrchestrator {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg = cfg.normalize()
	return &UploadOrchestrator{
		transactions: deps.Transactions,
		auditLog:     deps.AuditLog,
		rawDocs:      deps.RawDocs,
		index:        deps.Index,
		claims:       deps.Claims,
		parser:       deps.Parser,
		directory:    deps.Directory,
		quarantine:   deps.Quarantine,
		artifacts:    deps.Artifacts,
		breaker:      deps.Breaker,
		recon:        deps.Recon,
		metrics:      deps.Metrics,
		logger:       logger,
		cfg:          cfg,
		workers:      semaphore.NewWeighted(cfg.MaxWorkers),
	}
}

// Intake runs a document through the full pipeline and returns its final
// state. The receipt and checksum stages run inline; the parse and storage
// stages are gated by the bounded worker semaphore.
func (o *UploadOrchestrator) Intake(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	tx, err := o.receive(ctx, req)
	if err != nil {
		return nil, err
	}
	return o.Process(ctx, tx.ID)
}

// receive is the Receipt checkpoint: quarantine the original bytes and
// create the transaction.
func (o *UploadOrchestrator) receive(ctx context.Context, req UploadRequest) (*intake.UploadTransaction, error) {
	quarantineKey := path.Join(o.cfg.QuarantinePrefix, uuid.NewString(), req.FileName)
	if err := o.quarantine.Put(ctx, quarantineKey, req.Content); err != nil {
		return nil, fmt.Errorf("failed to quarantine upload: %w", err)
	}

	tx, err := intake.NewUploadTransaction(req.SourceID, req.FileName, int64(len(req.Content)), quarantineKey)
	if err != nil {
		return nil, err
	}
	if req.Category != nil {
		if err := tx.SetDeclaredCategory(*req.Category); err != nil {
			return nil, err
		}
	}
	if err := o.transactions.Save(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	record, err := intake.NewRawDocumentRecord(tx.ID, req.DeclaredLines)
	if err != nil {
		return nil, err
	}
	if err := o.rawDocs.Save(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to create raw document record: %w", err)
	}

	if err := o.transition(ctx, tx, intake.StatusPendingChecksum, "original bytes quarantined", nil, nil); err != nil {
		return nil, err
	}

	o.logger.Info("Upload received",
		zap.String("transaction_id", tx.ID.String()),
		zap.String("source_id", tx.SourceID),
		zap.String("file_name", tx.FileName),
		zap.Int64("file_size", tx.FileSize),
	)
	return tx, nil
}

// Process advances a transaction through its remaining checkpoints until it
// reaches a terminal state, lands in review, or is blocked by an open
// circuit. It is safe to call again after the blocking condition clears;
// retries are idempotent because they re-key off the same transaction id
// and the same checksum.
func (o *UploadOrchestrator) Process(ctx context.Context, transactionID uuid.UUID) (*UploadResult, error) {
	for {
		tx, err := o.transactions.FindByID(ctx, transactionID)
		if err != nil {
			return nil, fmt.Errorf("failed to load transaction: %w", err)
		}

		var halt *UploadResult
		switch tx.Status {
		case intake.StatusPendingChecksum:
			halt, err = o.checkpointChecksum(ctx, tx)
		case intake.StatusPendingParse:
			halt, err = o.checkpointParse(ctx, tx)
		case intake.StatusPendingAttribution:
			halt, err = o.checkpointAttribution(ctx, tx)
		case intake.StatusPendingClassification:
			halt, err = o.checkpointClassification(ctx, tx)
		case intake.StatusApprovedForStorage:
			halt, err = o.checkpointStorage(ctx, tx)
		default:
			return o.resultFor(tx), nil
		}

		if err != nil {
			// Catch-all: no unexpected error escapes a checkpoint boundary.
			// The raw message is preserved in the audit trail.
			return o.fail(ctx, tx, intake.ReasonUnexpectedError, err.Error())
		}
		if halt != nil {
			return halt, nil
		}
	}
}

// checkpointChecksum hashes the quarantined bytes and consults the dedup
// index. Exactly one of two racing identical uploads can win the claim;
// the loser is deterministically routed to DuplicateContent.
func (o *UploadOrchestrator) checkpointChecksum(ctx context.Context, tx *intake.UploadTransaction) (*UploadResult, error) {
	content, err := o.quarantine.Get(ctx, tx.QuarantineKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read quarantined bytes: %w", err)
	}

	sum := sha256.Sum256(content)
	checksum := hex.EncodeToString(sum[:])
	if err := tx.SetChecksum(checksum); err != nil {
		return nil, err
	}

	if existing, err := o.index.FindActive(ctx, checksum); err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("dedup index lookup failed: %w", err)
	} else if existing != nil {
		return o.rejectDuplicate(ctx, tx, existing.TransactionID, &existing.CanonicalKey)
	}

	winner, ok, err := o.claims.Claim(ctx, checksum, tx.ID)
	if err != nil {
		return nil, fmt.Errorf("checksum claim failed: %w", err)
	}
	if !ok {
		return o.rejectDuplicate(ctx, tx, winner, nil)
	}

	meta := map[string]string{"checksum": checksum}
	if err := o.transition(ctx, tx, intake.StatusPendingParse, "checksum computed, no active duplicate", nil, meta); err != nil {
		return nil, err
	}
	return nil, nil
}

// checkpointParse consults the circuit breaker, dispatches the parser with
// a bounded timeout, validates the mandatory field set and reconciles line
// counts before the transaction may advance.
func (o *UploadOrchestrator) checkpointParse(ctx context.Context, tx *intake.UploadTransaction) (*UploadResult, error) {
	available, reason := o.breaker.Availability(tx.SourceID)
	if !available {
		// Do not call the parser, do not transition: the transaction stays
		// in PendingParse and is retried once the source recovers.
		o.logger.Warn("Parse blocked by open circuit",
			zap.String("transaction_id", tx.ID.String()),
			zap.String("source_id", tx.SourceID),
			zap.String("reason", reason),
		)
		code := intake.ReasonSourceCircuitOpen
		return &UploadResult{
			TransactionID: tx.ID,
			Status:        tx.Status,
			Reason:        reason,
			ReasonCode:    &code,
			RetryAfter:    reason,
		}, nil
	}

	if err := o.workers.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer o.workers.Release(1)

	content, err := o.quarantine.Get(ctx, tx.QuarantineKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read quarantined bytes: %w", err)
	}

	parseCtx, cancel := context.WithTimeout(ctx, o.cfg.ParseTimeout)
	doc, parseErr := o.parser.Parse(parseCtx, content, tx.SourceID)
	cancel()
	if parseErr != nil {
		o.breaker.RecordResult(tx.SourceID, false)
		return o.review(ctx, tx, intake.ReasonParseIncomplete,
			fmt.Sprintf("parser failed: %v", parseErr), intake.SeverityMedium, nil)
	}

	if missing := doc.Fields.MissingFields(); len(missing) > 0 {
		o.breaker.RecordResult(tx.SourceID, false)
		return o.review(ctx, tx, intake.ReasonParseIncomplete,
			fmt.Sprintf("missing mandatory fields: %s", strings.Join(missing, ", ")),
			intake.SeverityMedium, nil)
	}

	o.breaker.RecordResult(tx.SourceID, true)

	if _, err := o.rawDocs.StoreUnits(ctx, tx.ID, doc.RawUnits); err != nil {
		return nil, fmt.Errorf("failed to store raw units: %w", err)
	}

	record, err := o.rawDocs.FindByTransactionID(ctx, tx.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load raw document record: %w", err)
	}
	if record.DeclaredLines == 0 && len(doc.RawUnits) > 0 {
		if err := record.DeclareLines(len(doc.RawUnits)); err != nil {
			return nil, err
		}
		if err := o.rawDocs.Save(ctx, record); err != nil {
			return nil, fmt.Errorf("failed to save raw document record: %w", err)
		}
	}

	result, err := o.recon.Reconcile(ctx, tx.ID, record.DeclaredLines, doc.ParsedRecords)
	if err != nil {
		return nil, err
	}
	if result.Status == intake.ReconciliationMismatch {
		if o.metrics != nil {
			o.metrics.ReconciliationMismatch(ctx, result.Reason)
		}
		tx.SetParsed(&doc.Fields)
		// The reconciliation service has already raised the high-severity
		// exception; here the transaction itself is parked for review.
		return o.reviewWithoutException(ctx, tx, result.Reason, result.Detail)
	}

	tx.SetParsed(&doc.Fields)
	if err := o.transition(ctx, tx, intake.StatusPendingAttribution, "mandatory fields parsed and reconciled", nil, nil); err != nil {
		return nil, err
	}
	return nil, nil
}

// checkpointAttribution matches the parsed identity against the entity
// directory using the deterministic confidence rule.
func (o *UploadOrchestrator) checkpointAttribution(ctx context.Context, tx *intake.UploadTransaction) (*UploadResult, error) {
	if tx.Parsed == nil {
		return nil, shared.NewDomainError("MISSING_PARSE_RESULT", "Attribution requires a parsed field snapshot")
	}

	candidates, err := o.directory.Lookup(ctx, tx.Parsed.IdentityName, tx.Parsed.IdentityCode)
	if err != nil {
		return nil, fmt.Errorf("entity directory lookup failed: %w", err)
	}

	best, found := SelectCandidate(candidates, tx.Parsed.IdentityName, tx.Parsed.IdentityCode)
	if !found {
		return o.review(ctx, tx, intake.ReasonAttributionAmbiguous,
			fmt.Sprintf("no directory candidate for identity %q", tx.Parsed.IdentityName),
			intake.SeverityMedium, nil)
	}
	if best.Confidence < o.cfg.MinAttributionConfidence {
		return o.review(ctx, tx, intake.ReasonAttributionLowConfidence,
			fmt.Sprintf("best candidate %q scored %.2f, below threshold %.2f",
				best.EntityName, best.Confidence, o.cfg.MinAttributionConfidence),
			intake.SeverityMedium, best)
	}

	tx.SetAttribution(best)
	meta := map[string]string{
		"entity_id":  best.EntityID.String(),
		"confidence": fmt.Sprintf("%.2f", best.Confidence),
	}
	if err := o.transition(ctx, tx, intake.StatusPendingClassification, "entity attributed", nil, meta); err != nil {
		return nil, err
	}
	return nil, nil
}

// checkpointClassification accepts an explicit caller category at full
// confidence, or applies the keyword heuristic.
func (o *UploadOrchestrator) checkpointClassification(ctx context.Context, tx *intake.UploadTransaction) (*UploadResult, error) {
	var result intake.ClassificationResult
	if tx.DeclaredCategory != nil {
		result = ClassifyExplicit(*tx.DeclaredCategory)
	} else {
		if tx.Parsed == nil {
			return nil, shared.NewDomainError("MISSING_PARSE_RESULT", "Classification requires a parsed field snapshot")
		}
		result = ClassifyHeuristic(tx.Parsed, tx.FileName)
	}

	if result.Confidence < o.cfg.MinClassificationConfidence {
		return o.review(ctx, tx, intake.ReasonClassificationLowConfidence,
			fmt.Sprintf("category %q guessed with confidence %.2f, below threshold %.2f",
				result.Category, result.Confidence, o.cfg.MinClassificationConfidence),
			intake.SeverityLow, nil)
	}

	tx.SetClassification(&result)
	meta := map[string]string{
		"category":   string(result.Category),
		"confidence": fmt.Sprintf("%.2f", result.Confidence),
	}
	if err := o.transition(ctx, tx, intake.StatusApprovedForStorage, "document classified", nil, meta); err != nil {
		return nil, err
	}
	return nil, nil
}

// checkpointStorage performs the dual write, registers the artifact in the
// dedup index and removes the quarantine copy. Any failure rolls back the
// partial writes before the transaction fails.
func (o *UploadOrchestrator) checkpointStorage(ctx context.Context, tx *intake.UploadTransaction) (*UploadResult, error) {
	if tx.Checksum == nil {
		return nil, shared.NewDomainError("MISSING_CHECKSUM", "Storage requires a computed checksum")
	}
	checksum := *tx.Checksum

	if err := o.workers.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer o.workers.Release(1)

	content, err := o.quarantine.Get(ctx, tx.QuarantineKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read quarantined bytes: %w", err)
	}

	canonicalKey := path.Join(o.cfg.CanonicalPrefix, checksum[:2], checksum, tx.FileName)
	backupKey := path.Join(o.cfg.BackupPrefix, checksum[:2], checksum, tx.FileName)

	if err := o.artifacts.PutPair(ctx, canonicalKey, backupKey, content); err != nil {
		return o.fail(ctx, tx, intake.ReasonStorageFailure,
			fmt.Sprintf("dual write failed: %v", err))
	}

	artifact, err := intake.NewArtifact(checksum, tx.ID, canonicalKey, backupKey, tx.FileSize)
	if err != nil {
		o.rollbackPair(ctx, canonicalKey, backupKey)
		return nil, err
	}
	if err := o.index.Register(ctx, artifact); err != nil {
		o.rollbackPair(ctx, canonicalKey, backupKey)
		if errors.Is(err, shared.ErrDuplicateContent) {
			// This transaction held the checksum claim through the pipeline;
			// losing the register race still ends its ownership.
			if relErr := o.claims.Release(ctx, checksum); relErr != nil {
				o.logger.Warn("Failed to release checksum claim", zap.String("checksum", checksum), zap.Error(relErr))
			}
			existing, lookupErr := o.index.FindActive(ctx, checksum)
			if lookupErr == nil && existing != nil {
				return o.rejectDuplicate(ctx, tx, existing.TransactionID, &existing.CanonicalKey)
			}
			return o.fail(ctx, tx, intake.ReasonDuplicateContent, "identical content registered concurrently")
		}
		return o.fail(ctx, tx, intake.ReasonStorageFailure,
			fmt.Sprintf("artifact registration failed: %v", err))
	}

	if err := tx.SetStorageKeys(canonicalKey, backupKey); err != nil {
		return nil, err
	}

	if err := o.quarantine.Delete(ctx, tx.QuarantineKey); err != nil {
		// The artifact is durable and registered; a stale quarantine copy
		// is cleaned up out of band rather than unwinding the commit.
		o.logger.Warn("Failed to remove quarantine copy",
			zap.String("transaction_id", tx.ID.String()),
			zap.String("quarantine_key", tx.QuarantineKey),
			zap.Error(err),
		)
	}
	if err := o.claims.Release(ctx, checksum); err != nil {
		o.logger.Warn("Failed to release checksum claim", zap.String("checksum", checksum), zap.Error(err))
	}

	meta := map[string]string{"canonical_key": canonicalKey, "backup_key": backupKey}
	if err := o.transition(ctx, tx, intake.StatusStorageComplete, "artifact stored and registered", nil, meta); err != nil {
		return nil, err
	}

	o.logger.Info("Upload stored",
		zap.String("transaction_id", tx.ID.String()),
		zap.String("canonical_key", canonicalKey),
	)
	return o.resultFor(tx), nil
}

// ResumeFromReview is the manual-resolution entry point. Approval re-enters
// the pipeline at the parse stage; rejection fails the transaction.
func (o *UploadOrchestrator) ResumeFromReview(ctx context.Context, transactionID uuid.UUID, approve bool, note string) (*UploadResult, error) {
	tx, err := o.transactions.FindByID(ctx, transactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load transaction: %w", err)
	}
	if tx.Status != intake.StatusPendingReview {
		return nil, shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Transaction is %s, only pending_review can be resumed", tx.Status))
	}

	if !approve {
		reason := note
		if reason == "" {
			reason = "rejected by reviewer"
		}
		return o.fail(ctx, tx, intake.ReasonManualReject, reason)
	}

	reason := note
	if reason == "" {
		reason = "resumed by reviewer"
	}
	code := intake.ReasonManualResume
	if err := o.transition(ctx, tx, intake.StatusPendingParse, reason, &code, nil); err != nil {
		return nil, err
	}
	return o.Process(ctx, tx.ID)
}

// rejectDuplicate terminates a transaction whose content already exists,
// pointing the caller at the surviving artifact.
func (o *UploadOrchestrator) rejectDuplicate(ctx context.Context, tx *intake.UploadTransaction, winnerTxID uuid.UUID, canonicalKey *string) (*UploadResult, error) {
	if o.metrics != nil {
		o.metrics.DuplicateRejected(ctx, tx.SourceID)
	}
	detail := fmt.Sprintf("identical content already ingested by transaction %s", winnerTxID)
	if canonicalKey != nil {
		detail = fmt.Sprintf("%s at %s", detail, *canonicalKey)
	}

	result, err := o.fail(ctx, tx, intake.ReasonDuplicateContent, detail)
	if err != nil {
		return nil, err
	}
	result.ExistingTransactionID = &winnerTxID
	result.ExistingCanonicalKey = canonicalKey
	return result, nil
}

// fail moves a transaction to the terminal Failed state
func (o *UploadOrchestrator) fail(ctx context.Context, tx *intake.UploadTransaction, code intake.ReasonCode, reason string) (*UploadResult, error) {
	if err := o.transition(ctx, tx, intake.StatusFailed, reason, &code, nil); err != nil {
		return nil, err
	}

	// A failed transaction no longer owns its checksum claim; releasing it
	// lets a later re-upload of the same content proceed. Duplicate
	// rejections are excluded: a claim-race loser never owned the claim,
	// and a register-race loser already released at the rejection site.
	if code != intake.ReasonDuplicateContent && tx.Checksum != nil {
		if err := o.claims.Release(ctx, *tx.Checksum); err != nil {
			o.logger.Warn("Failed to release checksum claim", zap.String("checksum", *tx.Checksum), zap.Error(err))
		}
	}

	o.logger.Warn("Transaction failed",
		zap.String("transaction_id", tx.ID.String()),
		zap.String("reason_code", string(code)),
		zap.String("reason", reason),
	)
	return o.resultFor(tx), nil
}

// review parks a transaction for a human and submits a work item carrying
// everything the reviewer needs.
func (o *UploadOrchestrator) review(
	ctx context.Context,
	tx *intake.UploadTransaction,
	code intake.ReasonCode,
	reason string,
	severity intake.ExceptionSeverity,
	candidate *intake.AttributionResult,
) (*UploadResult, error) {
	if err := o.transition(ctx, tx, intake.StatusPendingReview, reason, &code, nil); err != nil {
		return nil, err
	}

	exception, err := intake.NewExceptionRecord(tx.ID, intake.ExceptionReview, severity, code, reason)
	if err != nil {
		return nil, err
	}
	if candidate != nil {
		exception.WithCandidate(candidate)
	}
	if err := o.reviewQueueSubmit(ctx, exception); err != nil {
		return nil, err
	}
	return o.resultFor(tx), nil
}

// reviewWithoutException parks a transaction whose exception was already
// raised elsewhere (reconciliation mismatches).
func (o *UploadOrchestrator) reviewWithoutException(ctx context.Context, tx *intake.UploadTransaction, code intake.ReasonCode, reason string) (*UploadResult, error) {
	if err := o.transition(ctx, tx, intake.StatusPendingReview, reason, &code, nil); err != nil {
		return nil, err
	}
	return o.resultFor(tx), nil
}

func (o *UploadOrchestrator) reviewQueueSubmit(ctx context.Context, exception *intake.ExceptionRecord) error {
	if err := o.recon.reviewQueue.Submit(ctx, exception); err != nil {
		return fmt.Errorf("failed to submit review item: %w", err)
	}
	return nil
}

// transition applies a status change, persists the transaction and appends
// the audit entry. There is no other mutation path for transaction status.
func (o *UploadOrchestrator) transition(
	ctx context.Context,
	tx *intake.UploadTransaction,
	to intake.TransactionStatus,
	reason string,
	code *intake.ReasonCode,
	metadata map[string]string,
) error {
	entry, err := tx.TransitionTo(to, reason, code)
	if err != nil {
		return err
	}
	for k, v := range metadata {
		entry.WithMetadata(k, v)
	}

	if err := o.transactions.Save(ctx, tx); err != nil {
		return fmt.Errorf("failed to save transaction: %w", err)
	}
	if err := o.auditLog.Append(ctx, entry); err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	if o.metrics != nil {
		o.metrics.TransactionTransition(ctx, to, code)
	}
	return nil
}

// rollbackPair deletes both halves of a dual write after a failure
func (o *UploadOrchestrator) rollbackPair(ctx context.Context, canonicalKey, backupKey string) {
	if err := o.artifacts.DeletePair(ctx, canonicalKey, backupKey); err != nil {
		o.logger.Error("Failed to roll back partial dual write",
			zap.String("canonical_key", canonicalKey),
			zap.String("backup_key", backupKey),
			zap.Error(err),
		)
	}
}

func (o *UploadOrchestrator) resultFor(tx *intake.UploadTransaction) *UploadResult {
	return &UploadResult{
		TransactionID: tx.ID,
		Status:        tx.Status,
		Reason:        tx.Reason,
		ReasonCode:    tx.ReasonCode,
	}
}
