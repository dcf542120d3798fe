package storage

import (
	"context"
	"fmt"

	intakeapp "github.com/docintake/backend/internal/application/intake"
	"go.uber.org/zap"
)

// Ensure DualStore implements ArtifactStore
var _ intakeapp.ArtifactStore = (*DualStore)(nil)

// DualStore writes verified document bytes to a primary and a backup
// location. PutPair is all-or-nothing: a failed backup write rolls back the
// primary before returning, so readers can never find one half of the pair.
type DualStore struct {
	primary BlobStore
	backup  BlobStore
	logger  *zap.Logger
}

// NewDualStore creates a dual-write store over two blob stores
func NewDualStore(primary, backup BlobStore, logger *zap.Logger) *DualStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DualStore{
		primary: primary,
		backup:  backup,
		logger:  logger,
	}
}

// PutPair writes content to the canonical key on the primary store and the
// backup key on the backup store
func (d *DualStore) PutPair(ctx context.Context, canonicalKey, backupKey string, content []byte) error {
	if err := d.primary.Put(ctx, canonicalKey, content); err != nil {
		return fmt.Errorf("canonical write failed: %w", err)
	}

	if err := d.backup.Put(ctx, backupKey, content); err != nil {
		if rollbackErr := d.primary.Delete(ctx, canonicalKey); rollbackErr != nil {
			// The orphaned canonical object is unreachable: no artifact is
			// registered for it, so it can only be reclaimed by a sweep.
			d.logger.Error("Failed to roll back canonical write",
				zap.String("canonical_key", canonicalKey),
				zap.Error(rollbackErr),
			)
		}
		return fmt.Errorf("backup write failed: %w", err)
	}
	return nil
}

// DeletePair removes both halves of a stored pair. Both deletes are
// attempted even if one fails.
func (d *DualStore) DeletePair(ctx context.Context, canonicalKey, backupKey string) error {
	canonicalErr := d.primary.Delete(ctx, canonicalKey)
	backupErr := d.backup.Delete(ctx, backupKey)

	if canonicalErr != nil {
		return fmt.Errorf("canonical delete failed: %w", canonicalErr)
	}
	if backupErr != nil {
		return fmt.Errorf("backup delete failed: %w", backupErr)
	}
	return nil
}
