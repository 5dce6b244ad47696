package services

import (
	"context"

	"digistore/internal/storage"
)

// BackupService exposes the admin dump/restore of products and orders as one
// JSON document. User accounts are never part of the dump, so restoring a
// backup cannot overwrite admin credentials.
type BackupService struct {
	store storage.Storage
}

// NewBackupService creates a new BackupService.
func NewBackupService(store storage.Storage) *BackupService {
	return &BackupService{store: store}
}

// Export returns the full product and order sets.
func (s *BackupService) Export(ctx context.Context) (*storage.BackupData, error) {
	return s.store.Export(ctx)
}

// Import replaces the stored product and order sets with the backup contents.
func (s *BackupService) Import(ctx context.Context, data *storage.BackupData) error {
	return s.store.Import(ctx, data)
}
