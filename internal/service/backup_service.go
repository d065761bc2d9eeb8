package service

import (
	"fmt"

	"task-queue/internal/repository"
	"task-queue/internal/tree"
)

// BackupFileName is the name the backup document is sent under.
const BackupFileName = "data.json"

// BackupService renders the tree as the JSON document owners keep as backup.
type BackupService struct {
	store *tree.Store
}

func NewBackupService(store *tree.Store) *BackupService {
	return &BackupService{store: store}
}

func (s *BackupService) Document() ([]byte, error) {
	data, err := repository.Encode(s.store.Snapshot())
	if err != nil {
		return nil, fmt.Errorf("encode backup: %w", err)
	}
	return data, nil
}
