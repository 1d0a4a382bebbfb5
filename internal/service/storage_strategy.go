package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/MonishNivethIlango/doculan-service-sub001/internal/models"
	appErrors "github.com/MonishNivethIlango/doculan-service-sub001/pkg/errors"
)

// StorageStrategy is the contract every document backend implements.
type StorageStrategy interface {
	UploadFile(ctx context.Context, in models.UploadInput) (*models.UploadResult, error)
	// GetFile returns the index entry and, when withContent is set, the decrypted blob.
	GetFile(ctx context.Context, tenant, documentID string, withContent bool) (*models.Document, []byte, error)
	DeleteFile(ctx context.Context, tenant, documentID string) error
	// UpdateFile replaces an existing document's payload in place.
	UpdateFile(ctx context.Context, in models.UploadInput) (*models.UploadResult, error)
	ListFiles(ctx context.Context, tenant, folderPrefix string) ([]models.Document, error)
	// MoveFile relocates documents under newFolder, reporting a result per id.
	MoveFile(ctx context.Context, tenant string, documentIDs []string, newFolder string) (map[string]models.MoveResult, error)
}

// StorageFactory resolves a StorageStrategy from a backend tag.
type StorageFactory struct {
	backends map[string]StorageStrategy
}

// NewStorageFactory builds a factory from tag to strategy. Tags are matched case-insensitively.
func NewStorageFactory(backends map[string]StorageStrategy) *StorageFactory {
	normalised := make(map[string]StorageStrategy, len(backends))
	for tag, strategy := range backends {
		if strategy == nil {
			continue
		}
		normalised[strings.ToLower(strings.TrimSpace(tag))] = strategy
	}
	return &StorageFactory{backends: normalised}
}

// For returns the strategy registered under tag. Unknown tags fail closed.
func (f *StorageFactory) For(tag string) (StorageStrategy, error) {
	key := strings.ToLower(strings.TrimSpace(tag))
	if f != nil {
		if strategy, ok := f.backends[key]; ok {
			return strategy, nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrConfiguration, fmt.Sprintf("unsupported storage type %q", tag))
}
