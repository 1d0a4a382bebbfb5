package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/MonishNivethIlango/doculan-service-sub001/internal/models"
	"github.com/MonishNivethIlango/doculan-service-sub001/pkg/cryptox"
	appErrors "github.com/MonishNivethIlango/doculan-service-sub001/pkg/errors"
	"github.com/MonishNivethIlango/doculan-service-sub001/pkg/storage"
)

// DriveStorage is a partial backend for drive style stores. It writes and reads
// encrypted blobs by path but keeps no index, metadata or folder structure.
type DriveStorage struct {
	store   storage.ObjectStore
	ciphers tenantCipherSource
	logger  *zap.Logger
}

// NewDriveStorage constructs the drive backend.
func NewDriveStorage(store storage.ObjectStore, ciphers tenantCipherSource, logger *zap.Logger) *DriveStorage {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DriveStorage{store: store, ciphers: ciphers, logger: logger}
}

// UploadFile stores the blob under its path. Documents cannot be looked up by id afterwards.
func (d *DriveStorage) UploadFile(ctx context.Context, in models.UploadInput) (*models.UploadResult, error) {
	if err := validateUploadInput(&in); err != nil {
		return nil, err
	}
	cipher, err := d.cipher(in.Tenant)
	if err != nil {
		return nil, err
	}
	key := BlobKey(in.Tenant, in.PathPrefix, in.FileName)
	if !in.Overwrite {
		if _, err := d.store.Head(ctx, key); err == nil {
			return nil, appErrors.Clone(appErrors.ErrConflict, "file already exists")
		} else if !storage.IsNotFound(err) {
			return nil, appErrors.WrapAs(appErrors.ErrStorage, err, "failed to check existing file")
		}
	}
	sealed, err := cipher.Encrypt(in.Data)
	if err != nil {
		return nil, appErrors.WrapAs(appErrors.ErrInternal, err, "failed to encrypt document")
	}
	if err := d.store.Put(ctx, key, sealed, storage.PutOptions{ContentType: encryptedContentType}); err != nil {
		return nil, appErrors.WrapAs(appErrors.ErrStorage, err, "failed to store document")
	}
	d.logger.Debug("drive blob stored", zap.String("key", key))
	return &models.UploadResult{DocumentID: in.DocumentID, S3Keys: models.DocumentKeys{File: key}}, nil
}

// UpdateFile overwrites the blob under its path.
func (d *DriveStorage) UpdateFile(ctx context.Context, in models.UploadInput) (*models.UploadResult, error) {
	in.Overwrite = true
	return d.UploadFile(ctx, in)
}

// GetFile is unsupported: the drive backend has no document index.
func (d *DriveStorage) GetFile(context.Context, string, string, bool) (*models.Document, []byte, error) {
	return nil, nil, unsupported("get")
}

// DeleteFile is unsupported: the drive backend has no document index.
func (d *DriveStorage) DeleteFile(context.Context, string, string) error {
	return unsupported("delete")
}

// ListFiles is unsupported: the drive backend has no document index.
func (d *DriveStorage) ListFiles(context.Context, string, string) ([]models.Document, error) {
	return nil, unsupported("list")
}

// MoveFile is unsupported by the drive backend.
func (d *DriveStorage) MoveFile(context.Context, string, []string, string) (map[string]models.MoveResult, error) {
	return nil, unsupported("move")
}

func (d *DriveStorage) cipher(tenant string) (*cryptox.Cipher, error) {
	if d.ciphers == nil {
		return nil, appErrors.Clone(appErrors.ErrConfiguration, "document cipher not configured")
	}
	c, err := d.ciphers.ForTenant(tenant)
	if err != nil {
		return nil, appErrors.WrapAs(appErrors.ErrInternal, err, "failed to derive tenant key")
	}
	return c, nil
}

func unsupported(op string) error {
	return appErrors.Clone(appErrors.ErrNotImplemented, op+" is not supported by the drive storage backend")
}
