package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/MonishNivethIlango/doculan-service-sub001/internal/models"
	"github.com/MonishNivethIlango/doculan-service-sub001/pkg/cryptox"
	appErrors "github.com/MonishNivethIlango/doculan-service-sub001/pkg/errors"
	"github.com/MonishNivethIlango/doculan-service-sub001/pkg/lock"
	"github.com/MonishNivethIlango/doculan-service-sub001/pkg/storage"
)

const (
	indexObjectName      = "document_index.json"
	placeholderName      = ".keep"
	encryptedContentType = "application/octet-stream"
	jsonContentType      = "application/json"
)

type tenantCipherSource interface {
	ForTenant(tenant string) (*cryptox.Cipher, error)
}

type storageObserver interface {
	ObserveStorageOp(op string, duration time.Duration, err error)
}

// DocumentStorageConfig tunes the object store document engine.
type DocumentStorageConfig struct {
	// ServerSideKey is passed to the object store on every write (a KMS key id for S3).
	ServerSideKey   string
	MoveConcurrency int
}

// S3DocumentStorage keeps encrypted blobs, metadata sidecars and the per-tenant
// document index consistent on top of an object store. Every index
// read-modify-write runs under a per-tenant lock.
type S3DocumentStorage struct {
	store   storage.ObjectStore
	ciphers tenantCipherSource
	locker  lock.Locker
	metrics storageObserver
	logger  *zap.Logger
	cfg     DocumentStorageConfig
}

// NewS3DocumentStorage constructs the engine. A nil locker disables index locking.
func NewS3DocumentStorage(store storage.ObjectStore, ciphers tenantCipherSource, locker lock.Locker, metrics storageObserver, logger *zap.Logger, cfg DocumentStorageConfig) *S3DocumentStorage {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MoveConcurrency <= 0 {
		cfg.MoveConcurrency = 4
	}
	return &S3DocumentStorage{
		store:   store,
		ciphers: ciphers,
		locker:  locker,
		metrics: metrics,
		logger:  logger,
		cfg:     cfg,
	}
}

// IndexKey returns the object key of a tenant's document index.
func IndexKey(tenant string) string {
	return storage.JoinKey(tenant, "index", indexObjectName)
}

// BlobKey returns the object key of a document blob.
func BlobKey(tenant, pathPrefix, fileName string) string {
	return storage.JoinKey(tenant, "files", pathPrefix, fileName)
}

// MetadataKey returns the object key of a document's metadata sidecar.
func MetadataKey(tenant, documentID string) string {
	return storage.JoinKey(tenant, "metadata", "data", documentID+".json")
}

func indexLockKey(tenant string) string {
	return "lock:index:" + tenant
}

// UploadFile stores a new document, refusing to replace an existing blob unless Overwrite is set.
func (s *S3DocumentStorage) UploadFile(ctx context.Context, in models.UploadInput) (*models.UploadResult, error) {
	return s.upload(ctx, in, false)
}

// UpdateFile overwrites an indexed document. An empty file name keeps the current name and folder.
func (s *S3DocumentStorage) UpdateFile(ctx context.Context, in models.UploadInput) (*models.UploadResult, error) {
	if strings.TrimSpace(in.FileName) == "" {
		current, _, err := s.GetFile(ctx, in.Tenant, in.DocumentID, false)
		if err != nil {
			return nil, err
		}
		in.FileName = current.FileName
		in.PathPrefix = folderOf(in.Tenant, current.FilePath)
	}
	in.Overwrite = true
	return s.upload(ctx, in, true)
}

func (s *S3DocumentStorage) upload(ctx context.Context, in models.UploadInput, mustExist bool) (result *models.UploadResult, err error) {
	start := time.Now()
	defer func() { s.observe("upload", start, err) }()

	if err := validateUploadInput(&in); err != nil {
		return nil, err
	}
	cipher, err := s.tenantCipher(in.Tenant)
	if err != nil {
		return nil, err
	}

	fileKey := BlobKey(in.Tenant, in.PathPrefix, in.FileName)
	metaKey := MetadataKey(in.Tenant, in.DocumentID)

	err = s.withIndexLock(ctx, in.Tenant, func(ctx context.Context) error {
		if _, err := s.store.Head(ctx, fileKey); err == nil {
			if !in.Overwrite {
				return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("file %s already exists", fileKey))
			}
		} else if !storage.IsNotFound(err) {
			return appErrors.WrapAs(appErrors.ErrStorage, err, "failed to check existing file")
		}

		index, err := s.loadIndex(ctx, in.Tenant, cipher)
		if err != nil {
			return err
		}
		previous, existed := index[in.DocumentID]
		if mustExist && !existed {
			return appErrors.Clone(appErrors.ErrIndexNotFound, fmt.Sprintf("document %s not found in index", in.DocumentID))
		}
		if existed && !in.Overwrite {
			return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("document id %s already in use", in.DocumentID))
		}

		staleMeta := purgeStaleEntries(index, fileKey, in.DocumentID)
		if existed && isObjectKey(previous.MetadataPath) && previous.MetadataPath != metaKey {
			staleMeta = append(staleMeta, previous.MetadataPath)
		}

		sealed, err := cipher.Encrypt(in.Data)
		if err != nil {
			return appErrors.WrapAs(appErrors.ErrInternal, err, "failed to encrypt document")
		}
		if err := s.store.Put(ctx, fileKey, sealed, storage.PutOptions{
			ContentType:   encryptedContentType,
			ServerSideKey: s.cfg.ServerSideKey,
			Metadata:      map[string]string{"document-id": in.DocumentID},
		}); err != nil {
			return appErrors.WrapAs(appErrors.ErrStorage, err, "failed to store document")
		}

		now := time.Now().UTC()
		actor := models.CreatedBy{Name: in.ActorName, Email: in.ActorEmail}
		sidecar, err := json.Marshal(models.DocumentMetadata{
			DocumentID:  in.DocumentID,
			FileName:    in.FileName,
			ContentType: in.ContentType,
			Size:        int64(len(in.Data)),
			FilePath:    fileKey,
			PathPrefix:  in.PathPrefix,
			CreatedBy:   actor,
			UploadedAt:  now,
		})
		if err != nil {
			return appErrors.WrapAs(appErrors.ErrInternal, err, "failed to encode metadata")
		}
		if err := s.store.Put(ctx, metaKey, sidecar, storage.PutOptions{
			ContentType:   jsonContentType,
			ServerSideKey: s.cfg.ServerSideKey,
		}); err != nil {
			return appErrors.WrapAs(appErrors.ErrStorage, err, "failed to store metadata")
		}

		index[in.DocumentID] = models.DocumentIndexEntry{
			FilePath:     fileKey,
			MetadataPath: metaKey,
			FileName:     in.FileName,
			Size:         int64(len(in.Data)),
			LastModified: now,
			CreatedBy:    actor,
		}
		if err := s.saveIndex(ctx, in.Tenant, cipher, index); err != nil {
			return err
		}

		for _, key := range staleMeta {
			s.bestEffortDelete(ctx, key, "stale metadata")
		}
		// the document was renamed or moved by this write
		if existed && previous.FilePath != "" && previous.FilePath != fileKey && !referenced(index, previous.FilePath) {
			s.bestEffortDelete(ctx, previous.FilePath, "replaced blob")
			s.ensurePlaceholder(ctx, previous.FilePath)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("document stored",
		zap.String("tenant", in.Tenant),
		zap.String("document_id", in.DocumentID),
		zap.String("file_path", fileKey),
		zap.Bool("overwrite", in.Overwrite),
	)
	return &models.UploadResult{
		DocumentID: in.DocumentID,
		S3Keys:     models.DocumentKeys{File: fileKey, Metadata: metaKey},
	}, nil
}

// GetFile looks the document up in the tenant index.
func (s *S3DocumentStorage) GetFile(ctx context.Context, tenant, documentID string, withContent bool) (doc *models.Document, content []byte, err error) {
	start := time.Now()
	defer func() { s.observe("get", start, err) }()

	if err := validateTenant(tenant); err != nil {
		return nil, nil, err
	}
	if err := validateDocumentID(documentID); err != nil {
		return nil, nil, err
	}
	cipher, err := s.tenantCipher(tenant)
	if err != nil {
		return nil, nil, err
	}
	index, err := s.loadIndex(ctx, tenant, cipher)
	if err != nil {
		return nil, nil, err
	}
	entry, ok := index[documentID]
	if !ok {
		return nil, nil, appErrors.Clone(appErrors.ErrIndexNotFound, fmt.Sprintf("document %s not found in index", documentID))
	}
	doc = &models.Document{DocumentID: documentID, DocumentIndexEntry: entry}
	if !withContent {
		return doc, nil, nil
	}

	raw, err := s.store.Get(ctx, entry.FilePath)
	if err != nil {
		return nil, nil, appErrors.WrapAs(appErrors.ErrBlobRetrieval, err, fmt.Sprintf("failed to retrieve document %s", documentID))
	}
	content, err = cipher.Decrypt(raw)
	if err != nil {
		return nil, nil, appErrors.WrapAs(appErrors.ErrBlobRetrieval, err, fmt.Sprintf("failed to decrypt document %s", documentID))
	}
	return doc, content, nil
}

// ListFiles returns indexed documents whose file path contains folderPrefix.
// A tenant without an index has no documents.
func (s *S3DocumentStorage) ListFiles(ctx context.Context, tenant, folderPrefix string) (docs []models.Document, err error) {
	start := time.Now()
	defer func() { s.observe("list", start, err) }()

	if err := validateTenant(tenant); err != nil {
		return nil, err
	}
	cipher, err := s.tenantCipher(tenant)
	if err != nil {
		return nil, err
	}
	index, err := s.loadIndex(ctx, tenant, cipher)
	if err != nil {
		return nil, err
	}

	docs = make([]models.Document, 0, len(index))
	for id, entry := range index {
		if folderPrefix != "" && !strings.Contains(entry.FilePath, folderPrefix) {
			continue
		}
		docs = append(docs, models.Document{DocumentID: id, DocumentIndexEntry: entry})
	}
	sort.Slice(docs, func(i, j int) bool {
		if docs[i].FilePath == docs[j].FilePath {
			return docs[i].DocumentID < docs[j].DocumentID
		}
		return docs[i].FilePath < docs[j].FilePath
	})
	return docs, nil
}

// DeleteFile removes the blob, its metadata and the index entry.
func (s *S3DocumentStorage) DeleteFile(ctx context.Context, tenant, documentID string) (err error) {
	start := time.Now()
	defer func() { s.observe("delete", start, err) }()

	if err := validateTenant(tenant); err != nil {
		return err
	}
	if err := validateDocumentID(documentID); err != nil {
		return err
	}
	cipher, err := s.tenantCipher(tenant)
	if err != nil {
		return err
	}

	return s.withIndexLock(ctx, tenant, func(ctx context.Context) error {
		index, err := s.loadIndex(ctx, tenant, cipher)
		if err != nil {
			return err
		}
		entry, ok := index[documentID]
		if !ok {
			return appErrors.Clone(appErrors.ErrIndexNotFound, fmt.Sprintf("document %s not found in index", documentID))
		}

		for _, key := range []string{entry.FilePath, entry.MetadataPath} {
			if !isObjectKey(key) {
				continue
			}
			if err := s.store.Delete(ctx, key); err != nil && !storage.IsNotFound(err) {
				return appErrors.WrapAs(appErrors.ErrStorage, err, fmt.Sprintf("failed to delete %s", key))
			}
			s.ensurePlaceholder(ctx, key)
		}

		delete(index, documentID)
		if err := s.saveIndex(ctx, tenant, cipher, index); err != nil {
			return err
		}
		s.logger.Info("document deleted", zap.String("tenant", tenant), zap.String("document_id", documentID))
		return nil
	})
}

type movePlan struct {
	documentID string
	entry      models.DocumentIndexEntry
	target     string
}

// MoveFile relocates documents into newFolder. Failures are reported per document
// and the index is persisted once with every successful move.
func (s *S3DocumentStorage) MoveFile(ctx context.Context, tenant string, documentIDs []string, newFolder string) (results map[string]models.MoveResult, err error) {
	start := time.Now()
	defer func() { s.observe("move", start, err) }()

	if err := validateTenant(tenant); err != nil {
		return nil, err
	}
	folder, err := cleanPathPrefix(newFolder)
	if err != nil {
		return nil, err
	}
	ids := uniqueNonEmpty(documentIDs)
	if len(ids) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "at least one document id is required")
	}
	cipher, err := s.tenantCipher(tenant)
	if err != nil {
		return nil, err
	}

	results = make(map[string]models.MoveResult, len(ids))
	err = s.withIndexLock(ctx, tenant, func(ctx context.Context) error {
		index, err := s.loadIndex(ctx, tenant, cipher)
		if err != nil {
			return err
		}

		claimed := make(map[string]string, len(ids))
		plans := make([]movePlan, 0, len(ids))
		for _, id := range ids {
			entry, ok := index[id]
			if !ok {
				results[id] = failedMove("document not found in index")
				continue
			}
			target := BlobKey(tenant, folder, entry.FileName)
			if owner, taken := claimed[target]; taken {
				results[id] = failedMove(fmt.Sprintf("destination %s is also targeted by %s", target, owner))
				continue
			}
			if owner := indexOwner(index, target); owner != "" && owner != id {
				results[id] = failedMove(fmt.Sprintf("destination %s is already used by %s", target, owner))
				continue
			}
			claimed[target] = id
			plans = append(plans, movePlan{documentID: id, entry: entry, target: target})
		}

		var mu sync.Mutex
		var group errgroup.Group
		group.SetLimit(s.cfg.MoveConcurrency)
		for _, plan := range plans {
			plan := plan
			group.Go(func() error {
				res := s.moveOne(ctx, tenant, plan)
				mu.Lock()
				results[plan.documentID] = res
				mu.Unlock()
				return nil
			})
		}
		_ = group.Wait()

		now := time.Now().UTC()
		moved := 0
		for _, plan := range plans {
			res := results[plan.documentID]
			if res.Status != models.MoveStatusMoved {
				continue
			}
			entry := index[plan.documentID]
			entry.FilePath = res.FilePath
			entry.MetadataPath = res.MetadataPath
			entry.LastModified = now
			index[plan.documentID] = entry
			moved++
		}
		if moved == 0 {
			return nil
		}
		return s.saveIndex(ctx, tenant, cipher, index)
	})
	if err != nil {
		return results, err
	}
	return results, nil
}

func (s *S3DocumentStorage) moveOne(ctx context.Context, tenant string, plan movePlan) models.MoveResult {
	metaKey := MetadataKey(tenant, plan.documentID)
	if plan.target == plan.entry.FilePath {
		return models.MoveResult{Status: models.MoveStatusMoved, FilePath: plan.target, MetadataPath: metaKey}
	}

	if _, err := s.store.Head(ctx, plan.target); err == nil {
		return failedMove(fmt.Sprintf("destination %s already exists", plan.target))
	} else if !storage.IsNotFound(err) {
		return failedMove(fmt.Sprintf("failed to check destination: %v", err))
	}

	opts := storage.PutOptions{ServerSideKey: s.cfg.ServerSideKey}
	if err := s.store.Copy(ctx, plan.entry.FilePath, plan.target, opts); err != nil {
		return failedMove(fmt.Sprintf("failed to copy blob: %v", err))
	}
	if err := s.rewriteMetadata(ctx, tenant, plan, metaKey); err != nil {
		s.bestEffortDelete(ctx, plan.target, "rolled back copy")
		return failedMove(fmt.Sprintf("failed to copy metadata: %v", err))
	}
	if err := s.store.Delete(ctx, plan.entry.FilePath); err != nil && !storage.IsNotFound(err) {
		s.bestEffortDelete(ctx, plan.target, "rolled back copy")
		return failedMove(fmt.Sprintf("failed to delete source blob: %v", err))
	}
	s.ensurePlaceholder(ctx, plan.entry.FilePath)
	if plan.entry.MetadataPath != "" && plan.entry.MetadataPath != metaKey {
		s.bestEffortDelete(ctx, plan.entry.MetadataPath, "moved metadata")
	}

	return models.MoveResult{Status: models.MoveStatusMoved, FilePath: plan.target, MetadataPath: metaKey}
}

// rewriteMetadata writes the sidecar at metaKey with the new blob location.
func (s *S3DocumentStorage) rewriteMetadata(ctx context.Context, tenant string, plan movePlan, metaKey string) error {
	meta := models.DocumentMetadata{
		DocumentID: plan.documentID,
		FileName:   plan.entry.FileName,
		Size:       plan.entry.Size,
		CreatedBy:  plan.entry.CreatedBy,
		UploadedAt: plan.entry.LastModified,
	}
	if plan.entry.MetadataPath != "" {
		raw, err := s.store.Get(ctx, plan.entry.MetadataPath)
		switch {
		case err == nil:
			if jsonErr := json.Unmarshal(raw, &meta); jsonErr != nil {
				s.logger.Warn("discarding unreadable metadata", zap.String("key", plan.entry.MetadataPath), zap.Error(jsonErr))
			}
		case storage.IsNotFound(err):
		default:
			return err
		}
	}
	meta.FilePath = plan.target
	meta.PathPrefix = folderOf(tenant, plan.target)

	payload, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	return s.store.Put(ctx, metaKey, payload, storage.PutOptions{ContentType: jsonContentType, ServerSideKey: s.cfg.ServerSideKey})
}

// IndexAuditReport lists index entries whose blob is missing from the store.
type IndexAuditReport struct {
	Checked int
	Missing []string
	Pruned  int
}

// AuditIndex heads every indexed blob for tenant. With prune set, entries whose
// blob is gone are removed from the index along with their metadata.
func (s *S3DocumentStorage) AuditIndex(ctx context.Context, tenant string, prune bool) (report *IndexAuditReport, err error) {
	start := time.Now()
	defer func() { s.observe("audit", start, err) }()

	if err := validateTenant(tenant); err != nil {
		return nil, err
	}
	cipher, err := s.tenantCipher(tenant)
	if err != nil {
		return nil, err
	}

	run := func(ctx context.Context) error {
		index, err := s.loadIndex(ctx, tenant, cipher)
		if err != nil {
			return err
		}
		report = &IndexAuditReport{Missing: []string{}}
		for id, entry := range index {
			report.Checked++
			if _, err := s.store.Head(ctx, entry.FilePath); err != nil {
				if !storage.IsNotFound(err) {
					return appErrors.WrapAs(appErrors.ErrStorage, err, fmt.Sprintf("failed to inspect %s", entry.FilePath))
				}
				report.Missing = append(report.Missing, id)
			}
		}
		sort.Strings(report.Missing)
		if !prune || len(report.Missing) == 0 {
			return nil
		}
		orphaned := make([]string, 0, len(report.Missing))
		for _, id := range report.Missing {
			if key := index[id].MetadataPath; isObjectKey(key) {
				orphaned = append(orphaned, key)
			}
			delete(index, id)
		}
		if err := s.saveIndex(ctx, tenant, cipher, index); err != nil {
			return err
		}
		for _, key := range orphaned {
			s.bestEffortDelete(ctx, key, "orphaned metadata")
		}
		report.Pruned = len(report.Missing)
		s.logger.Info("pruned orphaned index entries", zap.String("tenant", tenant), zap.Int("count", report.Pruned))
		return nil
	}

	if prune {
		err = s.withIndexLock(ctx, tenant, run)
	} else {
		err = run(ctx)
	}
	if err != nil {
		return nil, err
	}
	return report, nil
}

// purgeStaleEntries drops entries other than keepID that point at fileKey and
// returns their metadata keys. Callers delete those once the index is saved.
func purgeStaleEntries(index models.DocumentIndex, fileKey, keepID string) []string {
	var metaKeys []string
	for id, entry := range index {
		if id == keepID || entry.FilePath != fileKey {
			continue
		}
		if isObjectKey(entry.MetadataPath) {
			metaKeys = append(metaKeys, entry.MetadataPath)
		}
		delete(index, id)
	}
	return metaKeys
}

// ensurePlaceholder keeps the parent prefix of key listable once it has no objects left.
func (s *S3DocumentStorage) ensurePlaceholder(ctx context.Context, key string) {
	prefix := storage.ParentPrefix(key)
	if prefix == "" {
		return
	}
	keys, err := s.store.List(ctx, prefix)
	if err != nil {
		s.logger.Warn("failed to list folder for placeholder", zap.String("prefix", prefix), zap.Error(err))
		return
	}
	if len(keys) > 0 {
		return
	}
	if err := s.store.Put(ctx, prefix+placeholderName, []byte{}, storage.PutOptions{ServerSideKey: s.cfg.ServerSideKey}); err != nil {
		s.logger.Warn("failed to write folder placeholder", zap.String("prefix", prefix), zap.Error(err))
	}
}

func (s *S3DocumentStorage) bestEffortDelete(ctx context.Context, key, reason string) {
	if err := s.store.Delete(ctx, key); err != nil && !storage.IsNotFound(err) {
		s.logger.Warn("best effort delete failed", zap.String("key", key), zap.String("reason", reason), zap.Error(err))
	}
}

func (s *S3DocumentStorage) loadIndex(ctx context.Context, tenant string, cipher *cryptox.Cipher) (models.DocumentIndex, error) {
	raw, err := s.store.Get(ctx, IndexKey(tenant))
	if err != nil {
		if storage.IsNotFound(err) {
			return models.DocumentIndex{}, nil
		}
		return nil, appErrors.WrapAs(appErrors.ErrStorage, err, "failed to load document index")
	}
	plain, err := cipher.Decrypt(raw)
	if err != nil {
		return nil, appErrors.WrapAs(appErrors.ErrStorage, err, "failed to decrypt document index")
	}
	index := models.DocumentIndex{}
	if len(plain) == 0 {
		return index, nil
	}
	if err := json.Unmarshal(plain, &index); err != nil {
		return nil, appErrors.WrapAs(appErrors.ErrStorage, err, "failed to decode document index")
	}
	if index == nil {
		index = models.DocumentIndex{}
	}
	return index, nil
}

func (s *S3DocumentStorage) saveIndex(ctx context.Context, tenant string, cipher *cryptox.Cipher, index models.DocumentIndex) error {
	payload, err := json.Marshal(index)
	if err != nil {
		return appErrors.WrapAs(appErrors.ErrInternal, err, "failed to encode document index")
	}
	sealed, err := cipher.Encrypt(payload)
	if err != nil {
		return appErrors.WrapAs(appErrors.ErrInternal, err, "failed to encrypt document index")
	}
	if err := s.store.Put(ctx, IndexKey(tenant), sealed, storage.PutOptions{
		ContentType:   encryptedContentType,
		ServerSideKey: s.cfg.ServerSideKey,
	}); err != nil {
		return appErrors.WrapAs(appErrors.ErrStorage, err, "failed to persist document index")
	}
	return nil
}

func (s *S3DocumentStorage) withIndexLock(ctx context.Context, tenant string, fn func(ctx context.Context) error) error {
	if s.locker == nil {
		return fn(ctx)
	}
	err := s.locker.WithLock(ctx, indexLockKey(tenant), fn)
	if err == nil {
		return nil
	}
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, lock.ErrNotAcquired) {
		return appErrors.WrapAs(appErrors.ErrLockTimeout, err, "document index is busy, retry later")
	}
	return appErrors.WrapAs(appErrors.ErrInternal, err, "failed to lock document index")
}

func (s *S3DocumentStorage) tenantCipher(tenant string) (*cryptox.Cipher, error) {
	if s.ciphers == nil {
		return nil, appErrors.Clone(appErrors.ErrConfiguration, "document cipher not configured")
	}
	cipher, err := s.ciphers.ForTenant(tenant)
	if err != nil {
		return nil, appErrors.WrapAs(appErrors.ErrInternal, err, "failed to derive tenant key")
	}
	return cipher, nil
}

func (s *S3DocumentStorage) observe(op string, start time.Time, err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveStorageOp(op, time.Since(start), err)
}

func failedMove(reason string) models.MoveResult {
	return models.MoveResult{Status: models.MoveStatusFailed, Error: reason}
}

func indexOwner(index models.DocumentIndex, fileKey string) string {
	for id, entry := range index {
		if entry.FilePath == fileKey {
			return id
		}
	}
	return ""
}

func referenced(index models.DocumentIndex, fileKey string) bool {
	return indexOwner(index, fileKey) != ""
}

// isObjectKey rejects prefixes and folder placeholders.
func isObjectKey(key string) bool {
	return key != "" && !strings.HasSuffix(key, "/") && path.Base(key) != placeholderName
}

// folderOf returns the path prefix of a blob key relative to the tenant files root.
func folderOf(tenant, fileKey string) string {
	root := storage.JoinKey(tenant, "files") + "/"
	return strings.TrimSuffix(strings.TrimPrefix(storage.ParentPrefix(fileKey), root), "/")
}

func validateUploadInput(in *models.UploadInput) error {
	in.Tenant = strings.TrimSpace(in.Tenant)
	in.DocumentID = strings.TrimSpace(in.DocumentID)
	in.FileName = strings.TrimSpace(in.FileName)
	if err := validateTenant(in.Tenant); err != nil {
		return err
	}
	if err := validateDocumentID(in.DocumentID); err != nil {
		return err
	}
	if err := validateFileName(in.FileName); err != nil {
		return err
	}
	prefix, err := cleanPathPrefix(in.PathPrefix)
	if err != nil {
		return err
	}
	in.PathPrefix = prefix
	return nil
}

func validateTenant(tenant string) error {
	if strings.TrimSpace(tenant) == "" || strings.ContainsAny(tenant, "/\\") {
		return appErrors.Clone(appErrors.ErrValidation, "invalid tenant")
	}
	return nil
}

func validateDocumentID(id string) error {
	if strings.TrimSpace(id) == "" || strings.ContainsAny(id, "/\\") {
		return appErrors.Clone(appErrors.ErrValidation, "invalid document id")
	}
	return nil
}

func validateFileName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return appErrors.Clone(appErrors.ErrValidation, "file name is required")
	case name == placeholderName:
		return appErrors.Clone(appErrors.ErrValidation, "file name is reserved")
	case strings.ContainsAny(name, "/\\"):
		return appErrors.Clone(appErrors.ErrValidation, "file name must not contain path separators")
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return appErrors.Clone(appErrors.ErrValidation, "file name contains control characters")
		}
	}
	return nil
}

// cleanPathPrefix normalises a folder path, collapsing duplicate slashes.
func cleanPathPrefix(prefix string) (string, error) {
	parts := strings.Split(strings.ReplaceAll(strings.TrimSpace(prefix), "\\", "/"), "/")
	cleaned := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		switch part {
		case "":
			continue
		case ".", "..":
			return "", appErrors.Clone(appErrors.ErrValidation, "folder path must not contain relative segments")
		}
		cleaned = append(cleaned, part)
	}
	return strings.Join(cleaned, "/"), nil
}

func uniqueNonEmpty(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
