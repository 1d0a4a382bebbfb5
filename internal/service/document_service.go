package service

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/MonishNivethIlango/doculan-service-sub001/internal/dto"
	"github.com/MonishNivethIlango/doculan-service-sub001/internal/models"
	appErrors "github.com/MonishNivethIlango/doculan-service-sub001/pkg/errors"
	"github.com/MonishNivethIlango/doculan-service-sub001/pkg/export"
)

const documentResource = "document"

type storageResolver interface {
	For(tag string) (StorageStrategy, error)
}

type downloadSigner interface {
	Generate(subject, key string, ttl time.Duration) (string, time.Time, error)
	Parse(token string, allowExpired bool) (subject, key string, expiresAt time.Time, err error)
}

// DocumentActor is the authenticated caller. Documents are scoped to the caller's email.
type DocumentActor struct {
	UserID    string
	Email     string
	Name      string
	IP        string
	UserAgent string
}

func (a DocumentActor) tenant() string {
	return strings.TrimSpace(a.Email)
}

func (a DocumentActor) meta() AuditMeta {
	return AuditMeta{ActorID: a.UserID, Tenant: a.Email, IP: a.IP, UserAgent: a.UserAgent}
}

// DocumentUpload carries a new document body.
type DocumentUpload struct {
	DocumentID  string
	FileName    string
	ContentType string
	PathPrefix  string
	Overwrite   bool
	Data        []byte
}

// DocumentUpdate replaces an existing document body. A nil PathPrefix or empty
// FileName keeps the stored value.
type DocumentUpdate struct {
	FileName    string
	ContentType string
	PathPrefix  *string
	Data        []byte
}

// DocumentExport is a rendered listing ready for download.
type DocumentExport struct {
	FileName    string
	ContentType string
	Data        []byte
}

// DocumentServiceConfig tunes document workflows.
type DocumentServiceConfig struct {
	StorageType    string
	APIPrefix      string
	MaxUploadBytes int64
	DownloadTTL    time.Duration
}

// DocumentService validates document requests and delegates to the configured storage backend.
type DocumentService struct {
	backends  storageResolver
	signer    downloadSigner
	audit     auditLogger
	validator *validator.Validate
	logger    *zap.Logger
	cfg       DocumentServiceConfig
}

// NewDocumentService constructs a DocumentService.
func NewDocumentService(backends storageResolver, signer downloadSigner, audit auditLogger, validate *validator.Validate, logger *zap.Logger, cfg DocumentServiceConfig) *DocumentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 25 * 1024 * 1024
	}
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api/v1"
	}
	if cfg.DownloadTTL <= 0 {
		cfg.DownloadTTL = 15 * time.Minute
	}
	return &DocumentService{backends: backends, signer: signer, audit: audit, validator: validate, logger: logger, cfg: cfg}
}

// Upload stores a new document for the actor.
func (s *DocumentService) Upload(ctx context.Context, actor DocumentActor, upload DocumentUpload) (*models.UploadResult, error) {
	backend, err := s.backend(actor)
	if err != nil {
		return nil, err
	}
	if err := s.checkBody(upload.Data); err != nil {
		return nil, err
	}
	id := strings.TrimSpace(upload.DocumentID)
	if id == "" {
		id = uuid.NewString()
	}

	result, err := backend.UploadFile(ctx, models.UploadInput{
		Tenant:      actor.tenant(),
		ActorName:   actor.Name,
		ActorEmail:  actor.Email,
		DocumentID:  id,
		Data:        upload.Data,
		FileName:    upload.FileName,
		ContentType: detectContentType(upload.ContentType, upload.Data),
		PathPrefix:  upload.PathPrefix,
		Overwrite:   upload.Overwrite,
	})
	if err != nil {
		return nil, err
	}
	recordAudit(ctx, s.audit, s.logger, actor.meta(), models.AuditActionDocUpload, documentResource, result.DocumentID, result.S3Keys)
	return result, nil
}

// Update overwrites an existing document.
func (s *DocumentService) Update(ctx context.Context, actor DocumentActor, documentID string, update DocumentUpdate) (*models.UploadResult, error) {
	backend, err := s.backend(actor)
	if err != nil {
		return nil, err
	}
	if err := s.checkBody(update.Data); err != nil {
		return nil, err
	}

	in := models.UploadInput{
		Tenant:      actor.tenant(),
		ActorName:   actor.Name,
		ActorEmail:  actor.Email,
		DocumentID:  strings.TrimSpace(documentID),
		Data:        update.Data,
		FileName:    strings.TrimSpace(update.FileName),
		ContentType: detectContentType(update.ContentType, update.Data),
		Overwrite:   true,
	}
	if update.PathPrefix != nil {
		in.PathPrefix = *update.PathPrefix
	}
	// Only one of name and folder given: resolve the other from the index.
	if (in.FileName == "") != (update.PathPrefix == nil) {
		current, _, err := backend.GetFile(ctx, in.Tenant, in.DocumentID, false)
		if err != nil {
			return nil, err
		}
		if in.FileName == "" {
			in.FileName = current.FileName
		} else {
			in.PathPrefix = folderOf(in.Tenant, current.FilePath)
		}
	}

	result, err := backend.UpdateFile(ctx, in)
	if err != nil {
		return nil, err
	}
	recordAudit(ctx, s.audit, s.logger, actor.meta(), models.AuditActionDocUpdate, documentResource, result.DocumentID, result.S3Keys)
	return result, nil
}

// Get returns the index entry of a document.
func (s *DocumentService) Get(ctx context.Context, actor DocumentActor, documentID string) (*models.Document, error) {
	backend, err := s.backend(actor)
	if err != nil {
		return nil, err
	}
	doc, _, err := backend.GetFile(ctx, actor.tenant(), strings.TrimSpace(documentID), false)
	return doc, err
}

// Content returns the decrypted document body.
func (s *DocumentService) Content(ctx context.Context, actor DocumentActor, documentID string) (*models.DocumentContent, error) {
	backend, err := s.backend(actor)
	if err != nil {
		return nil, err
	}
	return loadContent(ctx, backend, actor.tenant(), strings.TrimSpace(documentID))
}

// List returns the actor's documents whose path contains folder.
func (s *DocumentService) List(ctx context.Context, actor DocumentActor, folder string) ([]models.Document, error) {
	backend, err := s.backend(actor)
	if err != nil {
		return nil, err
	}
	return backend.ListFiles(ctx, actor.tenant(), strings.TrimSpace(folder))
}

// Delete removes a document.
func (s *DocumentService) Delete(ctx context.Context, actor DocumentActor, documentID string) error {
	backend, err := s.backend(actor)
	if err != nil {
		return err
	}
	documentID = strings.TrimSpace(documentID)
	if err := backend.DeleteFile(ctx, actor.tenant(), documentID); err != nil {
		return err
	}
	recordAudit(ctx, s.audit, s.logger, actor.meta(), models.AuditActionDocDelete, documentResource, documentID, nil)
	return nil
}

// Move relocates a batch of documents into one folder.
func (s *DocumentService) Move(ctx context.Context, actor DocumentActor, req dto.MoveDocumentsRequest) (*dto.MoveDocumentsResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.WrapAs(appErrors.ErrValidation, err, "invalid move payload")
	}
	backend, err := s.backend(actor)
	if err != nil {
		return nil, err
	}
	results, err := backend.MoveFile(ctx, actor.tenant(), req.DocumentIDs, req.NewFolder)
	if err != nil {
		return nil, err
	}

	resp := &dto.MoveDocumentsResponse{Results: results}
	for _, r := range results {
		if r.Status == models.MoveStatusMoved {
			resp.Moved++
		} else {
			resp.Failed++
		}
	}
	if resp.Moved > 0 {
		recordAudit(ctx, s.audit, s.logger, actor.meta(), models.AuditActionDocMove, documentResource, "", map[string]interface{}{
			"new_folder": req.NewFolder,
			"results":    results,
		})
	}
	return resp, nil
}

// Export renders the actor's document listing as csv or pdf.
func (s *DocumentService) Export(ctx context.Context, actor DocumentActor, folder, format string) (*DocumentExport, error) {
	renderer, err := export.ForFormat(format)
	if err != nil {
		return nil, appErrors.WrapAs(appErrors.ErrValidation, err, "format must be csv or pdf")
	}
	docs, err := s.List(ctx, actor, folder)
	if err != nil {
		return nil, err
	}

	table := export.Table{
		Title:   "Documents",
		Headers: []string{"document_id", "file_name", "file_path", "size", "last_modified", "created_by"},
		Rows:    make([][]string, 0, len(docs)),
	}
	for _, d := range docs {
		table.Rows = append(table.Rows, []string{
			d.DocumentID,
			d.FileName,
			d.FilePath,
			strconv.FormatInt(d.Size, 10),
			d.LastModified.UTC().Format(time.RFC3339),
			d.CreatedBy.Email,
		})
	}
	data, err := renderer.Render(table)
	if err != nil {
		return nil, appErrors.WrapAs(appErrors.ErrInternal, err, "failed to render export")
	}
	return &DocumentExport{
		FileName:    fmt.Sprintf("documents-%s.%s", time.Now().UTC().Format("20060102-150405"), renderer.Extension()),
		ContentType: renderer.ContentType(),
		Data:        data,
	}, nil
}

// DownloadURL issues a signed link that serves the decrypted document without a bearer token.
func (s *DocumentService) DownloadURL(ctx context.Context, actor DocumentActor, documentID string) (*models.PresignedURL, error) {
	if _, err := s.Get(ctx, actor, documentID); err != nil {
		return nil, err
	}
	if s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrConfiguration, "download signing is not configured")
	}
	documentID = strings.TrimSpace(documentID)
	token, expiresAt, err := s.signer.Generate(actor.tenant(), documentID, s.cfg.DownloadTTL)
	if err != nil {
		return nil, appErrors.WrapAs(appErrors.ErrInternal, err, "failed to sign download url")
	}
	return &models.PresignedURL{
		DocumentID: documentID,
		URL:        fmt.Sprintf("%s/documents/download?token=%s", strings.TrimSuffix(s.cfg.APIPrefix, "/"), url.QueryEscape(token)),
		ExpiresAt:  expiresAt,
	}, nil
}

// Redeem resolves a download token into the document content.
func (s *DocumentService) Redeem(ctx context.Context, token string) (*models.DocumentContent, error) {
	if s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrConfiguration, "download signing is not configured")
	}
	tenant, documentID, _, err := s.signer.Parse(strings.TrimSpace(token), false)
	if err != nil {
		return nil, appErrors.WrapAs(appErrors.ErrUnauthorized, err, "invalid or expired download token")
	}
	backend, err := s.backends.For(s.cfg.StorageType)
	if err != nil {
		return nil, err
	}
	return loadContent(ctx, backend, tenant, documentID)
}

func loadContent(ctx context.Context, backend StorageStrategy, tenant, documentID string) (*models.DocumentContent, error) {
	doc, data, err := backend.GetFile(ctx, tenant, documentID, true)
	if err != nil {
		return nil, err
	}
	return &models.DocumentContent{
		DocumentID:  doc.DocumentID,
		FileName:    doc.FileName,
		ContentType: mimetype.Detect(data).String(),
		Data:        data,
	}, nil
}

func (s *DocumentService) backend(actor DocumentActor) (StorageStrategy, error) {
	if actor.tenant() == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "caller email is required")
	}
	return s.backends.For(s.cfg.StorageType)
}

func (s *DocumentService) checkBody(data []byte) error {
	if len(data) == 0 {
		return appErrors.Clone(appErrors.ErrValidation, "file is required")
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds %d bytes limit", s.cfg.MaxUploadBytes))
	}
	return nil
}

// detectContentType trusts a specific declared type and sniffs the body otherwise.
func detectContentType(declared string, data []byte) string {
	declared = strings.TrimSpace(declared)
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	return mimetype.Detect(data).String()
}
