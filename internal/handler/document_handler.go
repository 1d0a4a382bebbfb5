package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/MonishNivethIlango/doculan-service-sub001/internal/dto"
	"github.com/MonishNivethIlango/doculan-service-sub001/internal/models"
	"github.com/MonishNivethIlango/doculan-service-sub001/internal/service"
	appErrors "github.com/MonishNivethIlango/doculan-service-sub001/pkg/errors"
	"github.com/MonishNivethIlango/doculan-service-sub001/pkg/response"
)

type documentService interface {
	Upload(ctx context.Context, actor service.DocumentActor, upload service.DocumentUpload) (*models.UploadResult, error)
	Update(ctx context.Context, actor service.DocumentActor, documentID string, update service.DocumentUpdate) (*models.UploadResult, error)
	Get(ctx context.Context, actor service.DocumentActor, documentID string) (*models.Document, error)
	Content(ctx context.Context, actor service.DocumentActor, documentID string) (*models.DocumentContent, error)
	List(ctx context.Context, actor service.DocumentActor, folder string) ([]models.Document, error)
	Delete(ctx context.Context, actor service.DocumentActor, documentID string) error
	Move(ctx context.Context, actor service.DocumentActor, req dto.MoveDocumentsRequest) (*dto.MoveDocumentsResponse, error)
	Export(ctx context.Context, actor service.DocumentActor, folder, format string) (*service.DocumentExport, error)
	DownloadURL(ctx context.Context, actor service.DocumentActor, documentID string) (*models.PresignedURL, error)
	Redeem(ctx context.Context, token string) (*models.DocumentContent, error)
}

type indexAuditService interface {
	Create(ctx context.Context, tenant string, prune bool) (*models.IndexAuditJob, error)
	Get(ctx context.Context, tenant, id string) (*models.IndexAuditJob, error)
}

// DocumentHandler exposes document storage endpoints.
type DocumentHandler struct {
	service  documentService
	audits   indexAuditService
	maxBytes int64
}

// NewDocumentHandler constructs the handler. maxBytes bounds multipart file size.
func NewDocumentHandler(service documentService, audits indexAuditService, maxBytes int64) *DocumentHandler {
	if maxBytes <= 0 {
		maxBytes = 25 * 1024 * 1024
	}
	return &DocumentHandler{service: service, audits: audits, maxBytes: maxBytes}
}

// Upload godoc
// @Summary Upload a document
// @Tags Documents
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Document"
// @Param path formData string false "Folder path"
// @Param document_id formData string false "Document id, generated when empty"
// @Param overwrite formData bool false "Replace an existing file at the same path"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /documents [post]
func (h *DocumentHandler) Upload(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.UploadDocumentRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid upload payload"))
		return
	}
	name, contentType, data, err := h.readFile(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.service.Upload(c.Request.Context(), actor, service.DocumentUpload{
		DocumentID:  req.DocumentID,
		FileName:    name,
		ContentType: contentType,
		PathPrefix:  req.Path,
		Overwrite:   req.Overwrite,
		Data:        data,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Update godoc
// @Summary Replace a document
// @Description Overwrites the document body. file_name and path default to the stored values.
// @Tags Documents
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Document ID"
// @Param file formData file true "Document"
// @Param file_name formData string false "New file name"
// @Param path formData string false "New folder path"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /documents/{id} [put]
func (h *DocumentHandler) Update(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	_, contentType, data, err := h.readFile(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	update := service.DocumentUpdate{
		FileName:    strings.TrimSpace(c.PostForm("file_name")),
		ContentType: contentType,
		Data:        data,
	}
	if path, exists := c.GetPostForm("path"); exists {
		update.PathPrefix = &path
	}

	result, err := h.service.Update(c.Request.Context(), actor, c.Param("id"), update)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// List godoc
// @Summary List documents
// @Tags Documents
// @Produce json
// @Param folder query string false "Only documents whose path contains this value"
// @Success 200 {object} response.Envelope
// @Router /documents [get]
func (h *DocumentHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var filter dto.DocumentFilter
	_ = c.ShouldBindQuery(&filter)

	docs, err := h.service.List(c.Request.Context(), actor, filter.Folder)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, docs, map[string]interface{}{"count": len(docs)})
}

// Get godoc
// @Summary Get document index entry
// @Tags Documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /documents/{id} [get]
func (h *DocumentHandler) Get(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	doc, err := h.service.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doc, nil)
}

// Content godoc
// @Summary Download decrypted document content
// @Tags Documents
// @Produce octet-stream
// @Param id path string true "Document ID"
// @Success 200 {file} binary
// @Failure 502 {object} response.Envelope
// @Router /documents/{id}/content [get]
func (h *DocumentHandler) Content(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	content, err := h.service.Content(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, content.FileName, content.ContentType, content.Data)
}

// DownloadURL godoc
// @Summary Issue a signed download link
// @Tags Documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} response.Envelope
// @Router /documents/{id}/url [get]
func (h *DocumentHandler) DownloadURL(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	link, err := h.service.DownloadURL(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, link, nil)
}

// Download godoc
// @Summary Download a document with a signed token
// @Tags Documents
// @Produce octet-stream
// @Param token query string true "Signed token"
// @Success 200 {file} binary
// @Failure 401 {object} response.Envelope
// @Router /documents/download [get]
func (h *DocumentHandler) Download(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	content, err := h.service.Redeem(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, content.FileName, content.ContentType, content.Data)
}

// Delete godoc
// @Summary Delete a document
// @Tags Documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /documents/{id} [delete]
func (h *DocumentHandler) Delete(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.service.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Move godoc
// @Summary Move documents into a folder
// @Tags Documents
// @Accept json
// @Produce json
// @Param payload body dto.MoveDocumentsRequest true "Move payload"
// @Success 200 {object} response.Envelope
// @Router /documents/move [post]
func (h *DocumentHandler) Move(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.MoveDocumentsRequest
	if !bindJSON(c, &req, "invalid move payload") {
		return
	}
	result, err := h.service.Move(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Export godoc
// @Summary Export the document listing
// @Tags Documents
// @Produce text/csv
// @Produce application/pdf
// @Param folder query string false "Folder filter"
// @Param format query string false "csv or pdf"
// @Success 200 {file} binary
// @Router /documents/export [get]
func (h *DocumentHandler) Export(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var filter dto.DocumentFilter
	_ = c.ShouldBindQuery(&filter)

	out, err := h.service.Export(c.Request.Context(), actor, filter.Folder, filter.Format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, out.FileName, out.ContentType, out.Data)
}

// StartAudit godoc
// @Summary Audit the caller's document index
// @Description Reports index entries whose blob is missing, optionally pruning them.
// @Tags Documents
// @Accept json
// @Produce json
// @Param payload body dto.IndexAuditRequest false "Audit options"
// @Success 202 {object} response.Envelope
// @Router /documents/audit [post]
func (h *DocumentHandler) StartAudit(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if h.audits == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrConfiguration, "index audit is disabled"))
		return
	}
	var req dto.IndexAuditRequest
	if c.Request.ContentLength > 0 {
		if !bindJSON(c, &req, "invalid audit payload") {
			return
		}
	}
	job, err := h.audits.Create(c.Request.Context(), actor.Email, req.Prune)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, job, nil)
}

// GetAudit godoc
// @Summary Get an index audit result
// @Tags Documents
// @Produce json
// @Param id path string true "Audit ID"
// @Success 200 {object} response.Envelope
// @Router /documents/audit/{id} [get]
func (h *DocumentHandler) GetAudit(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if h.audits == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrConfiguration, "index audit is disabled"))
		return
	}
	job, err := h.audits.Get(c.Request.Context(), actor.Email, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job, nil)
}

func (h *DocumentHandler) readFile(c *gin.Context) (string, string, []byte, error) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return "", "", nil, appErrors.Clone(appErrors.ErrValidation, "file is required")
	}
	if fileHeader.Size > h.maxBytes {
		return "", "", nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds %d bytes limit", h.maxBytes))
	}
	src, err := fileHeader.Open()
	if err != nil {
		return "", "", nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open file")
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, h.maxBytes+1))
	if err != nil {
		return "", "", nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read file")
	}
	if int64(len(data)) > h.maxBytes {
		return "", "", nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds %d bytes limit", h.maxBytes))
	}
	return fileHeader.Filename, fileHeader.Header.Get("Content-Type"), data, nil
}
