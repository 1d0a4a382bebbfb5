package dto

import "github.com/MonishNivethIlango/doculan-service-sub001/internal/models"

// UploadDocumentRequest holds the form fields sent with a multipart upload.
type UploadDocumentRequest struct {
	DocumentID string `form:"document_id"`
	Path       string `form:"path"`
	Overwrite  bool   `form:"overwrite"`
}

// MoveDocumentsRequest moves a batch of documents into one folder.
type MoveDocumentsRequest struct {
	DocumentIDs []string `json:"document_ids" validate:"required,min=1,dive,required"`
	NewFolder   string   `json:"new_folder"`
}

// MoveDocumentsResponse reports per document move outcomes.
type MoveDocumentsResponse struct {
	Results map[string]models.MoveResult `json:"results"`
	Moved   int                          `json:"moved"`
	Failed  int                          `json:"failed"`
}

// DocumentFilter captures list query parameters.
type DocumentFilter struct {
	Folder string `form:"folder"`
	Format string `form:"format"`
}

// IndexAuditRequest starts an index audit.
type IndexAuditRequest struct {
	Prune bool `json:"prune"`
}
