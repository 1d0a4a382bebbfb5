package models

import "time"

// CreatedBy identifies the actor that last wrote a document.
type CreatedBy struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// DocumentIndexEntry locates one document's blob and metadata sidecar.
type DocumentIndexEntry struct {
	FilePath     string    `json:"file_path"`
	MetadataPath string    `json:"metadata_path"`
	FileName     string    `json:"fileName"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
	CreatedBy    CreatedBy `json:"created_by"`
}

// DocumentIndex maps document ids to their index entries for one tenant.
type DocumentIndex map[string]DocumentIndexEntry

// Document is an index entry merged with its id, as returned to callers.
type Document struct {
	DocumentID string `json:"document_id"`
	DocumentIndexEntry
}

// DocumentMetadata is the JSON sidecar written next to each blob.
type DocumentMetadata struct {
	DocumentID  string    `json:"document_id"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	FilePath    string    `json:"file_path"`
	PathPrefix  string    `json:"path_prefix,omitempty"`
	CreatedBy   CreatedBy `json:"created_by"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// DocumentKeys are the object keys written by an upload.
type DocumentKeys struct {
	File     string `json:"file"`
	Metadata string `json:"metadata"`
}

// UploadResult reports the outcome of an upload.
type UploadResult struct {
	DocumentID string       `json:"document_id"`
	S3Keys     DocumentKeys `json:"s3_keys"`
}

// UploadInput describes a document upload.
type UploadInput struct {
	Tenant      string
	ActorName   string
	ActorEmail  string
	DocumentID  string
	Data        []byte
	FileName    string
	ContentType string
	PathPrefix  string
	Overwrite   bool
}

// Move outcome statuses.
const (
	MoveStatusMoved  = "moved"
	MoveStatusFailed = "failed"
)

// MoveResult is the per document outcome of a batch move.
type MoveResult struct {
	Status       string `json:"status"`
	FilePath     string `json:"file_path,omitempty"`
	MetadataPath string `json:"metadata_path,omitempty"`
	Error        string `json:"error,omitempty"`
}

// DocumentContent carries a decrypted blob.
type DocumentContent struct {
	DocumentID  string
	FileName    string
	ContentType string
	Data        []byte
}

// PresignedURL is a time limited download link.
type PresignedURL struct {
	DocumentID string    `json:"document_id"`
	URL        string    `json:"url"`
	ExpiresAt  time.Time `json:"expires_at"`
}
