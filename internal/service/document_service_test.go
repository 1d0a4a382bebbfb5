package service

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MonishNivethIlango/doculan-service-sub001/internal/dto"
	"github.com/MonishNivethIlango/doculan-service-sub001/internal/models"
	appErrors "github.com/MonishNivethIlango/doculan-service-sub001/pkg/errors"
	"github.com/MonishNivethIlango/doculan-service-sub001/pkg/storage"
)

var pdfBody = []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\n")

func newTestDocumentService(t *testing.T) (*DocumentService, *memStore, *auditRecorder) {
	t.Helper()
	engine, store := newTestEngine(t)
	factory := NewStorageFactory(map[string]StorageStrategy{"s3": engine})
	audit := &auditRecorder{}
	svc := NewDocumentService(factory, storage.NewSignedURLSigner("secret", time.Minute), audit, nil, nil, DocumentServiceConfig{
		StorageType:    "s3",
		APIPrefix:      "/api/v1",
		MaxUploadBytes: 1024,
	})
	return svc, store, audit
}

var alice = DocumentActor{UserID: "u1", Email: "alice@example.com", Name: "Alice"}

func TestDocumentServiceUploadGeneratesIDAndDetectsType(t *testing.T) {
	svc, store, audit := newTestDocumentService(t)
	ctx := context.Background()

	res, err := svc.Upload(ctx, alice, DocumentUpload{FileName: "c.pdf", PathPrefix: "contracts", Data: pdfBody})
	require.NoError(t, err)
	assert.NotEmpty(t, res.DocumentID)
	assert.Equal(t, "alice@example.com/files/contracts/c.pdf", res.S3Keys.File)
	assert.True(t, store.has(res.S3Keys.Metadata))
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionDocUpload, audit.logs[0].Action)
	assert.Equal(t, "alice@example.com", audit.logs[0].Tenant)

	content, err := svc.Content(ctx, alice, res.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", content.ContentType)
	assert.Equal(t, pdfBody, content.Data)
}

func TestDocumentServiceRejectsBadBodies(t *testing.T) {
	svc, _, _ := newTestDocumentService(t)
	ctx := context.Background()

	_, err := svc.Upload(ctx, alice, DocumentUpload{FileName: "a.pdf"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.Upload(ctx, alice, DocumentUpload{FileName: "a.pdf", Data: make([]byte, 2048)})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.Upload(ctx, DocumentActor{}, DocumentUpload{FileName: "a.pdf", Data: pdfBody})
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))
}

func TestDocumentServiceContentRequiresTenant(t *testing.T) {
	svc, _, _ := newTestDocumentService(t)
	ctx := context.Background()

	_, err := svc.Upload(ctx, alice, DocumentUpload{DocumentID: "d1", FileName: "a.pdf", Data: pdfBody})
	require.NoError(t, err)

	_, err = svc.Content(ctx, DocumentActor{UserID: "u1"}, "d1")
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))

	got, err := svc.Content(ctx, alice, "d1")
	require.NoError(t, err)
	assert.Equal(t, pdfBody, got.Data)
}

func TestDocumentServiceUnknownBackend(t *testing.T) {
	svc := NewDocumentService(NewStorageFactory(nil), nil, nil, nil, nil, DocumentServiceConfig{StorageType: "ftp"})

	_, err := svc.List(context.Background(), alice, "")
	assert.True(t, errors.Is(err, appErrors.ErrConfiguration))
}

func TestDocumentServiceUpdateKeepsFolderWhenOnlyNameGiven(t *testing.T) {
	svc, store, _ := newTestDocumentService(t)
	ctx := context.Background()
	_, err := svc.Upload(ctx, alice, DocumentUpload{DocumentID: "d1", FileName: "v1.pdf", PathPrefix: "hr", Data: pdfBody})
	require.NoError(t, err)

	res, err := svc.Update(ctx, alice, "d1", DocumentUpdate{FileName: "v2.pdf", Data: pdfBody})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com/files/hr/v2.pdf", res.S3Keys.File)
	assert.False(t, store.has("alice@example.com/files/hr/v1.pdf"))

	root := ""
	res, err = svc.Update(ctx, alice, "d1", DocumentUpdate{PathPrefix: &root, Data: pdfBody})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com/files/v2.pdf", res.S3Keys.File)

	_, err = svc.Update(ctx, alice, "missing", DocumentUpdate{Data: pdfBody})
	assert.True(t, errors.Is(err, appErrors.ErrIndexNotFound))
}

func TestDocumentServiceMoveCountsOutcomes(t *testing.T) {
	svc, _, audit := newTestDocumentService(t)
	ctx := context.Background()
	_, err := svc.Upload(ctx, alice, DocumentUpload{DocumentID: "d1", FileName: "a.pdf", Data: pdfBody})
	require.NoError(t, err)

	resp, err := svc.Move(ctx, alice, dto.MoveDocumentsRequest{DocumentIDs: []string{"d1", "ghost"}, NewFolder: "archive"})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Moved)
	assert.Equal(t, 1, resp.Failed)
	assert.Equal(t, models.MoveStatusMoved, resp.Results["d1"].Status)
	assert.Equal(t, models.AuditActionDocMove, audit.logs[len(audit.logs)-1].Action)

	_, err = svc.Move(ctx, alice, dto.MoveDocumentsRequest{})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestDocumentServiceExport(t *testing.T) {
	svc, _, _ := newTestDocumentService(t)
	ctx := context.Background()
	_, err := svc.Upload(ctx, alice, DocumentUpload{DocumentID: "d1", FileName: "a.pdf", PathPrefix: "x", Data: pdfBody})
	require.NoError(t, err)

	out, err := svc.Export(ctx, alice, "", "csv")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", out.ContentType)
	assert.True(t, strings.HasSuffix(out.FileName, ".csv"))
	assert.Contains(t, string(out.Data), "d1,a.pdf,alice@example.com/files/x/a.pdf")

	_, err = svc.Export(ctx, alice, "", "docx")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestDocumentServiceDownloadURLRoundTrip(t *testing.T) {
	svc, _, _ := newTestDocumentService(t)
	ctx := context.Background()
	_, err := svc.Upload(ctx, alice, DocumentUpload{DocumentID: "d1", FileName: "a.pdf", Data: pdfBody})
	require.NoError(t, err)

	link, err := svc.DownloadURL(ctx, alice, "d1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(link.URL, "/api/v1/documents/download?token="))

	parsed, err := url.Parse(link.URL)
	require.NoError(t, err)
	content, err := svc.Redeem(ctx, parsed.Query().Get("token"))
	require.NoError(t, err)
	assert.Equal(t, "a.pdf", content.FileName)
	assert.Equal(t, pdfBody, content.Data)

	_, err = svc.Redeem(ctx, "garbage")
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))

	_, err = svc.DownloadURL(ctx, alice, "missing")
	assert.True(t, errors.Is(err, appErrors.ErrIndexNotFound))
}

func TestDocumentServiceDeleteAudits(t *testing.T) {
	svc, _, audit := newTestDocumentService(t)
	ctx := context.Background()
	_, err := svc.Upload(ctx, alice, DocumentUpload{DocumentID: "d1", FileName: "a.pdf", Data: pdfBody})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, alice, "d1"))
	assert.Equal(t, models.AuditActionDocDelete, audit.logs[len(audit.logs)-1].Action)

	docs, err := svc.List(ctx, alice, "")
	require.NoError(t, err)
	assert.Empty(t, docs)
}
