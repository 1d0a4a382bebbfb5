package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MonishNivethIlango/doculan-service-sub001/internal/models"
	"github.com/MonishNivethIlango/doculan-service-sub001/pkg/cryptox"
	appErrors "github.com/MonishNivethIlango/doculan-service-sub001/pkg/errors"
	"github.com/MonishNivethIlango/doculan-service-sub001/pkg/lock"
	"github.com/MonishNivethIlango/doculan-service-sub001/pkg/storage"
)

type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	failPut map[string]error
	failDel map[string]error
	headErr error
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}, failPut: map[string]error{}, failDel: map[string]error{}}
}

func (m *memStore) Put(_ context.Context, key string, data []byte, _ storage.PutOptions) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failPut[key]; err != nil {
		return err
	}
	m.objects[key] = append([]byte(nil), data...)
	return nil
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return append([]byte(nil), data...), nil
}

func (m *memStore) Head(_ context.Context, key string) (*storage.ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.headErr != nil {
		return nil, m.headErr
	}
	data, ok := m.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return &storage.ObjectInfo{Key: key, Size: int64(len(data))}, nil
}

func (m *memStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failDel[key]; err != nil {
		return err
	}
	delete(m.objects, key)
	return nil
}

func (m *memStore) Copy(_ context.Context, src, dst string, _ storage.PutOptions) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[src]
	if !ok {
		return storage.ErrObjectNotFound
	}
	m.objects[dst] = append([]byte(nil), data...)
	return nil
}

func (m *memStore) List(_ context.Context, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0)
	for key := range m.objects {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *memStore) HealthCheck(context.Context) error { return nil }

func (m *memStore) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok
}

type busyLocker struct{}

func (busyLocker) WithLock(context.Context, string, func(context.Context) error) error {
	return lock.ErrNotAcquired
}

func newTestCipher(t *testing.T) *cryptox.Cipher {
	t.Helper()
	c, err := cryptox.NewFromHex(strings.Repeat("ab", 32))
	require.NoError(t, err)
	return c
}

func newTestEngine(t *testing.T) (*S3DocumentStorage, *memStore) {
	t.Helper()
	store := newMemStore()
	engine := NewS3DocumentStorage(store, newTestCipher(t), lock.NewLocalLocker(lock.DefaultOptions()), nil, nil, DocumentStorageConfig{MoveConcurrency: 2})
	return engine, store
}

func uploadInput(id, name, prefix string) models.UploadInput {
	return models.UploadInput{
		Tenant:      "alice@example.com",
		ActorName:   "Alice",
		ActorEmail:  "alice@example.com",
		DocumentID:  id,
		Data:        []byte("%PDF-1.4 " + id),
		FileName:    name,
		ContentType: "application/pdf",
		PathPrefix:  prefix,
	}
}

func TestUploadWritesBlobMetadataAndIndex(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	res, err := engine.UploadFile(ctx, uploadInput("doc-1", "nda.pdf", "contracts"))
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com/files/contracts/nda.pdf", res.S3Keys.File)
	assert.Equal(t, "alice@example.com/metadata/data/doc-1.json", res.S3Keys.Metadata)

	assert.True(t, store.has("alice@example.com/index/document_index.json"))
	raw, err := store.Get(ctx, res.S3Keys.File)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "%PDF", "blob must be encrypted at rest")

	doc, content, err := engine.GetFile(ctx, "alice@example.com", "doc-1", true)
	require.NoError(t, err)
	assert.Equal(t, "doc-1", doc.DocumentID)
	assert.Equal(t, "nda.pdf", doc.FileName)
	assert.Equal(t, "alice@example.com", doc.CreatedBy.Email)
	assert.Equal(t, []byte("%PDF-1.4 doc-1"), content)
}

func TestUploadPurgesStaleEntryForSamePath(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	_, err := engine.UploadFile(ctx, uploadInput("doc-a", "nda.pdf", "contracts"))
	require.NoError(t, err)
	require.True(t, store.has("alice@example.com/metadata/data/doc-a.json"))

	in := uploadInput("doc-b", "nda.pdf", "contracts")
	in.Overwrite = true
	_, err = engine.UploadFile(ctx, in)
	require.NoError(t, err)

	docs, err := engine.ListFiles(ctx, "alice@example.com", "")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "doc-b", docs[0].DocumentID)
	assert.False(t, store.has("alice@example.com/metadata/data/doc-a.json"))

	_, _, err = engine.GetFile(ctx, "alice@example.com", "doc-a", false)
	assert.True(t, errors.Is(err, appErrors.ErrIndexNotFound))
}

func TestUploadConflictWithoutOverwrite(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	_, err := engine.UploadFile(ctx, uploadInput("doc-a", "nda.pdf", ""))
	require.NoError(t, err)
	blobBefore, _ := store.Get(ctx, "alice@example.com/files/nda.pdf")
	indexBefore, _ := store.Get(ctx, "alice@example.com/index/document_index.json")

	_, err = engine.UploadFile(ctx, uploadInput("doc-b", "nda.pdf", ""))
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrConflict))

	blobAfter, _ := store.Get(ctx, "alice@example.com/files/nda.pdf")
	indexAfter, _ := store.Get(ctx, "alice@example.com/index/document_index.json")
	assert.Equal(t, blobBefore, blobAfter)
	assert.Equal(t, indexBefore, indexAfter)
	assert.False(t, store.has("alice@example.com/metadata/data/doc-b.json"))
}

func TestUploadReusedDocumentIDRequiresOverwrite(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	_, err := engine.UploadFile(ctx, uploadInput("doc-1", "nda.pdf", "contracts"))
	require.NoError(t, err)

	_, err = engine.UploadFile(ctx, uploadInput("doc-1", "other.pdf", "misc"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrConflict))
	assert.True(t, store.has("alice@example.com/files/contracts/nda.pdf"))
	assert.False(t, store.has("alice@example.com/files/misc/other.pdf"))

	doc, _, err := engine.GetFile(ctx, "alice@example.com", "doc-1", false)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com/files/contracts/nda.pdf", doc.FilePath)

	in := uploadInput("doc-1", "other.pdf", "misc")
	in.Overwrite = true
	_, err = engine.UploadFile(ctx, in)
	require.NoError(t, err)
	assert.False(t, store.has("alice@example.com/files/contracts/nda.pdf"))
	assert.True(t, store.has("alice@example.com/files/misc/other.pdf"))
}

func TestUploadFailureKeepsStaleEntryMetadata(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	_, err := engine.UploadFile(ctx, uploadInput("doc-a", "nda.pdf", "contracts"))
	require.NoError(t, err)

	store.failPut["alice@example.com/files/contracts/nda.pdf"] = errors.New("slow down")
	in := uploadInput("doc-b", "nda.pdf", "contracts")
	in.Overwrite = true
	_, err = engine.UploadFile(ctx, in)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrStorage))

	assert.True(t, store.has("alice@example.com/metadata/data/doc-a.json"))
	doc, _, err := engine.GetFile(ctx, "alice@example.com", "doc-a", false)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com/metadata/data/doc-a.json", doc.MetadataPath)
}

func TestUploadHeadFailureIsStorageError(t *testing.T) {
	engine, store := newTestEngine(t)
	store.headErr = errors.New("access denied")

	_, err := engine.UploadFile(context.Background(), uploadInput("doc-a", "nda.pdf", ""))
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrStorage))
}

func TestUploadValidation(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	for _, name := range []string{"", "  ", "../x.pdf", "a/b.pdf", ".keep"} {
		_, err := engine.UploadFile(ctx, uploadInput("doc-a", name, ""))
		assert.True(t, errors.Is(err, appErrors.ErrValidation), "file name %q", name)
	}
	_, err := engine.UploadFile(ctx, uploadInput("doc-a", "ok.pdf", "a/../b"))
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestUpdateFileRequiresIndexedDocument(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	_, err := engine.UpdateFile(ctx, uploadInput("ghost", "x.pdf", ""))
	assert.True(t, errors.Is(err, appErrors.ErrIndexNotFound))

	_, err = engine.UploadFile(ctx, uploadInput("doc-a", "v1.pdf", "drafts"))
	require.NoError(t, err)

	in := uploadInput("doc-a", "", "")
	in.Data = []byte("second version")
	res, err := engine.UpdateFile(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com/files/drafts/v1.pdf", res.S3Keys.File)

	_, content, err := engine.GetFile(ctx, "alice@example.com", "doc-a", true)
	require.NoError(t, err)
	assert.Equal(t, []byte("second version"), content)

	renamed := uploadInput("doc-a", "v2.pdf", "drafts")
	_, err = engine.UpdateFile(ctx, renamed)
	require.NoError(t, err)
	assert.False(t, store.has("alice@example.com/files/drafts/v1.pdf"))
	assert.True(t, store.has("alice@example.com/files/drafts/v2.pdf"))
}

func TestListOnMissingIndexIsEmpty(t *testing.T) {
	engine, _ := newTestEngine(t)

	docs, err := engine.ListFiles(context.Background(), "nobody@example.com", "")
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestListFiltersByFolder(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := engine.UploadFile(ctx, uploadInput("doc-a", "a.pdf", "contracts"))
	require.NoError(t, err)
	_, err = engine.UploadFile(ctx, uploadInput("doc-b", "b.pdf", "invoices"))
	require.NoError(t, err)

	docs, err := engine.ListFiles(ctx, "alice@example.com", "invoices")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "doc-b", docs[0].DocumentID)
}

func TestGetDistinguishesIndexMissFromBlobFailure(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	_, _, err := engine.GetFile(ctx, "alice@example.com", "ghost", true)
	assert.True(t, errors.Is(err, appErrors.ErrIndexNotFound))

	res, err := engine.UploadFile(ctx, uploadInput("doc-a", "a.pdf", ""))
	require.NoError(t, err)
	require.NoError(t, store.Delete(ctx, res.S3Keys.File))

	doc, _, err := engine.GetFile(ctx, "alice@example.com", "doc-a", false)
	require.NoError(t, err)
	assert.Equal(t, res.S3Keys.File, doc.FilePath)

	_, _, err = engine.GetFile(ctx, "alice@example.com", "doc-a", true)
	assert.True(t, errors.Is(err, appErrors.ErrBlobRetrieval))
}

func TestDeleteLeavesPlaceholderForEmptiedFolder(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	_, err := engine.UploadFile(ctx, uploadInput("doc-a", "a.pdf", "contracts"))
	require.NoError(t, err)

	require.NoError(t, engine.DeleteFile(ctx, "alice@example.com", "doc-a"))
	assert.False(t, store.has("alice@example.com/files/contracts/a.pdf"))
	assert.False(t, store.has("alice@example.com/metadata/data/doc-a.json"))
	assert.True(t, store.has("alice@example.com/files/contracts/.keep"))

	_, _, err = engine.GetFile(ctx, "alice@example.com", "doc-a", false)
	assert.True(t, errors.Is(err, appErrors.ErrIndexNotFound))
}

func TestDeleteWithSiblingsSkipsPlaceholder(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	_, err := engine.UploadFile(ctx, uploadInput("doc-a", "a.pdf", "contracts"))
	require.NoError(t, err)
	_, err = engine.UploadFile(ctx, uploadInput("doc-b", "b.pdf", "contracts"))
	require.NoError(t, err)

	require.NoError(t, engine.DeleteFile(ctx, "alice@example.com", "doc-a"))
	assert.False(t, store.has("alice@example.com/files/contracts/.keep"))
	assert.True(t, store.has("alice@example.com/files/contracts/b.pdf"))
}

func TestDeleteUnknownDocument(t *testing.T) {
	engine, _ := newTestEngine(t)
	err := engine.DeleteFile(context.Background(), "alice@example.com", "ghost")
	assert.True(t, errors.Is(err, appErrors.ErrIndexNotFound))
}

func TestDeleteBlobFailureKeepsIndexEntry(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	res, err := engine.UploadFile(ctx, uploadInput("doc-a", "a.pdf", ""))
	require.NoError(t, err)
	store.failDel[res.S3Keys.File] = errors.New("throttled")

	err = engine.DeleteFile(ctx, "alice@example.com", "doc-a")
	assert.True(t, errors.Is(err, appErrors.ErrStorage))

	_, _, err = engine.GetFile(ctx, "alice@example.com", "doc-a", false)
	require.NoError(t, err)
}

func TestMoveUpdatesIndexAndObjects(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	_, err := engine.UploadFile(ctx, uploadInput("doc1", "a.pdf", "inbox"))
	require.NoError(t, err)

	results, err := engine.MoveFile(ctx, "alice@example.com", []string{"doc1"}, "newfolder")
	require.NoError(t, err)
	require.Equal(t, models.MoveStatusMoved, results["doc1"].Status)

	doc, content, err := engine.GetFile(ctx, "alice@example.com", "doc1", true)
	require.NoError(t, err)
	assert.Contains(t, doc.FilePath, "newfolder")
	assert.Equal(t, "alice@example.com/files/newfolder/a.pdf", doc.FilePath)
	assert.Equal(t, []byte("%PDF-1.4 doc1"), content)
	assert.True(t, store.has("alice@example.com/files/newfolder/a.pdf"))
	assert.False(t, store.has("alice@example.com/files/inbox/a.pdf"))
	assert.True(t, store.has("alice@example.com/files/inbox/.keep"))

	raw, err := store.Get(ctx, doc.MetadataPath)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "newfolder/a.pdf")
}

func TestMoveCollectsPerDocumentFailures(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	_, err := engine.UploadFile(ctx, uploadInput("doc1", "a.pdf", "inbox"))
	require.NoError(t, err)
	_, err = engine.UploadFile(ctx, uploadInput("doc2", "b.pdf", "inbox"))
	require.NoError(t, err)
	_, err = engine.UploadFile(ctx, uploadInput("doc3", "b.pdf", "archive"))
	require.NoError(t, err)
	store.failDel["alice@example.com/files/inbox/b.pdf"] = errors.New("throttled")

	results, err := engine.MoveFile(ctx, "alice@example.com", []string{"doc1", "doc2", "ghost", "doc1"}, "archive")
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, models.MoveStatusMoved, results["doc1"].Status)
	assert.Equal(t, models.MoveStatusFailed, results["doc2"].Status)
	assert.Equal(t, models.MoveStatusFailed, results["ghost"].Status)

	doc1, _, err := engine.GetFile(ctx, "alice@example.com", "doc1", false)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com/files/archive/a.pdf", doc1.FilePath)

	doc2, _, err := engine.GetFile(ctx, "alice@example.com", "doc2", false)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com/files/inbox/b.pdf", doc2.FilePath)

	doc3, _, err := engine.GetFile(ctx, "alice@example.com", "doc3", false)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com/files/archive/b.pdf", doc3.FilePath)
}

func TestMoveRequiresIDs(t *testing.T) {
	engine, _ := newTestEngine(t)
	_, err := engine.MoveFile(context.Background(), "alice@example.com", []string{" "}, "x")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestIndexLockTimeoutSurfacesAsConflict(t *testing.T) {
	store := newMemStore()
	engine := NewS3DocumentStorage(store, newTestCipher(t), busyLocker{}, nil, nil, DocumentStorageConfig{})

	_, err := engine.UploadFile(context.Background(), uploadInput("doc-a", "a.pdf", ""))
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrLockTimeout))
	assert.Equal(t, 409, appErrors.FromError(err).Status)
}

func TestHeldLocalIndexLockSurfacesAsConflict(t *testing.T) {
	locker := lock.NewLocalLocker(lock.Options{Retries: 2, Backoff: 5 * time.Millisecond})
	engine := NewS3DocumentStorage(newMemStore(), newTestCipher(t), locker, nil, nil, DocumentStorageConfig{})

	held := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = locker.WithLock(context.Background(), indexLockKey("alice@example.com"), func(context.Context) error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held
	defer close(release)

	_, err := engine.UploadFile(context.Background(), uploadInput("doc-a", "a.pdf", ""))
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrLockTimeout))
}

func TestConcurrentUploadsKeepEveryEntry(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := "doc-" + string(rune('a'+i))
			_, err := engine.UploadFile(ctx, uploadInput(id, id+".pdf", "bulk"))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	docs, err := engine.ListFiles(ctx, "alice@example.com", "bulk")
	require.NoError(t, err)
	assert.Len(t, docs, 20)
}

func TestTenantsAreIsolated(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	_, err := engine.UploadFile(ctx, uploadInput("doc-a", "a.pdf", ""))
	require.NoError(t, err)

	// copying alice's index under bob's prefix must not decrypt with bob's key
	raw, err := store.Get(ctx, IndexKey("alice@example.com"))
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, IndexKey("bob@example.com"), raw, storage.PutOptions{}))

	_, err = engine.ListFiles(ctx, "bob@example.com", "")
	assert.True(t, errors.Is(err, appErrors.ErrStorage))
}

func TestStorageFactory(t *testing.T) {
	engine, _ := newTestEngine(t)
	drive := NewDriveStorage(newMemStore(), newTestCipher(t), nil)
	factory := NewStorageFactory(map[string]StorageStrategy{"s3": engine, "drive": drive})

	got, err := factory.For(" S3 ")
	require.NoError(t, err)
	assert.Same(t, engine, got)

	got, err = factory.For("drive")
	require.NoError(t, err)
	assert.Same(t, drive, got)

	_, err = factory.For("ftp")
	assert.True(t, errors.Is(err, appErrors.ErrConfiguration))
}

func TestDriveStorageIsPartial(t *testing.T) {
	store := newMemStore()
	drive := NewDriveStorage(store, newTestCipher(t), nil)
	ctx := context.Background()

	res, err := drive.UploadFile(ctx, uploadInput("doc-a", "a.pdf", "x"))
	require.NoError(t, err)
	assert.True(t, store.has(res.S3Keys.File))
	assert.Empty(t, res.S3Keys.Metadata)

	_, err = drive.UploadFile(ctx, uploadInput("doc-b", "a.pdf", "x"))
	assert.True(t, errors.Is(err, appErrors.ErrConflict))

	_, _, err = drive.GetFile(ctx, "alice@example.com", "doc-a", false)
	assert.True(t, errors.Is(err, appErrors.ErrNotImplemented))
	_, err = drive.ListFiles(ctx, "alice@example.com", "")
	assert.True(t, errors.Is(err, appErrors.ErrNotImplemented))
	_, err = drive.MoveFile(ctx, "alice@example.com", []string{"doc-a"}, "y")
	assert.True(t, errors.Is(err, appErrors.ErrNotImplemented))
	assert.True(t, errors.Is(drive.DeleteFile(ctx, "alice@example.com", "doc-a"), appErrors.ErrNotImplemented))
}
