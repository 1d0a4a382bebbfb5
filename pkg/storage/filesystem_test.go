package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocalStore(t *testing.T) *LocalStore {
	t.Helper()
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func TestLocalStorePutGetHeadDelete(t *testing.T) {
	ctx := context.Background()
	store := newTestLocalStore(t)

	require.NoError(t, store.Put(ctx, "alice@example.com/files/contracts/nda.pdf", []byte("payload"), PutOptions{}))

	data, err := store.Get(ctx, "alice@example.com/files/contracts/nda.pdf")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), data)

	info, err := store.Head(ctx, "alice@example.com/files/contracts/nda.pdf")
	require.NoError(t, err)
	assert.Equal(t, int64(7), info.Size)

	require.NoError(t, store.Delete(ctx, "alice@example.com/files/contracts/nda.pdf"))
	_, err = store.Get(ctx, "alice@example.com/files/contracts/nda.pdf")
	assert.True(t, IsNotFound(err))
	_, err = store.Head(ctx, "alice@example.com/files/contracts/nda.pdf")
	assert.True(t, IsNotFound(err))

	// deleting twice is fine
	require.NoError(t, store.Delete(ctx, "alice@example.com/files/contracts/nda.pdf"))
}

func TestLocalStoreListAndCopy(t *testing.T) {
	ctx := context.Background()
	store := newTestLocalStore(t)

	require.NoError(t, store.Put(ctx, "t1/files/a/one.pdf", []byte("1"), PutOptions{}))
	require.NoError(t, store.Put(ctx, "t1/files/a/.keep", nil, PutOptions{}))
	require.NoError(t, store.Put(ctx, "t1/files/b/two.pdf", []byte("2"), PutOptions{}))
	require.NoError(t, store.Put(ctx, "t2/files/a/three.pdf", []byte("3"), PutOptions{}))

	keys, err := store.List(ctx, "t1/files/a/")
	require.NoError(t, err)
	assert.Equal(t, []string{"t1/files/a/.keep", "t1/files/a/one.pdf"}, keys)

	require.NoError(t, store.Copy(ctx, "t1/files/a/one.pdf", "t1/files/b/one.pdf", PutOptions{}))
	keys, err = store.List(ctx, "t1/files/b/")
	require.NoError(t, err)
	assert.Equal(t, []string{"t1/files/b/one.pdf", "t1/files/b/two.pdf"}, keys)

	err = store.Copy(ctx, "t1/files/missing.pdf", "t1/files/x.pdf", PutOptions{})
	assert.True(t, IsNotFound(err))
}

func TestLocalStoreRejectsTraversal(t *testing.T) {
	store := newTestLocalStore(t)
	err := store.Put(context.Background(), "t1/../../etc/passwd", []byte("x"), PutOptions{})
	require.Error(t, err)
	_, err = store.Get(context.Background(), "/etc/passwd")
	require.Error(t, err)
}

func TestLocalStoreHealthCheck(t *testing.T) {
	store := newTestLocalStore(t)
	require.NoError(t, store.HealthCheck(context.Background()))
}

func TestJoinKeyAndParentPrefix(t *testing.T) {
	assert.Equal(t, "t1/files/a/b.pdf", JoinKey("t1", "files", "/a/", "", "b.pdf"))
	assert.Equal(t, "t1/files/a/", ParentPrefix("t1/files/a/b.pdf"))
	assert.Equal(t, "", ParentPrefix("b.pdf"))
}
