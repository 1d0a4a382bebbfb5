package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MonishNivethIlango/doculan-service-sub001/internal/models"
	appErrors "github.com/MonishNivethIlango/doculan-service-sub001/pkg/errors"
)

func TestFolderServiceAssignKeepsExistingIDs(t *testing.T) {
	store := newMemStore()
	audit := &auditRecorder{}
	svc := NewFolderService(store, nil, audit, nil)
	ctx := context.Background()

	first, err := svc.Assign(ctx, "admin@acme.io", "editor", []string{"/contracts/", "hr"}, AuditMeta{})
	require.NoError(t, err)
	require.Len(t, first.Folders, 2)
	assert.Equal(t, "contracts", first.Folders[0].Path)
	contractsID := first.Folders[0].FolderMappingID
	assert.NotEmpty(t, contractsID)
	assert.NotEqual(t, contractsID, first.Folders[1].FolderMappingID)

	second, err := svc.Assign(ctx, "admin@acme.io", "editor", []string{"contracts", "finance//q1"}, AuditMeta{})
	require.NoError(t, err)
	require.Len(t, second.Folders, 3)
	assert.Equal(t, contractsID, second.Folders[0].FolderMappingID)
	assert.Equal(t, "finance/q1", second.Folders[2].Path)

	raw, err := store.Get(ctx, "admin@acme.io/folder_assignments/editor.json")
	require.NoError(t, err)
	var stored models.FolderAssignment
	require.NoError(t, json.Unmarshal(raw, &stored))
	assert.Len(t, stored.Folders, 3)
	assert.Len(t, audit.logs, 2)
}

func TestFolderServiceRemove(t *testing.T) {
	svc := NewFolderService(newMemStore(), nil, nil, nil)
	ctx := context.Background()

	assignment, err := svc.Assign(ctx, "admin@acme.io", "editor", []string{"a", "b"}, AuditMeta{})
	require.NoError(t, err)

	_, err = svc.Remove(ctx, "admin@acme.io", "editor", "nope", AuditMeta{})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	updated, err := svc.Remove(ctx, "admin@acme.io", "editor", assignment.Folders[0].FolderMappingID, AuditMeta{})
	require.NoError(t, err)
	require.Len(t, updated.Folders, 1)
	assert.Equal(t, "b", updated.Folders[0].Path)

	got, err := svc.Get(ctx, "admin@acme.io", "editor")
	require.NoError(t, err)
	assert.Len(t, got.Folders, 1)
}

func TestFolderServiceValidation(t *testing.T) {
	svc := NewFolderService(newMemStore(), nil, nil, nil)
	ctx := context.Background()

	_, err := svc.Assign(ctx, "admin", "editor", []string{"../etc"}, AuditMeta{})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.Assign(ctx, "admin", "editor", []string{"", "/"}, AuditMeta{})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.Get(ctx, "admin", "../x")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	empty, err := svc.Get(ctx, "admin", "viewer")
	require.NoError(t, err)
	assert.Empty(t, empty.Folders)
}

func TestFolderServiceLockBusy(t *testing.T) {
	svc := NewFolderService(newMemStore(), busyLocker{}, nil, nil)

	_, err := svc.Assign(context.Background(), "admin", "editor", []string{"a"}, AuditMeta{})
	assert.True(t, errors.Is(err, appErrors.ErrLockTimeout))
}
