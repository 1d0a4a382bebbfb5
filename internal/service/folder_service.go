package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/MonishNivethIlango/doculan-service-sub001/internal/models"
	appErrors "github.com/MonishNivethIlango/doculan-service-sub001/pkg/errors"
	"github.com/MonishNivethIlango/doculan-service-sub001/pkg/lock"
	"github.com/MonishNivethIlango/doculan-service-sub001/pkg/storage"
)

const folderResource = "folder_assignment"

// FolderAssignmentKey is the object key of the folder assignment for role under admin.
func FolderAssignmentKey(admin, role string) string {
	return storage.JoinKey(admin, "folder_assignments", role+".json")
}

// FolderService maintains role folder assignments as JSON objects.
type FolderService struct {
	store  storage.ObjectStore
	locker lock.Locker
	audit  auditLogger
	logger *zap.Logger
	now    func() time.Time
}

// NewFolderService constructs a FolderService.
func NewFolderService(store storage.ObjectStore, locker lock.Locker, audit auditLogger, logger *zap.Logger) *FolderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if locker == nil {
		locker = lock.NewLocalLocker(lock.DefaultOptions())
	}
	return &FolderService{store: store, locker: locker, audit: audit, logger: logger, now: time.Now}
}

// Get returns the folder assignment for role. A role without folders yields an empty assignment.
func (s *FolderService) Get(ctx context.Context, admin, role string) (*models.FolderAssignment, error) {
	if err := validateAssignmentOwner(admin, role); err != nil {
		return nil, err
	}
	return s.load(ctx, strings.TrimSpace(admin), strings.TrimSpace(role))
}

// Assign adds folder paths to role. Paths already assigned keep their folderMappingId.
func (s *FolderService) Assign(ctx context.Context, admin, role string, paths []string, meta AuditMeta) (*models.FolderAssignment, error) {
	if err := validateAssignmentOwner(admin, role); err != nil {
		return nil, err
	}
	admin, role = strings.TrimSpace(admin), strings.TrimSpace(role)

	cleaned := make([]string, 0, len(paths))
	for _, p := range paths {
		c, err := cleanPathPrefix(p)
		if err != nil {
			return nil, err
		}
		if c != "" {
			cleaned = append(cleaned, c)
		}
	}
	cleaned = uniqueNonEmpty(cleaned)
	if len(cleaned) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "at least one folder path is required")
	}

	var result *models.FolderAssignment
	err := s.withLock(ctx, admin, role, func(ctx context.Context) error {
		current, err := s.load(ctx, admin, role)
		if err != nil {
			return err
		}
		existing := make(map[string]struct{}, len(current.Folders))
		for _, f := range current.Folders {
			existing[f.Path] = struct{}{}
		}
		for _, p := range cleaned {
			if _, ok := existing[p]; ok {
				continue
			}
			current.Folders = append(current.Folders, models.FolderMapping{FolderMappingID: uuid.NewString(), Path: p})
		}
		current.UpdatedAt = s.now().UTC()
		if err := s.save(ctx, current); err != nil {
			return err
		}
		result = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	recordAudit(ctx, s.audit, s.logger, meta, models.AuditActionFolderAssign, folderResource, admin+"/"+role, cleaned)
	return result, nil
}

// Remove deletes the mapping identified by mappingID from role.
func (s *FolderService) Remove(ctx context.Context, admin, role, mappingID string, meta AuditMeta) (*models.FolderAssignment, error) {
	if err := validateAssignmentOwner(admin, role); err != nil {
		return nil, err
	}
	admin, role, mappingID = strings.TrimSpace(admin), strings.TrimSpace(role), strings.TrimSpace(mappingID)

	var result *models.FolderAssignment
	err := s.withLock(ctx, admin, role, func(ctx context.Context) error {
		current, err := s.load(ctx, admin, role)
		if err != nil {
			return err
		}
		kept := current.Folders[:0]
		for _, f := range current.Folders {
			if f.FolderMappingID != mappingID {
				kept = append(kept, f)
			}
		}
		if len(kept) == len(current.Folders) {
			return appErrors.Clone(appErrors.ErrNotFound, "folder mapping not found")
		}
		current.Folders = kept
		current.UpdatedAt = s.now().UTC()
		if err := s.save(ctx, current); err != nil {
			return err
		}
		result = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	recordAudit(ctx, s.audit, s.logger, meta, models.AuditActionFolderRemove, folderResource, admin+"/"+role, map[string]string{"folderMappingId": mappingID})
	return result, nil
}

func (s *FolderService) load(ctx context.Context, admin, role string) (*models.FolderAssignment, error) {
	raw, err := s.store.Get(ctx, FolderAssignmentKey(admin, role))
	if err != nil {
		if storage.IsNotFound(err) {
			return &models.FolderAssignment{Admin: admin, Role: role, Folders: []models.FolderMapping{}}, nil
		}
		return nil, appErrors.WrapAs(appErrors.ErrStorage, err, "failed to read folder assignment")
	}
	var assignment models.FolderAssignment
	if err := json.Unmarshal(raw, &assignment); err != nil {
		return nil, appErrors.WrapAs(appErrors.ErrStorage, err, "folder assignment is corrupt")
	}
	assignment.Admin, assignment.Role = admin, role
	if assignment.Folders == nil {
		assignment.Folders = []models.FolderMapping{}
	}
	return &assignment, nil
}

func (s *FolderService) save(ctx context.Context, assignment *models.FolderAssignment) error {
	payload, err := json.Marshal(assignment)
	if err != nil {
		return appErrors.WrapAs(appErrors.ErrInternal, err, "failed to encode folder assignment")
	}
	key := FolderAssignmentKey(assignment.Admin, assignment.Role)
	if err := s.store.Put(ctx, key, payload, storage.PutOptions{ContentType: jsonContentType}); err != nil {
		return appErrors.WrapAs(appErrors.ErrStorage, err, "failed to write folder assignment")
	}
	return nil
}

func (s *FolderService) withLock(ctx context.Context, admin, role string, fn func(ctx context.Context) error) error {
	err := s.locker.WithLock(ctx, "lock:folders:"+admin+":"+role, fn)
	if err != nil && errors.Is(err, lock.ErrNotAcquired) {
		return appErrors.WrapAs(appErrors.ErrLockTimeout, err, "folder assignment is busy, retry later")
	}
	return err
}

func validateAssignmentOwner(admin, role string) error {
	if err := validateTenant(admin); err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "invalid admin")
	}
	role = strings.TrimSpace(role)
	if role == "" || strings.ContainsAny(role, "/\\") || role == "." || role == ".." {
		return appErrors.Clone(appErrors.ErrValidation, "invalid role")
	}
	return nil
}
