package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/MonishNivethIlango/doculan-service-sub001/internal/models"
	appErrors "github.com/MonishNivethIlango/doculan-service-sub001/pkg/errors"
)

const roleResource = "role"

type roleAdminStore interface {
	FindOrgRoles(ctx context.Context, org string) ([]models.RolePermissionDocument, error)
	SaveOrgRoles(ctx context.Context, org string, roles []models.RolePermissionDocument) error
	ListDefaultRoles(ctx context.Context) ([]models.RolePermissionDocument, error)
	UpsertDefaultRole(ctx context.Context, role models.RolePermissionDocument) error
}

type permissionInvalidator interface {
	InvalidateOrg(ctx context.Context, org string)
	InvalidateDefaults(ctx context.Context)
}

// RoleService manages org scoped and default role permission documents.
type RoleService struct {
	repo        roleAdminStore
	permissions permissionInvalidator
	audit       auditLogger
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewRoleService constructs a RoleService.
func NewRoleService(repo roleAdminStore, permissions permissionInvalidator, audit auditLogger, validate *validator.Validate, logger *zap.Logger) *RoleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RoleService{repo: repo, permissions: permissions, audit: audit, validator: validate, logger: logger}
}

// ListOrgRoles returns every role defined for org.
func (s *RoleService) ListOrgRoles(ctx context.Context, org string) ([]models.RolePermissionDocument, error) {
	org = strings.TrimSpace(org)
	if org == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "org is required")
	}
	roles, err := s.repo.FindOrgRoles(ctx, org)
	if err != nil {
		return nil, appErrors.WrapAs(appErrors.ErrInternal, err, "failed to load org roles")
	}
	return roles, nil
}

// UpsertOrgRole creates or replaces one named role within org, keeping its position.
func (s *RoleService) UpsertOrgRole(ctx context.Context, org string, role models.RolePermissionDocument, meta AuditMeta) (*models.RolePermissionDocument, error) {
	role, err := s.normalise(role)
	if err != nil {
		return nil, err
	}
	roles, err := s.ListOrgRoles(ctx, org)
	if err != nil {
		return nil, err
	}
	org = strings.TrimSpace(org)

	replaced := false
	for i := range roles {
		if roles[i].RoleName == role.RoleName {
			roles[i] = role
			replaced = true
			break
		}
	}
	if !replaced {
		roles = append(roles, role)
	}

	if err := s.repo.SaveOrgRoles(ctx, org, roles); err != nil {
		return nil, appErrors.WrapAs(appErrors.ErrInternal, err, "failed to save org roles")
	}
	s.permissions.InvalidateOrg(ctx, org)
	recordAudit(ctx, s.audit, s.logger, meta, models.AuditActionRoleUpsert, roleResource, org+"/"+role.RoleName, role)
	return &role, nil
}

// DeleteOrgRole removes a role from org.
func (s *RoleService) DeleteOrgRole(ctx context.Context, org, roleName string, meta AuditMeta) error {
	roleName = strings.TrimSpace(roleName)
	roles, err := s.ListOrgRoles(ctx, org)
	if err != nil {
		return err
	}
	org = strings.TrimSpace(org)

	kept := make([]models.RolePermissionDocument, 0, len(roles))
	for _, role := range roles {
		if role.RoleName != roleName {
			kept = append(kept, role)
		}
	}
	if len(kept) == len(roles) {
		return appErrors.Clone(appErrors.ErrNotFound, "role not found")
	}

	if err := s.repo.SaveOrgRoles(ctx, org, kept); err != nil {
		return appErrors.WrapAs(appErrors.ErrInternal, err, "failed to save org roles")
	}
	s.permissions.InvalidateOrg(ctx, org)
	recordAudit(ctx, s.audit, s.logger, meta, models.AuditActionRoleDelete, roleResource, org+"/"+roleName, nil)
	return nil
}

// ListDefaultRoles returns the global fallback roles.
func (s *RoleService) ListDefaultRoles(ctx context.Context) ([]models.RolePermissionDocument, error) {
	roles, err := s.repo.ListDefaultRoles(ctx)
	if err != nil {
		return nil, appErrors.WrapAs(appErrors.ErrInternal, err, "failed to load default roles")
	}
	return roles, nil
}

// UpsertDefaultRole creates or replaces a global role.
func (s *RoleService) UpsertDefaultRole(ctx context.Context, role models.RolePermissionDocument, meta AuditMeta) (*models.RolePermissionDocument, error) {
	role, err := s.normalise(role)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpsertDefaultRole(ctx, role); err != nil {
		return nil, appErrors.WrapAs(appErrors.ErrInternal, err, "failed to save default role")
	}
	s.permissions.InvalidateDefaults(ctx)
	recordAudit(ctx, s.audit, s.logger, meta, models.AuditActionRoleUpsert, roleResource, "default/"+role.RoleName, role)
	return &role, nil
}

func (s *RoleService) normalise(role models.RolePermissionDocument) (models.RolePermissionDocument, error) {
	role.RoleName = strings.TrimSpace(role.RoleName)
	for i := range role.APIPermissions {
		role.APIPermissions[i].Method = strings.ToUpper(strings.TrimSpace(role.APIPermissions[i].Method))
		role.APIPermissions[i].URLPattern = strings.TrimSpace(role.APIPermissions[i].URLPattern)
	}
	if err := s.validator.Struct(role); err != nil {
		return role, appErrors.WrapAs(appErrors.ErrValidation, err, "invalid role payload")
	}
	for _, p := range role.APIPermissions {
		if _, err := CompilePathTemplate(p.URLPattern); err != nil {
			return role, appErrors.WrapAs(appErrors.ErrValidation, err, "invalid url pattern "+p.URLPattern)
		}
	}
	if role.APIPermissions == nil {
		role.APIPermissions = []models.APIPermission{}
	}
	if role.UIPermissions == nil {
		role.UIPermissions = []string{}
	}
	return role, nil
}
