package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/MonishNivethIlango/doculan-service-sub001/internal/models"
)

// RoleRepository persists org scoped and default role permission documents.
type RoleRepository struct {
	db *sqlx.DB
}

// NewRoleRepository creates a new RoleRepository.
func NewRoleRepository(db *sqlx.DB) *RoleRepository {
	return &RoleRepository{db: db}
}

// FindOrgRoles returns the roles defined by org in stored order. An unknown org yields no roles.
func (r *RoleRepository) FindOrgRoles(ctx context.Context, org string) ([]models.RolePermissionDocument, error) {
	const query = `SELECT org, roles, updated_at FROM org_roles WHERE org = $1 LIMIT 1`
	var row models.OrgRoles
	if err := r.db.GetContext(ctx, &row, query, org); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []models.RolePermissionDocument{}, nil
		}
		return nil, fmt.Errorf("find org roles: %w", err)
	}
	return []models.RolePermissionDocument(row.Roles), nil
}

// SaveOrgRoles replaces the full role list of org.
func (r *RoleRepository) SaveOrgRoles(ctx context.Context, org string, roles []models.RolePermissionDocument) error {
	const query = `INSERT INTO org_roles (org, roles, updated_at) VALUES (:org, :roles, :updated_at)
ON CONFLICT (org) DO UPDATE SET roles = EXCLUDED.roles, updated_at = EXCLUDED.updated_at`
	row := models.OrgRoles{Org: org, Roles: models.RoleList(roles), UpdatedAt: time.Now().UTC()}
	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("save org roles: %w", err)
	}
	return nil
}

// FindDefaultRoles returns the global roles whose names are in names, ordered by name.
func (r *RoleRepository) FindDefaultRoles(ctx context.Context, names []string) ([]models.RolePermissionDocument, error) {
	if len(names) == 0 {
		return []models.RolePermissionDocument{}, nil
	}
	const query = `SELECT role_name, api_permissions, ui_permissions FROM default_roles WHERE role_name = ANY($1) ORDER BY role_name`
	var rows []models.DefaultRole
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(names)); err != nil {
		return nil, fmt.Errorf("find default roles: %w", err)
	}
	return defaultDocuments(rows), nil
}

// ListDefaultRoles returns every global role.
func (r *RoleRepository) ListDefaultRoles(ctx context.Context) ([]models.RolePermissionDocument, error) {
	const query = `SELECT role_name, api_permissions, ui_permissions FROM default_roles ORDER BY role_name`
	var rows []models.DefaultRole
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list default roles: %w", err)
	}
	return defaultDocuments(rows), nil
}

// UpsertDefaultRole creates or replaces a global role.
func (r *RoleRepository) UpsertDefaultRole(ctx context.Context, role models.RolePermissionDocument) error {
	const query = `INSERT INTO default_roles (role_name, api_permissions, ui_permissions) VALUES (:role_name, :api_permissions, :ui_permissions)
ON CONFLICT (role_name) DO UPDATE SET api_permissions = EXCLUDED.api_permissions, ui_permissions = EXCLUDED.ui_permissions`
	row := models.DefaultRole{
		RoleName:       role.RoleName,
		APIPermissions: models.PermissionList(role.APIPermissions),
		UIPermissions:  models.PermissionNames(role.UIPermissions),
	}
	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("upsert default role: %w", err)
	}
	return nil
}

func defaultDocuments(rows []models.DefaultRole) []models.RolePermissionDocument {
	docs := make([]models.RolePermissionDocument, 0, len(rows))
	for _, row := range rows {
		docs = append(docs, row.Document())
	}
	return docs
}
