package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// APIPermission grants one HTTP method on a path template such as /documents/{id}.
type APIPermission struct {
	Method     string `json:"method" validate:"required"`
	URLPattern string `json:"url_pattern" validate:"required,startswith=/"`
}

// RolePermissionDocument is a named set of API and UI permissions.
type RolePermissionDocument struct {
	RoleName       string          `json:"role_name" validate:"required"`
	APIPermissions []APIPermission `json:"api_permissions" validate:"dive"`
	UIPermissions  []string        `json:"ui_permissions"`
}

// RoleList is a JSONB encoded list of role documents.
type RoleList []RolePermissionDocument

// Value implements driver.Valuer.
func (r RoleList) Value() (driver.Value, error) {
	if r == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(r)
}

// Scan implements sql.Scanner.
func (r *RoleList) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*r = RoleList{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported role list type %T", src)
	}
	return json.Unmarshal(raw, r)
}

// PermissionList is a JSONB encoded list of API permissions.
type PermissionList []APIPermission

// Value implements driver.Valuer.
func (p PermissionList) Value() (driver.Value, error) {
	if p == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(p)
}

// Scan implements sql.Scanner.
func (p *PermissionList) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*p = PermissionList{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported permission list type %T", src)
	}
	return json.Unmarshal(raw, p)
}

// OrgRoles stores every role defined by one organisation (org_roles table).
type OrgRoles struct {
	Org       string    `db:"org" json:"org"`
	Roles     RoleList  `db:"roles" json:"roles"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// DefaultRole is one global fallback role (default_roles table).
type DefaultRole struct {
	RoleName       string          `db:"role_name" json:"role_name"`
	APIPermissions PermissionList  `db:"api_permissions" json:"api_permissions"`
	UIPermissions  PermissionNames `db:"ui_permissions" json:"ui_permissions"`
}

// PermissionNames is a JSONB encoded list of UI permission names.
type PermissionNames []string

// Value implements driver.Valuer.
func (n PermissionNames) Value() (driver.Value, error) {
	if n == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(n)
}

// Scan implements sql.Scanner.
func (n *PermissionNames) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*n = PermissionNames{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported permission names type %T", src)
	}
	return json.Unmarshal(raw, n)
}

// Document converts a default role row into the shared document shape.
func (d DefaultRole) Document() RolePermissionDocument {
	return RolePermissionDocument{
		RoleName:       d.RoleName,
		APIPermissions: []APIPermission(d.APIPermissions),
		UIPermissions:  []string(d.UIPermissions),
	}
}
