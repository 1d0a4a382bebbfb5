package models

import "time"

// Audit actions. Document actions carry the tenant whose index changed.
const (
	AuditActionLogin          = "LOGIN"
	AuditActionLogout         = "LOGOUT"
	AuditActionPasswordChange = "PASSWORD_CHANGE"
	AuditActionDocUpload      = "DOCUMENT_UPLOAD"
	AuditActionDocUpdate      = "DOCUMENT_UPDATE"
	AuditActionDocDelete      = "DOCUMENT_DELETE"
	AuditActionDocMove        = "DOCUMENT_MOVE"
	AuditActionRoleUpsert     = "ROLE_UPSERT"
	AuditActionRoleDelete     = "ROLE_DELETE"
	AuditActionFolderAssign   = "FOLDER_ASSIGN"
	AuditActionFolderRemove   = "FOLDER_REMOVE"
	AuditActionAccessDenied   = "ACCESS_DENIED"
)

// AuditLog is one row of the audit trail.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"user_id,omitempty"`
	Tenant     string    `db:"tenant" json:"tenant,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	OldValues  []byte    `db:"old_values" json:"old_values,omitempty"`
	NewValues  []byte    `db:"new_values" json:"new_values,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	UserAgent  string    `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
