package service

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/MonishNivethIlango/doculan-service-sub001/internal/models"
)

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// AuditMeta carries request details recorded alongside an audit entry.
// Tenant is the email namespace the action touched.
type AuditMeta struct {
	ActorID   string
	Tenant    string
	IP        string
	UserAgent string
}

func optionalString(value string) *string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	v := strings.TrimSpace(value)
	return &v
}

// recordAudit writes an audit entry, logging rather than failing on error.
func recordAudit(ctx context.Context, audit auditLogger, logger *zap.Logger, meta AuditMeta, action, resource, resourceID string, payload interface{}) {
	if audit == nil {
		return
	}
	entry := &models.AuditLog{
		UserID:     optionalString(meta.ActorID),
		Tenant:     strings.ToLower(strings.TrimSpace(meta.Tenant)),
		Action:     action,
		Resource:   resource,
		ResourceID: optionalString(resourceID),
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	}
	if payload != nil {
		if raw, err := json.Marshal(payload); err == nil {
			entry.NewValues = raw
		}
	}
	if err := audit.CreateAuditLog(ctx, entry); err != nil && logger != nil {
		logger.Warn("failed to record audit log", zap.String("action", action), zap.String("resource_id", resourceID), zap.Error(err))
	}
}
