package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/MonishNivethIlango/doculan-service-sub001/internal/models"
)

type auditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// AuditDenied records an audit row for every request answered with 403 Forbidden.
func AuditDenied(writer auditWriter) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if writer == nil || c.Writer.Status() != http.StatusForbidden {
			return
		}

		var (
			userID *string
			tenant string
		)
		if claims, ok := ClaimsFromContext(c); ok {
			id := claims.UserID
			userID, tenant = &id, claims.Email
		}
		body, _ := json.Marshal(map[string]interface{}{
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		})
		_ = writer.CreateAuditLog(c.Request.Context(), &models.AuditLog{
			UserID:    userID,
			Tenant:    tenant,
			Action:    models.AuditActionAccessDenied,
			Resource:  "http",
			NewValues: body,
			IPAddress: c.ClientIP(),
			UserAgent: c.GetHeader("User-Agent"),
		})
	}
}
