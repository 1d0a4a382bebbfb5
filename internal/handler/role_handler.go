package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/MonishNivethIlango/doculan-service-sub001/internal/models"
	"github.com/MonishNivethIlango/doculan-service-sub001/internal/service"
	"github.com/MonishNivethIlango/doculan-service-sub001/pkg/response"
)

type roleService interface {
	ListOrgRoles(ctx context.Context, org string) ([]models.RolePermissionDocument, error)
	UpsertOrgRole(ctx context.Context, org string, role models.RolePermissionDocument, meta service.AuditMeta) (*models.RolePermissionDocument, error)
	DeleteOrgRole(ctx context.Context, org, roleName string, meta service.AuditMeta) error
	ListDefaultRoles(ctx context.Context) ([]models.RolePermissionDocument, error)
	UpsertDefaultRole(ctx context.Context, role models.RolePermissionDocument, meta service.AuditMeta) (*models.RolePermissionDocument, error)
}

// RoleHandler manages organisation and default role permission documents.
type RoleHandler struct {
	service roleService
}

// NewRoleHandler builds a new handler.
func NewRoleHandler(service roleService) *RoleHandler {
	return &RoleHandler{service: service}
}

// ListOrg godoc
// @Summary List roles of the caller's organisation
// @Tags Roles
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /roles [get]
func (h *RoleHandler) ListOrg(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	roles, err := h.service.ListOrgRoles(c.Request.Context(), claims.Org)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, roles, nil)
}

// UpsertOrg godoc
// @Summary Create or replace an organisation role
// @Tags Roles
// @Accept json
// @Produce json
// @Param payload body models.RolePermissionDocument true "Role document"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /roles [put]
func (h *RoleHandler) UpsertOrg(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	var req models.RolePermissionDocument
	if !bindJSON(c, &req, "invalid role payload") {
		return
	}
	role, err := h.service.UpsertOrgRole(c.Request.Context(), claims.Org, req, auditMetaFromContext(c, claims))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, role, nil)
}

// DeleteOrg godoc
// @Summary Delete an organisation role
// @Tags Roles
// @Param name path string true "Role name"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /roles/{name} [delete]
func (h *RoleHandler) DeleteOrg(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	name := strings.TrimSpace(c.Param("name"))
	if err := h.service.DeleteOrgRole(c.Request.Context(), claims.Org, name, auditMetaFromContext(c, claims)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListDefaults godoc
// @Summary List default roles
// @Tags Roles
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /roles/defaults [get]
func (h *RoleHandler) ListDefaults(c *gin.Context) {
	roles, err := h.service.ListDefaultRoles(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, roles, nil)
}

// UpsertDefault godoc
// @Summary Create or replace a default role
// @Tags Roles
// @Accept json
// @Produce json
// @Param payload body models.RolePermissionDocument true "Role document"
// @Success 200 {object} response.Envelope
// @Router /roles/defaults [put]
func (h *RoleHandler) UpsertDefault(c *gin.Context) {
	var req models.RolePermissionDocument
	if !bindJSON(c, &req, "invalid role payload") {
		return
	}
	role, err := h.service.UpsertDefaultRole(c.Request.Context(), req, auditMetaFromContext(c, claimsFromContext(c)))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, role, nil)
}
