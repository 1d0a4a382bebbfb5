package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/MonishNivethIlango/doculan-service-sub001/internal/dto"
	"github.com/MonishNivethIlango/doculan-service-sub001/internal/models"
	"github.com/MonishNivethIlango/doculan-service-sub001/internal/service"
	"github.com/MonishNivethIlango/doculan-service-sub001/pkg/response"
)

type folderService interface {
	Get(ctx context.Context, admin, role string) (*models.FolderAssignment, error)
	Assign(ctx context.Context, admin, role string, paths []string, meta service.AuditMeta) (*models.FolderAssignment, error)
	Remove(ctx context.Context, admin, role, mappingID string, meta service.AuditMeta) (*models.FolderAssignment, error)
}

// FolderHandler manages folder assignments owned by the calling admin.
type FolderHandler struct {
	service folderService
}

// NewFolderHandler builds a new handler.
func NewFolderHandler(service folderService) *FolderHandler {
	return &FolderHandler{service: service}
}

// Get godoc
// @Summary Get folders assigned to a role
// @Tags Folders
// @Produce json
// @Param role path string true "Role name"
// @Success 200 {object} response.Envelope
// @Router /folders/assignments/{role} [get]
func (h *FolderHandler) Get(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	assignment, err := h.service.Get(c.Request.Context(), claims.Email, c.Param("role"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignment, nil)
}

// Assign godoc
// @Summary Assign folders to a role
// @Tags Folders
// @Accept json
// @Produce json
// @Param payload body dto.AssignFoldersRequest true "Assignment"
// @Success 200 {object} response.Envelope
// @Router /folders/assignments [post]
func (h *FolderHandler) Assign(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	var req dto.AssignFoldersRequest
	if !bindJSON(c, &req, "invalid assignment payload") {
		return
	}
	assignment, err := h.service.Assign(c.Request.Context(), claims.Email, req.Role, req.Paths, auditMetaFromContext(c, claims))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignment, nil)
}

// Remove godoc
// @Summary Remove a folder mapping
// @Tags Folders
// @Produce json
// @Param role path string true "Role name"
// @Param mappingId path string true "Folder mapping ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /folders/assignments/{role}/{mappingId} [delete]
func (h *FolderHandler) Remove(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	assignment, err := h.service.Remove(c.Request.Context(), claims.Email, c.Param("role"), c.Param("mappingId"), auditMetaFromContext(c, claims))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignment, nil)
}
