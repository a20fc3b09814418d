package handler

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/jadwal-sholat/internal/dto"
	"github.com/noah-isme/jadwal-sholat/internal/models"
	appErrors "github.com/noah-isme/jadwal-sholat/pkg/errors"
	"github.com/noah-isme/jadwal-sholat/pkg/response"
)

type exportService interface {
	Generate(ctx context.Context, req models.ExportRequest) (*models.ExportResult, error)
	ResolveDownload(token string) (*os.File, string, error)
}

// ExportHandler creates and serves schedule exports.
type ExportHandler struct {
	service   exportService
	validator *dto.Validator
}

// NewExportHandler constructs the handler.
func NewExportHandler(service exportService, validator *dto.Validator) *ExportHandler {
	return &ExportHandler{service: service, validator: validator}
}

// Create godoc
// @Summary Export a month schedule
// @Tags Exports
// @Accept json
// @Produce json
// @Param payload body dto.ExportRequest true "Export request"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /exports [post]
func (h *ExportHandler) Create(c *gin.Context) {
	var req dto.ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid export payload"))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.service.Generate(c.Request.Context(), req.Model())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Download godoc
// @Summary Download an export
// @Tags Exports
// @Produce application/octet-stream
// @Param token path string true "Signed download token"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /exports/{token} [get]
func (h *ExportHandler) Download(c *gin.Context) {
	file, name, err := h.service.ResolveDownload(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.With(appErrors.ErrInternal, err))
		return
	}
	contentType := mime.TypeByExtension(filepath.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.DataFromReader(http.StatusOK, info.Size(), contentType, file, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", name),
		"Cache-Control":       "private, no-store",
	})
}
