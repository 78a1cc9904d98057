package handler

import (
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/horizon-etudes/backoffice-api/internal/dto"
	"github.com/horizon-etudes/backoffice-api/internal/service"
	appErrors "github.com/horizon-etudes/backoffice-api/pkg/errors"
	"github.com/horizon-etudes/backoffice-api/pkg/response"
)

// StatsHandler serves the admin dashboard aggregates and exports.
type StatsHandler struct {
	service *service.StatsService
}

// NewStatsHandler creates a new handler.
func NewStatsHandler(svc *service.StatsService) *StatsHandler {
	return &StatsHandler{service: svc}
}

// Dashboard godoc
// @Summary Dashboard aggregates
// @Description Appointment, procedure and contact counters for the admin dashboard
// @Tags Stats
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /stats/dashboard [get]
func (h *StatsHandler) Dashboard(c *gin.Context) {
	stats, err := h.service.Dashboard(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// System godoc
// @Summary Runtime metrics snapshot
// @Description Cache, request and database timing aggregates
// @Tags Stats
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /stats/system [get]
func (h *StatsHandler) System(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.service.System(), nil)
}

// Export godoc
// @Summary Export appointments
// @Description Generate a CSV or PDF export and return a signed download URL
// @Tags Stats
// @Accept json
// @Produce json
// @Param payload body dto.ExportAppointmentsRequest true "Export options"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /stats/exports [post]
func (h *StatsHandler) Export(c *gin.Context) {
	var req dto.ExportAppointmentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid export payload"))
		return
	}

	result, err := h.service.ExportAppointments(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// Download godoc
// @Summary Download an export
// @Description Stream a generated export behind its signed token
// @Tags Stats
// @Produce octet-stream
// @Param token query string true "Signed download token"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Router /stats/exports/download [get]
func (h *StatsHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token query parameter is required"))
		return
	}

	path, err := h.service.OpenExport(token)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.FileAttachment(path, filepath.Base(path))
}
