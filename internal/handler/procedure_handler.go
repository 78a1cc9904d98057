package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/horizon-etudes/backoffice-api/internal/dto"
	"github.com/horizon-etudes/backoffice-api/internal/models"
	"github.com/horizon-etudes/backoffice-api/internal/service"
	appErrors "github.com/horizon-etudes/backoffice-api/pkg/errors"
	"github.com/horizon-etudes/backoffice-api/pkg/response"
)

// ProcedureHandler wires the admission workflow endpoints.
type ProcedureHandler struct {
	service *service.ProcedureService
}

// NewProcedureHandler creates a new handler.
func NewProcedureHandler(svc *service.ProcedureService) *ProcedureHandler {
	return &ProcedureHandler{service: svc}
}

// Create godoc
// @Summary Open a procedure
// @Description Open the admission workflow from a favourably completed appointment (admin)
// @Tags Procedures
// @Accept json
// @Produce json
// @Param payload body dto.CreateProcedureRequest true "Source appointment"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /procedures [post]
func (h *ProcedureHandler) Create(c *gin.Context) {
	var req dto.CreateProcedureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid procedure payload"))
		return
	}

	procedure, err := h.service.CreateFromAppointment(c.Request.Context(), req.AppointmentID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, procedure)
}

// List godoc
// @Summary List procedures
// @Description List procedures; non-admin callers only see their own
// @Tags Procedures
// @Produce json
// @Param status query string false "Filter by status"
// @Param email query string false "Filter by client email (admin)"
// @Param search query string false "Search name or email"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /procedures [get]
func (h *ProcedureHandler) List(c *gin.Context) {
	filter := models.ProcedureFilter{
		Email:  c.Query("email"),
		Search: c.Query("search"),
	}
	if status := c.Query("status"); status != "" {
		filter.Statuses = []models.ProcedureStatus{models.ProcedureStatus(status)}
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))

	procedures, total, err := h.service.List(c.Request.Context(), filter, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	response.JSON(c, http.StatusOK, procedures, pagination)
}

// Get godoc
// @Summary Get one procedure
// @Description Get a procedure and its steps (admin, or the client)
// @Tags Procedures
// @Produce json
// @Param id path string true "Procedure id"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /procedures/{id} [get]
func (h *ProcedureHandler) Get(c *gin.Context) {
	procedure, err := h.service.Get(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, procedure, nil)
}

// UpdateStep godoc
// @Summary Update a workflow step
// @Description Move one step through the workflow; cascades and the overall status follow (admin)
// @Tags Procedures
// @Accept json
// @Produce json
// @Param id path string true "Procedure id"
// @Param step path string true "Step name"
// @Param payload body dto.UpdateStepRequest true "Step payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /procedures/{id}/steps/{step} [patch]
func (h *ProcedureHandler) UpdateStep(c *gin.Context) {
	var req dto.UpdateStepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid step payload"))
		return
	}

	procedure, err := h.service.UpdateStep(c.Request.Context(), c.Param("id"), c.Param("step"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, procedure, nil)
}

// Cancel godoc
// @Summary Cancel a procedure
// @Description Cancel the workflow; the client may cancel their own procedure
// @Tags Procedures
// @Accept json
// @Produce json
// @Param id path string true "Procedure id"
// @Param payload body dto.CancelProcedureRequest false "Optional reason"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /procedures/{id}/cancel [post]
func (h *ProcedureHandler) Cancel(c *gin.Context) {
	var req dto.CancelProcedureRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid cancel payload"))
			return
		}
	}

	procedure, err := h.service.CancelByUser(c.Request.Context(), c.Param("id"), req.Reason, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, procedure, nil)
}

// Reject godoc
// @Summary Reject a procedure
// @Description Reject the whole workflow with a mandatory reason (admin)
// @Tags Procedures
// @Accept json
// @Produce json
// @Param id path string true "Procedure id"
// @Param payload body dto.RejectProcedureRequest true "Rejection reason"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /procedures/{id}/reject [post]
func (h *ProcedureHandler) Reject(c *gin.Context) {
	var req dto.RejectProcedureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "a rejection reason is required"))
		return
	}

	procedure, err := h.service.Reject(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, procedure, nil)
}

// Delete godoc
// @Summary Soft-delete a procedure
// @Description Cancel and hide a procedure from listings (admin)
// @Tags Procedures
// @Accept json
// @Produce json
// @Param id path string true "Procedure id"
// @Param payload body dto.CancelProcedureRequest false "Optional reason"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /procedures/{id} [delete]
func (h *ProcedureHandler) Delete(c *gin.Context) {
	var req dto.CancelProcedureRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
			return
		}
	}

	if err := h.service.AdminSoftDelete(c.Request.Context(), c.Param("id"), req.Reason, claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}
