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

// AppointmentHandler wires the appointment lifecycle endpoints.
type AppointmentHandler struct {
	service *service.AppointmentService
}

// NewAppointmentHandler creates a new handler.
func NewAppointmentHandler(svc *service.AppointmentService) *AppointmentHandler {
	return &AppointmentHandler{service: svc}
}

// Create godoc
// @Summary Book an appointment
// @Description Book a consultation slot; the booking is confirmed immediately
// @Tags Appointments
// @Accept json
// @Produce json
// @Param payload body dto.CreateAppointmentRequest true "Booking payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /appointments [post]
func (h *AppointmentHandler) Create(c *gin.Context) {
	var req dto.CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid booking payload"))
		return
	}

	appointment, err := h.service.Create(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, appointment)
}

// List godoc
// @Summary List appointments
// @Description List appointments; non-admin callers only see their own
// @Tags Appointments
// @Produce json
// @Param status query string false "Filter by status"
// @Param email query string false "Filter by client email (admin)"
// @Param date_from query string false "Start date (YYYY-MM-DD)"
// @Param date_to query string false "End date (YYYY-MM-DD)"
// @Param search query string false "Search name or email"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /appointments [get]
func (h *AppointmentHandler) List(c *gin.Context) {
	wire := dto.AppointmentListFilter{
		Status:   c.Query("status"),
		Email:    c.Query("email"),
		DateFrom: c.Query("date_from"),
		DateTo:   c.Query("date_to"),
		Search:   c.Query("search"),
	}
	wire.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	wire.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))

	appointments, total, err := h.service.List(c.Request.Context(), wire.ToModel(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	pagination := &models.Pagination{Page: wire.Page, PageSize: wire.PageSize, TotalCount: total}
	response.JSON(c, http.StatusOK, appointments, pagination)
}

// Get godoc
// @Summary Get one appointment
// @Description Get an appointment by id (admin, or the booking owner)
// @Tags Appointments
// @Produce json
// @Param id path string true "Appointment id"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /appointments/{id} [get]
func (h *AppointmentHandler) Get(c *gin.Context) {
	appointment, err := h.service.Get(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, appointment, nil)
}

// Update godoc
// @Summary Update an appointment
// @Description Patch booking details; nil fields are left untouched
// @Tags Appointments
// @Accept json
// @Produce json
// @Param id path string true "Appointment id"
// @Param payload body dto.UpdateAppointmentRequest true "Patch payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /appointments/{id} [patch]
func (h *AppointmentHandler) Update(c *gin.Context) {
	var patch dto.UpdateAppointmentRequest
	if err := c.ShouldBindJSON(&patch); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid patch payload"))
		return
	}

	appointment, err := h.service.UpdateDetails(c.Request.Context(), c.Param("id"), patch, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, appointment, nil)
}

// UpdateStatus godoc
// @Summary Change appointment status
// @Description Drive a lifecycle transition; completion requires an avis (admin)
// @Tags Appointments
// @Accept json
// @Produce json
// @Param id path string true "Appointment id"
// @Param payload body dto.UpdateAppointmentStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /appointments/{id}/status [patch]
func (h *AppointmentHandler) UpdateStatus(c *gin.Context) {
	var req dto.UpdateAppointmentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid status payload"))
		return
	}

	appointment, err := h.service.UpdateStatus(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, appointment, nil)
}

// Cancel godoc
// @Summary Cancel an appointment
// @Description Cancel a booking; users need 2 hours notice on their own confirmed slot
// @Tags Appointments
// @Accept json
// @Produce json
// @Param id path string true "Appointment id"
// @Param payload body dto.CancelAppointmentRequest false "Optional reason"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /appointments/{id}/cancel [post]
func (h *AppointmentHandler) Cancel(c *gin.Context) {
	var req dto.CancelAppointmentRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid cancel payload"))
			return
		}
	}

	appointment, err := h.service.Cancel(c.Request.Context(), c.Param("id"), req.Reason, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, appointment, nil)
}

// Confirm godoc
// @Summary Confirm a pending appointment
// @Description Promote a pending booking to confirmed (admin)
// @Tags Appointments
// @Produce json
// @Param id path string true "Appointment id"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /appointments/{id}/confirm [post]
func (h *AppointmentHandler) Confirm(c *gin.Context) {
	appointment, err := h.service.Confirm(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, appointment, nil)
}
