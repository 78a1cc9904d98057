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

// ContactHandler wires the public contact form and its admin inbox.
type ContactHandler struct {
	service *service.ContactService
}

// NewContactHandler creates a new handler.
func NewContactHandler(svc *service.ContactService) *ContactHandler {
	return &ContactHandler{service: svc}
}

// Submit godoc
// @Summary Submit a contact message
// @Description Public contact form; the message is forwarded to the agency inbox
// @Tags Contact
// @Accept json
// @Produce json
// @Param payload body dto.CreateContactMessageRequest true "Contact payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /contact [post]
func (h *ContactHandler) Submit(c *gin.Context) {
	var req dto.CreateContactMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid contact payload"))
		return
	}

	message, err := h.service.Submit(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, message)
}

// List godoc
// @Summary List contact messages
// @Description List inbound messages with filtering (admin)
// @Tags Contact
// @Produce json
// @Param status query string false "Filter by handling status"
// @Param search query string false "Search name, email or subject"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /contact [get]
func (h *ContactHandler) List(c *gin.Context) {
	filter := models.ContactFilter{Search: c.Query("search")}
	if status := c.Query("status"); status != "" {
		s := models.ContactStatus(status)
		filter.Status = &s
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))

	messages, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	response.JSON(c, http.StatusOK, messages, pagination)
}

// Get godoc
// @Summary Get one contact message
// @Description Get a message by id (admin)
// @Tags Contact
// @Produce json
// @Param id path string true "Message id"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /contact/{id} [get]
func (h *ContactHandler) Get(c *gin.Context) {
	message, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, message, nil)
}

// UpdateStatus godoc
// @Summary Update handling status
// @Description Move a message to NEW, READ or CLOSED (admin)
// @Tags Contact
// @Accept json
// @Produce json
// @Param id path string true "Message id"
// @Param payload body dto.UpdateContactStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /contact/{id}/status [patch]
func (h *ContactHandler) UpdateStatus(c *gin.Context) {
	var req dto.UpdateContactStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid status payload"))
		return
	}

	message, err := h.service.UpdateStatus(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, message, nil)
}
