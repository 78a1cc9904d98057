package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/horizon-etudes/backoffice-api/internal/dto"
	"github.com/horizon-etudes/backoffice-api/internal/models"
	"github.com/horizon-etudes/backoffice-api/internal/service"
	appErrors "github.com/horizon-etudes/backoffice-api/pkg/errors"
	"github.com/horizon-etudes/backoffice-api/pkg/response"
)

// AvailabilityHandler serves the public slot calendar.
type AvailabilityHandler struct {
	calendar *service.CalendarService
}

// NewAvailabilityHandler creates a new handler.
func NewAvailabilityHandler(calendar *service.CalendarService) *AvailabilityHandler {
	return &AvailabilityHandler{calendar: calendar}
}

// Slots godoc
// @Summary List free slots of a date
// @Description Returns the bookable half-hour slots of one date
// @Tags Availability
// @Produce json
// @Param date query string true "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /availability/slots [get]
func (h *AvailabilityHandler) Slots(c *gin.Context) {
	raw := c.Query("date")
	if raw == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date query parameter is required"))
		return
	}
	date, err := time.ParseInLocation(models.DateFormat, raw, h.calendar.Location())
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date must use the YYYY-MM-DD format"))
		return
	}

	slots, err := h.calendar.ListSlotsForDate(c.Request.Context(), date)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, dto.AvailableSlotsResponse{Date: raw, Slots: slots}, nil)
}

// Dates godoc
// @Summary List bookable dates
// @Description Returns the dates of the booking horizon that still have capacity
// @Tags Availability
// @Produce json
// @Param days query int false "Horizon in days (clamped to the configured maximum)"
// @Success 200 {object} response.Envelope
// @Router /availability/dates [get]
func (h *AvailabilityHandler) Dates(c *gin.Context) {
	days, _ := strconv.Atoi(c.Query("days"))
	if days <= 0 || days > h.calendar.HorizonDays() {
		days = h.calendar.HorizonDays()
	}

	dates, err := h.calendar.ListBookableDates(c.Request.Context(), days)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, dto.BookableDatesResponse{HorizonDays: days, Dates: dates}, nil)
}
