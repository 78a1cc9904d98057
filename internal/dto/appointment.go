package dto

import (
	"time"

	"github.com/horizon-etudes/backoffice-api/internal/models"
)

// CreateAppointmentRequest books a new consultation slot.
type CreateAppointmentRequest struct {
	FirstName        string `json:"first_name" validate:"required,max=100"`
	LastName         string `json:"last_name" validate:"required,max=100"`
	Email            string `json:"email" validate:"required,email"`
	Phone            string `json:"phone" validate:"required,max=30"`
	Destination      string `json:"destination" validate:"required"`
	DestinationOther string `json:"destination_other" validate:"omitempty,max=100"`
	StudyField       string `json:"study_field" validate:"required"`
	StudyFieldOther  string `json:"study_field_other" validate:"omitempty,max=100"`
	EducationLevel   string `json:"education_level" validate:"required"`
	Message          string `json:"message" validate:"omitempty,max=2000"`
	Date             string `json:"date" validate:"required"`
	TimeSlot         string `json:"time_slot" validate:"required"`
}

// UpdateAppointmentRequest patches an existing appointment. Nil fields are
// left untouched.
type UpdateAppointmentRequest struct {
	FirstName        *string `json:"first_name" validate:"omitempty,max=100"`
	LastName         *string `json:"last_name" validate:"omitempty,max=100"`
	Email            *string `json:"email" validate:"omitempty,email"`
	Phone            *string `json:"phone" validate:"omitempty,max=30"`
	Destination      *string `json:"destination"`
	DestinationOther *string `json:"destination_other" validate:"omitempty,max=100"`
	StudyField       *string `json:"study_field"`
	StudyFieldOther  *string `json:"study_field_other" validate:"omitempty,max=100"`
	EducationLevel   *string `json:"education_level"`
	Message          *string `json:"message" validate:"omitempty,max=2000"`
	Date             *string `json:"date"`
	TimeSlot         *string `json:"time_slot"`
	Status           *string `json:"status"`
	AvisAdmin        *string `json:"avis_admin"`
}

// UpdateAppointmentStatusRequest drives an explicit status transition.
type UpdateAppointmentStatusRequest struct {
	Status    string `json:"status" validate:"required"`
	AvisAdmin string `json:"avis_admin" validate:"omitempty"`
}

// CancelAppointmentRequest cancels an appointment with an optional reason.
type CancelAppointmentRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=500"`
}

// AvailableSlotsResponse lists the free slots of one date.
type AvailableSlotsResponse struct {
	Date  string   `json:"date"`
	Slots []string `json:"slots"`
}

// BookableDatesResponse lists the bookable dates inside the horizon.
type BookableDatesResponse struct {
	HorizonDays int      `json:"horizon_days"`
	Dates       []string `json:"dates"`
}

// AppointmentListFilter carries the query-string filters of a listing call.
type AppointmentListFilter struct {
	Status   string
	Email    string
	DateFrom string
	DateTo   string
	Search   string
	Page     int
	PageSize int
}

// ToModel converts the wire filter into a repository filter.
func (f AppointmentListFilter) ToModel() models.AppointmentFilter {
	filter := models.AppointmentFilter{
		Email:    f.Email,
		Search:   f.Search,
		Page:     f.Page,
		PageSize: f.PageSize,
	}
	if f.Status != "" {
		filter.Statuses = []models.AppointmentStatus{models.AppointmentStatus(f.Status)}
	}
	if f.DateFrom != "" {
		if ts, err := time.Parse(models.DateFormat, f.DateFrom); err == nil {
			filter.DateFrom = &ts
		}
	}
	if f.DateTo != "" {
		if ts, err := time.Parse(models.DateFormat, f.DateTo); err == nil {
			filter.DateTo = &ts
		}
	}
	return filter
}
