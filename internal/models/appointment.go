package models

import (
	"time"
)

// Wire formats for calendar values.
const (
	DateFormat = "2006-01-02"
	SlotFormat = "15:04"
)

// TimeSlots lists the bookable half-hour starts of a working day, in order.
var TimeSlots = []string{
	"09:00", "09:30", "10:00", "10:30", "11:00", "11:30",
	"12:00", "12:30", "13:00", "13:30", "14:00", "14:30",
	"15:00", "15:30", "16:00", "16:30",
}

// ValidSlot reports whether raw is one of the bookable slots.
func ValidSlot(raw string) bool {
	for _, slot := range TimeSlots {
		if slot == raw {
			return true
		}
	}
	return false
}

// AppointmentStatus tracks an appointment through its lifecycle.
type AppointmentStatus string

const (
	AppointmentPending   AppointmentStatus = "PENDING"
	AppointmentConfirmed AppointmentStatus = "CONFIRMED"
	AppointmentCompleted AppointmentStatus = "COMPLETED"
	AppointmentCancelled AppointmentStatus = "CANCELLED"
	AppointmentExpired   AppointmentStatus = "EXPIRED"
)

var appointmentTransitions = map[AppointmentStatus][]AppointmentStatus{
	AppointmentPending:   {AppointmentConfirmed, AppointmentCancelled, AppointmentExpired},
	AppointmentConfirmed: {AppointmentCompleted, AppointmentCancelled, AppointmentExpired},
}

// CanTransition reports whether the lifecycle allows moving to target.
func (s AppointmentStatus) CanTransition(target AppointmentStatus) bool {
	for _, next := range appointmentTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is allowed.
func (s AppointmentStatus) IsTerminal() bool {
	return len(appointmentTransitions[s]) == 0
}

// Occupying reports whether an appointment in this status still holds
// its slot and counts against the daily capacity.
func (s AppointmentStatus) Occupying() bool {
	return s != AppointmentCancelled && s != AppointmentExpired
}

// OccupyingStatuses returns the statuses that keep a slot reserved.
func OccupyingStatuses() []AppointmentStatus {
	return []AppointmentStatus{AppointmentPending, AppointmentConfirmed, AppointmentCompleted}
}

// AvisAdmin is the verdict recorded by the consultant when an
// appointment is completed.
type AvisAdmin string

const (
	AvisFavorable   AvisAdmin = "FAVORABLE"
	AvisUnfavorable AvisAdmin = "UNFAVORABLE"
)

// CancelActor identifies who cancelled an appointment or a procedure.
type CancelActor string

const (
	CancelledByUser   CancelActor = "USER"
	CancelledByAdmin  CancelActor = "ADMIN"
	CancelledBySystem CancelActor = "SYSTEM"
)

// Destination enumerates the study destinations the agency covers.
type Destination string

const (
	DestinationFrance  Destination = "FRANCE"
	DestinationCanada  Destination = "CANADA"
	DestinationBelgium Destination = "BELGIUM"
	DestinationGermany Destination = "GERMANY"
	DestinationSpain   Destination = "SPAIN"
	DestinationOther   Destination = "OTHER"
)

// StudyField enumerates the supported fields of study.
type StudyField string

const (
	FieldEngineering     StudyField = "ENGINEERING"
	FieldBusiness        StudyField = "BUSINESS"
	FieldMedicine        StudyField = "MEDICINE"
	FieldLaw             StudyField = "LAW"
	FieldComputerScience StudyField = "COMPUTER_SCIENCE"
	FieldOther           StudyField = "OTHER"
)

// Valid reports whether the destination is a known enum value.
func (d Destination) Valid() bool {
	switch d {
	case DestinationFrance, DestinationCanada, DestinationBelgium, DestinationGermany, DestinationSpain, DestinationOther:
		return true
	}
	return false
}

// Valid reports whether the study field is a known enum value.
func (f StudyField) Valid() bool {
	switch f {
	case FieldEngineering, FieldBusiness, FieldMedicine, FieldLaw, FieldComputerScience, FieldOther:
		return true
	}
	return false
}

// EducationLevel enumerates current education levels of applicants.
type EducationLevel string

const (
	LevelHighSchool EducationLevel = "HIGH_SCHOOL"
	LevelBachelor   EducationLevel = "BACHELOR"
	LevelMaster     EducationLevel = "MASTER"
	LevelDoctorate  EducationLevel = "DOCTORATE"
)

// Valid reports whether the education level is a known enum value.
func (l EducationLevel) Valid() bool {
	switch l {
	case LevelHighSchool, LevelBachelor, LevelMaster, LevelDoctorate:
		return true
	}
	return false
}

// Valid reports whether the avis is a known enum value.
func (a AvisAdmin) Valid() bool {
	return a == AvisFavorable || a == AvisUnfavorable
}

// Appointment is a consultation booking on the agency calendar.
type Appointment struct {
	ID               string            `db:"id" json:"id"`
	UserID           *string           `db:"user_id" json:"user_id,omitempty"`
	FirstName        string            `db:"first_name" json:"first_name"`
	LastName         string            `db:"last_name" json:"last_name"`
	Email            string            `db:"email" json:"email"`
	Phone            string            `db:"phone" json:"phone"`
	Destination      Destination       `db:"destination" json:"destination"`
	DestinationOther *string           `db:"destination_other" json:"destination_other,omitempty"`
	StudyField       StudyField        `db:"study_field" json:"study_field"`
	StudyFieldOther  *string           `db:"study_field_other" json:"study_field_other,omitempty"`
	EducationLevel   EducationLevel    `db:"education_level" json:"education_level"`
	Message          string            `db:"message" json:"message"`
	Date             time.Time         `db:"date" json:"date"`
	TimeSlot         string            `db:"time_slot" json:"time_slot"`
	Status           AppointmentStatus `db:"status" json:"status"`
	AvisAdmin        *AvisAdmin        `db:"avis_admin" json:"avis_admin,omitempty"`
	CancelledAt      *time.Time        `db:"cancelled_at" json:"cancelled_at,omitempty"`
	CancelledBy      *CancelActor      `db:"cancelled_by" json:"cancelled_by,omitempty"`
	CancelReason     *string           `db:"cancel_reason" json:"cancel_reason,omitempty"`
	CompletedAt      *time.Time        `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt        time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time         `db:"updated_at" json:"updated_at"`
}

// StartsAt combines the appointment date and slot into a zoned instant.
func (a *Appointment) StartsAt(loc *time.Location) time.Time {
	slot, err := time.Parse(SlotFormat, a.TimeSlot)
	if err != nil {
		return time.Date(a.Date.Year(), a.Date.Month(), a.Date.Day(), 0, 0, 0, 0, loc)
	}
	return time.Date(a.Date.Year(), a.Date.Month(), a.Date.Day(), slot.Hour(), slot.Minute(), 0, 0, loc)
}

// OwnedBy reports whether the appointment belongs to the given user,
// matching either the linked account or the contact email.
func (a *Appointment) OwnedBy(userID, email string) bool {
	if a.UserID != nil && *a.UserID == userID {
		return true
	}
	return a.Email != "" && a.Email == email
}

// AppointmentFilter constrains listing queries.
type AppointmentFilter struct {
	Statuses []AppointmentStatus
	Email    string
	UserID   string
	DateFrom *time.Time
	DateTo   *time.Time
	Search   string
	Page     int
	PageSize int
}
