package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/horizon-etudes/backoffice-api/internal/dto"
	"github.com/horizon-etudes/backoffice-api/internal/models"
	"github.com/horizon-etudes/backoffice-api/internal/repository"
	"github.com/horizon-etudes/backoffice-api/pkg/config"
	appErrors "github.com/horizon-etudes/backoffice-api/pkg/errors"
)

type appointmentStore interface {
	Create(ctx context.Context, appointment *models.Appointment) error
	GetByID(ctx context.Context, id string) (*models.Appointment, error)
	Update(ctx context.Context, appointment *models.Appointment) error
	List(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, int, error)
	FindConfirmedByEmail(ctx context.Context, email string) (*models.Appointment, error)
	ListExpiryCandidates(ctx context.Context, date time.Time) ([]models.Appointment, error)
	ListConfirmedByDate(ctx context.Context, date time.Time) ([]models.Appointment, error)
	BulkCancelStalePending(ctx context.Context, cutoff time.Time, reason string) (int64, error)
}

type accountDirectory interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

type slotCalendar interface {
	IsBusinessDay(ctx context.Context, date time.Time) bool
	IsSlotFree(ctx context.Context, date time.Time, slot, excludeID string) (bool, error)
	HasCapacity(ctx context.Context, date time.Time) (bool, error)
	SlotStart(date time.Time, slot string) (time.Time, error)
	Now() time.Time
	Location() *time.Location
	InvalidateAvailability(ctx context.Context)
}

type appointmentNotifier interface {
	AppointmentCreated(appointment *models.Appointment)
	AppointmentStatusUpdated(appointment *models.Appointment, previous models.AppointmentStatus)
	AppointmentCancelled(appointment *models.Appointment)
	AppointmentExpired(appointment *models.Appointment)
	AppointmentReminder(appointment *models.Appointment)
}

type procedureOpener interface {
	CreateFromAppointment(ctx context.Context, appointmentID string) (*models.Procedure, error)
}

// AppointmentService owns the appointment lifecycle: booking, detail and
// status updates, cancellation and the scheduled sweeps. Every successful
// state change triggers a notification; notification failures never fail
// the triggering operation.
type AppointmentService struct {
	repo       appointmentStore
	accounts   accountDirectory
	calendar   slotCalendar
	notifier   appointmentNotifier
	procedures procedureOpener
	booking    config.BookingConfig
	jobs       config.JobsConfig
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewAppointmentService builds the service.
func NewAppointmentService(
	repo appointmentStore,
	accounts accountDirectory,
	calendar slotCalendar,
	notifier appointmentNotifier,
	procedures procedureOpener,
	booking config.BookingConfig,
	jobs config.JobsConfig,
	validate *validator.Validate,
	logger *zap.Logger,
) *AppointmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if booking.CancelNotice <= 0 {
		booking.CancelNotice = 2 * time.Hour
	}
	if booking.CompletionMaxAge <= 0 {
		booking.CompletionMaxAge = 7 * 24 * time.Hour
	}
	if jobs.ExpiryGrace <= 0 {
		jobs.ExpiryGrace = 10 * time.Minute
	}
	if jobs.PendingMaxAge <= 0 {
		jobs.PendingMaxAge = 5 * time.Hour
	}
	return &AppointmentService{
		repo:       repo,
		accounts:   accounts,
		calendar:   calendar,
		notifier:   notifier,
		procedures: procedures,
		booking:    booking,
		jobs:       jobs,
		validator:  validate,
		logger:     logger,
	}
}

// Create books a new appointment. The slot is validated against the
// calendar and the client's existing bookings; on success the appointment
// is persisted as CONFIRMED and a confirmation email is dispatched.
func (s *AppointmentService) Create(ctx context.Context, req dto.CreateAppointmentRequest, actor *models.JWTClaims) (*models.Appointment, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid appointment payload")
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	isAdmin := actor.Role == models.RoleAdmin
	if !isAdmin && !strings.EqualFold(actor.Email, email) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "appointments can only be booked for your own email")
	}

	appointment := &models.Appointment{
		FirstName:      strings.TrimSpace(req.FirstName),
		LastName:       strings.TrimSpace(req.LastName),
		Email:          email,
		Phone:          strings.TrimSpace(req.Phone),
		Message:        strings.TrimSpace(req.Message),
		Status:         models.AppointmentConfirmed,
		Destination:    models.Destination(req.Destination),
		StudyField:     models.StudyField(req.StudyField),
		EducationLevel: models.EducationLevel(req.EducationLevel),
	}
	if err := validateChoiceFields(appointment, req.DestinationOther, req.StudyFieldOther); err != nil {
		return nil, err
	}

	date, err := time.ParseInLocation(models.DateFormat, req.Date, s.calendar.Location())
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must use the YYYY-MM-DD format")
	}
	appointment.Date = date
	appointment.TimeSlot = req.TimeSlot

	account, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if !isAdmin {
				return nil, appErrors.Clone(appErrors.ErrForbidden, "no account exists for this email")
			}
		} else {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up account")
		}
	}
	if account != nil {
		appointment.UserID = &account.ID
	}

	if _, err := s.repo.FindConfirmedByEmail(ctx, email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a confirmed appointment already exists for this email")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing appointments")
	}

	if err := s.validateSlot(ctx, appointment, ""); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, appointment); err != nil {
		return nil, err
	}

	s.calendar.InvalidateAvailability(ctx)
	s.notifier.AppointmentCreated(appointment)

	return appointment, nil
}

// Get returns an appointment visible to the actor.
func (s *AppointmentService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.Appointment, error) {
	appointment, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleAdmin && !appointment.OwnedBy(actor.UserID, actor.Email) {
		return nil, appErrors.ErrForbidden
	}
	return appointment, nil
}

// List returns appointments; non-admin callers only ever see their own.
func (s *AppointmentService) List(ctx context.Context, filter models.AppointmentFilter, actor *models.JWTClaims) ([]models.Appointment, int, error) {
	if actor == nil {
		return nil, 0, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleAdmin {
		filter.Email = actor.Email
		filter.UserID = ""
	}
	appointments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list appointments")
	}
	return appointments, total, nil
}

// UpdateDetails patches an appointment's booking details. Date or slot
// changes are re-validated against the calendar, excluding the appointment
// itself. A status field in the patch follows the UpdateStatus rules.
func (s *AppointmentService) UpdateDetails(ctx context.Context, id string, patch dto.UpdateAppointmentRequest, actor *models.JWTClaims) (*models.Appointment, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(patch); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid appointment patch")
	}

	appointment, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if appointment.Status == models.AppointmentExpired || appointment.Status == models.AppointmentCompleted {
		return nil, appErrors.Clone(appErrors.ErrStateConflict, "expired or completed appointments can no longer be modified")
	}

	isAdmin := actor.Role == models.RoleAdmin
	if !isAdmin && !appointment.OwnedBy(actor.UserID, actor.Email) {
		return nil, appErrors.ErrForbidden
	}

	if patch.FirstName != nil {
		appointment.FirstName = strings.TrimSpace(*patch.FirstName)
	}
	if patch.LastName != nil {
		appointment.LastName = strings.TrimSpace(*patch.LastName)
	}
	if patch.Phone != nil {
		appointment.Phone = strings.TrimSpace(*patch.Phone)
	}
	if patch.Message != nil {
		appointment.Message = strings.TrimSpace(*patch.Message)
	}
	if patch.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*patch.Email))
		if !isAdmin && !strings.EqualFold(actor.Email, email) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "the appointment email cannot be changed to another address")
		}
		appointment.Email = email
	}
	if patch.Destination != nil {
		appointment.Destination = models.Destination(*patch.Destination)
		appointment.DestinationOther = nil
	}
	if patch.StudyField != nil {
		appointment.StudyField = models.StudyField(*patch.StudyField)
		appointment.StudyFieldOther = nil
	}
	if patch.EducationLevel != nil {
		appointment.EducationLevel = models.EducationLevel(*patch.EducationLevel)
	}

	destinationOther := ""
	if patch.DestinationOther != nil {
		destinationOther = *patch.DestinationOther
	} else if appointment.DestinationOther != nil {
		destinationOther = *appointment.DestinationOther
	}
	studyFieldOther := ""
	if patch.StudyFieldOther != nil {
		studyFieldOther = *patch.StudyFieldOther
	} else if appointment.StudyFieldOther != nil {
		studyFieldOther = *appointment.StudyFieldOther
	}
	if err := validateChoiceFields(appointment, destinationOther, studyFieldOther); err != nil {
		return nil, err
	}

	slotChanged := false
	if patch.Date != nil {
		date, err := time.ParseInLocation(models.DateFormat, *patch.Date, s.calendar.Location())
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "date must use the YYYY-MM-DD format")
		}
		appointment.Date = date
		slotChanged = true
	}
	if patch.TimeSlot != nil {
		appointment.TimeSlot = *patch.TimeSlot
		slotChanged = true
	}
	if slotChanged {
		if err := s.validateSlot(ctx, appointment, appointment.ID); err != nil {
			return nil, err
		}
	}

	previous := appointment.Status
	if patch.Status != nil {
		avis := ""
		if patch.AvisAdmin != nil {
			avis = *patch.AvisAdmin
		}
		if err := s.applyStatusChange(appointment, models.AppointmentStatus(*patch.Status), avis, actor); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Update(ctx, appointment); err != nil {
		return nil, err
	}

	s.calendar.InvalidateAvailability(ctx)
	if appointment.Status != previous {
		s.afterStatusChange(ctx, appointment, previous)
	}

	return appointment, nil
}

// UpdateStatus drives an explicit lifecycle transition. Admin only.
func (s *AppointmentService) UpdateStatus(ctx context.Context, id string, req dto.UpdateAppointmentStatusRequest, actor *models.JWTClaims) (*models.Appointment, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}
	if actor.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators can change appointment status")
	}

	appointment, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	previous := appointment.Status
	if err := s.applyStatusChange(appointment, models.AppointmentStatus(req.Status), req.AvisAdmin, actor); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, appointment); err != nil {
		return nil, err
	}

	s.calendar.InvalidateAvailability(ctx)
	s.afterStatusChange(ctx, appointment, previous)

	return appointment, nil
}

// Cancel soft-cancels an appointment. Users may only cancel their own
// confirmed appointment with enough notice; admins may cancel any
// non-terminal appointment at any time.
func (s *AppointmentService) Cancel(ctx context.Context, id, reason string, actor *models.JWTClaims) (*models.Appointment, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}

	appointment, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if appointment.Status.IsTerminal() {
		return nil, appErrors.Clone(appErrors.ErrStateConflict, "this appointment can no longer be cancelled")
	}

	isAdmin := actor.Role == models.RoleAdmin
	actorKind := models.CancelledByAdmin
	if !isAdmin {
		actorKind = models.CancelledByUser
		if !appointment.OwnedBy(actor.UserID, actor.Email) {
			return nil, appErrors.ErrForbidden
		}
		if appointment.Status != models.AppointmentConfirmed {
			return nil, appErrors.Clone(appErrors.ErrStateConflict, "only confirmed appointments can be cancelled")
		}
		start, err := s.calendar.SlotStart(appointment.Date, appointment.TimeSlot)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve appointment time")
		}
		if start.Sub(s.calendar.Now()) <= s.booking.CancelNotice {
			return nil, appErrors.Clone(appErrors.ErrStateConflict, "appointments can only be cancelled more than 2 hours in advance")
		}
	}

	now := s.calendar.Now().UTC()
	appointment.Status = models.AppointmentCancelled
	appointment.CancelledAt = &now
	appointment.CancelledBy = &actorKind
	if reason = strings.TrimSpace(reason); reason != "" {
		appointment.CancelReason = &reason
	}

	if err := s.repo.Update(ctx, appointment); err != nil {
		return nil, err
	}

	s.calendar.InvalidateAvailability(ctx)
	s.notifier.AppointmentCancelled(appointment)

	return appointment, nil
}

// Confirm promotes a pending appointment. Admin only; kept for records
// created before immediate confirmation became the default.
func (s *AppointmentService) Confirm(ctx context.Context, id string, actor *models.JWTClaims) (*models.Appointment, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators can confirm appointments")
	}

	appointment, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	previous := appointment.Status
	if err := s.applyStatusChange(appointment, models.AppointmentConfirmed, "", actor); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, appointment); err != nil {
		return nil, err
	}

	s.afterStatusChange(ctx, appointment, previous)

	return appointment, nil
}

// ExpireOverdue expires today's pending/confirmed appointments whose slot
// start plus the grace period has elapsed. One bad record never aborts the
// sweep for the others.
func (s *AppointmentService) ExpireOverdue(ctx context.Context) (int, error) {
	now := s.calendar.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.calendar.Location())

	candidates, err := s.repo.ListExpiryCandidates(ctx, today)
	if err != nil {
		return 0, err
	}

	expired := 0
	for i := range candidates {
		appointment := &candidates[i]
		start, err := s.calendar.SlotStart(appointment.Date, appointment.TimeSlot)
		if err != nil {
			s.logger.Warn("skipping appointment with unparseable slot",
				zap.String("appointment_id", appointment.ID), zap.Error(err))
			continue
		}
		if !now.After(start.Add(s.jobs.ExpiryGrace)) {
			continue
		}

		appointment.Status = models.AppointmentExpired
		if err := s.repo.Update(ctx, appointment); err != nil {
			s.logger.Error("failed to expire appointment",
				zap.String("appointment_id", appointment.ID), zap.Error(err))
			continue
		}
		expired++
		s.notifier.AppointmentExpired(appointment)
	}

	if expired > 0 {
		s.calendar.InvalidateAvailability(ctx)
	}
	return expired, nil
}

// AutoCancelStalePending bulk-cancels pending appointments older than the
// configured age. No per-record notification is sent.
func (s *AppointmentService) AutoCancelStalePending(ctx context.Context) (int, error) {
	cutoff := s.calendar.Now().UTC().Add(-s.jobs.PendingMaxAge)
	count, err := s.repo.BulkCancelStalePending(ctx, cutoff, "automatically cancelled: confirmation window elapsed")
	if err != nil {
		return 0, err
	}
	if count > 0 {
		s.calendar.InvalidateAvailability(ctx)
	}
	return int(count), nil
}

// SendDailyReminders dispatches a reminder for each confirmed appointment
// scheduled today.
func (s *AppointmentService) SendDailyReminders(ctx context.Context) (int, error) {
	now := s.calendar.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.calendar.Location())

	appointments, err := s.repo.ListConfirmedByDate(ctx, today)
	if err != nil {
		return 0, err
	}
	for i := range appointments {
		s.notifier.AppointmentReminder(&appointments[i])
	}
	return len(appointments), nil
}

func (s *AppointmentService) load(ctx context.Context, id string) (*models.Appointment, error) {
	appointment, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "appointment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load appointment")
	}
	return appointment, nil
}

// applyStatusChange mutates the appointment in memory after checking the
// transition table and the per-target rules. Persistence stays with the
// caller so a failed rule never leaves partial state behind.
func (s *AppointmentService) applyStatusChange(appointment *models.Appointment, target models.AppointmentStatus, avis string, actor *models.JWTClaims) error {
	if target == appointment.Status {
		return appErrors.Clone(appErrors.ErrStateConflict, "appointment is already in this status")
	}
	if !appointment.Status.CanTransition(target) {
		return appErrors.Clone(appErrors.ErrStateConflict, "this status transition is not allowed")
	}

	isAdmin := actor != nil && actor.Role == models.RoleAdmin

	switch target {
	case models.AppointmentConfirmed:
		if !isAdmin {
			return appErrors.Clone(appErrors.ErrForbidden, "only administrators can confirm appointments")
		}
		start, err := s.calendar.SlotStart(appointment.Date, appointment.TimeSlot)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve appointment time")
		}
		if s.calendar.Now().After(start) {
			return appErrors.Clone(appErrors.ErrStateConflict, "the appointment time has already passed")
		}
		appointment.Status = target

	case models.AppointmentCompleted:
		if !isAdmin {
			return appErrors.Clone(appErrors.ErrForbidden, "only administrators can complete appointments")
		}
		verdict := models.AvisAdmin(avis)
		if !verdict.Valid() {
			return appErrors.Clone(appErrors.ErrValidation, "completing an appointment requires a FAVORABLE or UNFAVORABLE avis")
		}
		start, err := s.calendar.SlotStart(appointment.Date, appointment.TimeSlot)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve appointment time")
		}
		now := s.calendar.Now()
		if now.Before(start) {
			return appErrors.Clone(appErrors.ErrStateConflict, "a future appointment cannot be completed")
		}
		if now.Sub(start) > s.booking.CompletionMaxAge {
			return appErrors.Clone(appErrors.ErrStateConflict, "appointments older than 7 days can no longer be completed")
		}
		completedAt := now.UTC()
		appointment.Status = target
		appointment.AvisAdmin = &verdict
		appointment.CompletedAt = &completedAt

	case models.AppointmentCancelled:
		if !isAdmin {
			return appErrors.Clone(appErrors.ErrForbidden, "use the cancel operation to cancel your appointment")
		}
		now := s.calendar.Now().UTC()
		actorKind := models.CancelledByAdmin
		appointment.Status = target
		appointment.CancelledAt = &now
		appointment.CancelledBy = &actorKind

	case models.AppointmentExpired:
		if !isAdmin {
			return appErrors.Clone(appErrors.ErrForbidden, "only administrators can expire appointments")
		}
		appointment.Status = target

	default:
		return appErrors.Clone(appErrors.ErrValidation, "unknown appointment status")
	}

	return nil
}

// afterStatusChange runs the post-persist side effects of a transition:
// the status notification and, for a favourable completion, the admission
// procedure. Side-effect failures are logged, never propagated.
func (s *AppointmentService) afterStatusChange(ctx context.Context, appointment *models.Appointment, previous models.AppointmentStatus) {
	s.notifier.AppointmentStatusUpdated(appointment, previous)

	if appointment.Status != models.AppointmentCompleted || appointment.AvisAdmin == nil || *appointment.AvisAdmin != models.AvisFavorable {
		return
	}
	if s.procedures == nil {
		return
	}
	if _, err := s.procedures.CreateFromAppointment(ctx, appointment.ID); err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) && appErr.Code == appErrors.ErrConflict.Code {
			s.logger.Debug("procedure already open for client", zap.String("appointment_id", appointment.ID))
			return
		}
		s.logger.Error("failed to open procedure after favourable completion",
			zap.String("appointment_id", appointment.ID), zap.Error(err))
	}
}

// validateSlot runs the calendar rules shared by create and reschedule.
func (s *AppointmentService) validateSlot(ctx context.Context, appointment *models.Appointment, excludeID string) error {
	if !models.ValidSlot(appointment.TimeSlot) {
		return appErrors.Clone(appErrors.ErrValidation, "time slot must be one of the half-hour slots between 09:00 and 16:30")
	}
	if !s.calendar.IsBusinessDay(ctx, appointment.Date) {
		return appErrors.Clone(appErrors.ErrValidation, "appointments can only be booked on business days")
	}

	start, err := s.calendar.SlotStart(appointment.Date, appointment.TimeSlot)
	if err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "invalid time slot")
	}
	if !start.After(s.calendar.Now()) {
		return appErrors.Clone(appErrors.ErrValidation, "the requested slot is already in the past")
	}

	free, err := s.calendar.IsSlotFree(ctx, appointment.Date, appointment.TimeSlot, excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check slot availability")
	}
	if !free {
		return appErrors.ErrSlotTaken
	}

	hasCapacity, err := s.calendar.HasCapacity(ctx, appointment.Date)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check daily capacity")
	}
	if !hasCapacity {
		return appErrors.ErrDayFull
	}

	return nil
}

// validateChoiceFields checks the enum fields and their free-text "other"
// precisions, moving the precisions onto the appointment.
func validateChoiceFields(appointment *models.Appointment, destinationOther, studyFieldOther string) error {
	if !appointment.Destination.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "unknown destination")
	}
	if !appointment.StudyField.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "unknown study field")
	}
	if !appointment.EducationLevel.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "unknown education level")
	}

	destinationOther = strings.TrimSpace(destinationOther)
	if appointment.Destination == models.DestinationOther {
		if destinationOther == "" {
			return appErrors.Clone(appErrors.ErrValidation, "destination_other is required when destination is OTHER")
		}
		appointment.DestinationOther = &destinationOther
	} else {
		appointment.DestinationOther = nil
	}

	studyFieldOther = strings.TrimSpace(studyFieldOther)
	if appointment.StudyField == models.FieldOther {
		if studyFieldOther == "" {
			return appErrors.Clone(appErrors.ErrValidation, "study_field_other is required when study_field is OTHER")
		}
		appointment.StudyFieldOther = &studyFieldOther
	} else {
		appointment.StudyFieldOther = nil
	}

	return nil
}

var _ appointmentStore = (*repository.AppointmentRepository)(nil)
