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
	appErrors "github.com/horizon-etudes/backoffice-api/pkg/errors"
)

type procedureStore interface {
	CreateWithSteps(ctx context.Context, procedure *models.Procedure) error
	SaveWithSteps(ctx context.Context, procedure *models.Procedure) error
	GetByID(ctx context.Context, id string) (*models.Procedure, error)
	GetByAppointmentID(ctx context.Context, appointmentID string) (*models.Procedure, error)
	GetNonCancelledByEmail(ctx context.Context, email string) (*models.Procedure, error)
	List(ctx context.Context, filter models.ProcedureFilter) ([]models.Procedure, int, error)
}

type appointmentReader interface {
	GetByID(ctx context.Context, id string) (*models.Appointment, error)
}

type procedureNotifier interface {
	ProcedureCreated(procedure *models.Procedure)
	ProcedureStepUpdated(procedure *models.Procedure, step models.StepName)
	ProcedureCancelled(procedure *models.Procedure)
	ProcedureRejected(procedure *models.Procedure)
}

// ProcedureService drives the three-step admission workflow. All rule
// evaluation happens on in-memory copies through the step engine; a single
// transactional save persists the outcome.
type ProcedureService struct {
	repo         procedureStore
	appointments appointmentReader
	notifier     procedureNotifier
	validator    *validator.Validate
	logger       *zap.Logger
	now          func() time.Time
}

// NewProcedureService builds the service.
func NewProcedureService(repo procedureStore, appointments appointmentReader, notifier procedureNotifier, validate *validator.Validate, logger *zap.Logger) *ProcedureService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProcedureService{
		repo:         repo,
		appointments: appointments,
		notifier:     notifier,
		validator:    validate,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// CreateFromAppointment opens a workflow from a favourably completed
// appointment, snapshotting the client fields. The admission request step
// starts immediately.
func (s *ProcedureService) CreateFromAppointment(ctx context.Context, appointmentID string) (*models.Procedure, error) {
	appointment, err := s.appointments.GetByID(ctx, appointmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "appointment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load appointment")
	}

	if appointment.Status != models.AppointmentCompleted || appointment.AvisAdmin == nil || *appointment.AvisAdmin != models.AvisFavorable {
		return nil, appErrors.Clone(appErrors.ErrStateConflict, "a procedure requires a completed appointment with a favourable avis")
	}

	if _, err := s.repo.GetNonCancelledByEmail(ctx, appointment.Email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a procedure already exists for this client")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing procedures")
	}

	now := s.now()
	procedure := &models.Procedure{
		AppointmentID:  appointment.ID,
		FirstName:      appointment.FirstName,
		LastName:       appointment.LastName,
		Email:          appointment.Email,
		Phone:          appointment.Phone,
		Destination:    appointment.Destination,
		StudyField:     appointment.StudyField,
		EducationLevel: appointment.EducationLevel,
		Status:         models.ProcedureInProgress,
		Steps:          newProcedureSteps(now),
	}

	if err := s.repo.CreateWithSteps(ctx, procedure); err != nil {
		return nil, err
	}

	s.notifier.ProcedureCreated(procedure)
	return procedure, nil
}

// UpdateStep applies one step transition plus its cascades, recomputes the
// overall status and persists everything atomically. Re-confirming a
// step's current status is a no-op that triggers no save and no
// notification.
func (s *ProcedureService) UpdateStep(ctx context.Context, procedureID, stepName string, req dto.UpdateStepRequest, actor *models.JWTClaims) (*models.Procedure, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators can update workflow steps")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid step payload")
	}

	name := models.StepName(stepName)
	if !name.Valid() {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "unknown procedure step")
	}

	procedure, err := s.load(ctx, procedureID)
	if err != nil {
		return nil, err
	}
	if procedure.Status.Finalized() {
		return nil, appErrors.Clone(appErrors.ErrStateConflict, "a finalized procedure can no longer be modified")
	}

	now := s.now()
	changed, err := applyStepUpdate(procedure, name, models.StepStatus(req.Status), req.Reason, now)
	if err != nil {
		return nil, err
	}
	if !changed {
		return procedure, nil
	}

	deriveProcedureStatus(procedure, now)

	if err := s.repo.SaveWithSteps(ctx, procedure); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save procedure")
	}

	s.notifier.ProcedureStepUpdated(procedure, name)
	return procedure, nil
}

// CancelByUser cancels the caller's own workflow: the procedure and every
// non-terminal step go to CANCELLED. Admins may cancel any procedure.
func (s *ProcedureService) CancelByUser(ctx context.Context, id, reason string, actor *models.JWTClaims) (*models.Procedure, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}

	procedure, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RoleAdmin && !procedure.OwnedBy(strings.ToLower(actor.Email)) {
		return nil, appErrors.ErrForbidden
	}
	if procedure.Status.Finalized() {
		return nil, appErrors.Clone(appErrors.ErrStateConflict, "this procedure is already finalized")
	}

	actorKind := models.CancelledByUser
	if actor.Role == models.RoleAdmin {
		actorKind = models.CancelledByAdmin
	}
	s.cancelInMemory(procedure, reason, "cancelled at the client's request", actorKind)

	if err := s.repo.SaveWithSteps(ctx, procedure); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save procedure")
	}

	s.notifier.ProcedureCancelled(procedure)
	return procedure, nil
}

// AdminSoftDelete cancels and soft-deletes a procedure. No notification
// is sent: this is an administrative cleanup, not a client-facing event.
func (s *ProcedureService) AdminSoftDelete(ctx context.Context, id, reason string, actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleAdmin {
		return appErrors.Clone(appErrors.ErrForbidden, "only administrators can delete procedures")
	}

	procedure, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if procedure.Status.Finalized() {
		return appErrors.Clone(appErrors.ErrStateConflict, "this procedure is already finalized")
	}

	s.cancelInMemory(procedure, reason, "removed by an administrator", models.CancelledByAdmin)
	deletedAt := s.now()
	procedure.DeletedAt = &deletedAt

	if err := s.repo.SaveWithSteps(ctx, procedure); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save procedure")
	}
	return nil
}

// Reject rejects the whole workflow with a mandatory reason: the procedure
// and every step become REJECTED and completion dates are stamped where
// absent.
func (s *ProcedureService) Reject(ctx context.Context, id string, req dto.RejectProcedureRequest, actor *models.JWTClaims) (*models.Procedure, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators can reject procedures")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "a rejection reason of 5 to 500 characters is required")
	}

	procedure, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if procedure.Status.Finalized() {
		return nil, appErrors.Clone(appErrors.ErrStateConflict, "this procedure is already finalized")
	}

	now := s.now()
	reason := strings.TrimSpace(req.Reason)
	procedure.Status = models.ProcedureRejected
	procedure.Reason = &reason
	if procedure.CompletedAt == nil {
		completedAt := now
		procedure.CompletedAt = &completedAt
	}
	for i := range procedure.Steps {
		step := &procedure.Steps[i]
		step.Status = models.StepRejected
		if step.Reason == nil {
			step.Reason = &reason
		}
		if step.FinishedAt == nil {
			finishedAt := now
			step.FinishedAt = &finishedAt
		}
	}

	if err := s.repo.SaveWithSteps(ctx, procedure); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save procedure")
	}

	s.notifier.ProcedureRejected(procedure)
	return procedure, nil
}

// Get returns a procedure visible to the actor.
func (s *ProcedureService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.Procedure, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	procedure, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RoleAdmin && !procedure.OwnedBy(strings.ToLower(actor.Email)) {
		return nil, appErrors.ErrForbidden
	}
	return procedure, nil
}

// GetByAppointment returns the procedure opened from an appointment.
func (s *ProcedureService) GetByAppointment(ctx context.Context, appointmentID string, actor *models.JWTClaims) (*models.Procedure, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	procedure, err := s.repo.GetByAppointmentID(ctx, appointmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no procedure exists for this appointment")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load procedure")
	}
	if actor.Role != models.RoleAdmin && !procedure.OwnedBy(strings.ToLower(actor.Email)) {
		return nil, appErrors.ErrForbidden
	}
	return procedure, nil
}

// List returns procedures; non-admin callers only ever see their own.
func (s *ProcedureService) List(ctx context.Context, filter models.ProcedureFilter, actor *models.JWTClaims) ([]models.Procedure, int, error) {
	if actor == nil {
		return nil, 0, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleAdmin {
		filter.Email = actor.Email
	}
	procedures, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list procedures")
	}
	return procedures, total, nil
}

func (s *ProcedureService) load(ctx context.Context, id string) (*models.Procedure, error) {
	procedure, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "procedure not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load procedure")
	}
	if procedure.DeletedAt != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "procedure not found")
	}
	return procedure, nil
}

func (s *ProcedureService) cancelInMemory(procedure *models.Procedure, reason, fallback string, actorKind models.CancelActor) {
	now := s.now()
	if reason = strings.TrimSpace(reason); reason == "" {
		reason = fallback
	}
	procedure.Status = models.ProcedureCancelled
	procedure.Reason = &reason
	procedure.CancelledAt = &now
	procedure.CancelledBy = &actorKind
	for i := range procedure.Steps {
		step := &procedure.Steps[i]
		if step.Status.IsTerminal() {
			continue
		}
		setStepStatus(step, models.StepCancelled, reason, now)
	}
}

var _ procedureStore = (*repository.ProcedureRepository)(nil)
var _ procedureOpener = (*ProcedureService)(nil)
