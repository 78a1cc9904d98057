package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/horizon-etudes/backoffice-api/internal/models"
	appErrors "github.com/horizon-etudes/backoffice-api/pkg/errors"
)

const procedureColumns = `id, appointment_id, first_name, last_name, email, phone, destination, study_field,
education_level, status, reason, cancelled_at, cancelled_by, completed_at, deleted_at, created_at, updated_at`

const stepColumns = `id, procedure_id, name, position, status, reason, started_at, finished_at, created_at, updated_at`

// ProcedureRepository provides persistence for procedures and their steps.
// A procedure and its three steps are always written in one transaction so
// cascades are never persisted partially.
type ProcedureRepository struct {
	db *sqlx.DB
}

// NewProcedureRepository creates the repository.
func NewProcedureRepository(db *sqlx.DB) *ProcedureRepository {
	return &ProcedureRepository{db: db}
}

// CreateWithSteps inserts the procedure row and all step rows atomically.
func (r *ProcedureRepository) CreateWithSteps(ctx context.Context, procedure *models.Procedure) error {
	if procedure.ID == "" {
		procedure.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if procedure.CreatedAt.IsZero() {
		procedure.CreatedAt = now
	}
	procedure.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create procedure: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.NamedExecContext(ctx, `INSERT INTO procedures (id, appointment_id, first_name, last_name, email, phone, destination,
study_field, education_level, status, reason, cancelled_at, cancelled_by, completed_at, deleted_at, created_at, updated_at)
VALUES (:id, :appointment_id, :first_name, :last_name, :email, :phone, :destination,
:study_field, :education_level, :status, :reason, :cancelled_at, :cancelled_by, :completed_at, :deleted_at, :created_at, :updated_at)`, procedure); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return appErrors.Clone(appErrors.ErrConflict, "a procedure already exists for this client")
		}
		return fmt.Errorf("create procedure: %w", err)
	}

	for i := range procedure.Steps {
		step := &procedure.Steps[i]
		if step.ID == "" {
			step.ID = uuid.NewString()
		}
		step.ProcedureID = procedure.ID
		if step.CreatedAt.IsZero() {
			step.CreatedAt = now
		}
		step.UpdatedAt = now

		if _, err := tx.NamedExecContext(ctx, `INSERT INTO procedure_steps (id, procedure_id, name, position, status, reason, started_at, finished_at, created_at, updated_at)
VALUES (:id, :procedure_id, :name, :position, :status, :reason, :started_at, :finished_at, :created_at, :updated_at)`, step); err != nil {
			return fmt.Errorf("create procedure step %s: %w", step.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create procedure: %w", err)
	}
	return nil
}

// SaveWithSteps persists the procedure row and every step row atomically.
func (r *ProcedureRepository) SaveWithSteps(ctx context.Context, procedure *models.Procedure) error {
	procedure.UpdatedAt = time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save procedure: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.NamedExecContext(ctx, `UPDATE procedures SET status = :status, reason = :reason,
cancelled_at = :cancelled_at, cancelled_by = :cancelled_by, completed_at = :completed_at,
deleted_at = :deleted_at, updated_at = :updated_at
WHERE id = :id`, procedure); err != nil {
		return fmt.Errorf("save procedure: %w", err)
	}

	for i := range procedure.Steps {
		step := &procedure.Steps[i]
		step.UpdatedAt = procedure.UpdatedAt

		if _, err := tx.NamedExecContext(ctx, `UPDATE procedure_steps SET status = :status, reason = :reason,
started_at = :started_at, finished_at = :finished_at, updated_at = :updated_at
WHERE id = :id`, step); err != nil {
			return fmt.Errorf("save procedure step %s: %w", step.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save procedure: %w", err)
	}
	return nil
}

// GetByID returns a procedure with its steps in workflow order.
func (r *ProcedureRepository) GetByID(ctx context.Context, id string) (*models.Procedure, error) {
	query := fmt.Sprintf(`SELECT %s FROM procedures WHERE id = $1 LIMIT 1`, procedureColumns)
	var procedure models.Procedure
	if err := r.db.GetContext(ctx, &procedure, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get procedure: %w", err)
	}
	if err := r.loadSteps(ctx, &procedure); err != nil {
		return nil, err
	}
	return &procedure, nil
}

// GetByAppointmentID returns the procedure opened from an appointment.
func (r *ProcedureRepository) GetByAppointmentID(ctx context.Context, appointmentID string) (*models.Procedure, error) {
	query := fmt.Sprintf(`SELECT %s FROM procedures WHERE appointment_id = $1 LIMIT 1`, procedureColumns)
	var procedure models.Procedure
	if err := r.db.GetContext(ctx, &procedure, query, appointmentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get procedure by appointment: %w", err)
	}
	if err := r.loadSteps(ctx, &procedure); err != nil {
		return nil, err
	}
	return &procedure, nil
}

// GetNonCancelledByEmail returns the procedure blocking a new workflow for a
// client email: any that is not cancelled and not soft-deleted, whatever its
// outcome.
func (r *ProcedureRepository) GetNonCancelledByEmail(ctx context.Context, email string) (*models.Procedure, error) {
	query := fmt.Sprintf(`SELECT %s FROM procedures WHERE LOWER(email) = LOWER($1) AND status <> 'CANCELLED' AND deleted_at IS NULL LIMIT 1`, procedureColumns)
	var procedure models.Procedure
	if err := r.db.GetContext(ctx, &procedure, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get non-cancelled procedure by email: %w", err)
	}
	if err := r.loadSteps(ctx, &procedure); err != nil {
		return nil, err
	}
	return &procedure, nil
}

// List returns procedures matching the filter with a total count. Steps are
// loaded per procedure; listings stay small (paginated, admin-facing).
func (r *ProcedureRepository) List(ctx context.Context, filter models.ProcedureFilter) ([]models.Procedure, int, error) {
	baseQuery := `FROM procedures WHERE deleted_at IS NULL`
	var conditions []string
	var args []interface{}

	if len(filter.Statuses) > 0 {
		values := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			values[i] = string(status)
		}
		conditions = append(conditions, fmt.Sprintf("status = ANY($%d)", len(args)+1))
		args = append(args, pq.Array(values))
	}
	if filter.Email != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(email) = LOWER($%d)", len(args)+1))
		args = append(args, filter.Email)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(first_name || ' ' || last_name) LIKE $%d OR LOWER(email) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", procedureColumns, baseQuery, pageSize, offset)

	var procedures []models.Procedure
	if err := r.db.SelectContext(ctx, &procedures, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list procedures: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count procedures: %w", err)
	}

	for i := range procedures {
		if err := r.loadSteps(ctx, &procedures[i]); err != nil {
			return nil, 0, err
		}
	}

	return procedures, total, nil
}

func (r *ProcedureRepository) loadSteps(ctx context.Context, procedure *models.Procedure) error {
	query := fmt.Sprintf(`SELECT %s FROM procedure_steps WHERE procedure_id = $1 ORDER BY position`, stepColumns)
	if err := r.db.SelectContext(ctx, &procedure.Steps, query, procedure.ID); err != nil {
		return fmt.Errorf("load procedure steps: %w", err)
	}
	return nil
}
