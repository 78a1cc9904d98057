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

const appointmentColumns = `id, user_id, first_name, last_name, email, phone, destination, destination_other,
study_field, study_field_other, education_level, message, date, time_slot, status, avis_admin,
cancelled_at, cancelled_by, cancel_reason, completed_at, created_at, updated_at`

// AppointmentRepository provides persistence for appointments.
type AppointmentRepository struct {
	db *sqlx.DB
}

// NewAppointmentRepository creates the repository.
func NewAppointmentRepository(db *sqlx.DB) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

// Create inserts a new appointment. The partial unique indexes on
// (date, time_slot) and on confirmed emails backstop the service-level
// availability checks, so 23505 is translated into the matching conflict.
func (r *AppointmentRepository) Create(ctx context.Context, appointment *models.Appointment) error {
	if appointment.ID == "" {
		appointment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if appointment.CreatedAt.IsZero() {
		appointment.CreatedAt = now
	}
	appointment.UpdatedAt = now

	const query = `INSERT INTO appointments (id, user_id, first_name, last_name, email, phone, destination, destination_other,
study_field, study_field_other, education_level, message, date, time_slot, status, avis_admin,
cancelled_at, cancelled_by, cancel_reason, completed_at, created_at, updated_at)
VALUES (:id, :user_id, :first_name, :last_name, :email, :phone, :destination, :destination_other,
:study_field, :study_field_other, :education_level, :message, :date, :time_slot, :status, :avis_admin,
:cancelled_at, :cancelled_by, :cancel_reason, :completed_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, appointment); err != nil {
		return translateConflict(err, "create appointment")
	}
	return nil
}

// GetByID returns an appointment by identifier.
func (r *AppointmentRepository) GetByID(ctx context.Context, id string) (*models.Appointment, error) {
	query := fmt.Sprintf(`SELECT %s FROM appointments WHERE id = $1 LIMIT 1`, appointmentColumns)
	var appointment models.Appointment
	if err := r.db.GetContext(ctx, &appointment, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	return &appointment, nil
}

// Update persists the full appointment row.
func (r *AppointmentRepository) Update(ctx context.Context, appointment *models.Appointment) error {
	appointment.UpdatedAt = time.Now().UTC()
	const query = `UPDATE appointments SET user_id = :user_id, first_name = :first_name, last_name = :last_name,
email = :email, phone = :phone, destination = :destination, destination_other = :destination_other,
study_field = :study_field, study_field_other = :study_field_other, education_level = :education_level,
message = :message, date = :date, time_slot = :time_slot, status = :status, avis_admin = :avis_admin,
cancelled_at = :cancelled_at, cancelled_by = :cancelled_by, cancel_reason = :cancel_reason,
completed_at = :completed_at, updated_at = :updated_at
WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, appointment); err != nil {
		return translateConflict(err, "update appointment")
	}
	return nil
}

// List returns appointments matching the filter with a total count.
func (r *AppointmentRepository) List(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, int, error) {
	baseQuery := `FROM appointments WHERE 1=1`
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
	if filter.UserID != "" {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", len(args)+1))
		args = append(args, filter.UserID)
	}
	if filter.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("date >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("date <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
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

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY date DESC, time_slot DESC LIMIT %d OFFSET %d",
		appointmentColumns, baseQuery, pageSize, offset)

	var appointments []models.Appointment
	if err := r.db.SelectContext(ctx, &appointments, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list appointments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count appointments: %w", err)
	}

	return appointments, total, nil
}

// CountOccupyingByDate counts the appointments still holding capacity on a date.
func (r *AppointmentRepository) CountOccupyingByDate(ctx context.Context, date time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM appointments WHERE date = $1 AND status NOT IN ('CANCELLED', 'EXPIRED')`
	var count int
	if err := r.db.GetContext(ctx, &count, query, date); err != nil {
		return 0, fmt.Errorf("count occupying appointments: %w", err)
	}
	return count, nil
}

// CountOccupyingPerDate returns per-date occupancy over a date range, dates
// without bookings omitted.
func (r *AppointmentRepository) CountOccupyingPerDate(ctx context.Context, from, to time.Time) (map[string]int, error) {
	const query = `SELECT date, COUNT(*) AS count FROM appointments
WHERE date >= $1 AND date <= $2 AND status NOT IN ('CANCELLED', 'EXPIRED')
GROUP BY date`
	var rows []models.DateCount
	if err := r.db.SelectContext(ctx, &rows, query, from, to); err != nil {
		return nil, fmt.Errorf("count occupying per date: %w", err)
	}
	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.Date.Format(models.DateFormat)] = row.Count
	}
	return counts, nil
}

// ListOccupiedSlots returns the time slots already taken on a date.
func (r *AppointmentRepository) ListOccupiedSlots(ctx context.Context, date time.Time) ([]string, error) {
	const query = `SELECT time_slot FROM appointments WHERE date = $1 AND status NOT IN ('CANCELLED', 'EXPIRED') ORDER BY time_slot`
	var slots []string
	if err := r.db.SelectContext(ctx, &slots, query, date); err != nil {
		return nil, fmt.Errorf("list occupied slots: %w", err)
	}
	return slots, nil
}

// ExistsActiveSlot reports whether a non-cancelled/non-expired appointment
// occupies the exact (date, slot), optionally ignoring one appointment.
func (r *AppointmentRepository) ExistsActiveSlot(ctx context.Context, date time.Time, slot, excludeID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM appointments WHERE date = $1 AND time_slot = $2 AND status NOT IN ('CANCELLED', 'EXPIRED')`
	args := []interface{}{date, slot}
	if excludeID != "" {
		query += " AND id <> $3"
		args = append(args, excludeID)
	}
	query += ")"

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, args...); err != nil {
		return false, fmt.Errorf("check slot occupancy: %w", err)
	}
	return exists, nil
}

// FindConfirmedByEmail returns the confirmed appointment held by an email,
// or sql.ErrNoRows when the client holds none.
func (r *AppointmentRepository) FindConfirmedByEmail(ctx context.Context, email string) (*models.Appointment, error) {
	query := fmt.Sprintf(`SELECT %s FROM appointments WHERE LOWER(email) = LOWER($1) AND status = 'CONFIRMED' LIMIT 1`, appointmentColumns)
	var appointment models.Appointment
	if err := r.db.GetContext(ctx, &appointment, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find confirmed appointment: %w", err)
	}
	return &appointment, nil
}

// ListExpiryCandidates returns the pending/confirmed appointments of a date.
// The caller decides which of them have actually passed their grace period.
func (r *AppointmentRepository) ListExpiryCandidates(ctx context.Context, date time.Time) ([]models.Appointment, error) {
	query := fmt.Sprintf(`SELECT %s FROM appointments WHERE date = $1 AND status IN ('PENDING', 'CONFIRMED') ORDER BY time_slot`, appointmentColumns)
	var appointments []models.Appointment
	if err := r.db.SelectContext(ctx, &appointments, query, date); err != nil {
		return nil, fmt.Errorf("list expiry candidates: %w", err)
	}
	return appointments, nil
}

// ListConfirmedByDate returns the confirmed appointments of one date.
func (r *AppointmentRepository) ListConfirmedByDate(ctx context.Context, date time.Time) ([]models.Appointment, error) {
	query := fmt.Sprintf(`SELECT %s FROM appointments WHERE date = $1 AND status = 'CONFIRMED' ORDER BY time_slot`, appointmentColumns)
	var appointments []models.Appointment
	if err := r.db.SelectContext(ctx, &appointments, query, date); err != nil {
		return nil, fmt.Errorf("list confirmed by date: %w", err)
	}
	return appointments, nil
}

// BulkCancelStalePending cancels every pending appointment created before
// the cutoff in one statement and returns the number of affected rows.
func (r *AppointmentRepository) BulkCancelStalePending(ctx context.Context, cutoff time.Time, reason string) (int64, error) {
	const query = `UPDATE appointments
SET status = 'CANCELLED', cancelled_at = $2, cancelled_by = 'SYSTEM', cancel_reason = $3, updated_at = $2
WHERE status = 'PENDING' AND created_at < $1`
	result, err := r.db.ExecContext(ctx, query, cutoff, time.Now().UTC(), reason)
	if err != nil {
		return 0, fmt.Errorf("bulk cancel stale pending: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("bulk cancel rows affected: %w", err)
	}
	return affected, nil
}

func translateConflict(err error, op string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		switch pqErr.Constraint {
		case "uq_appointments_active_slot":
			return appErrors.ErrSlotTaken
		case "uq_appointments_confirmed_email":
			return appErrors.Clone(appErrors.ErrConflict, "a confirmed appointment already exists for this email")
		}
		return appErrors.ErrConflict
	}
	return fmt.Errorf("%s: %w", op, err)
}
