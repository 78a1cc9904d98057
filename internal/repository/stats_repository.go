package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/horizon-etudes/backoffice-api/internal/models"
)

// StatsRepository runs the aggregate queries behind the admin dashboard.
type StatsRepository struct {
	db *sqlx.DB
}

// NewStatsRepository creates the repository.
func NewStatsRepository(db *sqlx.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

// CountAppointmentsByStatus groups appointments by lifecycle status.
func (r *StatsRepository) CountAppointmentsByStatus(ctx context.Context) ([]models.StatusCount, error) {
	const query = `SELECT status, COUNT(*) AS count FROM appointments GROUP BY status`
	var rows []models.StatusCount
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("count appointments by status: %w", err)
	}
	return rows, nil
}

// CountProceduresByStatus groups procedures by derived status.
func (r *StatsRepository) CountProceduresByStatus(ctx context.Context) ([]models.StatusCount, error) {
	const query = `SELECT status, COUNT(*) AS count FROM procedures WHERE deleted_at IS NULL GROUP BY status`
	var rows []models.StatusCount
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("count procedures by status: %w", err)
	}
	return rows, nil
}

// CountOccupyingAppointments counts the active bookings of one date.
func (r *StatsRepository) CountOccupyingAppointments(ctx context.Context, date time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM appointments WHERE date = $1 AND status NOT IN ('CANCELLED', 'EXPIRED')`
	var count int
	if err := r.db.GetContext(ctx, &count, query, date); err != nil {
		return 0, fmt.Errorf("count occupying appointments: %w", err)
	}
	return count, nil
}

// UpcomingLoad returns per-date active booking counts over the given range.
func (r *StatsRepository) UpcomingLoad(ctx context.Context, from, to time.Time) ([]models.DateCount, error) {
	const query = `SELECT date, COUNT(*) AS count FROM appointments
WHERE date >= $1 AND date <= $2 AND status NOT IN ('CANCELLED', 'EXPIRED')
GROUP BY date ORDER BY date`
	var rows []models.DateCount
	if err := r.db.SelectContext(ctx, &rows, query, from, to); err != nil {
		return nil, fmt.Errorf("upcoming load: %w", err)
	}
	return rows, nil
}

// CountAppointmentsCreatedSince counts bookings created after the cutoff.
func (r *StatsRepository) CountAppointmentsCreatedSince(ctx context.Context, since time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM appointments WHERE created_at >= $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, since); err != nil {
		return 0, fmt.Errorf("count appointments created since: %w", err)
	}
	return count, nil
}

// CountNewContactMessages counts contact messages awaiting handling.
func (r *StatsRepository) CountNewContactMessages(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(*) FROM contact_messages WHERE status = 'NEW'`
	var count int
	if err := r.db.GetContext(ctx, &count, query); err != nil {
		return 0, fmt.Errorf("count new contact messages: %w", err)
	}
	return count, nil
}

// ListAppointmentsForExport streams every appointment matching the filter,
// without pagination, for CSV/PDF exports.
func (r *StatsRepository) ListAppointmentsForExport(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, error) {
	filter.Page = 1
	filter.PageSize = 0

	baseQuery := `FROM appointments WHERE 1=1`
	var args []interface{}
	if len(filter.Statuses) == 1 {
		baseQuery += fmt.Sprintf(" AND status = $%d", len(args)+1)
		args = append(args, filter.Statuses[0])
	}
	if filter.DateFrom != nil {
		baseQuery += fmt.Sprintf(" AND date >= $%d", len(args)+1)
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		baseQuery += fmt.Sprintf(" AND date <= $%d", len(args)+1)
		args = append(args, *filter.DateTo)
	}

	query := fmt.Sprintf("SELECT %s %s ORDER BY date, time_slot", appointmentColumns, baseQuery)
	var appointments []models.Appointment
	if err := r.db.SelectContext(ctx, &appointments, query, args...); err != nil {
		return nil, fmt.Errorf("list appointments for export: %w", err)
	}
	return appointments, nil
}
