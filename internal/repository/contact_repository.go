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

	"github.com/horizon-etudes/backoffice-api/internal/models"
)

const contactColumns = "id, first_name, last_name, email, phone, subject, message, status, created_at, updated_at"

// ContactRepository provides persistence for contact messages.
type ContactRepository struct {
	db *sqlx.DB
}

// NewContactRepository creates the repository.
func NewContactRepository(db *sqlx.DB) *ContactRepository {
	return &ContactRepository{db: db}
}

// Create inserts a new contact message.
func (r *ContactRepository) Create(ctx context.Context, message *models.ContactMessage) error {
	if message.ID == "" {
		message.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if message.CreatedAt.IsZero() {
		message.CreatedAt = now
	}
	message.UpdatedAt = now

	const query = `INSERT INTO contact_messages (id, first_name, last_name, email, phone, subject, message, status, created_at, updated_at)
VALUES (:id, :first_name, :last_name, :email, :phone, :subject, :message, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, message); err != nil {
		return fmt.Errorf("create contact message: %w", err)
	}
	return nil
}

// GetByID returns a contact message by identifier.
func (r *ContactRepository) GetByID(ctx context.Context, id string) (*models.ContactMessage, error) {
	query := fmt.Sprintf(`SELECT %s FROM contact_messages WHERE id = $1 LIMIT 1`, contactColumns)
	var message models.ContactMessage
	if err := r.db.GetContext(ctx, &message, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get contact message: %w", err)
	}
	return &message, nil
}

// List returns contact messages matching the filter with a total count.
func (r *ContactRepository) List(ctx context.Context, filter models.ContactFilter) ([]models.ContactMessage, int, error) {
	baseQuery := `FROM contact_messages WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(first_name || ' ' || last_name) LIKE $%d OR LOWER(email) LIKE $%d OR LOWER(subject) LIKE $%d)", len(args)+1, len(args)+1, len(args)+1))
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

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", contactColumns, baseQuery, pageSize, offset)

	var messages []models.ContactMessage
	if err := r.db.SelectContext(ctx, &messages, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list contact messages: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count contact messages: %w", err)
	}

	return messages, total, nil
}

// UpdateStatus moves a contact message to a new handling status.
func (r *ContactRepository) UpdateStatus(ctx context.Context, id string, status models.ContactStatus) error {
	const query = `UPDATE contact_messages SET status = $2, updated_at = $3 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update contact status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update contact status rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
