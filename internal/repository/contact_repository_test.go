package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/horizon-etudes/backoffice-api/internal/models"
)

func TestContactCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewContactRepository(db)

	mock.ExpectExec("INSERT INTO contact_messages").WillReturnResult(sqlmock.NewResult(1, 1))

	message := &models.ContactMessage{
		FirstName: "Moussa", LastName: "Ndiaye", Email: "moussa@example.com",
		Subject: "Demande d'information", Message: "Bonjour, je souhaite des informations.",
		Status: models.ContactNew,
	}
	err := repo.Create(context.Background(), message)
	require.NoError(t, err)
	assert.NotEmpty(t, message.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContactListByStatus(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewContactRepository(db)

	now := time.Now()
	status := models.ContactNew
	rows := sqlmock.NewRows([]string{"id", "first_name", "last_name", "email", "phone", "subject", "message", "status", "created_at", "updated_at"}).
		AddRow("c1", "Moussa", "Ndiaye", "moussa@example.com", "", "Demande", "Bonjour, une question.", string(status), now, now)
	mock.ExpectQuery(regexp.QuoteMeta("status = $1")).
		WithArgs(status).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs(status).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	messages, total, err := repo.List(context.Background(), models.ContactFilter{Status: &status})
	require.NoError(t, err)
	assert.Len(t, messages, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContactUpdateStatusMissingRow(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewContactRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE contact_messages SET status = $2")).
		WithArgs("missing", models.ContactRead, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), "missing", models.ContactRead)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
