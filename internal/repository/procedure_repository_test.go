package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/horizon-etudes/backoffice-api/internal/models"
	appErrors "github.com/horizon-etudes/backoffice-api/pkg/errors"
)

func procedureRow(now time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "appointment_id", "first_name", "last_name", "email", "phone", "destination", "study_field",
		"education_level", "status", "reason", "cancelled_at", "cancelled_by", "completed_at", "deleted_at", "created_at", "updated_at",
	}).AddRow(
		"p1", "a1", "Awa", "Diop", "awa@example.com", "", string(models.DestinationFrance), string(models.FieldEngineering),
		string(models.LevelBachelor), string(models.ProcedureInProgress), nil, nil, nil, nil, nil, now, now,
	)
}

func procedureStepRows(now time.Time) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{
		"id", "procedure_id", "name", "position", "status", "reason", "started_at", "finished_at", "created_at", "updated_at",
	})
	rows.AddRow("s1", "p1", string(models.StepAdmissionRequest), 0, string(models.StepInProgress), nil, now, nil, now, now)
	rows.AddRow("s2", "p1", string(models.StepVisaRequest), 1, string(models.StepPending), nil, nil, nil, now, now)
	rows.AddRow("s3", "p1", string(models.StepTravelPreparation), 2, string(models.StepPending), nil, nil, nil, now, now)
	return rows
}

func newStoredProcedure(now time.Time) *models.Procedure {
	started := now
	return &models.Procedure{
		AppointmentID:  "a1",
		FirstName:      "Awa",
		LastName:       "Diop",
		Email:          "awa@example.com",
		Destination:    models.DestinationFrance,
		StudyField:     models.FieldEngineering,
		EducationLevel: models.LevelBachelor,
		Status:         models.ProcedureInProgress,
		Steps: []models.ProcedureStep{
			{Name: models.StepAdmissionRequest, Position: 0, Status: models.StepInProgress, StartedAt: &started},
			{Name: models.StepVisaRequest, Position: 1, Status: models.StepPending},
			{Name: models.StepTravelPreparation, Position: 2, Status: models.StepPending},
		},
	}
}

func TestProcedureCreateWithSteps(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewProcedureRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO procedures").WillReturnResult(sqlmock.NewResult(1, 1))
	for i := 0; i < 3; i++ {
		mock.ExpectExec("INSERT INTO procedure_steps").WillReturnResult(sqlmock.NewResult(1, 1))
	}
	mock.ExpectCommit()

	procedure := newStoredProcedure(time.Now().UTC())
	err := repo.CreateWithSteps(context.Background(), procedure)
	require.NoError(t, err)
	assert.NotEmpty(t, procedure.ID)
	for _, step := range procedure.Steps {
		assert.Equal(t, procedure.ID, step.ProcedureID)
		assert.NotEmpty(t, step.ID)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcedureCreateWithStepsDuplicate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewProcedureRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO procedures").WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	err := repo.CreateWithSteps(context.Background(), newStoredProcedure(time.Now().UTC()))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcedureCreateWithStepsRollsBackOnStepFailure(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewProcedureRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO procedures").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO procedure_steps").WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	err := repo.CreateWithSteps(context.Background(), newStoredProcedure(time.Now().UTC()))
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcedureSaveWithSteps(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewProcedureRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE procedures SET").WillReturnResult(sqlmock.NewResult(0, 1))
	for i := 0; i < 3; i++ {
		mock.ExpectExec("UPDATE procedure_steps SET").WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectCommit()

	procedure := newStoredProcedure(time.Now().UTC())
	procedure.ID = "p1"
	err := repo.SaveWithSteps(context.Background(), procedure)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcedureGetByID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewProcedureRepository(db)

	now := time.Now()
	mock.ExpectQuery("FROM procedures WHERE id =").
		WithArgs("p1").
		WillReturnRows(procedureRow(now))
	mock.ExpectQuery("SELECT .* FROM procedure_steps WHERE procedure_id =").
		WithArgs("p1").
		WillReturnRows(procedureStepRows(now))

	procedure, err := repo.GetByID(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "p1", procedure.ID)
	require.Len(t, procedure.Steps, 3)
	assert.Equal(t, models.StepAdmissionRequest, procedure.Steps[0].Name)
	assert.Equal(t, models.StepTravelPreparation, procedure.Steps[2].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcedureGetNonCancelledByEmailNoRows(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewProcedureRepository(db)

	mock.ExpectQuery("status <> 'CANCELLED' AND deleted_at IS NULL").
		WithArgs("nobody@example.com").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetNonCancelledByEmail(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcedureGetNonCancelledByEmailMatchesFinalized(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewProcedureRepository(db)
	now := time.Now().UTC()

	reason := "dossier incomplet"
	rejected := sqlmock.NewRows([]string{
		"id", "appointment_id", "first_name", "last_name", "email", "phone", "destination", "study_field",
		"education_level", "status", "reason", "cancelled_at", "cancelled_by", "completed_at", "deleted_at", "created_at", "updated_at",
	}).AddRow(
		"p1", "a1", "Awa", "Diop", "awa@example.com", "", string(models.DestinationFrance), string(models.FieldEngineering),
		string(models.LevelBachelor), string(models.ProcedureRejected), reason, nil, nil, now, nil, now, now,
	)

	mock.ExpectQuery("status <> 'CANCELLED' AND deleted_at IS NULL").
		WithArgs("awa@example.com").
		WillReturnRows(rejected)
	mock.ExpectQuery("SELECT .* FROM procedure_steps WHERE procedure_id =").
		WithArgs("p1").
		WillReturnRows(procedureStepRows(now))

	procedure, err := repo.GetNonCancelledByEmail(context.Background(), "awa@example.com")
	require.NoError(t, err)
	assert.Equal(t, "p1", procedure.ID)
	assert.Equal(t, models.ProcedureRejected, procedure.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcedureListExcludesDeleted(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewProcedureRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM procedures WHERE deleted_at IS NULL")).
		WillReturnRows(procedureRow(now))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM procedures WHERE deleted_at IS NULL")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("FROM procedure_steps").
		WithArgs("p1").
		WillReturnRows(procedureStepRows(now))

	procedures, total, err := repo.List(context.Background(), models.ProcedureFilter{})
	require.NoError(t, err)
	assert.Len(t, procedures, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}
