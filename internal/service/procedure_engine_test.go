package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/horizon-etudes/backoffice-api/internal/models"
	appErrors "github.com/horizon-etudes/backoffice-api/pkg/errors"
)

func newTestProcedure(now time.Time) *models.Procedure {
	return &models.Procedure{
		ID:     "p1",
		Email:  "client@example.com",
		Status: models.ProcedureInProgress,
		Steps:  newProcedureSteps(now),
	}
}

func TestNewProcedureStepsInitialState(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	steps := newProcedureSteps(now)

	require.Len(t, steps, 3)
	assert.Equal(t, models.StepAdmissionRequest, steps[0].Name)
	assert.Equal(t, models.StepInProgress, steps[0].Status)
	require.NotNil(t, steps[0].StartedAt)
	assert.Equal(t, now, *steps[0].StartedAt)

	assert.Equal(t, models.StepVisaRequest, steps[1].Name)
	assert.Equal(t, models.StepPending, steps[1].Status)
	assert.Nil(t, steps[1].StartedAt)

	assert.Equal(t, models.StepTravelPreparation, steps[2].Name)
	assert.Equal(t, models.StepPending, steps[2].Status)

	for i, step := range steps {
		assert.Equal(t, i, step.Position)
	}
}

func TestApplyStepUpdateCompleteAdvancesNext(t *testing.T) {
	now := time.Now().UTC()
	p := newTestProcedure(now)

	changed, err := applyStepUpdate(p, models.StepAdmissionRequest, models.StepCompleted, "", now)
	require.NoError(t, err)
	assert.True(t, changed)

	admission := p.Step(models.StepAdmissionRequest)
	assert.Equal(t, models.StepCompleted, admission.Status)
	require.NotNil(t, admission.FinishedAt)

	visa := p.Step(models.StepVisaRequest)
	assert.Equal(t, models.StepInProgress, visa.Status)
	require.NotNil(t, visa.StartedAt)

	assert.Equal(t, models.StepPending, p.Step(models.StepTravelPreparation).Status)
}

func TestApplyStepUpdateSameStatusIsNoOp(t *testing.T) {
	now := time.Now().UTC()
	p := newTestProcedure(now)

	changed, err := applyStepUpdate(p, models.StepAdmissionRequest, models.StepInProgress, "", now)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestApplyStepUpdateTerminalStepImmutable(t *testing.T) {
	now := time.Now().UTC()
	p := newTestProcedure(now)
	_, err := applyStepUpdate(p, models.StepAdmissionRequest, models.StepCompleted, "", now)
	require.NoError(t, err)

	_, err = applyStepUpdate(p, models.StepAdmissionRequest, models.StepInProgress, "", now)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStateConflict.Code, appErrors.FromError(err).Code)
}

func TestApplyStepUpdateEnforcesOrdering(t *testing.T) {
	now := time.Now().UTC()
	p := newTestProcedure(now)

	// The visa request cannot start while the admission request is open.
	_, err := applyStepUpdate(p, models.StepVisaRequest, models.StepInProgress, "", now)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStateConflict.Code, appErrors.FromError(err).Code)

	_, err = applyStepUpdate(p, models.StepTravelPreparation, models.StepCompleted, "", now)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStateConflict.Code, appErrors.FromError(err).Code)
}

func TestApplyStepUpdateRejectionRequiresReason(t *testing.T) {
	now := time.Now().UTC()
	p := newTestProcedure(now)

	_, err := applyStepUpdate(p, models.StepAdmissionRequest, models.StepRejected, "no", now)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	changed, err := applyStepUpdate(p, models.StepAdmissionRequest, models.StepRejected, "documents incomplets", now)
	require.NoError(t, err)
	assert.True(t, changed)
}

func TestApplyStepUpdateUnknownStep(t *testing.T) {
	now := time.Now().UTC()
	p := newTestProcedure(now)

	_, err := applyStepUpdate(p, models.StepName("SOMETHING_ELSE"), models.StepCompleted, "", now)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestAdmissionRejectionCascadesToAllSteps(t *testing.T) {
	now := time.Now().UTC()
	p := newTestProcedure(now)

	changed, err := applyStepUpdate(p, models.StepAdmissionRequest, models.StepRejected, "dossier refusé par l'université", now)
	require.NoError(t, err)
	assert.True(t, changed)

	for _, name := range models.StepOrder {
		step := p.Step(name)
		assert.Equal(t, models.StepRejected, step.Status, string(name))
		require.NotNil(t, step.FinishedAt, string(name))
		require.NotNil(t, step.Reason, string(name))
		assert.Equal(t, "dossier refusé par l'université", *step.Reason)
	}

	deriveProcedureStatus(p, now)
	assert.Equal(t, models.ProcedureRejected, p.Status)
	require.NotNil(t, p.Reason)
	assert.Equal(t, "dossier refusé par l'université", *p.Reason)
}

func TestVisaRejectionCascadesToTravelOnly(t *testing.T) {
	now := time.Now().UTC()
	p := newTestProcedure(now)
	_, err := applyStepUpdate(p, models.StepAdmissionRequest, models.StepCompleted, "", now)
	require.NoError(t, err)

	_, err = applyStepUpdate(p, models.StepVisaRequest, models.StepRejected, "visa refusé par le consulat", now)
	require.NoError(t, err)

	assert.Equal(t, models.StepCompleted, p.Step(models.StepAdmissionRequest).Status)
	assert.Equal(t, models.StepRejected, p.Step(models.StepVisaRequest).Status)
	assert.Equal(t, models.StepRejected, p.Step(models.StepTravelPreparation).Status)

	deriveProcedureStatus(p, now)
	assert.Equal(t, models.ProcedureRejected, p.Status)
}

func TestFullWorkflowCompletion(t *testing.T) {
	now := time.Now().UTC()
	p := newTestProcedure(now)

	for _, name := range models.StepOrder {
		_, err := applyStepUpdate(p, name, models.StepCompleted, "", now)
		require.NoError(t, err, string(name))
	}

	deriveProcedureStatus(p, now)
	assert.Equal(t, models.ProcedureCompleted, p.Status)
	require.NotNil(t, p.CompletedAt)
}

func TestDeriveProcedureStatusIdempotent(t *testing.T) {
	now := time.Now().UTC()
	p := newTestProcedure(now)
	_, err := applyStepUpdate(p, models.StepAdmissionRequest, models.StepRejected, "motif suffisant", now)
	require.NoError(t, err)

	deriveProcedureStatus(p, now)
	first := *p
	firstSteps := make([]models.ProcedureStep, len(p.Steps))
	copy(firstSteps, p.Steps)

	deriveProcedureStatus(p, now.Add(time.Hour))
	assert.Equal(t, first.Status, p.Status)
	assert.Equal(t, first.Reason, p.Reason)
	assert.Equal(t, firstSteps, p.Steps)
}

func TestDeriveProcedureStatusAdmissionDominates(t *testing.T) {
	now := time.Now().UTC()
	p := newTestProcedure(now)

	// Force an inconsistent snapshot: admission rejected but a later step
	// still open. Deriving must repair the propagation.
	admission := p.Step(models.StepAdmissionRequest)
	reason := "admission refusée"
	admission.Status = models.StepRejected
	admission.Reason = &reason

	deriveProcedureStatus(p, now)

	assert.Equal(t, models.ProcedureRejected, p.Status)
	assert.Equal(t, models.StepRejected, p.Step(models.StepVisaRequest).Status)
	assert.Equal(t, models.StepRejected, p.Step(models.StepTravelPreparation).Status)
}

func TestDeriveProcedureStatusInProgress(t *testing.T) {
	now := time.Now().UTC()
	p := newTestProcedure(now)
	_, err := applyStepUpdate(p, models.StepAdmissionRequest, models.StepCompleted, "", now)
	require.NoError(t, err)

	deriveProcedureStatus(p, now)
	assert.Equal(t, models.ProcedureInProgress, p.Status)
	assert.Nil(t, p.CompletedAt)
}

func TestSetStepStatusKeepsExistingReason(t *testing.T) {
	now := time.Now().UTC()
	existing := "raison d'origine"
	step := &models.ProcedureStep{Name: models.StepVisaRequest, Status: models.StepInProgress, Reason: &existing}

	setStepStatus(step, models.StepCancelled, "raison en cascade", now)

	assert.Equal(t, models.StepCancelled, step.Status)
	assert.Equal(t, "raison d'origine", *step.Reason)
}
