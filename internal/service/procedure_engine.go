package service

import (
	"strings"
	"time"

	"github.com/horizon-etudes/backoffice-api/internal/models"
	appErrors "github.com/horizon-etudes/backoffice-api/pkg/errors"
)

// The step engine is a set of pure helpers operating on an in-memory
// procedure. Callers apply an update, derive the overall status, then
// persist procedure plus steps in one transaction, so a failed rule or a
// partial cascade never reaches the database.

// newProcedureSteps builds the fixed three-step sequence for a fresh
// procedure: the admission request starts immediately, the rest wait.
func newProcedureSteps(now time.Time) []models.ProcedureStep {
	steps := make([]models.ProcedureStep, 0, len(models.StepOrder))
	for i, name := range models.StepOrder {
		step := models.ProcedureStep{
			Name:     name,
			Position: i,
			Status:   models.StepPending,
		}
		if name == models.StepAdmissionRequest {
			step.Status = models.StepInProgress
			startedAt := now
			step.StartedAt = &startedAt
		}
		steps = append(steps, step)
	}
	return steps
}

// applyStepUpdate moves one step to the target status, running the
// ordering rule, the terminal-immutability rule, the rejection-reason rule,
// the cascades and the auto-advance. It reports whether anything changed:
// re-confirming a step's current status is an accepted no-op.
func applyStepUpdate(procedure *models.Procedure, name models.StepName, target models.StepStatus, reason string, now time.Time) (bool, error) {
	step := procedure.Step(name)
	if step == nil {
		return false, appErrors.Clone(appErrors.ErrNotFound, "unknown procedure step")
	}
	if !target.Valid() {
		return false, appErrors.Clone(appErrors.ErrValidation, "unknown step status")
	}

	if step.Status == target {
		return false, nil
	}
	if step.Status.IsTerminal() {
		return false, appErrors.Clone(appErrors.ErrStateConflict, "a completed, rejected or cancelled step can no longer change")
	}

	reason = strings.TrimSpace(reason)
	if target == models.StepRejected && len(reason) < 5 {
		return false, appErrors.Clone(appErrors.ErrValidation, "rejecting a step requires a reason of at least 5 characters")
	}

	if target == models.StepInProgress || target == models.StepCompleted {
		if predecessor, ok := name.Predecessor(); ok {
			if prev := procedure.Step(predecessor); prev != nil && prev.Status != models.StepCompleted {
				return false, appErrors.Clone(appErrors.ErrStateConflict, "the previous step must be completed first")
			}
		}
	}

	setStepStatus(step, target, reason, now)

	switch {
	case name == models.StepAdmissionRequest && (target == models.StepRejected || target == models.StepCancelled):
		cascadeStatus(procedure, name, target, reason, now)
	case name == models.StepVisaRequest && (target == models.StepRejected || target == models.StepCancelled):
		if travel := procedure.Step(models.StepTravelPreparation); travel != nil && !travel.Status.IsTerminal() {
			setStepStatus(travel, target, reason, now)
		}
	case target == models.StepCompleted:
		if nextName, ok := name.Next(); ok {
			if next := procedure.Step(nextName); next != nil && next.Status == models.StepPending {
				setStepStatus(next, models.StepInProgress, "", now)
			}
		}
	}

	return true, nil
}

// cascadeStatus propagates a terminal status from one step to every other
// non-terminal step, carrying the reason onto steps that lack their own.
func cascadeStatus(procedure *models.Procedure, origin models.StepName, status models.StepStatus, reason string, now time.Time) {
	for i := range procedure.Steps {
		step := &procedure.Steps[i]
		if step.Name == origin || step.Status.IsTerminal() {
			continue
		}
		setStepStatus(step, status, reason, now)
	}
}

// deriveProcedureStatus recomputes the overall status from the steps. It
// is idempotent: running it twice without step changes yields the same
// result. The admission request dominates: its rejection or cancellation
// forces the whole workflow into that state.
func deriveProcedureStatus(procedure *models.Procedure, now time.Time) {
	admission := procedure.Step(models.StepAdmissionRequest)
	if admission != nil && (admission.Status == models.StepRejected || admission.Status == models.StepCancelled) {
		reason := ""
		if admission.Reason != nil {
			reason = *admission.Reason
		}
		for i := range procedure.Steps {
			step := &procedure.Steps[i]
			if step.Status == admission.Status {
				continue
			}
			setStepStatus(step, admission.Status, reason, now)
		}
		if admission.Status == models.StepRejected {
			procedure.Status = models.ProcedureRejected
			procedure.Reason = admission.Reason
		} else {
			procedure.Status = models.ProcedureCancelled
		}
		return
	}

	allCompleted := true
	for i := range procedure.Steps {
		step := &procedure.Steps[i]
		switch step.Status {
		case models.StepRejected:
			procedure.Status = models.ProcedureRejected
			procedure.Reason = step.Reason
			return
		case models.StepCancelled:
			procedure.Status = models.ProcedureCancelled
			return
		case models.StepCompleted:
		default:
			allCompleted = false
		}
	}

	if allCompleted {
		procedure.Status = models.ProcedureCompleted
		if procedure.CompletedAt == nil {
			completedAt := now
			procedure.CompletedAt = &completedAt
		}
		return
	}
	procedure.Status = models.ProcedureInProgress
}

// setStepStatus applies a status to a step with the matching timestamps.
// An existing reason is never overwritten by a cascaded one.
func setStepStatus(step *models.ProcedureStep, status models.StepStatus, reason string, now time.Time) {
	step.Status = status
	switch status {
	case models.StepInProgress:
		if step.StartedAt == nil {
			startedAt := now
			step.StartedAt = &startedAt
		}
	case models.StepCompleted, models.StepRejected, models.StepCancelled:
		if step.FinishedAt == nil {
			finishedAt := now
			step.FinishedAt = &finishedAt
		}
	}
	if reason != "" && step.Reason == nil && (status == models.StepRejected || status == models.StepCancelled) {
		step.Reason = &reason
	}
}
