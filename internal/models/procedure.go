package models

import "time"

// StepName identifies one of the three fixed admission workflow steps.
type StepName string

const (
	StepAdmissionRequest  StepName = "ADMISSION_REQUEST"
	StepVisaRequest       StepName = "VISA_REQUEST"
	StepTravelPreparation StepName = "TRAVEL_PREPARATION"
)

// StepOrder is the fixed sequential order of the workflow steps.
var StepOrder = []StepName{StepAdmissionRequest, StepVisaRequest, StepTravelPreparation}

// Position returns the zero-based position of the step, or -1 when unknown.
func (n StepName) Position() int {
	for i, name := range StepOrder {
		if name == n {
			return i
		}
	}
	return -1
}

// Valid reports whether the step name is one of the three known steps.
func (n StepName) Valid() bool {
	return n.Position() >= 0
}

// Predecessor returns the step that must be completed before this one.
func (n StepName) Predecessor() (StepName, bool) {
	pos := n.Position()
	if pos <= 0 {
		return "", false
	}
	return StepOrder[pos-1], true
}

// Next returns the step that follows this one in the sequence.
func (n StepName) Next() (StepName, bool) {
	pos := n.Position()
	if pos < 0 || pos >= len(StepOrder)-1 {
		return "", false
	}
	return StepOrder[pos+1], true
}

// StepStatus tracks a single workflow step.
type StepStatus string

const (
	StepPending    StepStatus = "PENDING"
	StepInProgress StepStatus = "IN_PROGRESS"
	StepCompleted  StepStatus = "COMPLETED"
	StepRejected   StepStatus = "REJECTED"
	StepCancelled  StepStatus = "CANCELLED"
)

// Valid reports whether the status is a known enum value.
func (s StepStatus) Valid() bool {
	switch s {
	case StepPending, StepInProgress, StepCompleted, StepRejected, StepCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether the step can no longer change status.
func (s StepStatus) IsTerminal() bool {
	return s == StepCompleted || s == StepRejected || s == StepCancelled
}

// ProcedureStatus is the derived status of the whole workflow.
type ProcedureStatus string

const (
	ProcedureInProgress ProcedureStatus = "IN_PROGRESS"
	ProcedureCompleted  ProcedureStatus = "COMPLETED"
	ProcedureRejected   ProcedureStatus = "REJECTED"
	ProcedureCancelled  ProcedureStatus = "CANCELLED"
)

// Finalized reports whether the procedure reached a terminal status.
func (s ProcedureStatus) Finalized() bool {
	return s == ProcedureCompleted || s == ProcedureRejected || s == ProcedureCancelled
}

// ProcedureStep is one step of a client's admission workflow. Steps only
// exist embedded in their parent procedure.
type ProcedureStep struct {
	ID          string     `db:"id" json:"id"`
	ProcedureID string     `db:"procedure_id" json:"-"`
	Name        StepName   `db:"name" json:"name"`
	Position    int        `db:"position" json:"position"`
	Status      StepStatus `db:"status" json:"status"`
	Reason      *string    `db:"reason" json:"reason,omitempty"`
	StartedAt   *time.Time `db:"started_at" json:"started_at,omitempty"`
	FinishedAt  *time.Time `db:"finished_at" json:"finished_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// Procedure is the three-step admission workflow opened for a client after
// a favourable completed appointment.
type Procedure struct {
	ID             string          `db:"id" json:"id"`
	AppointmentID  string          `db:"appointment_id" json:"appointment_id"`
	FirstName      string          `db:"first_name" json:"first_name"`
	LastName       string          `db:"last_name" json:"last_name"`
	Email          string          `db:"email" json:"email"`
	Phone          string          `db:"phone" json:"phone"`
	Destination    Destination     `db:"destination" json:"destination"`
	StudyField     StudyField      `db:"study_field" json:"study_field"`
	EducationLevel EducationLevel  `db:"education_level" json:"education_level"`
	Status         ProcedureStatus `db:"status" json:"status"`
	Reason         *string         `db:"reason" json:"reason,omitempty"`
	CancelledAt    *time.Time      `db:"cancelled_at" json:"cancelled_at,omitempty"`
	CancelledBy    *CancelActor    `db:"cancelled_by" json:"cancelled_by,omitempty"`
	CompletedAt    *time.Time      `db:"completed_at" json:"completed_at,omitempty"`
	DeletedAt      *time.Time      `db:"deleted_at" json:"deleted_at,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`

	Steps []ProcedureStep `db:"-" json:"steps"`
}

// Step returns the embedded step with the given name, or nil.
func (p *Procedure) Step(name StepName) *ProcedureStep {
	for i := range p.Steps {
		if p.Steps[i].Name == name {
			return &p.Steps[i]
		}
	}
	return nil
}

// OwnedBy reports whether the procedure belongs to the given client email.
func (p *Procedure) OwnedBy(email string) bool {
	return p.Email != "" && p.Email == email
}

// ProcedureFilter constrains listing queries.
type ProcedureFilter struct {
	Statuses []ProcedureStatus
	Email    string
	Search   string
	Page     int
	PageSize int
}
