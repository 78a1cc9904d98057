package dto

// CreateProcedureRequest opens a workflow from a completed appointment.
type CreateProcedureRequest struct {
	AppointmentID string `json:"appointment_id" validate:"required,uuid4"`
}

// UpdateStepRequest changes the status of one workflow step.
type UpdateStepRequest struct {
	Status string `json:"status" validate:"required"`
	Reason string `json:"reason" validate:"omitempty,max=500"`
}

// RejectProcedureRequest rejects the whole workflow with a mandatory reason.
type RejectProcedureRequest struct {
	Reason string `json:"reason" validate:"required,min=5,max=500"`
}

// CancelProcedureRequest cancels the workflow with an optional reason.
type CancelProcedureRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=500"`
}

// ProcedureListFilter carries the query-string filters of a listing call.
type ProcedureListFilter struct {
	Status   string
	Email    string
	Search   string
	Page     int
	PageSize int
}
