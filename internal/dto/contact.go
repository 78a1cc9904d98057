package dto

// CreateContactMessageRequest is the public contact form payload.
type CreateContactMessageRequest struct {
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"required,max=100"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone" validate:"omitempty,max=30"`
	Subject   string `json:"subject" validate:"required,max=200"`
	Message   string `json:"message" validate:"required,min=10,max=5000"`
}

// UpdateContactStatusRequest moves a message through its handling states.
type UpdateContactStatusRequest struct {
	Status string `json:"status" validate:"required"`
}
