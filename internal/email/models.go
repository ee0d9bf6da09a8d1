package email

// SendEmailRequest is a plain text email to one recipient
type SendEmailRequest struct {
	FromAddress string `json:"from_address" validate:"omitempty"`
	ToAddress   string `json:"to_address" validate:"required,email"`
	Subject     string `json:"subject" validate:"required"`
	Text        string `json:"text" validate:"required"`
}

// SendEmailResponse represents the response from sending an email
type SendEmailResponse struct {
	MessageID string
	Success   bool
	Error     string
}
