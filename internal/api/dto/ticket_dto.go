package dto

// CreateTicketRequest payload. Accepted as JSON or form fields.
type CreateTicketRequest struct {
	Subject     string `json:"subject" form:"subject"`
	Description string `json:"description" form:"description"`
	Email       string `json:"email" form:"email"`
}

// TicketResponse is a stored ticket with its tags. Unknown tags render as null.
type TicketResponse struct {
	ID          int64   `json:"id"`
	Subject     string  `json:"subject"`
	Description string  `json:"description"`
	Email       string  `json:"email"`
	Department  *string `json:"department"`
	TechGroup   *string `json:"techgroup"`
	Category    *string `json:"category"`
	Subcategory *string `json:"subcategory"`
	Priority    *string `json:"priority"`
}

// DeleteTicketResponse acknowledges a delete request.
type DeleteTicketResponse struct {
	ID       int64  `json:"id"`
	Retained bool   `json:"retained"`
	Message  string `json:"message"`
}
