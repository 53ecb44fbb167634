package events

import (
	"time"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated         EventType = "ticket_created"
	EventTicketDeleteRequested EventType = "ticket_delete_requested"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  int64       `json:"ticket_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Email       string  `json:"email"`
	Subject     string  `json:"subject"`
	Department  *string `json:"department"`
	TechGroup   *string `json:"techgroup"`
	Category    *string `json:"category"`
	Subcategory *string `json:"subcategory"`
	Priority    *string `json:"priority"`
}

// TicketDeleteRequestedPayload records a delete that was acknowledged but not applied.
type TicketDeleteRequestedPayload struct {
	Retained bool `json:"retained"`
}
