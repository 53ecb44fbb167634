package domain

// DeleteAck acknowledges a delete request. The ledger is append-only, so the ticket is always retained.
type DeleteAck struct {
	ID       int64
	Retained bool
}
