package repository

import (
	"context"

	apperrors "github.com/spec-kit/ticket-intake/pkg/util/errorutil"
)

// IDAllocator derives the next ticket id from the ledger contents.
//
// NextID is only safe when its result is appended before any other caller
// runs NextID again; TicketService enforces that with its create lock.
// Every stored id counts, even on rows List skips, so an id is never
// handed out twice.
type IDAllocator struct {
	ledger Ledger
}

// NewIDAllocator constructs an allocator over ledger.
func NewIDAllocator(ledger Ledger) *IDAllocator {
	return &IDAllocator{ledger: ledger}
}

// NextID returns max(existing ids)+1, or 1 for an empty ledger.
func (a *IDAllocator) NextID(ctx context.Context) (int64, error) {
	maxID, err := a.ledger.MaxID(ctx)
	if err != nil {
		return 0, apperrors.NewAllocationError(err)
	}
	return maxID + 1, nil
}
