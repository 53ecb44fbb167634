package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spec-kit/ticket-intake/internal/domain"
)

// LedgerHeader is the fixed column layout of every ledger backend.
var LedgerHeader = []string{
	"id", "subject", "description", "email",
	"department", "techgroup", "category", "subcategory", "priority",
}

// Ledger is the append-only ticket store. It never updates or deletes a record.
type Ledger interface {
	// Init ensures the storage exists with the expected header. Safe to call repeatedly.
	Init(ctx context.Context) error
	// Append writes one ticket after all previously appended ones. It does not check id uniqueness.
	Append(ctx context.Context, ticket *domain.Ticket) error
	// Scan returns every well-formed ticket in stored order, skipping malformed rows.
	Scan(ctx context.Context) ([]domain.Ticket, error)
	// MaxID returns the largest id stored in any row, including rows Scan skips
	// for other defects. It returns 0 for an empty ledger.
	MaxID(ctx context.Context) (int64, error)
}

var (
	errColumnCount  = errors.New("unexpected column count")
	errMissingID    = errors.New("missing id")
	errMissingField = errors.New("missing required field")
)

// encodeRow renders a ticket in LedgerHeader order. Unknown tags become empty cells.
func encodeRow(t *domain.Ticket) []string {
	row := []string{
		strconv.FormatInt(t.ID, 10),
		t.Subject,
		t.Description,
		t.Email,
	}
	for _, key := range domain.TagKeys {
		if v := t.Tags.Value(key); v != nil {
			row = append(row, *v)
		} else {
			row = append(row, "")
		}
	}
	return row
}

// decodeRow parses a row in LedgerHeader order and rejects incomplete ones.
func decodeRow(row []string) (domain.Ticket, error) {
	if len(row) != len(LedgerHeader) {
		return domain.Ticket{}, fmt.Errorf("%w: got %d want %d", errColumnCount, len(row), len(LedgerHeader))
	}
	id, err := parseID(row[0])
	if err != nil {
		return domain.Ticket{}, err
	}

	ticket := domain.Ticket{
		ID:          id,
		Subject:     row[1],
		Description: row[2],
		Email:       row[3],
	}
	if err := validateStored(&ticket); err != nil {
		return domain.Ticket{}, err
	}
	for i, key := range domain.TagKeys {
		ticket.Tags.Set(key, optional(row[4+i]))
	}
	return ticket, nil
}

// parseID accepts a positive decimal id, ignoring surrounding spaces.
func parseID(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, errMissingID
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

func validateStored(t *domain.Ticket) error {
	switch {
	case t.ID <= 0:
		return errMissingID
	case t.Subject == "":
		return fmt.Errorf("%w: subject", errMissingField)
	case t.Description == "":
		return fmt.Errorf("%w: description", errMissingField)
	case t.Email == "":
		return fmt.Errorf("%w: email", errMissingField)
	}
	return nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
