package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-intake/internal/domain"
	"github.com/spec-kit/ticket-intake/internal/observability"
	"github.com/spec-kit/ticket-intake/internal/persistence"
	apperrors "github.com/spec-kit/ticket-intake/pkg/util/errorutil"
)

// postgresLedger keeps tickets in an insert-only table; a trigger rejects UPDATE and DELETE.
// Stored order is the seq column, not the ticket id.
type postgresLedger struct {
	pool    *pgxpool.Pool
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewPostgresLedger instantiates a ledger over an existing pool.
func NewPostgresLedger(pool *pgxpool.Pool, logger *zap.Logger, metrics *observability.Metrics) Ledger {
	return &postgresLedger{pool: pool, logger: logger, metrics: metrics}
}

func (l *postgresLedger) Init(ctx context.Context) error {
	if err := persistence.RunMigrations(ctx, l.pool, l.logger); err != nil {
		return apperrors.NewStorageError("init", err)
	}
	return nil
}

func (l *postgresLedger) Append(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets_ledger (id, subject, description, email, department, techgroup, category, subcategory, priority)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`
	_, err := l.pool.Exec(ctx, query,
		ticket.ID,
		ticket.Subject,
		ticket.Description,
		ticket.Email,
		ticket.Department,
		ticket.TechGroup,
		ticket.Category,
		ticket.Subcategory,
		ticket.Priority,
	)
	if err != nil {
		return apperrors.NewStorageError("append", err)
	}
	return nil
}

func (l *postgresLedger) Scan(ctx context.Context) ([]domain.Ticket, error) {
	const query = `
        SELECT seq, id, subject, description, email, department, techgroup, category, subcategory, priority
        FROM tickets_ledger
        ORDER BY seq`
	rows, err := l.pool.Query(ctx, query)
	if err != nil {
		return nil, apperrors.NewStorageError("scan", err)
	}
	defer rows.Close()

	tickets := []domain.Ticket{}
	for rows.Next() {
		var (
			seq int64
			t   domain.Ticket
		)
		if err := rows.Scan(
			&seq,
			&t.ID,
			&t.Subject,
			&t.Description,
			&t.Email,
			&t.Department,
			&t.TechGroup,
			&t.Category,
			&t.Subcategory,
			&t.Priority,
		); err != nil {
			return nil, apperrors.NewStorageError("scan", err)
		}
		if err := validateStored(&t); err != nil {
			l.metrics.RecordSkippedRow()
			l.logger.Warn("skipping malformed ledger row",
				zap.Int64("seq", seq),
				zap.Error(apperrors.NewValidationError(err.Error(), map[string]any{"seq": seq})),
			)
			continue
		}
		tickets = append(tickets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageError("scan", err)
	}
	return tickets, nil
}

func (l *postgresLedger) MaxID(ctx context.Context) (int64, error) {
	var maxID int64
	if err := l.pool.QueryRow(ctx, `SELECT COALESCE(MAX(id), 0) FROM tickets_ledger`).Scan(&maxID); err != nil {
		return 0, apperrors.NewStorageError("max id", err)
	}
	return maxID, nil
}
