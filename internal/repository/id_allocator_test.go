package repository

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-intake/internal/domain"
	apperrors "github.com/spec-kit/ticket-intake/pkg/util/errorutil"
)

type stubLedger struct {
	tickets []domain.Ticket
	err     error
}

func (l *stubLedger) Init(context.Context) error { return nil }

func (l *stubLedger) Append(_ context.Context, t *domain.Ticket) error {
	l.tickets = append(l.tickets, *t)
	return nil
}

func (l *stubLedger) Scan(context.Context) ([]domain.Ticket, error) {
	return l.tickets, l.err
}

func (l *stubLedger) MaxID(context.Context) (int64, error) {
	var maxID int64
	for _, t := range l.tickets {
		maxID = max(maxID, t.ID)
	}
	return maxID, l.err
}

func TestNextID(t *testing.T) {
	ctx := context.Background()

	t.Run("empty ledger starts at one", func(t *testing.T) {
		id, err := NewIDAllocator(&stubLedger{}).NextID(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), id)
	})

	t.Run("uses max id not row count", func(t *testing.T) {
		ledger := &stubLedger{tickets: []domain.Ticket{{ID: 4}, {ID: 9}, {ID: 2}}}
		id, err := NewIDAllocator(ledger).NextID(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(10), id)
	})

	t.Run("unreadable ledger is an allocation error", func(t *testing.T) {
		ledger := &stubLedger{err: apperrors.NewStorageError("scan", errors.New("disk gone"))}
		_, err := NewIDAllocator(ledger).NextID(ctx)
		require.Error(t, err)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeAllocation))
	})
}

func (s *CSVLedgerSuite) TestNextIDCountsRowsScanSkips() {
	rows := []string{
		"1,ok,desc,a@x.com,,,,,",
		"2,legacy,desc,,,,,,",
		"3,short row",
	}
	s.writeRaw(testHeader + strings.Join(rows, "\n") + "\n")

	tickets, err := s.ledger.Scan(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(tickets, 1)

	id, err := NewIDAllocator(s.ledger).NextID(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(4), id)
}

func (s *CSVLedgerSuite) TestNextIDCountsRowsWithBrokenQuoting() {
	rows := []string{
		"1,ok,desc,a@x.com,,,,,",
		`7,"bad quote,desc,a@x.com,,,,,`,
	}
	s.writeRaw(testHeader + strings.Join(rows, "\n") + "\n")

	id, err := NewIDAllocator(s.ledger).NextID(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(8), id)
}
