package repository

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/natefinch/atomic"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-intake/internal/domain"
	"github.com/spec-kit/ticket-intake/internal/observability"
	apperrors "github.com/spec-kit/ticket-intake/pkg/util/errorutil"
)

// csvLedger stores tickets as RFC 4180 rows in a single file. Free-text fields
// containing commas, quotes or newlines are quoted and round-trip unchanged.
type csvLedger struct {
	path    string
	logger  *zap.Logger
	metrics *observability.Metrics

	// rw keeps a scan from observing a half-written row.
	rw sync.RWMutex
}

// NewCSVLedger returns a file-backed ledger at path.
func NewCSVLedger(path string, logger *zap.Logger, metrics *observability.Metrics) Ledger {
	return &csvLedger{path: path, logger: logger, metrics: metrics}
}

func (l *csvLedger) Init(ctx context.Context) error {
	l.rw.Lock()
	defer l.rw.Unlock()

	info, err := os.Stat(l.path)
	switch {
	case errors.Is(err, fs.ErrNotExist) || (err == nil && info.Size() == 0):
		return l.writeHeader()
	case err != nil:
		return apperrors.NewStorageError("init", err)
	}

	f, err := os.Open(l.path)
	if err != nil {
		return apperrors.NewStorageError("init", err)
	}
	defer f.Close()

	header, err := csv.NewReader(f).Read()
	if err != nil {
		return apperrors.NewStorageError("init", fmt.Errorf("read header: %w", err))
	}
	if !slices.Equal(header, LedgerHeader) {
		return apperrors.NewStorageError("init", fmt.Errorf("unexpected header %v in %s", header, l.path))
	}
	return nil
}

func (l *csvLedger) writeHeader() error {
	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return apperrors.NewStorageError("init", err)
		}
	}
	data, err := encodeRecord(LedgerHeader)
	if err != nil {
		return apperrors.NewStorageError("init", err)
	}
	if err := atomic.WriteFile(l.path, bytes.NewReader(data)); err != nil {
		return apperrors.NewStorageError("init", err)
	}
	l.logger.Info("ledger initialized", zap.String("path", l.path))
	return nil
}

func (l *csvLedger) Append(ctx context.Context, ticket *domain.Ticket) error {
	data, err := encodeRecord(encodeRow(ticket))
	if err != nil {
		return apperrors.NewStorageError("append", err)
	}

	l.rw.Lock()
	defer l.rw.Unlock()

	// No O_CREATE: appending to a ledger that was never initialized would lose the header.
	f, err := os.OpenFile(l.path, os.O_WRONLY|os.O_APPEND, 0)
	if err != nil {
		return apperrors.NewStorageError("append", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return apperrors.NewStorageError("append", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return apperrors.NewStorageError("append", err)
	}
	if err := f.Close(); err != nil {
		return apperrors.NewStorageError("append", err)
	}
	return nil
}

func (l *csvLedger) Scan(ctx context.Context) ([]domain.Ticket, error) {
	tickets := []domain.Ticket{}
	err := l.readRows(ctx,
		func(line int, record []string) {
			ticket, err := decodeRow(record)
			if err != nil {
				l.skip(line, err)
				return
			}
			tickets = append(tickets, ticket)
		},
		func(line int, _ []byte, err error) { l.skip(line, err) },
	)
	if err != nil {
		return nil, err
	}
	return tickets, nil
}

// MaxID reads only the id column. Rows with a usable id count even when
// the rest of the row is invalid or its quoting is broken.
func (l *csvLedger) MaxID(ctx context.Context) (int64, error) {
	var maxID int64
	keep := func(raw string) {
		if id, err := parseID(raw); err == nil && id > maxID {
			maxID = id
		}
	}
	err := l.readRows(ctx,
		func(_ int, record []string) { keep(record[0]) },
		func(_ int, raw []byte, _ error) {
			if i := bytes.IndexByte(raw, ','); i >= 0 {
				keep(string(raw[:i]))
			}
		},
	)
	if err != nil {
		return 0, err
	}
	return maxID, nil
}

// readRows passes every data row after the header to row. A row the CSV
// reader rejects goes to bad with its first physical line, and reading
// resumes on the line after it. An unterminated quote therefore costs one
// line rather than the rest of the file.
func (l *csvLedger) readRows(ctx context.Context, row func(line int, record []string), bad func(line int, raw []byte, err error)) error {
	l.rw.RLock()
	data, err := os.ReadFile(l.path)
	l.rw.RUnlock()
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return apperrors.NewStorageError("scan", err)
	}

	first := true
	baseLine := 0
	for len(data) > 0 {
		reader := csv.NewReader(bytes.NewReader(data))
		reader.FieldsPerRecord = -1
		resumed := false
		for !resumed {
			if err := ctx.Err(); err != nil {
				return err
			}
			record, err := reader.Read()
			if errors.Is(err, io.EOF) {
				return nil
			}
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				first = false
				rest := data[lineStart(data, parseErr.StartLine):]
				raw := rest
				if i := bytes.IndexByte(rest, '\n'); i >= 0 {
					raw = rest[:i]
				}
				bad(baseLine+parseErr.StartLine, raw, err)
				data = rest[len(raw):]
				if len(data) > 0 {
					data = data[1:]
				}
				baseLine += parseErr.StartLine
				resumed = true
				continue
			}
			if err != nil {
				return apperrors.NewStorageError("scan", err)
			}
			line, _ := reader.FieldPos(0)
			if first {
				first = false
				if slices.Equal(record, LedgerHeader) {
					continue
				}
			}
			row(baseLine+line, record)
		}
	}
	return nil
}

// lineStart returns the byte offset of the 1-based physical line n.
func lineStart(data []byte, n int) int {
	pos := 0
	for i := 1; i < n; i++ {
		next := bytes.IndexByte(data[pos:], '\n')
		if next < 0 {
			return len(data)
		}
		pos += next + 1
	}
	return pos
}

func (l *csvLedger) skip(line int, cause error) {
	l.metrics.RecordSkippedRow()
	l.logger.Warn("skipping malformed ledger row",
		zap.String("path", l.path),
		zap.Int("line", line),
		zap.Error(apperrors.NewValidationError(cause.Error(), map[string]any{"line": line})),
	)
}

func encodeRecord(record []string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(record); err != nil {
		return nil, err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
