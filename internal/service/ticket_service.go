package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-intake/internal/domain"
	"github.com/spec-kit/ticket-intake/internal/events"
	"github.com/spec-kit/ticket-intake/internal/observability"
	"github.com/spec-kit/ticket-intake/internal/repository"
	apperrors "github.com/spec-kit/ticket-intake/pkg/util/errorutil"
)

// TagExtractor assigns tags to ticket text.
type TagExtractor interface {
	Extract(ctx context.Context, subject, description, email string) (domain.Tags, error)
}

// createState names the stages of a create request, for logging.
type createState string

const (
	stateReceived    createState = "received"
	stateTagged      createState = "tagged"
	stateIDAllocated createState = "id_allocated"
	statePersisted   createState = "persisted"
	stateFailed      createState = "failed"
)

// TicketService coordinates ticket intake.
//
// Tagging runs outside the create lock. Only id allocation and the append
// share the critical section, so ids are gap-free and appear in the ledger in
// increasing order, and a slow model call never blocks other creates.
type TicketService struct {
	ledger     repository.Ledger
	ids        *repository.IDAllocator
	tagger     TagExtractor
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics

	createMu sync.Mutex
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	Ledger     repository.Ledger
	Tagger     TagExtractor
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Metrics    *observability.Metrics
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Subject     string
	Description string
	Email       string
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		ledger:     deps.Ledger,
		ids:        repository.NewIDAllocator(deps.Ledger),
		tagger:     deps.Tagger,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		metrics:    deps.Metrics,
	}
}

// CreateTicket validates input, tags the ticket and appends it with the next id.
// Nothing is persisted unless every step succeeds. Fields are stored exactly as
// submitted; whitespace only matters for the emptiness check.
func (s *TicketService) CreateTicket(ctx context.Context, input TicketCreateInput) (*domain.Ticket, error) {
	if err := validateCreate(input); err != nil {
		return nil, err
	}

	log := s.logger.With(zap.String("email", input.Email))
	log.Debug("create ticket", zap.String("state", string(stateReceived)))

	tags, err := s.tagger.Extract(ctx, input.Subject, input.Description, input.Email)
	if err != nil {
		log.Warn("create ticket", zap.String("state", string(stateFailed)), zap.String("stage", string(stateTagged)), zap.Error(err))
		return nil, err
	}

	ticket, err := s.persist(ctx, input, tags, log)
	if err != nil {
		return nil, err
	}
	log.Info("ticket created", zap.Int64("ticket_id", ticket.ID), zap.String("state", string(statePersisted)))
	s.metrics.RecordTicketCreated()

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Payload: events.TicketCreatedPayload{
			Email:       ticket.Email,
			Subject:     ticket.Subject,
			Department:  ticket.Department,
			TechGroup:   ticket.TechGroup,
			Category:    ticket.Category,
			Subcategory: ticket.Subcategory,
			Priority:    ticket.Priority,
		},
	})
	return ticket, nil
}

// persist is the critical section: the allocated id must be consumed by the
// append before the lock is released. A failed append is not retried; the
// tags computed for the request are dropped with it.
func (s *TicketService) persist(ctx context.Context, input TicketCreateInput, tags domain.Tags, log *zap.Logger) (*domain.Ticket, error) {
	s.createMu.Lock()
	defer s.createMu.Unlock()

	id, err := s.ids.NextID(ctx)
	if err != nil {
		log.Error("create ticket", zap.String("state", string(stateFailed)), zap.String("stage", string(stateIDAllocated)), zap.Error(err))
		return nil, err
	}

	ticket := &domain.Ticket{
		ID:          id,
		Subject:     input.Subject,
		Description: input.Description,
		Email:       input.Email,
		Tags:        tags,
	}
	if err := s.ledger.Append(ctx, ticket); err != nil {
		log.Error("create ticket", zap.String("state", string(stateFailed)), zap.String("stage", string(statePersisted)),
			zap.Int64("reserved_id", id),
			zap.Any("dropped_tags", tagFields(tags)),
			zap.Error(err))
		return nil, err
	}
	return ticket, nil
}

// ListTickets returns every stored ticket in ledger order.
func (s *TicketService) ListTickets(ctx context.Context) ([]domain.Ticket, error) {
	return s.ledger.Scan(ctx)
}

// GetTicket finds a ticket by id with a full ledger scan.
func (s *TicketService) GetTicket(ctx context.Context, id int64) (*domain.Ticket, error) {
	tickets, err := s.ledger.Scan(ctx)
	if err != nil {
		return nil, err
	}
	for i := range tickets {
		if tickets[i].ID == id {
			return &tickets[i], nil
		}
	}
	return nil, apperrors.NewNotFound("ticket", map[string]any{"id": id})
}

// DeleteTicket acknowledges a delete for an existing ticket. The ledger is
// append-only, so the ticket stays readable afterwards.
func (s *TicketService) DeleteTicket(ctx context.Context, id int64) (*domain.DeleteAck, error) {
	if _, err := s.GetTicket(ctx, id); err != nil {
		return nil, err
	}
	s.logger.Info("delete acknowledged; ledger is append-only", zap.Int64("ticket_id", id))
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketDeleteRequested,
		TicketID: id,
		Payload:  events.TicketDeleteRequestedPayload{Retained: true},
	})
	return &domain.DeleteAck{ID: id, Retained: true}, nil
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handlers failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

func validateCreate(input TicketCreateInput) error {
	var missing []string
	if strings.TrimSpace(input.Subject) == "" {
		missing = append(missing, "subject")
	}
	if strings.TrimSpace(input.Description) == "" {
		missing = append(missing, "description")
	}
	if strings.TrimSpace(input.Email) == "" {
		missing = append(missing, "email")
	}
	if len(missing) > 0 {
		return apperrors.NewValidationError("subject, description, email required", map[string]any{"missing": missing})
	}
	return nil
}

func tagFields(tags domain.Tags) map[string]*string {
	out := make(map[string]*string, len(domain.TagKeys))
	for _, key := range domain.TagKeys {
		out[key] = tags.Value(key)
	}
	return out
}
