package service

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-intake/internal/events"
)

// EventStream is the external sink ticket events are relayed to.
type EventStream interface {
	Enabled() bool
	AppendEvent(ctx context.Context, values map[string]any) (string, error)
}

// NotificationService relays ticket events to an event stream. Handlers only
// enqueue, so a slow or unreachable stream never delays ticket creation.
type NotificationService struct {
	dispatcher events.Dispatcher
	stream     EventStream
	logger     *zap.Logger
	queue      chan events.Event
}

const notificationQueueSize = 256

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, stream EventStream, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		stream:     stream,
		logger:     logger,
		queue:      make(chan events.Event, notificationQueueSize),
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.enqueue)
	n.dispatcher.Subscribe(events.EventTicketDeleteRequested, n.enqueue)
}

func (n *NotificationService) enqueue(_ context.Context, event events.Event) error {
	select {
	case n.queue <- event:
	default:
		n.logger.Warn("notification queue full; dropping event",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.Int64("ticket_id", event.TicketID))
	}
	return nil
}

// Run drains queued events until ctx is done, then flushes what is left.
func (n *NotificationService) Run(ctx context.Context) {
	for {
		select {
		case event := <-n.queue:
			n.deliver(ctx, event)
		case <-ctx.Done():
			n.drain()
			return
		}
	}
}

func (n *NotificationService) drain() {
	for {
		select {
		case event := <-n.queue:
			n.deliver(context.Background(), event)
		default:
			return
		}
	}
}

func (n *NotificationService) deliver(ctx context.Context, event events.Event) {
	if n.stream == nil || !n.stream.Enabled() {
		n.logger.Debug("event stream disabled",
			zap.String("event_type", string(event.Type)),
			zap.Int64("ticket_id", event.TicketID))
		return
	}

	payload, err := json.Marshal(event.Payload)
	if err != nil {
		n.logger.Error("encode event payload", zap.String("event_id", event.ID), zap.Error(err))
		return
	}
	streamID, err := n.stream.AppendEvent(ctx, map[string]any{
		"event_id":  event.ID,
		"type":      string(event.Type),
		"ticket_id": event.TicketID,
		"timestamp": event.Timestamp.Format("2006-01-02T15:04:05.000Z07:00"),
		"payload":   string(payload),
	})
	if err != nil {
		n.logger.Warn("relay event", zap.String("event_id", event.ID), zap.Error(err))
		return
	}
	n.logger.Debug("event relayed", zap.String("event_id", event.ID), zap.String("stream_id", streamID))
}
