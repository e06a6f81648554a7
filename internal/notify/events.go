package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"shortly/internal/entities"
	"shortly/internal/logger"
	"shortly/internal/models"
	"shortly/internal/service"
)

const defaultPublishTimeout = 2 * time.Second

// EventSink accepts encoded lifecycle events
type EventSink interface {
	Publish(ctx context.Context, event models.Event) error
}

// Events turns notifier calls into models.Event values for a sink. A failed
// publish is logged and otherwise ignored.
type Events struct {
	sink    EventSink
	timeout time.Duration
	now     func() time.Time
	log     *zap.SugaredLogger
}

var _ service.Notifier = (*Events)(nil)

// NewEvents wraps sink. A nil log uses the global logger.
func NewEvents(sink EventSink, log *zap.SugaredLogger) *Events {
	if log == nil {
		log = logger.Named("events")
	}
	return &Events{
		sink:    sink,
		timeout: defaultPublishTimeout,
		now:     time.Now,
		log:     log,
	}
}

func (e *Events) emit(event models.Event) {
	event.At = e.now()

	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()

	if err := e.sink.Publish(ctx, event); err != nil {
		e.log.Warnw("Failed to publish event",
			"type", string(event.Type),
			logger.FieldCode, event.ShortCode,
			logger.FieldError, err)
	}
}

func snapshot(link *entities.Link) *models.LinkStats {
	s := link.Snapshot()
	return &s
}

func (e *Events) LinkCreated(code, shortURL string, limit int, ttlHours int64) {
	e.emit(models.Event{
		Type:       models.EventLinkCreated,
		ShortCode:  code,
		ShortURL:   shortURL,
		ClickLimit: limit,
		TTLHours:   ttlHours,
	})
}

func (e *Events) LinkNotFound(code string) {
	e.emit(models.Event{Type: models.EventLinkNotFound, ShortCode: code})
}

func (e *Events) LinkExpired(link *entities.Link) {
	e.emit(models.Event{Type: models.EventLinkExpired, ShortCode: link.Code, Link: snapshot(link)})
}

func (e *Events) ClickLimitReached(link *entities.Link) {
	e.emit(models.Event{Type: models.EventClickLimitReached, ShortCode: link.Code, Link: snapshot(link)})
}

func (e *Events) LinkInactive(link *entities.Link, reason string) {
	e.emit(models.Event{
		Type:      models.EventLinkInactive,
		ShortCode: link.Code,
		Reason:    reason,
		Link:      snapshot(link),
	})
}

func (e *Events) AccessDenied(code string, requester uuid.UUID) {
	e.emit(models.Event{
		Type:      models.EventAccessDenied,
		ShortCode: code,
		Requester: requester.String(),
	})
}
