package notify

import (
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"shortly/internal/entities"
	"shortly/internal/errors"
	"shortly/internal/logger"
	"shortly/internal/service"
)

// call runs fn and converts a panic into an error
func call(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf("notifier panicked: %v", r)
		}
	}()
	fn()
	return nil
}

// Fanout delivers every event to each member in order. A member that panics
// does not stop the others; the combined failure is logged once.
type Fanout struct {
	members []service.Notifier
	log     *zap.SugaredLogger
}

var _ service.Notifier = (*Fanout)(nil)

// NewFanout skips nil members
func NewFanout(log *zap.SugaredLogger, members ...service.Notifier) *Fanout {
	if log == nil {
		log = logger.Named("notify")
	}
	f := &Fanout{log: log}
	for _, m := range members {
		if m != nil {
			f.members = append(f.members, m)
		}
	}
	return f
}

// Len returns the number of members
func (f *Fanout) Len() int {
	return len(f.members)
}

func (f *Fanout) each(event string, fn func(service.Notifier)) {
	var err error
	for _, m := range f.members {
		err = multierr.Append(err, call(func() { fn(m) }))
	}
	if err != nil {
		f.log.Errorw("Notifier failed", "event", event, logger.FieldError, err)
	}
}

func (f *Fanout) LinkCreated(code, shortURL string, limit int, ttlHours int64) {
	f.each("link_created", func(n service.Notifier) { n.LinkCreated(code, shortURL, limit, ttlHours) })
}

func (f *Fanout) LinkNotFound(code string) {
	f.each("link_not_found", func(n service.Notifier) { n.LinkNotFound(code) })
}

func (f *Fanout) LinkExpired(link *entities.Link) {
	f.each("link_expired", func(n service.Notifier) { n.LinkExpired(link) })
}

func (f *Fanout) ClickLimitReached(link *entities.Link) {
	f.each("click_limit_reached", func(n service.Notifier) { n.ClickLimitReached(link) })
}

func (f *Fanout) LinkInactive(link *entities.Link, reason string) {
	f.each("link_inactive", func(n service.Notifier) { n.LinkInactive(link, reason) })
}

func (f *Fanout) AccessDenied(code string, requester uuid.UUID) {
	f.each("access_denied", func(n service.Notifier) { n.AccessDenied(code, requester) })
}

// Switch forwards events only while enabled
type Switch struct {
	next    service.Notifier
	enabled atomic.Bool
}

var _ service.Notifier = (*Switch)(nil)

func NewSwitch(next service.Notifier, enabled bool) *Switch {
	s := &Switch{next: next}
	s.enabled.Store(enabled)
	return s
}

func (s *Switch) SetEnabled(enabled bool) {
	s.enabled.Store(enabled)
}

func (s *Switch) Enabled() bool {
	return s.enabled.Load()
}

func (s *Switch) LinkCreated(code, shortURL string, limit int, ttlHours int64) {
	if s.Enabled() {
		s.next.LinkCreated(code, shortURL, limit, ttlHours)
	}
}

func (s *Switch) LinkNotFound(code string) {
	if s.Enabled() {
		s.next.LinkNotFound(code)
	}
}

func (s *Switch) LinkExpired(link *entities.Link) {
	if s.Enabled() {
		s.next.LinkExpired(link)
	}
}

func (s *Switch) ClickLimitReached(link *entities.Link) {
	if s.Enabled() {
		s.next.ClickLimitReached(link)
	}
}

func (s *Switch) LinkInactive(link *entities.Link, reason string) {
	if s.Enabled() {
		s.next.LinkInactive(link, reason)
	}
}

func (s *Switch) AccessDenied(code string, requester uuid.UUID) {
	if s.Enabled() {
		s.next.AccessDenied(code, requester)
	}
}

// Guard keeps a misbehaving notifier from panicking into the caller
type Guard struct {
	next service.Notifier
	log  *zap.SugaredLogger
}

var _ service.Notifier = (*Guard)(nil)

func NewGuard(next service.Notifier, log *zap.SugaredLogger) *Guard {
	if log == nil {
		log = logger.Named("notify")
	}
	return &Guard{next: next, log: log}
}

func (g *Guard) run(event string, fn func()) {
	if err := call(fn); err != nil {
		g.log.Errorw("Notifier failed", "event", event, logger.FieldError, err)
	}
}

func (g *Guard) LinkCreated(code, shortURL string, limit int, ttlHours int64) {
	g.run("link_created", func() { g.next.LinkCreated(code, shortURL, limit, ttlHours) })
}

func (g *Guard) LinkNotFound(code string) {
	g.run("link_not_found", func() { g.next.LinkNotFound(code) })
}

func (g *Guard) LinkExpired(link *entities.Link) {
	g.run("link_expired", func() { g.next.LinkExpired(link) })
}

func (g *Guard) ClickLimitReached(link *entities.Link) {
	g.run("click_limit_reached", func() { g.next.ClickLimitReached(link) })
}

func (g *Guard) LinkInactive(link *entities.Link, reason string) {
	g.run("link_inactive", func() { g.next.LinkInactive(link, reason) })
}

func (g *Guard) AccessDenied(code string, requester uuid.UUID) {
	g.run("access_denied", func() { g.next.AccessDenied(code, requester) })
}
