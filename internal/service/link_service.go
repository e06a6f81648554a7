package service

import (
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"shortly/internal/entities"
	"shortly/internal/errors"
	"shortly/internal/logger"
	"shortly/internal/repository"
)

// Notifier receives lifecycle events. Implementations must not block for long
// and must not call back into the service.
type Notifier interface {
	LinkCreated(code, shortURL string, limit int, ttlHours int64)
	LinkNotFound(code string)
	LinkExpired(link *entities.Link)
	ClickLimitReached(link *entities.Link)
	LinkInactive(link *entities.Link, reason string)
	AccessDenied(code string, requester uuid.UUID)
}

// CodeGenerator derives a short code from a URL and its owner
type CodeGenerator interface {
	Generate(url string, ownerID uuid.UUID) (string, error)
}

// Settings are the link defaults the service applies
type Settings struct {
	DefaultTTL        time.Duration
	DefaultClickLimit int
	LinkDomain        string
}

const (
	defaultTTL        = 24 * time.Hour
	defaultClickLimit = 100
	defaultDomain     = "clck.ru"

	// a follow that keeps landing on replaced values gives up after this many lookups
	maxFollowAttempts = 8
)

const (
	reasonLimitExhausted = "click limit exhausted"
	reasonDeactivated    = "link deactivated"
)

// Option configures a LinkService
type Option func(*LinkService)

// WithClock replaces time.Now, mainly for tests
func WithClock(now func() time.Time) Option {
	return func(s *LinkService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the service logger
func WithLogger(l *zap.SugaredLogger) Option {
	return func(s *LinkService) {
		if l != nil {
			s.log = l
		}
	}
}

// LinkService owns the business rules of the link lifecycle: creation,
// following, owner-gated mutation and the expiry sweep.
type LinkService struct {
	repo     repository.LinkRepository
	gen      CodeGenerator
	notifier Notifier
	settings Settings
	now      func() time.Time
	log      *zap.SugaredLogger
}

// NewLinkService creates a new link service. Zero settings fall back to the
// built-in defaults; a nil notifier discards events.
func NewLinkService(repo repository.LinkRepository, gen CodeGenerator, notifier Notifier, settings Settings, opts ...Option) *LinkService {
	if settings.DefaultTTL == 0 {
		settings.DefaultTTL = defaultTTL
	}
	if settings.DefaultClickLimit <= 0 {
		settings.DefaultClickLimit = defaultClickLimit
	}
	if settings.LinkDomain == "" {
		settings.LinkDomain = defaultDomain
	}
	if notifier == nil {
		notifier = nopNotifier{}
	}

	s := &LinkService{
		repo:     repo,
		gen:      gen,
		notifier: notifier,
		settings: settings,
		now:      time.Now,
		log:      logger.Named("service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Settings returns the defaults in effect
func (s *LinkService) Settings() Settings {
	return s.settings
}

// ShortURL formats the display form of a code. It is never resolved.
func (s *LinkService) ShortURL(code string) string {
	return s.settings.LinkDomain + "/" + code
}

func (s *LinkService) ttlHours() int64 {
	return int64(s.settings.DefaultTTL / time.Hour)
}

// validateURL accepts absolute http and https URLs with a host
func validateURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return errors.NewInvalidInputError("URL cannot be empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return errors.WithHint(
			errors.NewInvalidInputError("malformed URL %q", raw),
			"use a full address such as https://example.com")
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		return errors.WithHint(
			errors.NewInvalidInputError("URL must start with http:// or https://"),
			"use a full address such as https://example.com")
	}
	if u.Host == "" {
		return errors.NewInvalidInputError("URL %q has no host", raw)
	}
	return nil
}

// CreateLink shortens rawURL for owner. The optional clickLimit overrides the
// configured default.
func (s *LinkService) CreateLink(rawURL string, owner entities.User, clickLimit ...int) (*entities.Link, error) {
	if err := validateURL(rawURL); err != nil {
		return nil, err
	}
	limit := s.settings.DefaultClickLimit
	if len(clickLimit) > 0 {
		limit = clickLimit[0]
	}
	if limit <= 0 {
		return nil, errors.NewInvalidInputError("click limit must be positive, got %d", limit)
	}

	code, err := s.gen.Generate(rawURL, owner.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate short code")
	}

	now := s.now()
	link, err := entities.NewLink(entities.LinkParams{
		Code:           code,
		DestinationURL: rawURL,
		OwnerID:        owner.ID,
		CreatedAt:      now,
		ExpiresAt:      now.Add(s.settings.DefaultTTL),
		ClickLimit:     limit,
	})
	if err != nil {
		return nil, err
	}

	if prev, ok := s.repo.FindByCode(code); ok && (prev.DestinationURL != rawURL || prev.OwnerID != owner.ID) {
		s.log.Warnw("Short code collision, replacing existing link",
			logger.FieldCode, code,
			"previous_url", prev.DestinationURL,
			"previous_owner", prev.OwnerID.String())
	}
	if err := s.repo.Save(link); err != nil {
		return nil, errors.Wrap(err, "failed to save link")
	}

	s.log.Debugw("Link created", logger.FieldCode, code, logger.FieldOwnerID, owner.ID.String())
	s.notifier.LinkCreated(code, s.ShortURL(code), limit, s.ttlHours())
	return link, nil
}

// FollowLink resolves code and counts one click. It returns false when the
// link is missing, expired, inactive or out of quota; the reason goes to the
// notifier.
func (s *LinkService) FollowLink(code string) (string, bool) {
	for attempt := 0; attempt < maxFollowAttempts; attempt++ {
		link, ok := s.repo.FindByCode(code)
		if !ok {
			s.notifier.LinkNotFound(code)
			return "", false
		}

		now := s.now()
		switch link.RegisterClick(now) {
		case entities.ClickAccepted:
			return link.DestinationURL, true
		case entities.ClickExhausted:
			s.notifier.ClickLimitReached(link)
			return link.DestinationURL, true
		case entities.ClickExpired:
			link.Deactivate()
			s.notifier.LinkExpired(link)
			s.repo.DeleteIf(code, func(cur *entities.Link) bool { return cur.IsExpired(now) })
			return "", false
		case entities.ClickInactive:
			s.notifier.LinkInactive(link, inactiveReason(link))
			return "", false
		case entities.ClickLimitReached:
			s.notifier.ClickLimitReached(link)
			return "", false
		case entities.ClickSuperseded:
			// the limit changed underneath us; look up the successor
			continue
		}
	}

	// the link still exists, so no LinkNotFound here
	s.log.Warnw("Gave up following link after repeated replacements",
		logger.FieldCode, code, "attempts", maxFollowAttempts)
	return "", false
}

func inactiveReason(link *entities.Link) string {
	if link.HasReachedClickLimit() {
		return reasonLimitExhausted
	}
	return reasonDeactivated
}

// GetLink looks a link up without counting a click
func (s *LinkService) GetLink(code string) (*entities.Link, bool) {
	return s.repo.FindByCode(code)
}

// GetUserLinks returns a snapshot of the owner's links
func (s *LinkService) GetUserLinks(owner entities.User) []*entities.Link {
	return s.repo.FindByOwner(owner.ID)
}

// DeleteLink removes code if requester owns it
func (s *LinkService) DeleteLink(code string, requester entities.User) bool {
	link, ok := s.repo.FindByCode(code)
	if !ok {
		s.notifier.LinkNotFound(code)
		return false
	}
	if !link.IsOwnedBy(requester.ID) {
		s.log.Debugw("Delete denied", logger.FieldCode, code, logger.FieldOwnerID, requester.ID.String())
		s.notifier.AccessDenied(code, requester.ID)
		return false
	}
	// only remove the value that was checked; a concurrent re-create keeps its link
	if !s.repo.DeleteIf(code, func(cur *entities.Link) bool { return cur == link }) {
		s.notifier.LinkNotFound(code)
		return false
	}
	return true
}

// UpdateClickLimit replaces the quota of a link owned by requester. The click
// count and active flag carry over; a limit below the clicks already used is
// rejected.
func (s *LinkService) UpdateClickLimit(code string, requester entities.User, newLimit int) (bool, error) {
	if newLimit <= 0 {
		return false, errors.NewInvalidInputError("click limit must be positive, got %d", newLimit)
	}

	for attempt := 0; attempt < maxFollowAttempts; attempt++ {
		link, ok := s.repo.FindByCode(code)
		if !ok {
			s.notifier.LinkNotFound(code)
			return false, nil
		}
		if !link.IsOwnedBy(requester.ID) {
			s.notifier.AccessDenied(code, requester.ID)
			return false, nil
		}

		replaced := false
		_, err := link.Supersede(newLimit, func(next *entities.Link) error {
			if !s.repo.Replace(link, next) {
				return errLinkChanged
			}
			replaced = true
			return nil
		})
		switch {
		case err == nil && replaced:
			s.log.Debugw("Click limit updated", logger.FieldCode, code, "limit", newLimit)
			return true, nil
		case errors.IsInvalidInput(err):
			return false, err
		case err != nil:
			// deleted or replaced concurrently; re-read
			continue
		}
	}

	s.notifier.LinkNotFound(code)
	return false, nil
}

var errLinkChanged = errors.New("link changed concurrently")

// CleanupExpiredLinks removes every link whose lifetime has passed and returns
// how many were removed.
func (s *LinkService) CleanupExpiredLinks() int {
	now := s.now()
	expired := func(cur *entities.Link) bool { return cur.IsExpired(now) }

	removed := 0
	for _, link := range s.repo.FindAll() {
		if !link.IsExpired(now) {
			continue
		}
		if s.repo.DeleteIf(link.Code, expired) {
			removed++
		}
	}
	return removed
}

type nopNotifier struct{}

func (nopNotifier) LinkCreated(string, string, int, int64) {}
func (nopNotifier) LinkNotFound(string)                    {}
func (nopNotifier) LinkExpired(*entities.Link)             {}
func (nopNotifier) ClickLimitReached(*entities.Link)       {}
func (nopNotifier) LinkInactive(*entities.Link, string)    {}
func (nopNotifier) AccessDenied(string, uuid.UUID)         {}
