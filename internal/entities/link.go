package entities

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"shortly/internal/errors"
	"shortly/internal/models"
)

// ClickResult is the outcome of one attempt to register a click.
type ClickResult int

const (
	// ClickAccepted counted the click; quota remains.
	ClickAccepted ClickResult = iota
	// ClickExhausted counted the click and it used the last unit of quota.
	ClickExhausted
	// ClickExpired rejected the click because the lifetime has passed.
	ClickExpired
	// ClickInactive rejected the click because the link was deactivated.
	ClickInactive
	// ClickLimitReached rejected the click because the quota was already used.
	ClickLimitReached
	// ClickSuperseded rejected the click because a newer value replaced this one;
	// the caller should look the code up again.
	ClickSuperseded
)

func (r ClickResult) String() string {
	switch r {
	case ClickAccepted:
		return "accepted"
	case ClickExhausted:
		return "exhausted"
	case ClickExpired:
		return "expired"
	case ClickInactive:
		return "inactive"
	case ClickLimitReached:
		return "limit_reached"
	case ClickSuperseded:
		return "superseded"
	default:
		return "unknown"
	}
}

// Counted reports whether the click was registered.
func (r ClickResult) Counted() bool {
	return r == ClickAccepted || r == ClickExhausted
}

// Link represents one shortened URL and its lifecycle state.
//
// The exported fields never change after construction. Click count and the
// active flag change only through RegisterClick and Deactivate, and a new
// click limit is applied by Supersede, which produces a successor value.
type Link struct {
	Code           string
	DestinationURL string
	OwnerID        uuid.UUID
	CreatedAt      time.Time
	ExpiresAt      time.Time
	ClickLimit     int

	mu         sync.Mutex
	clickCount int
	active     bool
	superseded bool
}

// LinkParams holds the immutable attributes of a new link.
type LinkParams struct {
	Code           string
	DestinationURL string
	OwnerID        uuid.UUID
	CreatedAt      time.Time // zero means time.Now()
	ExpiresAt      time.Time
	ClickLimit     int
}

// NewLink validates p and returns an active link with no clicks.
func NewLink(p LinkParams) (*Link, error) {
	if strings.TrimSpace(p.Code) == "" {
		return nil, errors.NewInvalidInputError("short code cannot be empty")
	}
	if strings.TrimSpace(p.DestinationURL) == "" {
		return nil, errors.NewInvalidInputError("destination URL cannot be empty")
	}
	if p.OwnerID == uuid.Nil {
		return nil, errors.NewInvalidInputError("owner ID cannot be unset")
	}
	if p.ExpiresAt.IsZero() {
		return nil, errors.NewInvalidInputError("expiration time cannot be unset")
	}
	if p.ClickLimit <= 0 {
		return nil, errors.NewInvalidInputError("click limit must be positive, got %d", p.ClickLimit)
	}

	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	return &Link{
		Code:           p.Code,
		DestinationURL: p.DestinationURL,
		OwnerID:        p.OwnerID,
		CreatedAt:      createdAt,
		ExpiresAt:      p.ExpiresAt,
		ClickLimit:     p.ClickLimit,
		active:         true,
	}, nil
}

func (l *Link) ClickCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.clickCount
}

func (l *Link) IsActive() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

// RemainingClicks returns how many successful follows are left.
func (l *Link) RemainingClicks() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return max(0, l.ClickLimit-l.clickCount)
}

// HasReachedClickLimit reports whether the quota is used up.
func (l *Link) HasReachedClickLimit() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.clickCount >= l.ClickLimit
}

// IsExpired reports whether now is at or past ExpiresAt. It reads only
// immutable fields and never blocks.
func (l *Link) IsExpired(now time.Time) bool {
	return !now.Before(l.ExpiresAt)
}

func (l *Link) IsOwnedBy(userID uuid.UUID) bool {
	return l.OwnerID == userID
}

// Equal compares links by short code, their only identity.
func (l *Link) Equal(other *Link) bool {
	if l == nil || other == nil {
		return l == other
	}
	return l.Code == other.Code
}

// Deactivate turns the link off. It cannot be turned back on.
func (l *Link) Deactivate() {
	l.mu.Lock()
	l.active = false
	l.mu.Unlock()
}

// RegisterClick checks every precondition and increments the click count in
// one critical section, so concurrent callers can never push the count past
// ClickLimit.
func (l *Link) RegisterClick(now time.Time) ClickResult {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch {
	case l.superseded:
		return ClickSuperseded
	case l.IsExpired(now):
		return ClickExpired
	case !l.active:
		return ClickInactive
	case l.clickCount >= l.ClickLimit:
		l.active = false
		return ClickLimitReached
	}

	l.clickCount++
	if l.clickCount >= l.ClickLimit {
		l.active = false
		return ClickExhausted
	}
	return ClickAccepted
}

// Supersede builds a successor carrying newLimit and the current click count
// and active flag, hands it to commit, and retires l once commit succeeds.
// Clicks on l block for the duration and then report ClickSuperseded.
func (l *Link) Supersede(newLimit int, commit func(*Link) error) (*Link, error) {
	if newLimit <= 0 {
		return nil, errors.NewInvalidInputError("click limit must be positive, got %d", newLimit)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.superseded {
		return nil, errors.Newf("link %s was already replaced", l.Code)
	}
	if newLimit < l.clickCount {
		return nil, errors.WithHintf(
			errors.NewInvalidInputError("click limit %d is below the %d clicks already used", newLimit, l.clickCount),
			"choose a limit of at least %d", l.clickCount)
	}

	next := &Link{
		Code:           l.Code,
		DestinationURL: l.DestinationURL,
		OwnerID:        l.OwnerID,
		CreatedAt:      l.CreatedAt,
		ExpiresAt:      l.ExpiresAt,
		ClickLimit:     newLimit,
		clickCount:     l.clickCount,
		active:         l.active && l.clickCount < newLimit,
	}

	if err := commit(next); err != nil {
		return nil, err
	}
	l.superseded = true
	return next, nil
}

// Snapshot copies the link's current state.
func (l *Link) Snapshot() models.LinkStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return models.LinkStats{
		ShortCode:       l.Code,
		OriginalURL:     l.DestinationURL,
		OwnerID:         l.OwnerID.String(),
		ClickCount:      l.clickCount,
		ClickLimit:      l.ClickLimit,
		RemainingClicks: max(0, l.ClickLimit-l.clickCount),
		Active:          l.active,
		CreatedAt:       l.CreatedAt,
		ExpiresAt:       l.ExpiresAt,
	}
}

func (l *Link) String() string {
	s := l.Snapshot()
	return fmt.Sprintf("Link{code=%s url=%s owner=%s clicks=%d/%d active=%t expires=%s}",
		s.ShortCode, s.OriginalURL, s.OwnerID, s.ClickCount, s.ClickLimit, s.Active,
		s.ExpiresAt.Format(time.RFC3339))
}
