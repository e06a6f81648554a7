package entities

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shortly/internal/errors"
)

func newTestLink(t *testing.T, limit int, ttl time.Duration) *Link {
	t.Helper()
	now := time.Now()
	link, err := NewLink(LinkParams{
		Code:           "aBc123",
		DestinationURL: "https://example.com",
		OwnerID:        uuid.New(),
		CreatedAt:      now,
		ExpiresAt:      now.Add(ttl),
		ClickLimit:     limit,
	})
	require.NoError(t, err)
	return link
}

func TestNewLink_InitialState(t *testing.T) {
	link := newTestLink(t, 10, time.Hour)

	assert.Equal(t, 0, link.ClickCount())
	assert.True(t, link.IsActive())
	assert.Equal(t, 10, link.RemainingClicks())
	assert.False(t, link.HasReachedClickLimit())
	assert.False(t, link.IsExpired(time.Now()))
}

func TestNewLink_Validation(t *testing.T) {
	owner := uuid.New()
	expires := time.Now().Add(time.Hour)

	cases := map[string]LinkParams{
		"blank code":   {Code: " ", DestinationURL: "https://a.io", OwnerID: owner, ExpiresAt: expires, ClickLimit: 1},
		"blank url":    {Code: "abc", DestinationURL: "", OwnerID: owner, ExpiresAt: expires, ClickLimit: 1},
		"nil owner":    {Code: "abc", DestinationURL: "https://a.io", ExpiresAt: expires, ClickLimit: 1},
		"no expiry":    {Code: "abc", DestinationURL: "https://a.io", OwnerID: owner, ClickLimit: 1},
		"zero limit":   {Code: "abc", DestinationURL: "https://a.io", OwnerID: owner, ExpiresAt: expires},
		"negative lim": {Code: "abc", DestinationURL: "https://a.io", OwnerID: owner, ExpiresAt: expires, ClickLimit: -3},
	}

	for name, params := range cases {
		t.Run(name, func(t *testing.T) {
			link, err := NewLink(params)
			assert.Nil(t, link)
			assert.True(t, errors.IsInvalidInput(err), "got %v", err)
		})
	}
}

func TestNewLink_DefaultsCreatedAt(t *testing.T) {
	link, err := NewLink(LinkParams{
		Code: "abc", DestinationURL: "https://a.io", OwnerID: uuid.New(),
		ExpiresAt: time.Now().Add(time.Hour), ClickLimit: 1,
	})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), link.CreatedAt, time.Second)
}

func TestRegisterClick_DeactivatesOnLimit(t *testing.T) {
	link := newTestLink(t, 3, time.Hour)
	now := time.Now()

	assert.Equal(t, ClickAccepted, link.RegisterClick(now))
	assert.Equal(t, ClickAccepted, link.RegisterClick(now))
	assert.Equal(t, ClickExhausted, link.RegisterClick(now))

	assert.Equal(t, 3, link.ClickCount())
	assert.False(t, link.IsActive())
	assert.True(t, link.HasReachedClickLimit())
	assert.Equal(t, 0, link.RemainingClicks())

	assert.Equal(t, ClickInactive, link.RegisterClick(now))
	assert.Equal(t, 3, link.ClickCount())
}

func TestRegisterClick_RejectsExpired(t *testing.T) {
	link := newTestLink(t, 3, time.Minute)

	result := link.RegisterClick(time.Now().Add(2 * time.Minute))

	assert.Equal(t, ClickExpired, result)
	assert.False(t, result.Counted())
	assert.Equal(t, 0, link.ClickCount())
}

func TestRegisterClick_ExpiryBoundaryIsInclusive(t *testing.T) {
	link := newTestLink(t, 3, time.Minute)

	assert.True(t, link.IsExpired(link.ExpiresAt))
	assert.Equal(t, ClickExpired, link.RegisterClick(link.ExpiresAt))
}

func TestRegisterClick_RejectsDeactivated(t *testing.T) {
	link := newTestLink(t, 3, time.Hour)
	link.Deactivate()

	assert.Equal(t, ClickInactive, link.RegisterClick(time.Now()))
	assert.Equal(t, 0, link.ClickCount())
}

func TestRegisterClick_ConcurrentCallersRespectLimit(t *testing.T) {
	const limit, callers = 25, 200
	link := newTestLink(t, limit, time.Hour)

	var counted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if link.RegisterClick(time.Now()).Counted() {
				counted.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(limit), counted.Load())
	assert.Equal(t, limit, link.ClickCount())
	assert.False(t, link.IsActive())
}

func TestSupersede_PreservesUsage(t *testing.T) {
	link := newTestLink(t, 5, time.Hour)
	link.RegisterClick(time.Now())
	link.RegisterClick(time.Now())

	var committed *Link
	next, err := link.Supersede(10, func(l *Link) error {
		committed = l
		return nil
	})
	require.NoError(t, err)

	assert.Same(t, next, committed)
	assert.True(t, next.Equal(link))
	assert.Equal(t, 10, next.ClickLimit)
	assert.Equal(t, 2, next.ClickCount())
	assert.True(t, next.IsActive())
	assert.Equal(t, link.CreatedAt, next.CreatedAt)
	assert.Equal(t, link.ExpiresAt, next.ExpiresAt)
	assert.Equal(t, 5, link.ClickLimit, "predecessor keeps its own limit")

	assert.Equal(t, ClickSuperseded, link.RegisterClick(time.Now()))
	assert.Equal(t, ClickAccepted, next.RegisterClick(time.Now()))
}

func TestSupersede_DoesNotReactivate(t *testing.T) {
	link := newTestLink(t, 1, time.Hour)
	require.Equal(t, ClickExhausted, link.RegisterClick(time.Now()))

	next, err := link.Supersede(5, func(*Link) error { return nil })
	require.NoError(t, err)

	assert.False(t, next.IsActive())
	assert.Equal(t, 1, next.ClickCount())
}

func TestSupersede_LimitEqualToUsageExhausts(t *testing.T) {
	link := newTestLink(t, 5, time.Hour)
	link.RegisterClick(time.Now())
	link.RegisterClick(time.Now())

	next, err := link.Supersede(2, func(*Link) error { return nil })
	require.NoError(t, err)

	assert.False(t, next.IsActive())
	assert.True(t, next.HasReachedClickLimit())
}

func TestSupersede_RejectsLimitBelowUsage(t *testing.T) {
	link := newTestLink(t, 5, time.Hour)
	link.RegisterClick(time.Now())
	link.RegisterClick(time.Now())

	next, err := link.Supersede(1, func(*Link) error {
		t.Fatal("commit must not run")
		return nil
	})

	assert.Nil(t, next)
	assert.True(t, errors.IsInvalidInput(err))
	assert.Equal(t, ClickAccepted, link.RegisterClick(time.Now()), "link stays usable")
}

func TestSupersede_FailedCommitKeepsLinkLive(t *testing.T) {
	link := newTestLink(t, 5, time.Hour)

	_, err := link.Supersede(10, func(*Link) error { return errors.New("boom") })

	assert.Error(t, err)
	assert.Equal(t, ClickAccepted, link.RegisterClick(time.Now()))
}

func TestSupersede_OnlyOnce(t *testing.T) {
	link := newTestLink(t, 5, time.Hour)
	_, err := link.Supersede(6, func(*Link) error { return nil })
	require.NoError(t, err)

	_, err = link.Supersede(7, func(*Link) error { return nil })
	assert.Error(t, err)
}

func TestEqual_ByCodeOnly(t *testing.T) {
	a := newTestLink(t, 1, time.Hour)
	b := newTestLink(t, 99, 2*time.Hour)

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(nil))
}

func TestSnapshot(t *testing.T) {
	link := newTestLink(t, 4, time.Hour)
	link.RegisterClick(time.Now())

	s := link.Snapshot()

	assert.Equal(t, "aBc123", s.ShortCode)
	assert.Equal(t, "https://example.com", s.OriginalURL)
	assert.Equal(t, link.OwnerID.String(), s.OwnerID)
	assert.Equal(t, 1, s.ClickCount)
	assert.Equal(t, 4, s.ClickLimit)
	assert.Equal(t, 3, s.RemainingClicks)
	assert.True(t, s.Active)
	assert.False(t, s.Expired(time.Now()))
	assert.Contains(t, link.String(), "clicks=1/4")
}

func TestClickResult_String(t *testing.T) {
	assert.Equal(t, "exhausted", ClickExhausted.String())
	assert.Equal(t, "superseded", ClickSuperseded.String())
	assert.Equal(t, "unknown", ClickResult(42).String())
}
