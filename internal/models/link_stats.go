package models

import (
	"time"

	"github.com/mattn/go-runewidth"
)

// LinkStats is a point-in-time copy of a link, safe to render or serialize
// while the live entity keeps changing.
type LinkStats struct {
	ShortCode       string    `json:"short_code"`
	OriginalURL     string    `json:"original_url"`
	OwnerID         string    `json:"owner_id"`
	ClickCount      int       `json:"click_count"`
	ClickLimit      int       `json:"click_limit"`
	RemainingClicks int       `json:"remaining_clicks"`
	Active          bool      `json:"active"`
	CreatedAt       time.Time `json:"created_at"`
	ExpiresAt       time.Time `json:"expires_at"`
}

// Expired reports whether the link's lifetime has passed at now.
func (s LinkStats) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// DisplayURL returns OriginalURL cut to fit width terminal columns, ending in
// "..." when shortened. Multibyte characters are never split.
func (s LinkStats) DisplayURL(width int) string {
	return runewidth.Truncate(s.OriginalURL, width, "...")
}
