package models

import "time"

// EventType names a lifecycle notification.
type EventType string

const (
	EventLinkCreated       EventType = "link.created"
	EventLinkNotFound      EventType = "link.not_found"
	EventLinkExpired       EventType = "link.expired"
	EventClickLimitReached EventType = "link.limit_reached"
	EventLinkInactive      EventType = "link.inactive"
	EventAccessDenied      EventType = "link.access_denied"
)

// Event is the wire form of a lifecycle notification published to subscribers.
type Event struct {
	Type       EventType  `json:"type"`
	ShortCode  string     `json:"short_code"`
	ShortURL   string     `json:"short_url,omitempty"`
	ClickLimit int        `json:"click_limit,omitempty"`
	TTLHours   int64      `json:"ttl_hours,omitempty"`
	Reason     string     `json:"reason,omitempty"`
	Requester  string     `json:"requester,omitempty"`
	Link       *LinkStats `json:"link,omitempty"`
	At         time.Time  `json:"at"`
}
