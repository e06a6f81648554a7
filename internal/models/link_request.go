package models

// CreateLinkRequest carries the arguments of a create command.
// A nil ClickLimit means "use the configured default".
type CreateLinkRequest struct {
	URL        string
	ClickLimit *int
}

// UpdateLimitRequest carries the arguments of an update command.
type UpdateLimitRequest struct {
	ShortCode  string
	ClickLimit int
}
