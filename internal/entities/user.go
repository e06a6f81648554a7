package entities

import (
	"strings"

	"github.com/google/uuid"

	"shortly/internal/errors"
)

// User identifies the owner of links. There is no authentication: whoever
// presents the ID owns the links created under it.
type User struct {
	ID uuid.UUID `json:"id"`
}

// NewUser creates a user with a random ID.
func NewUser() User {
	return User{ID: uuid.New()}
}

// ParseUser restores a user from a previously issued ID.
func ParseUser(id string) (User, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return User{}, errors.WithHint(
			errors.NewInvalidInputError("invalid user ID format: %q", id),
			"user IDs look like 123e4567-e89b-12d3-a456-426614174000")
	}
	if parsed == uuid.Nil {
		return User{}, errors.NewInvalidInputError("user ID cannot be the nil UUID")
	}
	return User{ID: parsed}, nil
}

func (u User) String() string {
	return u.ID.String()
}
