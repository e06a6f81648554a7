package shortcode

import (
	"crypto/sha256"
	"strings"

	"github.com/google/uuid"

	"shortly/internal/errors"
)

const (
	alphabet      = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	DefaultLength = 6
	separator     = "|"
)

// Generator derives short codes from a URL and its owner.
//
// The same (url, owner) pair always yields the same code, so re-shortening a
// URL converges on one alias. Different pairs may collide; nothing here
// prevents that.
type Generator struct {
	length int
}

// NewGenerator returns a generator producing codes of the given length.
func NewGenerator(length int) (*Generator, error) {
	if length <= 0 {
		return nil, errors.NewInvalidInputError("code length must be positive, got %d", length)
	}
	return &Generator{length: length}, nil
}

// Length is the number of characters in every generated code.
func (g *Generator) Length() int {
	return g.length
}

// Generate hashes url and ownerID with SHA-256 and maps the digest onto the
// base62 alphabet.
func (g *Generator) Generate(url string, ownerID uuid.UUID) (string, error) {
	if strings.TrimSpace(url) == "" {
		return "", errors.NewInvalidInputError("URL cannot be empty")
	}
	if ownerID == uuid.Nil {
		return "", errors.NewInvalidInputError("owner ID cannot be unset")
	}

	digest := sha256.Sum256([]byte(url + separator + ownerID.String()))
	return encode(digest[:], g.length), nil
}

// IsValidCode reports whether code has the generator's length and uses only
// alphabet characters.
func (g *Generator) IsValidCode(code string) bool {
	if len(code) != g.length {
		return false
	}
	for i := 0; i < len(code); i++ {
		if strings.IndexByte(alphabet, code[i]) < 0 {
			return false
		}
	}
	return true
}

func encode(digest []byte, length int) string {
	base := len(alphabet)
	var b strings.Builder
	b.Grow(length)

	for i := 0; i < length && i < len(digest); i++ {
		b.WriteByte(alphabet[int(digest[i])%base])
	}
	// codes longer than the digest keep drawing from it, offset by position
	for i := len(digest); i < length; i++ {
		b.WriteByte(alphabet[(int(digest[i%len(digest)])+i)%base])
	}
	return b.String()
}
