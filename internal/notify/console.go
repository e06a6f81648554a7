// Package notify delivers link lifecycle events to people and to other
// processes. Every type here satisfies service.Notifier.
package notify

import (
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/pterm/pterm"

	"shortly/internal/entities"
	"shortly/internal/service"
)

const maxURLWidth = 48

// Console renders events for the interactive user
type Console struct {
	out io.Writer
}

var _ service.Notifier = (*Console)(nil)

// NewConsole writes to out, or stdout when out is nil
func NewConsole(out io.Writer) *Console {
	if out == nil {
		out = os.Stdout
	}
	return &Console{out: out}
}

func (c *Console) LinkCreated(code, shortURL string, limit int, ttlHours int64) {
	pterm.Fprintln(c.out, pterm.Success.Sprintf("Short link created"))
	pterm.Fprintln(c.out, pterm.Sprintf("  Code:        %s", pterm.LightCyan(code)))
	pterm.Fprintln(c.out, pterm.Sprintf("  Short link:  %s", pterm.LightGreen(shortURL)))
	pterm.Fprintln(c.out, pterm.Sprintf("  Click limit: %d", limit))
	pterm.Fprintln(c.out, pterm.Sprintf("  Lifetime:    %d hours", ttlHours))
}

func (c *Console) LinkNotFound(code string) {
	pterm.Fprintln(c.out, pterm.Error.Sprintf("Link with code '%s' not found", code))
}

func (c *Console) LinkExpired(link *entities.Link) {
	s := link.Snapshot()
	c.box("Link expired",
		"Short code:   "+s.ShortCode,
		"Original URL: "+s.DisplayURL(maxURLWidth),
		"",
		"Create a new link to keep using this URL.")
}

func (c *Console) ClickLimitReached(link *entities.Link) {
	s := link.Snapshot()
	c.box("Click limit reached",
		"Short code:   "+s.ShortCode,
		"Original URL: "+s.DisplayURL(maxURLWidth),
		pterm.Sprintf("Clicks:       %d/%d", s.ClickCount, s.ClickLimit),
		"",
		"Create a new link to keep using this URL.")
}

func (c *Console) LinkInactive(link *entities.Link, reason string) {
	pterm.Fprintln(c.out, pterm.Error.Sprintf("Link unavailable: %s", reason))
	pterm.Fprintln(c.out, pterm.Sprintf("  Code: %s", link.Code))
	pterm.Fprintln(c.out, pterm.Gray("  Create a new link to continue."))
}

func (c *Console) AccessDenied(code string, requester uuid.UUID) {
	pterm.Fprintln(c.out, pterm.Error.Sprintf("Access denied: you do not own link '%s'", code))
	pterm.Fprintln(c.out, pterm.Gray("  Only the owner can change or delete a link."))
}

func (c *Console) box(title string, lines ...string) {
	pterm.Fprintln(c.out, pterm.DefaultBox.WithTitle(pterm.Yellow(title)).Sprint(strings.Join(lines, "\n")))
}
