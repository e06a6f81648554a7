package controllers

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shortly/internal/entities"
	"shortly/internal/errors"
	"shortly/internal/middleware"
	"shortly/internal/repository"
	"shortly/internal/service"
	"shortly/internal/shortcode"
)

func TestMain(m *testing.M) {
	pterm.DisableStyling()
	os.Exit(m.Run())
}

type fakeOpener struct {
	opened []string
	err    error
}

func (o *fakeOpener) Open(url string) error {
	o.opened = append(o.opened, url)
	return o.err
}

type shell struct {
	proc   *CommandProcessor
	svc    *service.LinkService
	out    *bytes.Buffer
	opener *fakeOpener
}

func newShell(t *testing.T, opts ...ProcessorOption) *shell {
	t.Helper()
	gen, err := shortcode.NewGenerator(shortcode.DefaultLength)
	require.NoError(t, err)
	svc := service.NewLinkService(repository.NewMemoryLinkRepository(), gen, nil, service.Settings{
		DefaultTTL: time.Hour, DefaultClickLimit: 10, LinkDomain: "clck.ru",
	})

	s := &shell{svc: svc, out: &bytes.Buffer{}, opener: &fakeOpener{}}
	opts = append([]ProcessorOption{WithOpener(s.opener)}, opts...)
	s.proc = NewCommandProcessor(svc, entities.NewUser(), s.out, opts...)
	return s
}

// run executes line and returns what it printed
func (s *shell) run(line string) string {
	s.out.Reset()
	s.proc.Execute(line)
	return s.out.String()
}

func (s *shell) onlyCode(t *testing.T) string {
	t.Helper()
	links := s.svc.GetUserLinks(s.proc.CurrentUser())
	require.Len(t, links, 1)
	return links[0].Code
}

func TestExecute_BlankAndUnknown(t *testing.T) {
	s := newShell(t)

	assert.Empty(t, s.run("   "))
	assert.Contains(t, s.run("frobnicate"), "Unknown command")
}

func TestExecute_Exit(t *testing.T) {
	s := newShell(t)

	assert.True(t, s.proc.Execute("exit"))
	assert.True(t, s.proc.Execute("EXIT"))
	assert.False(t, s.proc.Execute("help"))
}

func TestCreate_WithAndWithoutLimit(t *testing.T) {
	s := newShell(t)

	s.run("create https://example.com/a 3")
	s.run(`create "https://example.com/b?q=a b"`)

	links := s.svc.GetUserLinks(s.proc.CurrentUser())
	require.Len(t, links, 2)
	limits := map[string]int{}
	for _, l := range links {
		limits[l.DestinationURL] = l.ClickLimit
	}
	assert.Equal(t, 3, limits["https://example.com/a"])
	assert.Equal(t, 10, limits["https://example.com/b?q=a b"])
}

func TestCreate_Errors(t *testing.T) {
	s := newShell(t)

	assert.Contains(t, s.run("create"), "Usage: create")
	assert.Contains(t, s.run("create https://example.com many"), "not a number")
	assert.Contains(t, s.run("create https://example.com 0"), "click limit must be positive")
	assert.Contains(t, s.run("create example.com"), "http:// or https://")
	assert.Empty(t, s.svc.GetUserLinks(s.proc.CurrentUser()))
}

func TestCreate_RateLimited(t *testing.T) {
	s := newShell(t, WithRateLimiter(middleware.NewRateLimiter(0.001, 1)))

	s.run("create https://example.com/1")
	out := s.run("create https://example.com/2")

	assert.Contains(t, out, "too many requests")
	assert.Len(t, s.svc.GetUserLinks(s.proc.CurrentUser()), 1)
}

func TestOpen(t *testing.T) {
	s := newShell(t)
	s.run("create https://example.com 1")
	code := s.onlyCode(t)

	out := s.run("open " + code)
	assert.Contains(t, out, "Following link: https://example.com")
	assert.Contains(t, out, "Opened in the browser")
	assert.Equal(t, []string{"https://example.com"}, s.opener.opened)

	// quota of one is used up
	s.run("open " + code)
	assert.Len(t, s.opener.opened, 1)
}

func TestOpen_BrowserFailureShowsURL(t *testing.T) {
	s := newShell(t)
	s.opener.err = errors.New("no display")
	s.run("create https://example.com")

	out := s.run("open " + s.onlyCode(t))

	assert.Contains(t, out, "Could not open the browser")
	assert.Contains(t, out, "Open it manually: https://example.com")
}

func TestList(t *testing.T) {
	s := newShell(t)
	assert.Contains(t, s.run("list"), "no short links yet")

	s.run("create https://example.com/one 5")
	s.run("create https://example.com/two")

	out := s.run("list")
	assert.Contains(t, out, "https://example.com/one")
	assert.Contains(t, out, "https://example.com/two")
	assert.Contains(t, out, "0/5")
	assert.Contains(t, out, "Total links: 2")
}

func TestInfo(t *testing.T) {
	s := newShell(t)
	s.run("create https://example.com 4")
	code := s.onlyCode(t)
	s.run("open " + code)

	out := s.run("info " + code)
	assert.Contains(t, out, "clck.ru/"+code)
	assert.Contains(t, out, "1 / 4 (remaining 3)")
	assert.Contains(t, out, "active")
	assert.Contains(t, out, "you")

	assert.Contains(t, s.run("info nope00"), "Link not found")
}

func TestDeleteAndUpdate_OwnerOnly(t *testing.T) {
	s := newShell(t)
	s.run("create https://example.com 4")
	code := s.onlyCode(t)
	owner := s.proc.CurrentUser()

	s.proc.SetCurrentUser(entities.NewUser())
	assert.NotContains(t, s.run("delete "+code), "Link deleted")
	assert.NotContains(t, s.run("update "+code+" 9"), "Click limit updated")

	s.proc.SetCurrentUser(owner)
	out := s.run("update " + code + " 9")
	assert.Contains(t, out, "Click limit updated")
	assert.Contains(t, out, "New limit: 9")

	link, ok := s.svc.GetLink(code)
	require.True(t, ok)
	assert.Equal(t, 9, link.ClickLimit)

	assert.Contains(t, s.run("delete "+code), "Link deleted: "+code)
	_, ok = s.svc.GetLink(code)
	assert.False(t, ok)
}

func TestUpdate_Errors(t *testing.T) {
	s := newShell(t)
	s.run("create https://example.com 4")
	code := s.onlyCode(t)

	assert.Contains(t, s.run("update "+code), "Usage: update")
	assert.Contains(t, s.run("update "+code+" lots"), "not a number")
	assert.Contains(t, s.run("update "+code+" -1"), "click limit must be positive")
}

func TestQR(t *testing.T) {
	s := newShell(t)
	s.run("create https://example.com")
	code := s.onlyCode(t)

	out := s.run("qr " + code)
	assert.Greater(t, strings.Count(out, "\n"), 10)
	assert.Contains(t, out, "clck.ru/"+code)

	path := filepath.Join(t.TempDir(), "code.png")
	assert.Contains(t, s.run("qr "+code+" "+path), "QR code saved")
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	assert.Contains(t, s.run("qr nope00"), "Link not found")
}

func TestUserAndHelp(t *testing.T) {
	s := newShell(t)

	assert.Contains(t, s.run("user"), s.proc.CurrentUser().String())

	help := s.run("help")
	for _, cmd := range []string{"create", "open", "list", "info", "delete", "update", "qr", "user", "exit"} {
		assert.Contains(t, help, cmd)
	}
}

func TestExecute_UnbalancedQuotesFallBack(t *testing.T) {
	s := newShell(t)

	out := s.run(`info "abc`)

	assert.Contains(t, out, "Link not found")
}
