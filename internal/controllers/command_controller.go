package controllers

import (
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/kballard/go-shellquote"
	"github.com/pterm/pterm"
	"go.uber.org/zap"

	"shortly/internal/entities"
	"shortly/internal/errors"
	"shortly/internal/logger"
	"shortly/internal/models"
)

const dateLayout = "02.01.2006 15:04:05"

// LinkService is the part of the lifecycle service the shell drives
type LinkService interface {
	CreateLink(url string, owner entities.User, clickLimit ...int) (*entities.Link, error)
	FollowLink(code string) (string, bool)
	GetLink(code string) (*entities.Link, bool)
	GetUserLinks(owner entities.User) []*entities.Link
	DeleteLink(code string, requester entities.User) bool
	UpdateClickLimit(code string, requester entities.User, newLimit int) (bool, error)
	ShortURL(code string) string
}

// CreateLimiter rejects link creation for owners over their budget
type CreateLimiter interface {
	Check(key string) error
}

// URLOpener shows a destination to the user
type URLOpener interface {
	Open(url string) error
}

// ProcessorOption configures a CommandProcessor
type ProcessorOption func(*CommandProcessor)

func WithRateLimiter(l CreateLimiter) ProcessorOption {
	return func(p *CommandProcessor) { p.limiter = l }
}

func WithOpener(o URLOpener) ProcessorOption {
	return func(p *CommandProcessor) { p.opener = o }
}

func WithProcessorLogger(l *zap.SugaredLogger) ProcessorOption {
	return func(p *CommandProcessor) {
		if l != nil {
			p.log = l
		}
	}
}

// WithNow replaces time.Now for expiry display
func WithNow(now func() time.Time) ProcessorOption {
	return func(p *CommandProcessor) {
		if now != nil {
			p.now = now
		}
	}
}

// CommandProcessor parses one line of user input at a time and runs it
// against the link service on behalf of the current user.
type CommandProcessor struct {
	links   LinkService
	qr      *QRCodeController
	limiter CreateLimiter
	opener  URLOpener
	out     io.Writer
	user    entities.User
	now     func() time.Time
	log     *zap.SugaredLogger
}

// NewCommandProcessor writes to out, or stdout when out is nil
func NewCommandProcessor(links LinkService, user entities.User, out io.Writer, opts ...ProcessorOption) *CommandProcessor {
	if out == nil {
		out = os.Stdout
	}
	p := &CommandProcessor{
		links:  links,
		qr:     NewQRCodeController(links.ShortURL),
		opener: NewSystemBrowser(),
		out:    out,
		user:   user,
		now:    time.Now,
		log:    logger.Named("shell"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CurrentUser returns the identity commands run as
func (p *CommandProcessor) CurrentUser() entities.User {
	return p.user
}

// SetCurrentUser switches identity
func (p *CommandProcessor) SetCurrentUser(u entities.User) {
	p.user = u
}

// Execute runs one command line and reports whether the shell should exit.
// User errors are printed; nothing here is fatal.
func (p *CommandProcessor) Execute(line string) (quit bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}

	args, err := shellquote.Split(line)
	if err != nil {
		// unbalanced quotes; fall back to plain fields
		p.log.Debugw("Quote parsing failed, using simple split", "line", line, logger.FieldError, err)
		args = strings.Fields(line)
	}
	if len(args) == 0 {
		return false
	}

	action, rest := strings.ToLower(args[0]), args[1:]
	switch action {
	case "create":
		p.handleCreate(rest)
	case "open":
		p.handleOpen(rest)
	case "list":
		p.handleList()
	case "info":
		p.handleInfo(rest)
	case "delete":
		p.handleDelete(rest)
	case "update":
		p.handleUpdate(rest)
	case "qr":
		p.handleQR(rest)
	case "user":
		p.handleUser()
	case "help":
		p.handleHelp()
	case "exit", "quit":
		p.println(pterm.Info.Sprint("Goodbye!"))
		return true
	default:
		p.println(pterm.Warning.Sprintf("Unknown command %q. Type 'help' for a list of commands.", action))
	}
	return false
}

func (p *CommandProcessor) println(a ...interface{}) {
	pterm.Fprintln(p.out, a...)
}

func (p *CommandProcessor) usage(text string) {
	p.println(pterm.Sprintf("Usage: %s", text))
}

// printError shows a user-facing error with its hints
func (p *CommandProcessor) printError(err error) {
	if errors.IsInvalidInput(err) || errors.IsRateLimited(err) {
		p.println(pterm.Error.Sprint(err.Error()))
		if hint := errors.FlattenHints(err); hint != "" {
			p.println(pterm.Gray("  " + hint))
		}
		return
	}
	p.log.Errorw("Command failed", logger.FieldError, err)
	p.println(pterm.Error.Sprintf("Something went wrong: %v", err))
}

func parseLimit(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.WithHint(
			errors.NewInvalidInputError("click limit %q is not a number", s),
			"use a whole number such as 50")
	}
	return n, nil
}

func bindCreate(args []string) (*models.CreateLinkRequest, error) {
	req := &models.CreateLinkRequest{URL: args[0]}
	if len(args) > 1 {
		n, err := parseLimit(args[1])
		if err != nil {
			return nil, err
		}
		req.ClickLimit = &n
	}
	return req, nil
}

func (p *CommandProcessor) handleCreate(args []string) {
	if len(args) < 1 {
		p.usage("create <URL> [click_limit]")
		return
	}
	req, err := bindCreate(args)
	if err != nil {
		p.printError(err)
		return
	}

	if p.limiter != nil {
		if err := p.limiter.Check(p.user.String()); err != nil {
			p.printError(err)
			return
		}
	}

	var limits []int
	if req.ClickLimit != nil {
		limits = append(limits, *req.ClickLimit)
	}
	if _, err := p.links.CreateLink(req.URL, p.user, limits...); err != nil {
		p.printError(err)
	}
}

func (p *CommandProcessor) handleOpen(args []string) {
	if len(args) < 1 {
		p.usage("open <code>")
		return
	}

	dest, ok := p.links.FollowLink(args[0])
	if !ok {
		return
	}
	p.println(pterm.Sprintf("Following link: %s", dest))

	if err := p.opener.Open(dest); err != nil {
		p.log.Debugw("Browser open failed", logger.FieldCode, args[0], logger.FieldError, err)
		p.println(pterm.Error.Sprintf("Could not open the browser: %v", err))
		p.println(pterm.Sprintf("  Open it manually: %s", dest))
		return
	}
	p.println(pterm.Success.Sprint("Opened in the browser"))
}

func (p *CommandProcessor) handleList() {
	links := p.links.GetUserLinks(p.user)
	if len(links) == 0 {
		p.println(pterm.Info.Sprint("You have no short links yet."))
		p.println("Create one with: create <URL>")
		return
	}

	sort.Slice(links, func(i, j int) bool {
		if links[i].CreatedAt.Equal(links[j].CreatedAt) {
			return links[i].Code < links[j].Code
		}
		return links[i].CreatedAt.Before(links[j].CreatedAt)
	})

	now := p.now()
	data := pterm.TableData{{"Code", "URL", "Status", "Clicks", "Remaining", "Expires"}}
	for _, link := range links {
		s := link.Snapshot()
		data = append(data, []string{
			s.ShortCode,
			s.DisplayURL(40),
			status(s.Active, s.Expired(now)),
			strconv.Itoa(s.ClickCount) + "/" + strconv.Itoa(s.ClickLimit),
			strconv.Itoa(s.RemainingClicks),
			s.ExpiresAt.Local().Format(dateLayout),
		})
	}

	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		p.printError(errors.Wrap(err, "failed to render table"))
		return
	}
	p.println(table)
	p.println(pterm.Sprintf("Total links: %d", len(links)))
}

func (p *CommandProcessor) handleInfo(args []string) {
	if len(args) < 1 {
		p.usage("info <code>")
		return
	}

	link, ok := p.links.GetLink(args[0])
	if !ok {
		p.println(pterm.Error.Sprintf("Link not found: %s", args[0]))
		return
	}

	s := link.Snapshot()
	owner := s.OwnerID
	if link.IsOwnedBy(p.user.ID) {
		owner = "you"
	}
	data := pterm.TableData{
		{"Code", s.ShortCode},
		{"Short link", p.links.ShortURL(s.ShortCode)},
		{"Original URL", s.OriginalURL},
		{"Status", status(s.Active, s.Expired(p.now()))},
		{"Clicks", pterm.Sprintf("%d / %d (remaining %d)", s.ClickCount, s.ClickLimit, s.RemainingClicks)},
		{"Created", s.CreatedAt.Local().Format(dateLayout)},
		{"Expires", s.ExpiresAt.Local().Format(dateLayout)},
		{"Owner", owner},
	}
	table, err := pterm.DefaultTable.WithData(data).Srender()
	if err != nil {
		p.printError(errors.Wrap(err, "failed to render table"))
		return
	}
	p.println(table)
}

func (p *CommandProcessor) handleDelete(args []string) {
	if len(args) < 1 {
		p.usage("delete <code>")
		return
	}
	if p.links.DeleteLink(args[0], p.user) {
		p.println(pterm.Success.Sprintf("Link deleted: %s", args[0]))
	}
}

func bindUpdate(args []string) (*models.UpdateLimitRequest, error) {
	n, err := parseLimit(args[1])
	if err != nil {
		return nil, err
	}
	return &models.UpdateLimitRequest{ShortCode: args[0], ClickLimit: n}, nil
}

func (p *CommandProcessor) handleUpdate(args []string) {
	if len(args) < 2 {
		p.usage("update <code> <new_limit>")
		return
	}
	req, err := bindUpdate(args)
	if err != nil {
		p.printError(err)
		return
	}

	updated, err := p.links.UpdateClickLimit(req.ShortCode, p.user, req.ClickLimit)
	if err != nil {
		p.printError(err)
		return
	}
	if updated {
		p.println(pterm.Success.Sprintf("Click limit updated for %s", req.ShortCode))
		p.println(pterm.Sprintf("  New limit: %d", req.ClickLimit))
	}
}

func (p *CommandProcessor) handleQR(args []string) {
	if len(args) < 1 {
		p.usage("qr <code> [file.png]")
		return
	}
	code := args[0]
	if _, ok := p.links.GetLink(code); !ok {
		p.println(pterm.Error.Sprintf("Link not found: %s", code))
		return
	}

	if len(args) > 1 {
		if err := p.qr.SavePNG(code, args[1]); err != nil {
			p.printError(err)
			return
		}
		p.println(pterm.Success.Sprintf("QR code saved to %s", args[1]))
		return
	}

	art, err := p.qr.Render(code)
	if err != nil {
		p.printError(err)
		return
	}
	p.println(art)
	p.println(pterm.Sprintf("  %s", p.links.ShortURL(code)))
}

func (p *CommandProcessor) handleUser() {
	p.println(pterm.Info.Sprint("Current user"))
	p.println(pterm.Sprintf("  UUID: %s", p.user.String()))
	p.println(pterm.Gray("  Keep this UUID and pass it with --user to manage your links later."))
}

var commandHelp = [][]string{
	{"create <URL> [limit]", "Create a short link", "create https://example.com 50"},
	{"open <code>", "Follow a link and open it in the browser", "open aBc123"},
	{"list", "Show all your links", ""},
	{"info <code>", "Show details of a link", "info aBc123"},
	{"delete <code>", "Delete one of your links", "delete aBc123"},
	{"update <code> <limit>", "Change the click limit of your link", "update aBc123 100"},
	{"qr <code> [file.png]", "Show a QR code, or save it as PNG", "qr aBc123"},
	{"user", "Show the current user", ""},
	{"help", "Show this help", ""},
	{"exit", "Quit", ""},
}

func (p *CommandProcessor) handleHelp() {
	data := pterm.TableData{{"Command", "Description", "Example"}}
	data = append(data, commandHelp...)
	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		p.printError(errors.Wrap(err, "failed to render table"))
		return
	}
	p.println(table)
}

func status(active, expired bool) string {
	switch {
	case expired:
		return "expired"
	case active:
		return "active"
	default:
		return "inactive"
	}
}
