package main

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"shortly/internal/config"
	"shortly/internal/controllers"
	"shortly/internal/entities"
	"shortly/internal/repository"
	"shortly/internal/service"
	"shortly/internal/shortcode"
)

func init() {
	pterm.DisableStyling()
}

func newProcessor(t *testing.T, out *bytes.Buffer) *controllers.CommandProcessor {
	t.Helper()
	gen, err := shortcode.NewGenerator(shortcode.DefaultLength)
	require.NoError(t, err)
	svc := service.NewLinkService(repository.NewMemoryLinkRepository(), gen, nil, service.Settings{})
	return controllers.NewCommandProcessor(svc, entities.NewUser(), out)
}

func TestRepl_StopsOnExit(t *testing.T) {
	var out bytes.Buffer
	proc := newProcessor(t, &out)

	err := repl(context.Background(), proc, strings.NewReader("help\nexit\nuser\n"), &out)

	require.NoError(t, err)
	assert.Contains(t, out.String(), "Goodbye!")
	assert.NotContains(t, out.String(), proc.CurrentUser().String(), "commands after exit are not run")
}

func TestRepl_EndOfInput(t *testing.T) {
	var out bytes.Buffer
	proc := newProcessor(t, &out)

	err := repl(context.Background(), proc, strings.NewReader("user\n"), &out)

	require.NoError(t, err)
	assert.Contains(t, out.String(), proc.CurrentUser().String())
}

func TestRepl_Cancelled(t *testing.T) {
	var out bytes.Buffer
	proc := newProcessor(t, &out)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// nothing is ever written, so only cancellation can end the loop
	pr, pw := io.Pipe()
	t.Cleanup(func() { _ = pw.Close() })

	done := make(chan error, 1)
	go func() { done <- repl(ctx, proc, pr, &out) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("repl did not return after cancellation")
	}
}

func TestResolveUser(t *testing.T) {
	var out bytes.Buffer
	known := entities.NewUser()

	assert.Equal(t, known, resolveUser(known.String(), &out))
	assert.Empty(t, out.String())

	fresh := resolveUser("", &out)
	assert.NotEqual(t, known, fresh)

	replaced := resolveUser("not-a-uuid", &out)
	assert.NotEqual(t, known, replaced)
	assert.Contains(t, out.String(), "Invalid user UUID")
}

func TestBuildNotifier_WithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	var out bytes.Buffer
	cfg := &config.Config{RedisURL: mr.Addr(), RedisChannel: "test:events", NotificationsEnabled: true}

	notifier, closeFn := buildNotifier(cfg, &out, zap.NewNop().Sugar())
	defer closeFn()

	notifier.LinkNotFound("abc123")
	assert.Contains(t, out.String(), "'abc123' not found")
}

func TestBuildNotifier_RedisDownFallsBackToConsole(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()
	var out bytes.Buffer
	cfg := &config.Config{RedisURL: addr, NotificationsEnabled: true}

	notifier, closeFn := buildNotifier(cfg, &out, zap.NewNop().Sugar())
	defer closeFn()

	notifier.LinkNotFound("abc123")
	assert.Contains(t, out.String(), "not found")
}

func TestBuildNotifier_Disabled(t *testing.T) {
	var out bytes.Buffer

	notifier, closeFn := buildNotifier(&config.Config{NotificationsEnabled: false}, &out, zap.NewNop().Sugar())
	defer closeFn()

	notifier.LinkNotFound("abc123")
	assert.Empty(t, out.String())
}

func TestRootCmd_Session(t *testing.T) {
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("REDIS_URL", "")
	t.Setenv("LINK_CLICK_LIMIT", "2")

	user := entities.NewUser()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetIn(strings.NewReader("create https://example.com\nlist\nuser\nexit\n"))
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--user", user.String(), "--env-file", t.TempDir() + "/missing.env"})

	require.NoError(t, cmd.Execute())

	got := out.String()
	assert.Contains(t, got, "Your UUID: "+user.String())
	assert.Contains(t, got, "Short link created")
	assert.Contains(t, got, "0/2")
	assert.Contains(t, got, "Goodbye!")
}

func TestRootCmd_TooManyArgs(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"a", "b"})

	assert.Error(t, cmd.Execute())
}
