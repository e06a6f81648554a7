package main

import (
	"bufio"
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"shortly/internal/config"
	"shortly/internal/controllers"
	"shortly/internal/entities"
	"shortly/internal/errors"
	"shortly/internal/logger"
	"shortly/internal/middleware"
	"shortly/internal/notify"
	"shortly/internal/repository"
	"shortly/internal/scheduler"
	"shortly/internal/service"
	"shortly/internal/shortcode"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type options struct {
	user    string
	envFile string
}

func newRootCmd() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "shortly [user-uuid]",
		Short: "Shorten links with click limits and automatic expiry",
		Long: `shortly is an interactive link shortener. Links live in memory, expire
after a configured lifetime and stop working once their click limit is used.

Pass the UUID printed at startup with --user to manage the same links again.`,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.user == "" && len(args) == 1 {
				opts.user = args[0]
			}
			return run(cmd.Context(), opts, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&opts.user, "user", "u", "", "resume as this user UUID")
	cmd.Flags().StringVar(&opts.envFile, "env-file", "", "load settings from this file instead of .env")
	return cmd
}

func run(ctx context.Context, opts options, in io.Reader, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var envFiles []string
	if opts.envFile != "" {
		envFiles = append(envFiles, opts.envFile)
	}
	cfg := config.Load(envFiles...)

	if err := logger.Initialize(logger.Config{
		Level:      cfg.LogLevel,
		Format:     cfg.LogFormat,
		OutputPath: cfg.LogFile,
		MaxSize:    cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAge:     cfg.LogMaxAgeDays,
	}); err != nil {
		return errors.Wrap(err, "failed to initialize logger")
	}
	defer func() { _ = logger.Logger.Sync() }()
	log := logger.Named("main")

	gen, err := shortcode.NewGenerator(cfg.CodeLength)
	if err != nil {
		return err
	}

	notifier, closeNotifier := buildNotifier(cfg, out, log)
	defer closeNotifier()

	svc := service.NewLinkService(
		repository.NewMemoryLinkRepository(),
		gen,
		notifier,
		service.Settings{
			DefaultTTL:        cfg.DefaultTTL,
			DefaultClickLimit: cfg.DefaultClickLimit,
			LinkDomain:        cfg.LinkDomain,
		},
		service.WithLogger(logger.Named("service")),
	)

	cleanup := scheduler.New(svc, cfg.CleanupInterval, logger.Named("scheduler"))

	user := resolveUser(opts.user, out)
	proc := controllers.NewCommandProcessor(svc, user, out,
		controllers.WithRateLimiter(middleware.NewRateLimiter(rate.Limit(cfg.RateLimitCreateRPS), cfg.RateLimitCreateBurst)),
		controllers.WithProcessorLogger(logger.Named("shell")),
	)

	printBanner(out, user)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cleanup.Start()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-gctx.Done()
		cleanup.Stop()
		return nil
	})
	g.Go(func() error {
		defer cancel()
		return repl(gctx, proc, in, out)
	})

	err = g.Wait()
	log.Infow("Shutting down")
	return err
}

// buildNotifier assembles the console renderer and, when Redis is configured
// and reachable, the event publisher. The returned func releases connections.
func buildNotifier(cfg *config.Config, out io.Writer, log *zap.SugaredLogger) (service.Notifier, func()) {
	members := []service.Notifier{notify.NewConsole(out)}
	closeFn := func() {}

	if cfg.RedisURL != "" {
		pub, err := notify.NewRedisPublisher(cfg.RedisURL, cfg.RedisChannel)
		if err != nil {
			log.Warnw("Redis unavailable, lifecycle events will not be published", logger.FieldError, err)
		} else {
			log.Infow("Publishing lifecycle events", "channel", pub.Channel())
			members = append(members, notify.NewEvents(pub, logger.Named("events")))
			closeFn = func() { _ = pub.Close() }
		}
	}

	fanout := notify.NewFanout(logger.Named("notify"), members...)
	return notify.NewGuard(notify.NewSwitch(fanout, cfg.NotificationsEnabled), logger.Named("notify")), closeFn
}

// resolveUser parses raw, or creates a new user when raw is empty or invalid
func resolveUser(raw string, out io.Writer) entities.User {
	if raw == "" {
		return entities.NewUser()
	}
	user, err := entities.ParseUser(raw)
	if err != nil {
		pterm.Fprintln(out, pterm.Warning.Sprintf("Invalid user UUID %q, starting as a new user", raw))
		return entities.NewUser()
	}
	return user
}

func printBanner(out io.Writer, user entities.User) {
	pterm.Fprintln(out, pterm.DefaultHeader.WithFullWidth().Sprint("shortly: links with click limits and a lifetime"))
	pterm.Fprintln(out, pterm.Sprintf("Your UUID: %s", pterm.LightCyan(user.String())))
	pterm.Fprintln(out, "Type 'help' for commands, 'exit' to quit.")
}

// repl feeds lines from in to proc until exit, end of input or cancellation.
// Reading happens on its own goroutine so a blocked read cannot delay shutdown.
func repl(ctx context.Context, proc *controllers.CommandProcessor, in io.Reader, out io.Writer) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)

	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		pterm.Fprint(out, "> ")
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					if err != nil {
						return errors.Wrap(err, "failed to read input")
					}
				default:
				}
				return nil
			}
			if proc.Execute(line) {
				return nil
			}
		}
	}
}
