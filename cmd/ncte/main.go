package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/andyrewlee/ncte/internal/config"
	"github.com/andyrewlee/ncte/internal/display"
	"github.com/andyrewlee/ncte/internal/logging"
	"github.com/andyrewlee/ncte/internal/pty"
	"github.com/andyrewlee/ncte/internal/render"
	"github.com/andyrewlee/ncte/internal/safego"
	"github.com/andyrewlee/ncte/internal/session"
	"github.com/andyrewlee/ncte/internal/signalgate"
)

// Version info, overridden at build time with -ldflags -X
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var isTerminal = term.IsTerminal

func main() {
	os.Exit(run(os.Args[1:], runSession))
}

type exitError struct {
	code int
}

func (e exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// run executes the command line and returns the process exit code.
func run(args []string, runner func(*config.Config) error) int {
	root := buildRootCommand(runner)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		var exitErr exitError
		if errors.As(err, &exitErr) {
			return exitErr.code
		}
		fmt.Fprintln(os.Stderr, "ncte:", err)
		return 1
	}
	return 0
}

type options struct {
	configPath   string
	term         string
	displayTerm  string
	debugFile    string
	logLevel     string
	mirror       bool
	quiescence   time.Duration
	burstCap     time.Duration
	pollInterval time.Duration
}

func buildRootCommand(runner func(*config.Config) error) *cobra.Command {
	var opts options
	root := &cobra.Command{
		Use:   "ncte [flags] [command [args...]]",
		Short: "Run a shell inside a mirrored terminal",
		Long: `ncte runs a command (default $SHELL) on a pseudo-terminal and renders its
screen with every row mirrored left to right.

Flags must precede the command; everything after it is passed through.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd.Flags(), &opts, args)
			if err != nil {
				return err
			}
			return runner(cfg)
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true

	flags := root.Flags()
	flags.SetInterspersed(false)
	flags.StringVar(&opts.configPath, "config", "", "config `file` (default ~/.ncte/config.json)")
	flags.StringVar(&opts.term, "term", "", "TERM for the child (default: inherited, else "+pty.FallbackTerm+")")
	flags.StringVar(&opts.displayTerm, "display-term", "", "terminal type used to drive the display (default: inherited)")
	flags.StringVarP(&opts.debugFile, "debug", "d", "", "write diagnostics to `file`")
	flags.StringVar(&opts.logLevel, "log-level", "debug", "diagnostic level: debug, info, warn, error")
	flags.BoolVar(&opts.mirror, "mirror", true, "mirror columns horizontally")
	flags.DurationVar(&opts.quiescence, "quiescence", 0, "redraw once pty output has been idle this long (default 10ms)")
	flags.DurationVar(&opts.burstCap, "burst-cap", 0, "longest a sustained burst may go undrawn (default 300ms)")
	flags.DurationVar(&opts.pollInterval, "poll-interval", 0, "wait timeout while a redraw is pending (default 5ms)")
	return root
}

// resolveConfig layers explicitly set flags over the config file.
func resolveConfig(flags *pflag.FlagSet, opts *options, args []string) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if flags.Changed("term") {
		cfg.Term = opts.term
	}
	if flags.Changed("display-term") {
		cfg.DisplayTerm = opts.displayTerm
	}
	if flags.Changed("debug") {
		cfg.DebugFile = opts.debugFile
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = opts.logLevel
	}
	if flags.Changed("mirror") {
		cfg.Mirror = opts.mirror
	}
	if flags.Changed("quiescence") {
		cfg.Refresh.Quiescence = opts.quiescence
	}
	if flags.Changed("burst-cap") {
		cfg.Refresh.BurstCap = opts.burstCap
	}
	if flags.Changed("poll-interval") {
		cfg.Refresh.PollInterval = opts.pollInterval
	}
	if len(args) > 0 {
		cfg.Command = args
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func runSession(cfg *config.Config) error {
	if !isTerminal(os.Stdin.Fd()) || !isTerminal(os.Stdout.Fd()) {
		return errors.New("stdin and stdout must be a terminal")
	}
	palette, err := render.ParsePalette(cfg.Palette)
	if err != nil {
		return err
	}

	if cfg.DebugFile != "" {
		if err := logging.Initialize(cfg.DebugFile, logging.ParseLevel(cfg.LogLevel)); err != nil {
			return fmt.Errorf("open debug log: %w", err)
		}
		defer logging.Close()
	}
	logging.Info("Starting ncte %s, log %q", version, logging.GetLogPath())

	// The child keeps the invoking TERM even when the display is driven
	// through another profile.
	childTerm := cfg.Term
	if childTerm == "" {
		childTerm = os.Getenv("TERM")
	}
	if cfg.DisplayTerm != "" {
		if err := os.Setenv("TERM", cfg.DisplayTerm); err != nil {
			return err
		}
	}

	gate, err := signalgate.New()
	if err != nil {
		return err
	}
	disp, err := display.NewTcell()
	if err != nil {
		gate.Stop()
		return fmt.Errorf("open display: %w", err)
	}
	disp.OnResize(gate.Raise)
	if err := disp.Init(); err != nil {
		gate.Stop()
		return fmt.Errorf("init display: %w", err)
	}
	safego.SetPanicHandler(func(string, any, []byte) { disp.Fini() })

	rows, cols := disp.Size()
	ch, err := pty.Start(pty.Options{
		Command: cfg.Command,
		Term:    childTerm,
		Rows:    rows,
		Cols:    cols,
	})
	if err != nil {
		disp.Fini()
		gate.Stop()
		return err
	}

	s, err := session.New(ch, disp, gate, session.Options{
		Refresh:    cfg.Refresh,
		BufferSize: cfg.BufferSize,
		Mirror:     cfg.Mirror,
		Palette:    palette,
	})
	if err != nil {
		disp.Fini()
		gate.Stop()
		_ = ch.Close()
		return err
	}
	gate.Start()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	runErr := s.Run(ctx)
	if err := s.Close(); err != nil {
		logging.Debug("close session: %v", err)
	}
	var fatalErr *session.FatalError
	if errors.As(runErr, &fatalErr) {
		logging.WithError(fatalErr, "session")
	}
	logging.Info("ncte exited, child status %d", ch.ExitCode())

	switch {
	case runErr == nil:
		return nil
	case errors.Is(runErr, context.Canceled):
		return exitError{code: 1}
	default:
		return runErr
	}
}
