// Package cli is the campuscare command line. Every invocation builds the
// application, resumes the stored session, runs one operation and tears
// everything down again.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"github.com/MohammedShoaib07/campus-care/internal/app"
	"github.com/MohammedShoaib07/campus-care/internal/config"
	"github.com/MohammedShoaib07/campus-care/internal/domain/entity"
	"github.com/MohammedShoaib07/campus-care/internal/logger"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "text" | "json" | "yaml"

	newApp AppFactory
}

// AppFactory builds the application for one command. Logs go to logOut.
type AppFactory func(ctx context.Context, opts *RootOptions, logOut io.Writer) (*app.App, error)

var ValidFormats = []string{"text", "json", "yaml"}

// NewRootCommand creates the root command using configuration from the
// environment.
func NewRootCommand() *cobra.Command {
	return NewRootCommandWithFactory(DefaultAppFactory)
}

// NewRootCommandWithFactory is NewRootCommand with a custom application
// factory.
func NewRootCommandWithFactory(factory AppFactory) *cobra.Command {
	opts := &RootOptions{newApp: factory}

	cmd := &cobra.Command{
		Use:   "campuscare",
		Short: "campuscare - campus complaint tracker",
		Long: `Students file complaints about hostel, classroom, food and other campus
issues; faculty triage them, update their status and leave comments.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|json|yaml)")

	cmd.AddCommand(NewLoginCommand(opts))
	cmd.AddCommand(NewLogoutCommand(opts))
	cmd.AddCommand(NewWhoamiCommand(opts))
	cmd.AddCommand(NewSubmitCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewStatusCommand(opts))
	cmd.AddCommand(NewCommentCommand(opts))
	cmd.AddCommand(NewImageCommand(opts))
	cmd.AddCommand(NewStatsCommand(opts))
	cmd.AddCommand(NewWatchCommand(opts))

	return cmd
}

// DefaultAppFactory loads .env and the environment and opens the configured
// backends.
func DefaultAppFactory(ctx context.Context, opts *RootOptions, logOut io.Writer) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	level := cfg.LogLevel
	if opts.Verbose {
		level = "debug"
	}
	log := logger.New(level, cfg.LogFormat)
	log.SetOutput(logOut)

	return app.New(ctx, cfg, log)
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// session is what a command body receives: the running application and the
// resumed session, which may be nil.
type session struct {
	app   *app.App
	actor *entity.Session
	out   *OutputFormatter
}

// requireActor fails when nobody is signed in.
func (s *session) requireActor() error {
	if s.actor == nil {
		return NewExitError(ExitCommandError, "not signed in, run `campuscare login` first")
	}
	return nil
}

// run builds the application, resumes the session, calls fn and closes the
// application. Errors from fn are reported through the formatter.
func (o *RootOptions) run(cmd *cobra.Command, fn func(ctx context.Context, s *session) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := o.formatter(cmd)

	a, err := o.newApp(ctx, o, cmd.ErrOrStderr())
	if err != nil {
		_ = out.Error(err)
		return reported(WrapExitError(ExitCommandError, "cannot start", err))
	}
	defer func() {
		if err := a.Close(); err != nil {
			out.VerboseLog("close: %v", err)
		}
	}()

	actor, err := a.Identity.Resume(ctx)
	if err != nil {
		_ = out.Error(err)
		return reported(WrapExitError(ExitFailure, "cannot resume session", err))
	}

	if err := fn(ctx, &session{app: a, actor: actor, out: out}); err != nil {
		_ = out.Error(err)
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return reported(exitErr)
		}
		return reported(WrapExitError(ExitFailure, cmd.Name()+" failed", err))
	}
	return nil
}
