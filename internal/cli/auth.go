package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/MohammedShoaib07/campus-care/internal/domain/entity"
	"github.com/MohammedShoaib07/campus-care/internal/domain/valueobject"
	"github.com/MohammedShoaib07/campus-care/internal/usecase/identity"
)

type loginOptions struct {
	role       string
	email      string
	password   string
	name       string
	rollNumber string
	department string
	title      string
}

// NewLoginCommand creates the login command.
func NewLoginCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &loginOptions{}

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in as a student or faculty member",
		Long: `Sign in and remember the session for later commands.

Students may use any email and password. Faculty sign in with the
administrator account.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			role, err := valueobject.NewRole(opts.role)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid --role", err)
			}
			return rootOpts.run(cmd, func(ctx context.Context, s *session) error {
				return runLogin(ctx, s, role, opts)
			})
		},
	}

	cmd.Flags().StringVar(&opts.role, "role", "student", "student|faculty (reporter|resolver)")
	cmd.Flags().StringVar(&opts.email, "email", "", "email address")
	cmd.Flags().StringVar(&opts.password, "password", "", "password")
	cmd.Flags().StringVar(&opts.name, "name", "", "display name (defaults to the email local part)")
	cmd.Flags().StringVar(&opts.rollNumber, "roll", "", "roll number (students)")
	cmd.Flags().StringVar(&opts.department, "department", "", "department")
	cmd.Flags().StringVar(&opts.title, "title", "", "title (faculty)")

	return cmd
}

func runLogin(ctx context.Context, s *session, role valueobject.Role, opts *loginOptions) error {
	created, err := s.app.Identity.Authenticate(ctx, identity.Credentials{
		Email:  opts.email,
		Secret: opts.password,
		Role:   role,
		Name:   opts.name,
		Profile: entity.Profile{
			RollNumber: opts.rollNumber,
			Department: opts.department,
			Title:      opts.title,
		},
	})
	if err != nil {
		return err
	}
	return s.out.Success(newSessionView(created), func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "Signed in as %s (%s)\n", created.DisplayName, roleLabel(created.Role))
		return err
	})
}

func NewLogoutCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.run(cmd, func(ctx context.Context, s *session) error {
				if err := s.app.Identity.Logout(ctx); err != nil {
					return err
				}
				return s.out.Success(map[string]bool{"signedOut": true}, func(w io.Writer) error {
					_, err := fmt.Fprintln(w, "Signed out")
					return err
				})
			})
		},
	}
}

func NewWhoamiCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.run(cmd, func(ctx context.Context, s *session) error {
				if err := s.requireActor(); err != nil {
					return err
				}
				return s.out.Success(newSessionView(s.actor), func(w io.Writer) error {
					return writeSession(w, s.actor)
				})
			})
		},
	}
}

// sessionView is the printable part of a session. The signed token stays in
// the store.
type sessionView struct {
	ID             string           `json:"id" yaml:"id"`
	Email          string           `json:"email" yaml:"email"`
	Role           valueobject.Role `json:"role" yaml:"role"`
	DisplayName    string           `json:"displayName" yaml:"displayName"`
	entity.Profile `yaml:",inline"`
	IssuedAt       time.Time `json:"issuedAt" yaml:"issuedAt"`
}

func newSessionView(s *entity.Session) sessionView {
	return sessionView{
		ID:          s.ID,
		Email:       s.Email,
		Role:        s.Role,
		DisplayName: s.DisplayName,
		Profile:     s.Profile,
		IssuedAt:    s.IssuedAt,
	}
}

func roleLabel(r valueobject.Role) string {
	if r == valueobject.RoleResolver {
		return "faculty"
	}
	return "student"
}

func writeSession(w io.Writer, s *entity.Session) error {
	lines := [][2]string{
		{"Name", s.DisplayName},
		{"Email", s.Email},
		{"Role", roleLabel(s.Role)},
		{"Roll number", s.RollNumber},
		{"Department", s.Department},
		{"Title", s.Title},
	}
	for _, l := range lines {
		if l[1] == "" {
			continue
		}
		if _, err := fmt.Fprintf(w, "%-12s %s\n", l[0]+":", l[1]); err != nil {
			return err
		}
	}
	return nil
}
