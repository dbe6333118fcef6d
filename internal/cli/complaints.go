package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/MohammedShoaib07/campus-care/internal/domain/entity"
	"github.com/MohammedShoaib07/campus-care/internal/domain/valueobject"
	"github.com/MohammedShoaib07/campus-care/internal/usecase/query"
)

type submitOptions struct {
	category    string
	title       string
	description string
	anonymous   bool
	image       string
}

// NewSubmitCommand creates the submit command.
func NewSubmitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &submitOptions{}

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "File a new complaint (students)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			category, err := valueobject.NewCategory(opts.category)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid --category", err)
			}
			var image []byte
			if opts.image != "" {
				if image, err = os.ReadFile(opts.image); err != nil {
					return WrapExitError(ExitCommandError, "cannot read --image", err)
				}
			}

			return rootOpts.run(cmd, func(ctx context.Context, s *session) error {
				if err := s.requireActor(); err != nil {
					return err
				}
				draft := entity.ComplaintDraft{
					Category:    category,
					Title:       opts.title,
					Description: opts.description,
					IsAnonymous: opts.anonymous,
				}
				if image != nil {
					s.out.VerboseLog("uploading %s (%d bytes)", opts.image, len(image))
					ref, err := s.app.Lifecycle.AttachImage(ctx, s.actor, image)
					if err != nil {
						return err
					}
					draft.ImageRef = ref
				}

				created, err := s.app.Lifecycle.Submit(ctx, s.actor, draft)
				if err != nil {
					return err
				}
				return s.out.Success(created, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Submitted %s\n", created.ID)
					return err
				})
			})
		},
	}

	cmd.Flags().StringVar(&opts.category, "category", "", "hostel|classroom|food|other")
	cmd.Flags().StringVar(&opts.title, "title", "", "short title")
	cmd.Flags().StringVar(&opts.description, "description", "", "what happened")
	cmd.Flags().BoolVar(&opts.anonymous, "anonymous", false, "hide your name from faculty")
	cmd.Flags().StringVar(&opts.image, "image", "", "path to an evidence image")

	return cmd
}

type listOptions struct {
	search   string
	status   string
	category string
}

// NewListCommand creates the list command. Students see their own
// complaints; faculty see everything, with anonymous owners hidden.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &listOptions{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List complaints visible to the current user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			criteria, err := opts.criteria()
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid filter", err)
			}
			return rootOpts.run(cmd, func(ctx context.Context, s *session) error {
				if err := s.requireActor(); err != nil {
					return err
				}
				records, err := s.app.Lifecycle.View(ctx, s.actor, criteria)
				if err != nil {
					return err
				}
				return s.out.Success(records, func(w io.Writer) error {
					return writeComplaints(w, records)
				})
			})
		},
	}

	cmd.Flags().StringVar(&opts.search, "search", "", "match title, description or owner name")
	cmd.Flags().StringVar(&opts.status, "status", query.All, "all|pending|in-progress|resolved")
	cmd.Flags().StringVar(&opts.category, "category", query.All, "all|hostel|classroom|food|other")

	return cmd
}

func (o *listOptions) criteria() (query.Criteria, error) {
	status, err := query.ParseStatusFilter(o.status)
	if err != nil {
		return query.Criteria{}, err
	}
	category, err := query.ParseCategoryFilter(o.category)
	if err != nil {
		return query.Criteria{}, err
	}
	return query.Criteria{Search: o.search, Status: status, Category: category}, nil
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status <complaint-id> <pending|in-progress|resolved>",
		Short: "Change the status of a complaint (faculty)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := valueobject.NewComplaintStatus(args[1])
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid status", err)
			}
			return rootOpts.run(cmd, func(ctx context.Context, s *session) error {
				if err := s.requireActor(); err != nil {
					return err
				}
				updated, err := s.app.Lifecycle.SetStatus(ctx, s.actor, args[0], status)
				if err != nil {
					return err
				}
				return s.out.Success(updated, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "%s is now %s\n", updated.ID, updated.Status)
					return err
				})
			})
		},
	}
}

// NewCommentCommand creates the comment command.
func NewCommentCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "comment <complaint-id> <text>",
		Short: "Add a resolver comment to a complaint (faculty)",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args[1:], " ")
			return rootOpts.run(cmd, func(ctx context.Context, s *session) error {
				if err := s.requireActor(); err != nil {
					return err
				}
				updated, err := s.app.Lifecycle.AddComment(ctx, s.actor, args[0], text)
				if err != nil {
					return err
				}
				return s.out.Success(updated, func(w io.Writer) error {
					latest, _ := updated.LatestComment()
					_, err := fmt.Fprintf(w, "Commented on %s: %s\n", updated.ID, latest)
					return err
				})
			})
		},
	}
}

// NewImageCommand creates the image command.
func NewImageCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "image <image-ref>",
		Short: "Print a viewable location for an attached image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.run(cmd, func(ctx context.Context, s *session) error {
				if err := s.requireActor(); err != nil {
					return err
				}
				locator, err := s.app.Lifecycle.ResolveImage(ctx, s.actor, args[0])
				if err != nil {
					return err
				}
				return s.out.Success(map[string]string{"ref": args[0], "locator": locator}, func(w io.Writer) error {
					_, err := fmt.Fprintln(w, locator)
					return err
				})
			})
		},
	}
}

func writeComplaints(w io.Writer, records []entity.Complaint) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No complaints found")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tCATEGORY\tTITLE\tOWNER\tUPDATED")
	for _, c := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			c.ID, c.Status, c.Category, c.Title, c.OwnerDisplayName, c.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, c := range records {
		if len(c.ResolverComments) == 0 && c.ImageRef == "" {
			continue
		}
		fmt.Fprintf(w, "\n%s\n", c.ID)
		if c.ImageRef != "" {
			fmt.Fprintf(w, "  image: %s\n", c.ImageRef)
		}
		for _, comment := range c.ResolverComments {
			fmt.Fprintf(w, "  - %s\n", comment)
		}
	}
	return nil
}
