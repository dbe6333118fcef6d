package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/MohammedShoaib07/campus-care/internal/domain/valueobject"
	"github.com/MohammedShoaib07/campus-care/internal/events"
	"github.com/MohammedShoaib07/campus-care/internal/usecase/query"
)

type statsResult struct {
	query.Stats `yaml:",inline"`
	Metrics     map[string]float64 `json:"metrics,omitempty" yaml:"metrics,omitempty"`
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	var withMetrics bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show complaint counts by status and category (faculty)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.run(cmd, func(ctx context.Context, s *session) error {
				if err := s.requireActor(); err != nil {
					return err
				}
				stats, err := s.app.Lifecycle.Dashboard(ctx, s.actor)
				if err != nil {
					return err
				}

				result := statsResult{Stats: stats}
				if withMetrics {
					if result.Metrics, err = s.app.Metrics.Snapshot(); err != nil {
						return err
					}
				}
				return s.out.Success(result, func(w io.Writer) error {
					if err := writeStats(w, stats); err != nil {
						return err
					}
					if !withMetrics {
						return nil
					}
					fmt.Fprintln(w)
					return s.app.Metrics.WriteText(w)
				})
			})
		},
	}

	cmd.Flags().BoolVar(&withMetrics, "metrics", false, "also print the process counters")
	return cmd
}

func writeStats(w io.Writer, stats query.Stats) error {
	if _, err := fmt.Fprintf(w, "Total: %d\n", stats.Total); err != nil {
		return err
	}
	for _, status := range valueobject.ComplaintStatuses {
		fmt.Fprintf(w, "  %-12s %d\n", status, stats.ByStatus[status])
	}
	fmt.Fprintln(w, "By category:")
	for _, category := range valueobject.Categories {
		fmt.Fprintf(w, "  %-12s %d\n", category, stats.ByCategory[category])
	}
	return nil
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print a line whenever complaints change, until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.run(cmd, func(ctx context.Context, s *session) error {
				if err := s.requireActor(); err != nil {
					return err
				}
				s.out.VerboseLog("watching for changes, press Ctrl+C to stop")
				return s.app.Watch(ctx, func(ev events.Event) {
					records, err := s.app.Lifecycle.View(ctx, s.actor, query.Criteria{})
					if err != nil {
						_ = s.out.Error(err)
						return
					}
					_ = s.out.Success(watchLine{Event: ev, Visible: len(records)}, func(w io.Writer) error {
						_, err := fmt.Fprintf(w, "%s  complaints changed (%s), %d visible\n",
							ev.At.Local().Format(time.TimeOnly), ev.Kind, len(records))
						return err
					})
				})
			})
		},
	}
}

type watchLine struct {
	Event   events.Event `json:"event" yaml:"event"`
	Visible int          `json:"visible" yaml:"visible"`
}
