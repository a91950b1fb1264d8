package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"boardsync.app/mirror/internal/service"
)

// CatchupCmd returns the catchup command
func CatchupCmd() *cobra.Command {
	var (
		since  string
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "catchup",
		Short: "Replay unprocessed webhook events against the mirror",
		Long: `Replays pending webhook events in arrival order. When an event hits a
missing dependency the entity is fetched from the YouGile API and the
event retried once.

With --dry-run the event log is left untouched: entity upserts still
happen (they are idempotent) but no event is marked processed, so the
same events replay on the next run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()
			if _, err := rt.requireSource(); err != nil {
				return err
			}

			opts := service.CatchupOptions{MarkProcessed: !dryRun}
			if since != "" {
				t, err := time.Parse(time.RFC3339, since)
				if err != nil {
					return fmt.Errorf("invalid --since %q, want RFC 3339 like 2026-01-02T15:04:05Z", since)
				}
				opts.Since = &t
			}

			summary, err := rt.services.Catchup().Run(ctx, opts)
			if err != nil {
				return fmt.Errorf("catch-up failed: %w", err)
			}

			if dryRun {
				fmt.Println("[DRY RUN] Event bookkeeping untouched, the same events replay next run.")
			}
			fmt.Println("\n✓ Catch-up complete")
			fmt.Printf("  %-12s %d\n", "examined", summary.Examined)
			fmt.Printf("  %-12s %d\n", "processed", summary.Processed)
			fmt.Printf("  %-12s %d\n", "fk_resolved", summary.FKResolved)
			fmt.Printf("  %-12s %d\n", "errors", summary.Errors)

			if len(summary.ErrorDetails) > 0 {
				fmt.Println("\nFailed events:")
				for _, e := range summary.ErrorDetails {
					fmt.Printf("  %d: %s\n", e.EventID, e.Error)
				}
			}
			if len(summary.EventSummary) > 0 {
				fmt.Println("\nFirst events handled:")
				for _, ev := range summary.EventSummary {
					fmt.Printf("  %-20d %-24s %-10s %s\n",
						ev.ID, ev.EventType, ev.EntityType, ev.ReceivedAt.Format(time.RFC3339))
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&since, "since", "", "Only replay events received at or after this RFC 3339 instant")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Replay without touching event bookkeeping")

	return cmd
}
