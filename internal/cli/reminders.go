package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newRemindersCommand(opts *RootOptions, load Loader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reminders",
		Short: "Deliver and prune scheduled reminder emails",
	}
	cmd.AddCommand(newRemindersSendCommand(opts, load))
	cmd.AddCommand(newRemindersCleanupCommand(opts, load))
	return cmd
}

type sendResult struct {
	DryRun  bool `json:"dry_run"`
	Due     int  `json:"due"`
	Sent    int  `json:"sent"`
	Failed  int  `json:"failed"`
	Skipped int  `json:"skipped"`
}

func newRemindersSendCommand(opts *RootOptions, load Loader) *cobra.Command {
	var (
		dryRun     bool
		maxEmails  int
		maxRetries int
	)

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send every due pending reminder once",
		Long: `Send every pending reminder whose scheduled time has passed.

A failed send is recorded on the entry and retried on the next run until
--max-retries is reached, after which the entry is marked failed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd, load, func(ctx context.Context, env *Env) error {
				dopts := env.Dispatch
				dopts.DryRun = dryRun
				if maxEmails > 0 {
					dopts.BatchSize = maxEmails
				}
				if maxRetries > 0 {
					dopts.MaxRetries = maxRetries
				}

				res, err := env.Dispatcher.Run(ctx, dopts)
				if err != nil {
					return err
				}
				out := sendResult{DryRun: dryRun, Due: res.Due, Sent: res.Sent, Failed: res.Failed, Skipped: res.Skipped}
				text := fmt.Sprintf("due=%d sent=%d failed=%d skipped=%d", res.Due, res.Sent, res.Failed, res.Skipped)
				if dryRun {
					text += " (dry run)"
				}
				return report(cmd.OutOrStdout(), opts, out, text)
			})
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "list what would be sent without sending")
	cmd.Flags().IntVar(&maxEmails, "max-emails", 0, "maximum reminders to process (default REMINDER_BATCH_SIZE)")
	cmd.Flags().IntVar(&maxRetries, "max-retries", 0, "attempts before an entry is marked failed (default REMINDER_MAX_RETRIES)")

	return cmd
}

func newRemindersCleanupCommand(opts *RootOptions, load Loader) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete sent, cancelled and failed reminders older than --days",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if days <= 0 {
				return fmt.Errorf("--days must be positive, got %d", days)
			}
			return withEnv(cmd, load, func(ctx context.Context, env *Env) error {
				n, err := env.Scheduler.Cleanup(ctx, env.Reminders, time.Duration(days)*24*time.Hour)
				if err != nil {
					return err
				}
				return report(cmd.OutOrStdout(), opts, map[string]int{"deleted": n}, fmt.Sprintf("deleted %d reminder entries", n))
			})
		},
	}

	cmd.Flags().IntVar(&days, "days", 30, "retention in days")

	return cmd
}
