// Package cli implements clinicctl, the operator command line.
package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hackgods/mindcare/internal/appointment"
	"github.com/hackgods/mindcare/internal/reminder"
)

// Migrator applies and reports schema migrations.
type Migrator interface {
	Up(ctx context.Context) error
	Status(ctx context.Context) error
	Version(ctx context.Context) (int64, error)
}

// Env is what the commands operate on.
type Env struct {
	Migrator     Migrator
	Reminders    reminder.Repository
	Scheduler    *reminder.Scheduler
	Dispatcher   *reminder.Dispatcher
	Directory    *appointment.Directory
	Dispatch     reminder.DispatchOptions // configured defaults
	Location     *time.Location
	SlotDuration time.Duration
}

// Loader builds the Env lazily so that --help works without a database.
// The returned func releases it.
type Loader func(ctx context.Context) (*Env, func(), error)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Format string // "json" | "text"
}

var ValidFormats = []string{"text", "json"}

func NewRootCommand(load Loader) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "clinicctl",
		Short: "Operate the mindcare appointment service",
		Long:  "Maintenance commands for the appointment database: migrations, reminder delivery and availability.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(newMigrateCommand(load))
	cmd.AddCommand(newRemindersCommand(opts, load))
	cmd.AddCommand(newSlotsCommand(opts, load))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// withEnv loads the Env for one command run and releases it afterwards.
func withEnv(cmd *cobra.Command, load Loader, fn func(ctx context.Context, env *Env) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	env, release, err := load(ctx)
	if err != nil {
		return err
	}
	defer release()
	return fn(ctx, env)
}
