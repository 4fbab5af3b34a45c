package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newSlotsCommand(opts *RootOptions, load Loader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "slots",
		Short: "Manage bookable slots",
	}

	var weeks int
	expand := &cobra.Command{
		Use:   "expand",
		Short: "Create free slots from the weekly availability rules",
		Long: `Create free slots for every active therapist from their weekly
availability rules, starting now. Slots that already exist are left alone,
so the command can run repeatedly.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if weeks <= 0 {
				return fmt.Errorf("--weeks must be positive, got %d", weeks)
			}
			return withEnv(cmd, load, func(ctx context.Context, env *Env) error {
				n, err := env.Directory.ExpandAvailability(ctx, time.Now(), weeks, env.Location, env.SlotDuration)
				if err != nil {
					return err
				}
				return report(cmd.OutOrStdout(), opts, map[string]int{"created": n}, fmt.Sprintf("created %d slots", n))
			})
		},
	}
	expand.Flags().IntVar(&weeks, "weeks", 4, "number of weeks to expand")

	cmd.AddCommand(expand)
	return cmd
}
