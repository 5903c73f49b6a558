package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// NewQuotaCmd создаёт группу команд управления квотами.
func NewQuotaCmd(runtimeFn func() *Runtime, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quota",
		Short: "Manage daily message quotas",
	}

	cmd.AddCommand(
		newQuotaStatsCmd(runtimeFn, outputFn),
		newQuotaResetCmd(runtimeFn, outputFn),
	)

	return cmd
}

func newQuotaStatsCmd(runtimeFn func() *Runtime, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "stats CLIENT_ID",
		Short: "Show client quota usage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := runtimeFn()
			out := outputFn()

			tracker, err := rt.Tracker(cmd.Context())
			if err != nil {
				return err
			}

			stats, err := tracker.Stats(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out.Print(
				[]string{"CLIENT_ID", "SENT_TODAY", "LIMIT", "REMAINING", "LAST_SENT"},
				[][]string{{
					stats.ClientID,
					strconv.Itoa(stats.MessagesToday),
					strconv.Itoa(stats.DailyLimit),
					strconv.Itoa(stats.Remaining),
					formatTime(stats.LastMessageSent),
				}},
				stats,
			)
			return nil
		},
	}
}

func newQuotaResetCmd(runtimeFn func() *Runtime, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "reset CLIENT_ID",
		Short: "Reset client daily counter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := runtimeFn()
			out := outputFn()

			tracker, err := rt.Tracker(cmd.Context())
			if err != nil {
				return err
			}

			if err := tracker.Reset(cmd.Context(), args[0]); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Quota reset: %s", args[0]))
			return nil
		},
	}
}
