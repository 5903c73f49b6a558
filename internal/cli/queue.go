package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/centuriesmutual/courier/internal/mq"
)

// NewQueueCmd создаёт группу команд для работы с очередями брокера.
func NewQueueCmd(runtimeFn func() *Runtime, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect broker queues",
	}

	cmd.AddCommand(
		newQueueInfoCmd(runtimeFn, outputFn),
		newQueuePurgeCmd(runtimeFn, outputFn),
	)

	return cmd
}

func newQueueInfoCmd(runtimeFn func() *Runtime, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "info QUEUE",
		Short: "Show queue message and consumer counts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := runtimeFn()
			out := outputFn()

			prov, err := rt.Provisioner(cmd.Context())
			if err != nil {
				return err
			}

			info, err := prov.QueueInfo(cmd.Context(), mq.Queue(args[0]))
			if err != nil {
				return err
			}

			out.Print(
				[]string{"QUEUE", "MESSAGES", "CONSUMERS"},
				[][]string{{info.Name, strconv.Itoa(info.Messages), strconv.Itoa(info.Consumers)}},
				info,
			)
			return nil
		},
	}
}

func newQueuePurgeCmd(runtimeFn func() *Runtime, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "purge QUEUE",
		Short: "Remove all messages from a queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := runtimeFn()
			out := outputFn()

			prov, err := rt.Provisioner(cmd.Context())
			if err != nil {
				return err
			}

			purged, err := prov.PurgeQueue(cmd.Context(), mq.Queue(args[0]))
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Purged %d messages from %s", purged, args[0]))
			return nil
		},
	}
}

// NewTopologyCmd создаёт группу команд для работы с топологией брокера.
func NewTopologyCmd(runtimeFn func() *Runtime, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "topology",
		Short: "Inspect and declare broker topology",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the exchange and queue layout",
			RunE: func(cmd *cobra.Command, args []string) error {
				fmt.Fprintln(cmd.OutOrStdout(), mq.TopologyInfo())
				return nil
			},
		},
		&cobra.Command{
			Use:   "ensure",
			Short: "Declare exchanges and workflow queues on the broker",
			RunE: func(cmd *cobra.Command, args []string) error {
				rt := runtimeFn()
				out := outputFn()

				// Connect объявляет топологию в onConnect-хуке.
				if _, err := rt.Broker(cmd.Context()); err != nil {
					return err
				}

				out.Success("Topology declared")
				return nil
			},
		},
	)

	return cmd
}
