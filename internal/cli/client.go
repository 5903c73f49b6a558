package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/centuriesmutual/courier/internal/domain"
	"github.com/centuriesmutual/courier/internal/mq"
	"github.com/centuriesmutual/courier/internal/onboarding"
)

// NewClientCmd создаёт группу команд управления клиентами.
func NewClientCmd(runtimeFn func() *Runtime, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "client",
		Short: "Manage clients",
	}

	cmd.AddCommand(
		newClientRegisterCmd(runtimeFn, outputFn),
		newClientListCmd(runtimeFn, outputFn),
		newClientStatusCmd(runtimeFn, outputFn),
		newClientCompleteCmd(runtimeFn, outputFn),
		newClientDeactivateCmd(runtimeFn, outputFn),
		newClientReactivateCmd(runtimeFn, outputFn),
		newClientSetLimitCmd(runtimeFn, outputFn),
		newClientDeregisterCmd(runtimeFn, outputFn),
	)

	return cmd
}

// clientRow — строка табличного вывода клиента.
func clientRow(c *domain.Client) []string {
	return []string{
		c.ClientID,
		c.Email,
		strconv.FormatBool(c.IsActive),
		strconv.FormatBool(c.OnboardingCompleted),
		fmt.Sprintf("%d/%d", c.MessageCountToday, c.DailyLimit),
		c.RegisteredAt.UTC().Format("2006-01-02"),
	}
}

var clientHeaders = []string{"CLIENT_ID", "EMAIL", "ACTIVE", "ONBOARDED", "QUOTA", "REGISTERED"}

func newClientRegisterCmd(runtimeFn func() *Runtime, outputFn func() *Output) *cobra.Command {
	var reg onboarding.Registration

	cmd := &cobra.Command{
		Use:   "register CLIENT_ID",
		Short: "Register a new client and provision its queues",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := runtimeFn()
			out := outputFn()

			svc, err := rt.Onboarding(cmd.Context())
			if err != nil {
				return err
			}

			reg.ClientID = args[0]
			rec, err := svc.Register(cmd.Context(), reg)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Client registered: %s", rec.ClientID))
			out.Print(clientHeaders, [][]string{clientRow(rec)}, rec)
			return nil
		},
	}

	cmd.Flags().StringVar(&reg.Email, "email", "", "Client email (required)")
	cmd.Flags().StringVar(&reg.Phone, "phone", "", "Client phone")
	cmd.Flags().StringVar(&reg.FirstName, "first-name", "", "First name (required)")
	cmd.Flags().StringVar(&reg.LastName, "last-name", "", "Last name (required)")
	cmd.Flags().IntVar(&reg.DailyLimit, "daily-limit", 0, "Daily message limit (0 = default)")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("first-name")
	cmd.MarkFlagRequired("last-name")

	return cmd
}

func newClientListCmd(runtimeFn func() *Runtime, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all clients",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := runtimeFn()
			out := outputFn()

			svc, err := rt.Onboarding(cmd.Context())
			if err != nil {
				return err
			}

			clients, err := svc.List(cmd.Context())
			if err != nil {
				return err
			}

			rows := make([][]string, len(clients))
			for i, c := range clients {
				rows[i] = clientRow(c)
			}

			out.Print(clientHeaders, rows, clients)
			return nil
		},
	}
}

func newClientStatusCmd(runtimeFn func() *Runtime, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "status CLIENT_ID",
		Short: "Show client record and live queue state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := runtimeFn()
			out := outputFn()

			svc, err := rt.Onboarding(cmd.Context())
			if err != nil {
				return err
			}

			st, err := svc.Status(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out.Print(clientHeaders, [][]string{clientRow(st.Client)}, st)

			var queueRows [][]string
			for _, info := range []*mq.QueueInfo{st.PrimaryInfo, st.FailedInfo} {
				if info != nil {
					queueRows = append(queueRows, []string{
						info.Name, strconv.Itoa(info.Messages), strconv.Itoa(info.Consumers),
					})
				}
			}
			if len(queueRows) > 0 {
				out.Table([]string{"QUEUE", "MESSAGES", "CONSUMERS"}, queueRows)
			}
			return nil
		},
	}
}

func newClientCompleteCmd(runtimeFn func() *Runtime, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "complete-onboarding CLIENT_ID",
		Short: "Mark client onboarding as completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := runtimeFn()
			out := outputFn()

			svc, err := rt.Onboarding(cmd.Context())
			if err != nil {
				return err
			}

			if err := svc.CompleteOnboarding(cmd.Context(), args[0]); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Onboarding completed: %s", args[0]))
			return nil
		},
	}
}

func newClientDeactivateCmd(runtimeFn func() *Runtime, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate CLIENT_ID",
		Short: "Deactivate a client",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := runtimeFn()
			out := outputFn()

			svc, err := rt.Onboarding(cmd.Context())
			if err != nil {
				return err
			}

			if err := svc.Deactivate(cmd.Context(), args[0]); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Client deactivated: %s", args[0]))
			return nil
		},
	}
}

func newClientReactivateCmd(runtimeFn func() *Runtime, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "reactivate CLIENT_ID",
		Short: "Reactivate a client",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := runtimeFn()
			out := outputFn()

			svc, err := rt.Onboarding(cmd.Context())
			if err != nil {
				return err
			}

			if err := svc.Reactivate(cmd.Context(), args[0]); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Client reactivated: %s", args[0]))
			return nil
		},
	}
}

func newClientSetLimitCmd(runtimeFn func() *Runtime, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "set-limit CLIENT_ID LIMIT",
		Short: "Change client daily limit and reprovision its queue",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := runtimeFn()
			out := outputFn()

			limit, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid limit %q: %w", args[1], err)
			}

			svc, err := rt.Onboarding(cmd.Context())
			if err != nil {
				return err
			}

			if err := svc.UpdateLimit(cmd.Context(), args[0], limit); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Daily limit for %s set to %d", args[0], limit))
			return nil
		},
	}
}

func newClientDeregisterCmd(runtimeFn func() *Runtime, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "deregister CLIENT_ID",
		Short: "Remove client queues and metadata (audit trail is kept)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := runtimeFn()
			out := outputFn()

			svc, err := rt.Onboarding(cmd.Context())
			if err != nil {
				return err
			}

			if err := svc.Deregister(cmd.Context(), args[0]); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Client deregistered: %s", args[0]))
			return nil
		},
	}
}
