package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/centuriesmutual/courier/internal/domain"
	"github.com/centuriesmutual/courier/internal/notify"
)

// NewSendCmd создаёт группу команд отправки сообщений.
func NewSendCmd(runtimeFn func() *Runtime, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Publish messages",
	}

	cmd.AddCommand(
		newSendClientCmd(runtimeFn, outputFn),
		newSendWorkflowCmd(runtimeFn, outputFn),
		newSendBulkCmd(runtimeFn, outputFn),
		newResendCmd(runtimeFn, outputFn),
	)

	return cmd
}

var resultHeaders = []string{"MESSAGE_ID", "STATUS", "TIMESTAMP"}

func resultRow(res *notify.SendResult) []string {
	return []string{res.MessageID, res.Status, res.Timestamp.UTC().Format("2006-01-02T15:04:05Z")}
}

func newSendClientCmd(runtimeFn func() *Runtime, outputFn func() *Output) *cobra.Command {
	var (
		kind     string
		content  string
		priority uint8
	)

	cmd := &cobra.Command{
		Use:   "client CLIENT_ID",
		Short: "Send a message to a client queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := runtimeFn()
			out := outputFn()

			k := domain.ParseKind(kind)
			if !k.IsKnown() {
				return fmt.Errorf("unknown message type %q", kind)
			}

			pub, err := rt.Publisher(cmd.Context())
			if err != nil {
				return err
			}

			res, err := pub.SendClientMessage(cmd.Context(), notify.MessageRequest{
				ClientID: args[0],
				Kind:     k,
				Content:  content,
				Priority: priority,
			})
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Message sent: %s", res.MessageID))
			out.Print(resultHeaders, [][]string{resultRow(res)}, res)
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "type", "", "Message type (required)")
	cmd.Flags().StringVar(&content, "content", "", "Message body (required)")
	cmd.Flags().Uint8Var(&priority, "priority", 0, "Message priority 0-9")
	cmd.MarkFlagRequired("type")
	cmd.MarkFlagRequired("content")

	return cmd
}

func newSendWorkflowCmd(runtimeFn func() *Runtime, outputFn func() *Output) *cobra.Command {
	var (
		kind    string
		content string
	)

	cmd := &cobra.Command{
		Use:   "workflow ROUTING_KEY",
		Short: "Send a workflow message (enrollment.*, claims.*, payments.*)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := runtimeFn()
			out := outputFn()

			pub, err := rt.Publisher(cmd.Context())
			if err != nil {
				return err
			}

			res, err := pub.SendWorkflowMessage(cmd.Context(), args[0], kind, content, nil)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Workflow message sent: %s", res.MessageID))
			out.Print(resultHeaders, [][]string{resultRow(res)}, res)
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "type", "workflow_update", "Message type")
	cmd.Flags().StringVar(&content, "content", "", "Message body (required)")
	cmd.MarkFlagRequired("content")

	return cmd
}

func newSendBulkCmd(runtimeFn func() *Runtime, outputFn func() *Output) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "bulk",
		Short: "Send a batch of messages from a JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := runtimeFn()
			out := outputFn()

			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read batch file: %w", err)
			}

			var reqs []notify.MessageRequest
			if err := json.Unmarshal(data, &reqs); err != nil {
				return fmt.Errorf("parse batch file: %w", err)
			}

			pub, err := rt.Publisher(cmd.Context())
			if err != nil {
				return err
			}

			res := pub.SendBulk(cmd.Context(), reqs)

			out.Success(fmt.Sprintf("Sent %d, failed %d, over limit %d",
				len(res.Sent), len(res.Failed), len(res.LimitExceeded)))
			out.JSON(res)
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "Path to JSON array of message requests (required)")
	cmd.MarkFlagRequired("file")

	return cmd
}

func newResendCmd(runtimeFn func() *Runtime, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "resend CLIENT_ID MESSAGE_ID",
		Short: "Republish an archived message",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := runtimeFn()
			out := outputFn()

			pub, err := rt.Publisher(cmd.Context())
			if err != nil {
				return err
			}

			res, err := pub.Resend(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Message resent: %s", res.MessageID))
			out.Print(resultHeaders, [][]string{resultRow(res)}, res)
			return nil
		},
	}
}
