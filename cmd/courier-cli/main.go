// Courier CLI — инструмент командной строки для управления
// клиентами, квотами и отправкой сообщений.
//
// Использование:
//
//	courier [--broker-url URL] [--json] <command> <subcommand> [flags]
//
// Команды:
//
//	client    Управление клиентами
//	quota     Управление квотами
//	send      Отправка сообщений
//	queue     Инспекция очередей
//	topology  Топология брокера
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/centuriesmutual/courier/internal/cli"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var brokerURL string
	var jsonOutput bool

	rootCmd := &cobra.Command{
		Use:           "courier",
		Short:         "Courier CLI — insurance notification backend tool",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&brokerURL, "broker-url", "", "Broker URL (default: BROKER_URL env)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	var rt *cli.Runtime
	runtimeFn := func() *cli.Runtime {
		if rt == nil {
			rt = cli.NewRuntime(brokerURL)
		}
		return rt
	}
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }

	rootCmd.AddCommand(
		cli.NewClientCmd(runtimeFn, outputFn),
		cli.NewQuotaCmd(runtimeFn, outputFn),
		cli.NewSendCmd(runtimeFn, outputFn),
		cli.NewQueueCmd(runtimeFn, outputFn),
		cli.NewTopologyCmd(runtimeFn, outputFn),
	)

	err := rootCmd.Execute()

	if rt != nil {
		rt.Close()
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
