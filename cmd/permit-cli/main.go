// permit-cli — инструмент оператора процесса парковочных разрешений.
//
// Использование:
//
//	permit-cli [--api-url URL] [--config FILE] [--json] <command> [flags]
//
// Команды:
//
//	errand      Состояние процесса по делу
//	topics      Топики воркера и их счётчики
//	journal     Журнал эффектов
//	ready       Готовность воркера
//	transition  Предпросмотр перехода фазы
//	decision    Предпросмотр решения
//	config      Итоговая конфигурация
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shaiso/permitflow/internal/cli"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var apiURL string
	var configPath string
	var jsonOutput bool

	rootCmd := &cobra.Command{
		Use:           "permit-cli",
		Short:         "permitflow CLI — parking permit process operations",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "http://localhost:8082", "Worker ops API URL")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: $PERMITFLOW_CONFIG)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	clientFn := func() *cli.Client { return cli.NewClient(apiURL) }
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }
	configFn := func() string { return configPath }

	rootCmd.AddCommand(
		cli.NewErrandCmd(clientFn, outputFn),
		cli.NewTopicsCmd(clientFn, outputFn),
		cli.NewJournalCmd(clientFn, outputFn),
		cli.NewReadyCmd(clientFn, outputFn),
		cli.NewTransitionCmd(outputFn),
		cli.NewDecisionCmd(configFn, outputFn),
		cli.NewConfigCmd(configFn, outputFn),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
