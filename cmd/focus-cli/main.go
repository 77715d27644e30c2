// focus CLI — инструмент командной строки для задач и напоминаний
// через HTTP API focus-api и WebSocket шлюз focus-reminderd.
//
// Использование:
//
//	focus [--api-url URL] [--gateway-url URL] [--json] <command> <subcommand> [flags]
//
// Команды:
//
//	task       Управление задачами
//	reminders  Resync и просмотр напоминаний
//	config     Пример и проверка конфигурации демонов
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/shaiso/FocusTasks/internal/cli"
	"github.com/shaiso/FocusTasks/internal/config"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var apiURL string
	var gatewayURL string
	var jsonOutput bool

	rootCmd := &cobra.Command{
		Use:           "focus",
		Short:         "focus CLI — tasks with due-soon reminders",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", envOr("FOCUS_API_URL", "http://localhost:8080"), "API server URL")
	rootCmd.PersistentFlags().StringVar(&gatewayURL, "gateway-url", envOr("FOCUS_GATEWAY_URL", "ws://localhost:8090/ws"), "Reminder gateway WebSocket URL")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	clientFn := func() *cli.Client { return cli.NewClient(apiURL) }
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }

	rootCmd.AddCommand(
		cli.NewTaskCmd(clientFn, outputFn),
		cli.NewRemindersCmd(clientFn, outputFn, &gatewayURL),
		cli.NewConfigCmd(config.Example, checkConfig, outputFn),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// checkConfig загружает файл так же, как это делают демоны.
func checkConfig(path string) error {
	_, err := config.LoadFrom(afero.NewOsFs(), path, os.LookupEnv)
	return err
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
