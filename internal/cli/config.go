package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewConfigCmd создаёт группу команд для конфигурации демонов.
// example возвращает пример YAML, check загружает и проверяет файл.
func NewConfigCmd(example func() string, check func(path string) error, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration of focus-api and focus-reminderd",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "example",
			Short: "Print an example configuration file",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				_, err := fmt.Fprint(cmd.OutOrStdout(), example())
				return err
			},
		},
		&cobra.Command{
			Use:   "check <file>",
			Short: "Validate a configuration file (environment overrides applied)",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := check(args[0]); err != nil {
					return err
				}
				outputFn().Success(fmt.Sprintf("Config %s is valid", args[0]))
				return nil
			},
		},
	)

	return cmd
}
