package app

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentstation/sevexport/internal/cmd/output"
)

// Execute runs the sevexport CLI application with the given arguments.
// This is the main entry point called from main.go.
func (a *App) Execute(ctx context.Context, args []string) error {
	rootCmd := a.createRootCommand()
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

// createRootCommand creates the root cobra command with all subcommands.
func (a *App) createRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "sevexport",
		Short:   "Export sevDesk accounting data",
		Version: a.version,
		Long: `sevexport downloads the accounting data of a sevDesk account into a
timestamped folder: one JSON file per model of the endpoint catalog, plus
the invoice, voucher and credit note documents of one month in "Dokumente".

The API token is read from --token, SEVDESK_API_TOKEN, a .env file or
~/.sevexport.yaml.`,
		PersistentPreRunE: a.setupCommand,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}
	rootCmd.SetOut(a.out)

	rootCmd.PersistentFlags().String("config", "", "config file (default is $HOME/.sevexport.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output (shortcut for --log-level=debug)")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "minimal output (shortcut for --log-level=warn)")
	rootCmd.PersistentFlags().Bool("no-color", false, "disable colored output")
	rootCmd.PersistentFlags().StringP("format", "o", "", "output format: table, json, yaml")
	rootCmd.PersistentFlags().String("log-level", "", "log level: trace, debug, info, warn, error (overrides -v/-q)")

	rootCmd.SetVersionTemplate("sevexport {{.Version}}\n")

	rootCmd.AddCommand(a.NewExportCommand())
	rootCmd.AddCommand(a.NewEndpointsCommand())
	rootCmd.AddCommand(a.NewVersionCommand())

	return rootCmd
}

// setupCommand is called before any command runs. It reloads the
// configuration so that parsed flags take precedence.
func (a *App) setupCommand(cmd *cobra.Command, _ []string) error {
	config, err := LoadConfig(cmd)
	if err != nil {
		return err
	}
	if _, err := output.ParseFormat(config.Format); err != nil {
		return err
	}
	a.config = config

	if !a.fixedLogger {
		logger := NewLogger(config)
		a.logger = &logger
	}
	return nil
}

// ExitOnError prints err and exits with status 1.
func ExitOnError(err error) {
	if err != nil {
		_, _ = os.Stderr.WriteString("Error: " + err.Error() + "\n")
		os.Exit(1)
	}
}
