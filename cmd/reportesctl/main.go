// Command reportesctl runs maintenance and one-off report tasks against the
// configured reporting view.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"reportes/internal/cli"
	applog "reportes/internal/log"
)

var rootCmd = &cobra.Command{
	Use:           "reportesctl",
	Short:         "Maintenance and export tool for the adolescent program reports",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cli.LoadEnvFile()
		cli.SetupLogger(applog.ComponentApp, os.Getenv("LOG_LEVEL"))
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd, seedCmd, exportCmd, genderCmd)
}

func main() {
	ctx, stop := cli.SignalContext(applog.New(applog.DefaultConfig()).Logger)
	defer stop()

	if err := execute(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func execute(ctx context.Context, args []string) error {
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}
