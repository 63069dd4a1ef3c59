// cmd_builders.go - Command-Builder Funktionen
// Hauptfunktionen: newKindsCmd, newSelectCmd, newTuningCmd, etc.
package cmd

import (
	"github.com/spf13/cobra"
)

// newServeCmd - Erstellt den serve Command
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "serve",
		Aliases: []string{"start"},
		Short:   "Start the introspection server",
		Args:    cobra.ExactArgs(0),
		RunE:    RunServer,
	}
}

// newKindsCmd - Erstellt den kinds Command
func newKindsCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "kinds",
		Aliases: []string{"ls"},
		Short:   "List primitive kinds",
		PreRunE: checkServerHeartbeat,
		RunE:    KindsHandler,
	}
}

// newImplsCmd - Erstellt den impls Command
func newImplsCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "impls KIND",
		Short:   "List the implementations registered for a kind",
		Args:    cobra.ExactArgs(1),
		PreRunE: checkServerHeartbeat,
		RunE:    ImplementationsHandler,
	}
}

func addSelectionFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("local", false, "Select in this process instead of asking the server")
	cmd.Flags().Bool("json", false, "Print the raw JSON response")
}

// newSelectCmd - Erstellt den select Command
func newSelectCmd() *cobra.Command {
	selectCmd := &cobra.Command{
		Use:     "select [FILE]",
		Short:   "Select kernels for a primitive described in JSON (file or stdin)",
		Args:    cobra.MaximumNArgs(1),
		PreRunE: checkServerHeartbeatUnlessLocal,
		RunE:    SelectHandler,
	}
	addSelectionFlags(selectCmd)
	return selectCmd
}

// newExplainCmd - Erstellt den explain Command
func newExplainCmd() *cobra.Command {
	explainCmd := &cobra.Command{
		Use:     "explain [FILE]",
		Short:   "Show how every implementation was judged for a primitive",
		Args:    cobra.MaximumNArgs(1),
		PreRunE: checkServerHeartbeatUnlessLocal,
		RunE:    ExplainHandler,
	}
	addSelectionFlags(explainCmd)
	return explainCmd
}

// newTuningCmd - Erstellt den tuning Command mit Unterbefehlen
func newTuningCmd() *cobra.Command {
	tuningCmd := &cobra.Command{
		Use:   "tuning",
		Short: "Manage the tuning database",
	}
	tuningCmd.PersistentFlags().String("db", "", "Path of the tuning database (default KSEL_TUNING_DB)")

	importCmd := &cobra.Command{
		Use:   "import CSV...",
		Short: "Aggregate benchmark samples from CSV files into the tuning database",
		Args:  cobra.MinimumNArgs(1),
		RunE:  TuningImportHandler,
	}
	importCmd.Flags().Bool("dry-run", false, "Print the aggregated records without saving them")

	showCmd := &cobra.Command{
		Use:   "show [FINGERPRINT_PREFIX]",
		Short: "List tuning records",
		Args:  cobra.MaximumNArgs(1),
		RunE:  TuningShowHandler,
	}

	tuningCmd.AddCommand(importCmd, showCmd)
	return tuningCmd
}
