// cmd.go - Haupt-CLI Setup und Environment-Dokumentation
// Hauptfunktionen: NewCLI, appendEnvDocs
package cmd

import (
	"fmt"
	"log"
	"os"
	"runtime"

	"github.com/containerd/console"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ollama/kselect/envconfig"
)

// appendEnvDocs - Fuegt Umgebungsvariablen-Dokumentation zum Command hinzu
func appendEnvDocs(cmd *cobra.Command, envs []envconfig.EnvVar) {
	if len(envs) == 0 {
		return
	}

	envUsage := `
Environment Variables:
`
	for _, e := range envs {
		envUsage += fmt.Sprintf("      %-24s   %s\n", e.Name, e.Description)
	}

	cmd.SetUsageTemplate(cmd.UsageTemplate() + envUsage)
}

// NewCLI - Erstellt das Haupt-CLI mit allen Commands
func NewCLI() *cobra.Command {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	cobra.EnableCommandSorting = false

	if runtime.GOOS == "windows" && term.IsTerminal(int(os.Stdout.Fd())) {
		console.ConsoleFromFile(os.Stdin) //nolint:errcheck
	}

	rootCmd := &cobra.Command{
		Use:           "kselect",
		Short:         "Kernel selection and dispatch planning",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		Run: func(cmd *cobra.Command, args []string) {
			if version, _ := cmd.Flags().GetBool("version"); version {
				versionHandler(cmd, args)
				return
			}

			cmd.Print(cmd.UsageString())
		},
	}

	rootCmd.Flags().BoolP("version", "v", false, "Show version information")

	// Commands erstellen
	serveCmd := newServeCmd()
	kindsCmd := newKindsCmd()
	implsCmd := newImplsCmd()
	selectCmd := newSelectCmd()
	explainCmd := newExplainCmd()
	tuningCmd := newTuningCmd()

	// Environment-Dokumentation hinzufuegen
	envVars := envconfig.AsMap()
	envs := []envconfig.EnvVar{envVars["KSEL_HOST"]}
	selection := []envconfig.EnvVar{
		envVars["KSEL_HOST"],
		envVars["KSEL_TUNING_DB"],
		envVars["KSEL_NO_TUNING"],
		envVars["KSEL_FORCE_IMPL"],
		envVars["KSEL_DISABLE_IMPL"],
		envVars["KSEL_MAX_CANDIDATES"],
	}

	for _, cmd := range []*cobra.Command{
		serveCmd,
		kindsCmd,
		implsCmd,
		selectCmd,
		explainCmd,
		tuningCmd,
	} {
		switch cmd {
		case serveCmd:
			appendEnvDocs(cmd, []envconfig.EnvVar{
				envVars["KSEL_DEBUG"],
				envVars["KSEL_HOST"],
				envVars["KSEL_ORIGINS"],
				envVars["KSEL_TUNING_DB"],
				envVars["KSEL_NO_TUNING"],
				envVars["KSEL_FORCE_IMPL"],
				envVars["KSEL_DISABLE_IMPL"],
				envVars["KSEL_NUM_PARALLEL"],
				envVars["KSEL_MAX_CANDIDATES"],
			})
		case selectCmd, explainCmd:
			appendEnvDocs(cmd, selection)
		case tuningCmd:
			appendEnvDocs(cmd, []envconfig.EnvVar{envVars["KSEL_TUNING_DB"]})
		default:
			appendEnvDocs(cmd, envs)
		}
	}

	rootCmd.AddCommand(
		serveCmd,
		kindsCmd,
		implsCmd,
		selectCmd,
		explainCmd,
		tuningCmd,
	)

	return rootCmd
}
