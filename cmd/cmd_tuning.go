// cmd_tuning.go - Tuning-Datenbank importieren und anzeigen
// Hauptfunktionen: TuningImportHandler, TuningShowHandler
package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ollama/kselect/envconfig"
	"github.com/ollama/kselect/tuning"
)

func tuningPath(cmd *cobra.Command) string {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p
	}
	return envconfig.TuningDB()
}

// TuningImportHandler - Liest Benchmark-CSV, aggregiert und speichert die besten Records
func TuningImportHandler(cmd *cobra.Command, args []string) error {
	var samples []tuning.Sample
	for _, name := range args {
		f, err := os.Open(name)
		if err != nil {
			return err
		}
		s, err := tuning.ReadSamples(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		samples = append(samples, s...)
	}

	records := tuning.Aggregate(samples)
	if dryRun, _ := cmd.Flags().GetBool("dry-run"); dryRun {
		printRecords(records)
		return nil
	}

	path := tuningPath(cmd)
	store, err := tuning.OpenSQLite(cmd.Context(), path)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Save(cmd.Context(), records); err != nil {
		return err
	}

	fmt.Printf("imported %d records from %d samples into %s (%d total)\n", len(records), len(samples), path, store.Len())
	return nil
}

// TuningShowHandler - Listet die Records der Tuning-Datenbank
func TuningShowHandler(cmd *cobra.Command, args []string) error {
	path := tuningPath(cmd)
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("no tuning database at %s", path)
	}

	store, err := tuning.OpenSQLiteReadOnly(cmd.Context(), path)
	if err != nil {
		return err
	}
	defer store.Close()

	records := store.All()
	if len(args) == 1 {
		var filtered []tuning.Record
		for _, r := range records {
			if strings.HasPrefix(r.Fingerprint, args[0]) {
				filtered = append(filtered, r)
			}
		}
		records = filtered
	}

	printRecords(records)
	return nil
}

func printRecords(records []tuning.Record) {
	var data [][]string
	for _, r := range records {
		launch := "-"
		if r.HasLaunch() {
			launch = r.Launch.String()
		}
		fp := r.Fingerprint
		if len(fp) > 12 {
			fp = fp[:12]
		}
		data = append(data, []string{
			fp,
			r.Kind,
			r.Implementation,
			launch,
			time.Duration(r.MeanNanos).String(),
			strconv.Itoa(r.Samples),
		})
	}
	renderTable(os.Stdout, []string{"FINGERPRINT", "KIND", "IMPLEMENTATION", "LAUNCH", "MEAN", "SAMPLES"}, data)
}
