// cmd_list.go - Kinds und Implementierungen auflisten
// Hauptfunktionen: KindsHandler, ImplementationsHandler
package cmd

import (
	"io"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/ollama/kselect/api"
)

// renderTable schreibt eine Tabelle im Stil von "kselect kinds"
func renderTable(w io.Writer, header []string, data [][]string) {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.SetAutoWrapText(false)
	table.AppendBulk(data)
	table.Render()
}

// KindsHandler - Listet alle Primitive-Arten
func KindsHandler(cmd *cobra.Command, args []string) error {
	client, err := api.ClientFromEnvironment()
	if err != nil {
		return err
	}

	kinds, err := client.Kinds(cmd.Context())
	if err != nil {
		return err
	}

	var data [][]string
	for _, k := range kinds.Kinds {
		data = append(data, []string{k.Kind, strconv.Itoa(k.Implementations)})
	}

	renderTable(os.Stdout, []string{"KIND", "IMPLEMENTATIONS"}, data)
	return nil
}

// ImplementationsHandler - Listet die Implementierungen eines Kinds in Registrierungsreihenfolge
func ImplementationsHandler(cmd *cobra.Command, args []string) error {
	client, err := api.ClientFromEnvironment()
	if err != nil {
		return err
	}

	impls, err := client.Implementations(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	var data [][]string
	for _, i := range impls.Implementations {
		key := i.Key
		if key == "" {
			key = "-"
		}
		disabled := ""
		if i.Disabled {
			disabled = "disabled"
		}
		data = append(data, []string{strconv.Itoa(i.Position), i.Name, key, disabled})
	}

	renderTable(os.Stdout, []string{"#", "NAME", "KEY", ""}, data)
	return nil
}
