// cmd_select.go - Kernel-Auswahl und Erklaerung ueber die CLI
// Hauptfunktionen: SelectHandler, ExplainHandler
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ollama/kselect/api"
	"github.com/ollama/kselect/kernel"
)

// SelectHandler - Waehlt Kernel fuer eine oder mehrere Primitive
func SelectHandler(cmd *cobra.Command, args []string) error {
	req, err := readRequest(args, os.Stdin)
	if err != nil {
		return err
	}
	if req.batch == nil {
		req.batch = &api.BatchRequest{Primitives: []api.SelectRequest{*req.single}}
	}

	var resp *api.BatchResponse
	if local, _ := cmd.Flags().GetBool("local"); local {
		resp, err = selectLocal(cmd.Context(), req.batch)
	} else {
		var client *api.Client
		client, err = api.ClientFromEnvironment()
		if err != nil {
			return err
		}
		resp, err = client.SelectBatch(cmd.Context(), req.batch)
	}
	if err != nil {
		return err
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		if req.single != nil {
			return printJSON(os.Stdout, resp.Results[0])
		}
		return printJSON(os.Stdout, resp)
	}

	for i, r := range resp.Results {
		if i > 0 {
			fmt.Println()
		}
		printPlans(os.Stdout, r)
	}
	return nil
}

func selectLocal(ctx context.Context, batch *api.BatchRequest) (*api.BatchResponse, error) {
	registry, device, err := localRegistry()
	if err != nil {
		return nil, err
	}

	ps := make([]*kernel.Params, len(batch.Primitives))
	for i := range batch.Primitives {
		p, err := batch.Primitives[i].Params(device)
		if err != nil {
			return nil, fmt.Errorf("primitive %d: %w", i, err)
		}
		ps[i] = p
	}

	results, err := registry.SelectAll(ctx, ps)
	if err != nil {
		return nil, err
	}

	resp := &api.BatchResponse{Results: make([]api.SelectResponse, len(ps))}
	for i, p := range ps {
		resp.Results[i] = api.SelectResponse{Kind: p.Kind().String(), Fingerprint: p.Fingerprint(), Plans: results[i]}
	}
	return resp, nil
}

func printPlans(w io.Writer, r api.SelectResponse) {
	fmt.Fprintf(w, "%s %s\n", r.Kind, r.Fingerprint)

	var data [][]string
	for i, p := range r.Plans {
		tuned := ""
		if p.Tuned {
			tuned = "tuned"
		}
		data = append(data, []string{strconv.Itoa(i), p.Implementation, p.EntryPoint, p.Launch.String(), strconv.Itoa(len(p.Args)), tuned})
	}
	renderTable(w, []string{"#", "IMPLEMENTATION", "ENTRY", "LAUNCH", "ARGS", ""}, data)
}

// ExplainHandler - Zeigt die Bewertung aller Implementierungen fuer eine Primitive
func ExplainHandler(cmd *cobra.Command, args []string) error {
	req, err := readRequest(args, os.Stdin)
	if err != nil {
		return err
	}
	if req.single == nil {
		return fmt.Errorf("explain takes a single primitive, got a batch of %d", len(req.batch.Primitives))
	}

	var resp *api.ExplainResponse
	if local, _ := cmd.Flags().GetBool("local"); local {
		resp, err = explainLocal(req.single)
	} else {
		var client *api.Client
		client, err = api.ClientFromEnvironment()
		if err != nil {
			return err
		}
		resp, err = client.Explain(cmd.Context(), req.single)
	}
	if err != nil {
		return err
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return printJSON(os.Stdout, resp)
	}

	printCandidates(os.Stdout, resp)
	return nil
}

func explainLocal(req *api.SelectRequest) (*api.ExplainResponse, error) {
	registry, device, err := localRegistry()
	if err != nil {
		return nil, err
	}

	p, err := req.Params(device)
	if err != nil {
		return nil, err
	}

	candidates, err := registry.Explain(p)
	if err != nil {
		return nil, err
	}
	return &api.ExplainResponse{
		Kind:        p.Kind().String(),
		Fingerprint: p.Fingerprint(),
		Key:         p.Key().String(),
		Candidates:  candidates,
	}, nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func printCandidates(w io.Writer, r *api.ExplainResponse) {
	fmt.Fprintf(w, "%s %s\n%s\n\n", r.Kind, r.Fingerprint, r.Key)

	var data [][]string
	for _, c := range r.Candidates {
		rank, priority, result := "-", "-", ""
		if c.Rank >= 0 {
			rank = strconv.Itoa(c.Rank)
			priority = c.Priority.String()
		}
		switch {
		case c.Error != "":
			result = c.Error
		case c.Plan != nil:
			result = c.Plan.EntryPoint + " " + c.Plan.Launch.String()
		case c.Disabled:
			result = "disabled"
		}
		if c.Forced {
			rank += " (forced)"
		} else if c.Tuned {
			rank += " (tuned)"
		}
		data = append(data, []string{strconv.Itoa(c.Position), c.Name, yesNo(c.Covered), yesNo(c.Supported), priority, rank, result})
	}
	renderTable(w, []string{"#", "NAME", "COVERED", "SUPPORTED", "PRIORITY", "RANK", "RESULT"}, data)
}
