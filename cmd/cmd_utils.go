// cmd_utils.go - Hilfsfunktionen fuer CLI-Commands
// Hauptfunktionen: checkServerHeartbeat, readRequest, localRegistry, printJSON
package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ollama/kselect/api"
	"github.com/ollama/kselect/envconfig"
	"github.com/ollama/kselect/kernel"
	"github.com/ollama/kselect/logutil"
	"github.com/ollama/kselect/ml"
)

var errNoRequest = errors.New("no request given: pass a FILE or pipe JSON on stdin")

// checkServerHeartbeat - Prueft ob der Server erreichbar ist
func checkServerHeartbeat(cmd *cobra.Command, _ []string) error {
	client, err := api.ClientFromEnvironment()
	if err != nil {
		return err
	}
	if err := client.Heartbeat(cmd.Context()); err != nil {
		if strings.Contains(err.Error(), " refused") || strings.Contains(err.Error(), "could not connect") {
			return fmt.Errorf("kselect server not responding, start it with 'kselect serve' or use --local - %w", err)
		}
		return err
	}
	return nil
}

func checkServerHeartbeatUnlessLocal(cmd *cobra.Command, args []string) error {
	if local, _ := cmd.Flags().GetBool("local"); local {
		return nil
	}
	return checkServerHeartbeat(cmd, args)
}

// request ist entweder eine Einzel- oder eine Batch-Anfrage
type request struct {
	single *api.SelectRequest
	batch  *api.BatchRequest
}

// readRequest liest die Anfrage aus args[0] oder stdin
func readRequest(args []string, stdin *os.File) (request, error) {
	var r io.Reader
	switch {
	case len(args) == 1 && args[0] != "-":
		f, err := os.Open(args[0])
		if err != nil {
			return request{}, err
		}
		defer f.Close()
		r = f
	case term.IsTerminal(int(stdin.Fd())):
		return request{}, errNoRequest
	default:
		r = stdin
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return request{}, err
	}
	return parseRequest(data)
}

func parseRequest(data []byte) (request, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return request{}, errNoRequest
	}

	var probe struct {
		Primitives json.RawMessage `json:"primitives"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return request{}, fmt.Errorf("invalid request: %w", err)
	}

	if probe.Primitives != nil {
		var b api.BatchRequest
		if err := json.Unmarshal(data, &b); err != nil {
			return request{}, fmt.Errorf("invalid batch request: %w", err)
		}
		return request{batch: &b}, nil
	}

	var s api.SelectRequest
	if err := json.Unmarshal(data, &s); err != nil {
		return request{}, fmt.Errorf("invalid request: %w", err)
	}
	return request{single: &s}, nil
}

// localRegistry baut die prozessweite Registry fuer --local
func localRegistry() (*kernel.Registry, ml.DeviceCaps, error) {
	slog.SetDefault(logutil.NewLogger(os.Stderr, envconfig.LogLevel()))
	r, err := kernel.Default()
	if err != nil {
		return nil, ml.DeviceCaps{}, err
	}
	return r, ml.HostCaps(ml.DetectCPUFeatures()), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
