// routes_serve.go - Server-Start und Lifecycle-Management
// Enthaelt: Serve() - Hauptfunktion zum Starten des HTTP-Servers

package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/ollama/kselect/envconfig"
	"github.com/ollama/kselect/kernel"
	"github.com/ollama/kselect/logutil"
	"github.com/ollama/kselect/ml"
	"github.com/ollama/kselect/version"
)

// Serve startet den HTTP-Server ueber der prozessweiten Registry
func Serve(ln net.Listener) error {
	slog.SetDefault(logutil.NewLogger(os.Stderr, envconfig.LogLevel()))
	slog.Info("server config", "env", envconfig.Values())

	registry, err := kernel.Default()
	if err != nil {
		return err
	}

	features := ml.DetectCPUFeatures()
	s := New(registry, ml.HostCaps(features))
	s.addr = ln.Addr()

	for _, kind := range registry.Kinds() {
		sel, _ := registry.GetSelector(kind)
		slog.Debug("selector ready", "kind", kind, "implementations", len(sel.Implementations()))
	}
	slog.Info("host device", "caps", s.device)

	http.Handle("/", s.GenerateRoutes())

	ctx, done := context.WithCancel(context.Background())

	slog.Info(fmt.Sprintf("Listening on %s (version %s)", ln.Addr(), version.Version))
	srvr := &http.Server{
		// Use http.DefaultServeMux so we get net/http/pprof for
		// free.
		Handler: nil,
	}

	// listen for a ctrl+c and stop the server
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signals
		srvr.Close()
		done()
	}()

	err = srvr.Serve(ln)
	// If server is closed from the signal handler, wait for the ctx to be done
	// otherwise error out quickly
	if !slices.Contains([]error{http.ErrServerClosed}, err) {
		return err
	}
	<-ctx.Done()
	return nil
}
