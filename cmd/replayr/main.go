// Package main is the CLI entry point for replayr — a transparent
// record/replay HTTP proxy for LLM API traffic. It captures every
// request/response pair into a bounded ring buffer, broadcasts them to
// admin subscribers in real time, optionally records them to a cassette
// file, and can pause a matching request for manual edit-and-release via
// the Intercept Registry.
//
// CLI shape (single cobra subcommand):
//
//	replayr proxy --upstream <URL> [flags]
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sagikazarmark/replayr/internal/admin"
	"github.com/sagikazarmark/replayr/internal/predicate"
	"github.com/sagikazarmark/replayr/internal/proxytap"
	"github.com/sagikazarmark/replayr/internal/state"
	"github.com/sagikazarmark/replayr/internal/tracing"
	"github.com/sagikazarmark/replayr/internal/transform"
)

var version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "replayr",
	Short:   "Record/replay HTTP proxy for LLM API traffic",
	Version: version,
}

type proxyFlags struct {
	upstream      string
	bind          string
	port          int
	adminPort     int
	ui            bool
	logLevel      string
	filter        string
	ringSize      int
	record        bool
	output        string
	modifyHeaders []string
	deleteHeaders []string
	modifyBody    string
	interceptExpr string
	otlpEndpoint  string
}

func init() {
	rootCmd.AddCommand(proxyCmd)

	flags := proxyCmd.Flags()
	flags.StringVar(&pFlags.upstream, "upstream", "", "upstream base URL (required)")
	flags.StringVar(&pFlags.bind, "bind", "127.0.0.1", "bind address for both listeners")
	flags.IntVar(&pFlags.port, "port", 9090, "proxy listener port")
	flags.IntVar(&pFlags.adminPort, "admin-port", 9091, "admin listener port")
	flags.BoolVar(&pFlags.ui, "ui", false, "serve the bundled UI on the admin port")
	flags.StringVar(&pFlags.logLevel, "log", "summary", "summary logging level: none|summary|headers|full")
	flags.StringVar(&pFlags.filter, "filter", "", "predicate gating summary logging")
	flags.IntVar(&pFlags.ringSize, "ring-size", 1000, "ring buffer capacity")
	flags.BoolVar(&pFlags.record, "record", false, "enable cassette recording at startup")
	flags.StringVar(&pFlags.output, "output", "./session.json", "cassette output path")
	flags.StringArrayVar(&pFlags.modifyHeaders, "modify-header", nil, `header edit "Name: value" (repeatable)`)
	flags.StringArrayVar(&pFlags.deleteHeaders, "delete-header", nil, "header name to strip (repeatable)")
	flags.StringVar(&pFlags.modifyBody, "modify-body", "", "delimited body transform expression")
	flags.StringVar(&pFlags.interceptExpr, "intercept", "", "predicate for requests to pause for manual release")
	flags.StringVar(&pFlags.otlpEndpoint, "otlp-endpoint", "", "optional OTLP gRPC endpoint for tracing")
}

var pFlags proxyFlags

var proxyCmd = &cobra.Command{
	Use:   "proxy",
	Short: "Start the recording proxy",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runProxy(cmd.Context())
	},
}

// runProxy wires every component together and blocks until shutdown.
// Wiring order follows the teacher's runStart: build dependencies first,
// construct the shared state, stand up both listeners, then block on a
// signal context with a bounded graceful-shutdown window.
func runProxy(ctx context.Context) error {
	if pFlags.upstream == "" {
		return fmt.Errorf("--upstream is required")
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	modifyHeaders, err := parseHeaderEdits(pFlags.modifyHeaders)
	if err != nil {
		return err
	}

	var bodyTransform *transform.Transformer
	if pFlags.modifyBody != "" {
		bodyTransform, err = transform.Parse(pFlags.modifyBody)
		if err != nil {
			return fmt.Errorf("--modify-body: %w", err)
		}
	}

	var logFilter *predicate.Predicate
	if pFlags.filter != "" {
		logFilter, err = predicate.CompileCached(pFlags.filter)
		if err != nil {
			return fmt.Errorf("--filter: %w", err)
		}
	}

	appState := state.New(pFlags.ringSize, pFlags.upstream, pFlags.record, pFlags.output)
	defer appState.Close()

	if pFlags.interceptExpr != "" {
		if err := appState.Intercept.SetPattern(pFlags.interceptExpr); err != nil {
			return fmt.Errorf("--intercept: %w", err)
		}
	}

	tracerProvider, tracer, err := tracing.Init(ctx, pFlags.otlpEndpoint)
	if err != nil {
		return fmt.Errorf("tracing init: %w", err)
	}
	if tracerProvider != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = tracerProvider.Shutdown(shutdownCtx)
		}()
	}

	upstreamTransport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     120 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		DisableCompression:  true,
		ForceAttemptHTTP2:   true,
	}
	upstreamClient := &http.Client{Transport: upstreamTransport}

	proxyHandler := proxytap.New(proxytap.Config{
		UpstreamBase:  pFlags.upstream,
		ModifyHeaders: modifyHeaders,
		DeleteHeaders: pFlags.deleteHeaders,
		BodyTransform: bodyTransform,
		LogLevel:      proxytap.LogLevel(pFlags.logLevel),
		LogFilter:     logFilter,
	}, proxytap.Deps{
		Client:    upstreamClient,
		Ring:      appState.Ring,
		Bus:       appState.Bus,
		Intercept: appState.Intercept,
		Record:    appState.Record,
		Tracer:    tracer,
		Logger:    logger,
	})

	adminPlane := admin.New(admin.Options{
		State:  appState,
		Client: upstreamClient,
		UI:     pFlags.ui,
		Logger: logger,
	})

	proxyAddr := fmt.Sprintf("%s:%d", pFlags.bind, pFlags.port)
	adminAddr := fmt.Sprintf("%s:%d", pFlags.bind, pFlags.adminPort)

	proxyServer := &http.Server{
		Addr:              proxyAddr,
		Handler:           proxyHandler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	adminServer := &http.Server{
		Addr:              adminAddr,
		Handler:           adminPlane.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)
	go func() {
		logger.Info("proxy listening", "addr", proxyAddr, "upstream", pFlags.upstream)
		errCh <- proxyServer.ListenAndServe()
	}()
	go func() {
		logger.Info("admin listening", "addr", adminAddr, "ui", pFlags.ui)
		errCh <- adminServer.ListenAndServe()
	}()

	select {
	case <-sigCtx.Done():
		logger.Info("shutting down (signal received)")
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := proxyServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("proxy shutdown error", "error", err)
	}
	if err := adminServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("admin shutdown error", "error", err)
	}

	return nil
}

// parseHeaderEdits turns repeated "Name: value" flags into a map, per
// spec section 6's --modify-header format.
func parseHeaderEdits(raw []string) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(raw))
	for _, entry := range raw {
		name, value, ok := strings.Cut(entry, ":")
		if !ok {
			return nil, fmt.Errorf("--modify-header %q: must be \"Name: value\"", entry)
		}
		out[strings.ToLower(strings.TrimSpace(name))] = strings.TrimSpace(value)
	}
	return out, nil
}
