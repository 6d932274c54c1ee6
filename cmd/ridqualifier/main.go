// Command ridqualifier runs one RID conformance test end to end: it loads
// recorded flight tracks, injects them into the configured USSes, then polls
// the configured Display Provider observers until the test data's
// visibility window closes, emitting a findings report.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/99souls/ridqualifier/qualifier"
	"github.com/99souls/ridqualifier/qualifier/models"
	"github.com/99souls/ridqualifier/qualifier/telemetry/metrics"
)

func main() {
	var (
		configPath   string
		evalPath     string
		tracksRoot   string
		locale       string
		reportPath   string
		dryRun       bool
		observerList string
		injectToken  string
		observeToken string
		metricsAddr  string
		tracing      bool
		showVersion  bool
	)

	flag.StringVar(&configPath, "config", "", "Path to a YAML RIDQualifierTestConfiguration")
	flag.StringVar(&evalPath, "eval-config", "", "Path to a YAML EvaluationConfiguration (defaults used if omitted)")
	flag.StringVar(&tracksRoot, "tracks-root", "test_definitions", "Directory containing <locale>/aircraft_states/*")
	flag.StringVar(&locale, "locale", "", "Override the locale named in -config")
	flag.StringVar(&reportPath, "report", "", "Write the findings report as JSON to this path (stdout if empty)")
	flag.BoolVar(&dryRun, "dry-run", false, "Build injection payloads but skip submission and evaluation")
	flag.StringVar(&observerList, "observers", "", "Comma-separated name=url pairs naming Display Provider observers")
	flag.StringVar(&injectToken, "injection-token", "", "Bearer token for USS injection endpoints")
	flag.StringVar(&observeToken, "observer-token", "", "Bearer token for observer display_data endpoints")
	flag.StringVar(&metricsAddr, "metrics-addr", "", "If set, serve Prometheus /metrics on this address for the run's duration")
	flag.BoolVar(&tracing, "tracing", false, "Enable correlated trace/span IDs in log output")
	flag.BoolVar(&showVersion, "version", false, "Show version and exit")
	flag.Parse()

	if showVersion {
		fmt.Println("ridqualifier conformance harness")
		return
	}

	if configPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: ridqualifier -config <test-config.yaml> -observers name=url[,name=url...] [flags]")
		os.Exit(1)
	}

	testCfg, err := models.LoadRIDQualifierTestConfiguration(configPath)
	if err != nil {
		log.Fatalf("load test configuration: %v", err)
	}
	if locale != "" {
		testCfg.Locale = locale
	}

	cfg := qualifier.Defaults()
	cfg.TracksRoot = tracksRoot
	cfg.Test = testCfg
	cfg.DryRun = dryRun
	cfg.InjectionBearerToken = injectToken
	cfg.ObserverBearerToken = observeToken
	cfg.TracingEnabled = tracing
	cfg.Logger = slog.Default()

	if evalPath != "" {
		evalCfg, err := models.LoadEvaluationConfiguration(evalPath)
		if err != nil {
			log.Fatalf("load evaluation configuration: %v", err)
		}
		cfg.Evaluation = evalCfg
	}

	observers, err := parseObservers(observerList)
	if err != nil {
		log.Fatalf("parse -observers: %v", err)
	}
	cfg.Observers = observers

	var promProvider *metrics.PrometheusProvider
	if metricsAddr != "" {
		promProvider = metrics.NewPrometheusProvider(metrics.PrometheusProviderOptions{})
		cfg.Metrics = promProvider
	}

	q, err := qualifier.New(cfg)
	if err != nil {
		log.Fatalf("create qualifier: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt)
	go func() {
		<-sigCh
		log.Println("signal received; cancelling run")
		cancel()
		<-sigCh
		log.Println("second signal received; forcing exit")
		os.Exit(1)
	}()

	if promProvider != nil {
		server := &http.Server{Addr: metricsAddr, Handler: promProvider.MetricsHandler()}
		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("metrics server: %v", err)
			}
		}()
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			_ = server.Shutdown(shutdownCtx)
		}()
	}

	report, runErr := q.Run(ctx)
	if report != nil {
		if writeErr := writeReport(reportPath, report); writeErr != nil {
			log.Printf("write report: %v", writeErr)
		}
	}
	if runErr != nil {
		log.Fatalf("run: %v", runErr)
	}
}

// parseObservers splits "name=url,name=url" into an ordered list of
// endpoints, preserving the order given on the command line: spec §5
// requires observers be queried in configuration order.
func parseObservers(raw string) ([]qualifier.ObserverEndpoint, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var out []qualifier.ObserverEndpoint
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, url, ok := strings.Cut(pair, "=")
		if !ok || name == "" || url == "" {
			return nil, fmt.Errorf("invalid observer %q, expected name=url", pair)
		}
		out = append(out, qualifier.ObserverEndpoint{Name: name, BaseURL: url})
	}
	return out, nil
}

func writeReport(path string, report any) error {
	var w *os.File = os.Stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
