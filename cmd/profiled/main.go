// Command profiled serves the dataset profiler over HTTP.
//
// Endpoints:
//
//	POST /v1/profiles        profile an upload; body is the raw file or
//	                         multipart form data with a "file" part.
//	                         Query: format (hint), max_rows (override).
//	GET  /v1/profiles/{id}   fetch a stored profile.
//	GET  /v1/profiles        list stored profiles (query: limit).
//
// Profiles are persisted only when a store backend is configured with
// -store; without one, POST still returns the computed profile and the
// GET endpoints respond 503.
//
// DSN resolution follows the same precedence as cmd/profile:
// -dsn flag, then the DSN env var, then DSN_* component env vars.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"profiler/internal/config"
	"profiler/internal/metrics"
	"profiler/internal/metrics/datadog"
	"profiler/internal/store"

	_ "profiler/internal/store/mssql"
	_ "profiler/internal/store/postgres"
	_ "profiler/internal/store/sqlite"
)

func main() {
	var (
		flagAddr = flag.String("addr", ":8080", "Listen address")

		flagMaxRows = flag.Int("max-rows", config.DefaultMaxRows, "Materialized row ceiling")
		flagMaxMB   = flag.Int("max-mb", config.DefaultMaxBytes>>20, "Upload size ceiling in MiB")
		flagPreview = flag.Int("preview", config.DefaultPreviewRows, "Preview row count included in profiles")

		flagStore = flag.String("store", "", "Persistence backend: sqlite|postgres|mssql (empty = none)")
		flagDSN   = flag.String("dsn", "", "Storage DSN (highest priority)")

		flagDatadog = flag.Bool("datadog", false, "Submit metrics to Datadog")
		flagDDTags  = flag.String("dd-tags", "", `Extra Datadog tags, e.g. "env:prod,service:profiler"`)
	)
	flag.Parse()

	logger := log.New(os.Stderr, "profiled: ", log.LstdFlags)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	limits := config.Limits{
		MaxBytes:    *flagMaxMB << 20,
		MaxRows:     *flagMaxRows,
		PreviewRows: *flagPreview,
	}.Normalize()

	var backend metrics.Backend = metrics.Nop{}
	if *flagDatadog {
		dd, err := datadog.NewBackend(ctx, datadog.Options{
			JobName: "profiled",
			Tags:    datadog.ParseTagsCSV(*flagDDTags),
		})
		if err != nil {
			logger.Fatalf("datadog init: %v", err)
		}
		backend = dd
		defer func() {
			if err := dd.Close(); err != nil {
				logger.Printf("datadog close: %v", err)
			}
		}()
	}

	var st store.Store
	if kind := strings.TrimSpace(*flagStore); kind != "" {
		dsn, err := resolveDSN(kind, strings.TrimSpace(*flagDSN))
		if err != nil {
			logger.Fatalf("resolve dsn: %v", err)
		}
		st, err = store.New(ctx, store.Config{Kind: kind, DSN: dsn})
		if err != nil {
			logger.Fatalf("open store: %v", err)
		}
		defer st.Close()
		if err := st.Ensure(ctx); err != nil {
			logger.Fatalf("ensure store schema: %v", err)
		}
	}

	srv := &http.Server{
		Addr:              *flagAddr,
		Handler:           newServer(limits, st, backend, logger).routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	logger.Printf("listening on %s", *flagAddr)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("serve: %v", err)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Printf("shutdown: %v", err)
		}
	}
}
