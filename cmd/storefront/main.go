// Command storefront serves the fixture lab-tests storefront (catalog API, listing
// and detail pages) for manual runs of labcheck and for poking at the UI.
//
// Usage:
//
//	storefront --addr 127.0.0.1:8090
//	storefront --api-rps 2
//	LABTESTS_AUTH_TOKEN=secret storefront --catalog ./catalog.json --currency USD
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/text/currency"

	"github.com/kuitang/labtests-e2e/internal/obs"
	"github.com/kuitang/labtests-e2e/internal/ratelimit"
	"github.com/kuitang/labtests-e2e/internal/storefront"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "storefront:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	set := flag.NewFlagSet("storefront", flag.ContinueOnError)
	addr := set.String("addr", "127.0.0.1:8090", "Listen address")
	catalogPath := set.String("catalog", "", "Catalog JSON document to serve instead of the embedded fixture")
	unit := set.String("currency", "INR", "ISO 4217 currency for displayed prices")
	envFile := set.String("env-file", ".env", "Optional dotenv file")
	apiRPS := set.Float64("api-rps", 0, "Per-client catalog API rate limit (0 disables)")
	if err := set.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", *envFile, err)
	}
	obs.Init()
	log := obs.Pkg("storefront")

	opts, err := options(*catalogPath, *unit, os.Getenv("LABTESTS_AUTH_TOKEN"), *apiRPS)
	if err != nil {
		return err
	}
	sf, err := storefront.New(opts)
	if err != nil {
		return err
	}
	defer sf.Close()

	srv := &http.Server{Addr: *addr, Handler: sf, ReadHeaderTimeout: 5 * time.Second}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", *addr, "items", sf.Catalog().Len(), "listing", "http://"+*addr+storefront.ListingPath)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting_down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func options(catalogPath, unit, token string, apiRPS float64) (storefront.Options, error) {
	opts := storefront.Options{AuthToken: strings.TrimSpace(token)}
	if apiRPS > 0 {
		limit := ratelimit.DefaultConfig
		limit.RPS = apiRPS
		opts.APILimit = &limit
	}
	if catalogPath != "" {
		raw, err := os.ReadFile(catalogPath)
		if err != nil {
			return opts, fmt.Errorf("read catalog: %w", err)
		}
		opts.CatalogJSON = raw
	}
	cur, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(unit)))
	if err != nil {
		return opts, fmt.Errorf("currency %q: %w", unit, err)
	}
	opts.Currency = cur
	return opts, nil
}
