package runner

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/kuitang/labtests-e2e/internal/obs"
	"github.com/kuitang/labtests-e2e/internal/storefront"
)

// Fixture is an in-process fixture storefront on a loopback port.
type Fixture struct {
	URL        string
	Storefront *storefront.Server

	srv *http.Server
}

// StartFixture builds a storefront from opts and serves it until Close.
func StartFixture(opts storefront.Options) (*Fixture, error) {
	sf, err := storefront.New(opts)
	if err != nil {
		return nil, err
	}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		sf.Close()
		return nil, fmt.Errorf("runner: listen for fixture: %w", err)
	}
	srv := &http.Server{Handler: sf, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			obs.Pkg("runner").Error("fixture_serve_failed", "error", err)
		}
	}()

	fx := &Fixture{URL: "http://" + ln.Addr().String(), Storefront: sf, srv: srv}
	obs.Pkg("runner").Info("fixture_started", "url", fx.URL, "items", sf.Catalog().Len())
	return fx, nil
}

// Close stops the server, waiting up to five seconds for open requests.
func (f *Fixture) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	defer f.Storefront.Close()
	return f.srv.Shutdown(ctx)
}
