// Package handlers manages the different versions of the API.
package handlers

import (
	"context"
	"expvar"
	"net/http"
	"net/http/pprof"
	"os"

	"github.com/argonprotocol/argon/app/services/node/handlers/debug/checkgrp"
	v1 "github.com/argonprotocol/argon/app/services/node/handlers/v1"
	"github.com/argonprotocol/argon/app/services/node/handlers/v1/private"
	"github.com/argonprotocol/argon/business/web/mid"
	"github.com/argonprotocol/argon/foundation/blockchain/audit"
	"github.com/argonprotocol/argon/foundation/blockchain/genesis"
	"github.com/argonprotocol/argon/foundation/blockchain/history"
	"github.com/argonprotocol/argon/foundation/blockchain/notary"
	"github.com/argonprotocol/argon/foundation/events"
	"github.com/argonprotocol/argon/foundation/nameservice"
	"github.com/argonprotocol/argon/foundation/web"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// MuxConfig contains all the mandatory systems required by handlers.
type MuxConfig struct {
	Shutdown   chan os.Signal
	Log        *zap.SugaredLogger
	Genesis    genesis.Genesis
	Notary     *notary.Notary
	Auditor    *audit.Auditor
	History    *history.Store
	Worker     private.Closer
	NS         *nameservice.NameService
	Evts       *events.Events
	CorsOrigin string
	Registerer prometheus.Registerer
}

// PublicMux constructs a http.Handler with all application routes defined.
func PublicMux(cfg MuxConfig) http.Handler {
	metrics := mid.NewMetrics(cfg.Registerer, "public")

	// Construct the web.App which holds all routes as well as common Middleware.
	app := web.NewApp(
		cfg.Shutdown,
		mid.Logger(cfg.Log),
		mid.Errors(cfg.Log),
		metrics.Metrics(),
		mid.Cors(cfg.CorsOrigin),
		mid.Panics(metrics),
	)

	// Accept CORS 'OPTIONS' preflight requests.
	h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return nil
	}
	app.Handle(http.MethodOptions, "", "/*", h, mid.Cors(cfg.CorsOrigin))

	// Load the v1 routes.
	v1.PublicRoutes(app, config(cfg))

	return app
}

// PrivateMux constructs a http.Handler with all application routes defined.
func PrivateMux(cfg MuxConfig) http.Handler {
	metrics := mid.NewMetrics(cfg.Registerer, "private")

	// Construct the web.App which holds all routes as well as common Middleware.
	app := web.NewApp(
		cfg.Shutdown,
		mid.Logger(cfg.Log),
		mid.Errors(cfg.Log),
		metrics.Metrics(),
		mid.Panics(metrics),
	)

	// Load the v1 routes.
	v1.PrivateRoutes(app, config(cfg))

	return app
}

func config(cfg MuxConfig) v1.Config {
	return v1.Config{
		Log:     cfg.Log,
		Genesis: cfg.Genesis,
		Notary:  cfg.Notary,
		Auditor: cfg.Auditor,
		History: cfg.History,
		Worker:  cfg.Worker,
		NS:      cfg.NS,
		Evts:    cfg.Evts,
	}
}

// DebugStandardLibraryMux registers all the debug routes from the standard library
// into a new mux bypassing the use of the DefaultServerMux. Using the
// DefaultServerMux would be a security risk since a dependency could inject a
// handler into our service without us knowing it.
func DebugStandardLibraryMux() *http.ServeMux {
	mux := http.NewServeMux()

	// Register all the standard library debug endpoints.
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	mux.Handle("/debug/vars", expvar.Handler())

	return mux
}

// DebugMux registers all the debug standard library routes and then custom
// debug application routes for the service, including the prometheus
// metrics of the gatherer.
func DebugMux(build string, log *zap.SugaredLogger, auditor *audit.Auditor, gatherer prometheus.Gatherer) http.Handler {
	mux := DebugStandardLibraryMux()

	// Register debug check endpoints.
	cgh := checkgrp.Handlers{
		Build:   build,
		Log:     log,
		Auditor: auditor,
	}
	mux.HandleFunc("/debug/readiness", cgh.Readiness)
	mux.HandleFunc("/debug/liveness", cgh.Liveness)

	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return mux
}
