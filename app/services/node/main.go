package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/argonprotocol/argon/app/services/node/handlers"
	"github.com/argonprotocol/argon/foundation/blockchain/audit"
	"github.com/argonprotocol/argon/foundation/blockchain/genesis"
	"github.com/argonprotocol/argon/foundation/blockchain/history"
	"github.com/argonprotocol/argon/foundation/blockchain/ledger"
	"github.com/argonprotocol/argon/foundation/blockchain/notary"
	"github.com/argonprotocol/argon/foundation/blockchain/signature"
	"github.com/argonprotocol/argon/foundation/blockchain/storage/disk"
	"github.com/argonprotocol/argon/foundation/blockchain/worker"
	"github.com/argonprotocol/argon/foundation/events"
	"github.com/argonprotocol/argon/foundation/logger"
	"github.com/argonprotocol/argon/foundation/nameservice"
	"github.com/ardanlabs/conf/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger.
	log, err := logger.New("NODE")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {

	// =========================================================================
	// Configuration

	cfg := struct {
		conf.Version
		Web struct {
			ReadTimeout     time.Duration `conf:"default:5s"`
			WriteTimeout    time.Duration `conf:"default:10s"`
			IdleTimeout     time.Duration `conf:"default:120s"`
			ShutdownTimeout time.Duration `conf:"default:20s"`
			DebugHost       string        `conf:"default:0.0.0.0:7080"`
			PublicHost      string        `conf:"default:0.0.0.0:8080"`
			PrivateHost     string        `conf:"default:0.0.0.0:9080"`
			CorsOrigin      string        `conf:"default:*"`
		}
		State struct {
			GenesisPath   string `conf:"default:zblock/genesis.json"`
			HistoryPath   string `conf:"default:zblock/history"`
			NotebooksPath string `conf:"default:zblock/notebooks/"`
			ClosedPath    string `conf:"default:zblock/closed/"`
		}
		Notary struct {
			ID      uint32 `conf:"default:1,help:zero runs the node as an auditor only"`
			KeyPath string `conf:"default:zblock/accounts/notary1.ed25519"`
		}
		NameService struct {
			Folder string `conf:"default:zblock/accounts/"`
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "argon notary and notebook auditor",
		},
	}

	const prefix = "NODE"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	// =========================================================================
	// App Starting

	log.Infow("starting service", "version", build)
	defer log.Infow("shutdown complete")

	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Infow("startup", "config", out)

	gen, err := genesis.Load(cfg.State.GenesisPath)
	if err != nil {
		return fmt.Errorf("unable to load genesis: %w", err)
	}

	// =========================================================================
	// Name Service Support

	// The names come from the key files in the zblock/accounts folder.
	ns, err := nameservice.New(cfg.NameService.Folder, gen.SS58Prefix)
	if err != nil {
		return fmt.Errorf("unable to load account name service: %w", err)
	}

	for account, name := range ns.Copy() {
		log.Infow("startup", "status", "nameservice", "name", name, "account", account.Address(gen.SS58Prefix))
	}

	// =========================================================================
	// Metrics Support

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// =========================================================================
	// Blockchain Support

	// The blockchain packages accept a function of this signature to allow the
	// application to log. The raw messages are also sent to any websocket
	// client that is connected into the system through the events package.
	evts := events.New()
	ev := logger.EventHandler(log, evts.Send)

	hist, err := history.Open(cfg.State.HistoryPath)
	if err != nil {
		return fmt.Errorf("unable to open history: %w", err)
	}
	defer hist.Close()

	strg, err := disk.New(cfg.State.NotebooksPath)
	if err != nil {
		return fmt.Errorf("unable to open notebook storage: %w", err)
	}
	defer strg.Close()

	auditor, err := audit.New(audit.Config{
		Genesis:   gen,
		History:   hist,
		Storage:   strg,
		Metrics:   audit.NewMetrics(reg),
		EvHandler: ev,
	})
	if err != nil {
		return fmt.Errorf("unable to start auditor: %w", err)
	}

	// A node configured with a notary id closes that notary's notebooks and
	// audits them like any other notary's.
	var n *notary.Notary
	var w *worker.Worker
	if cfg.Notary.ID != 0 {
		operator, err := signature.LoadKeyPair(cfg.Notary.KeyPath)
		if err != nil {
			return fmt.Errorf("unable to load notary operator key: %w", err)
		}

		// The notary closes notebooks ahead of the audit, so they are kept
		// apart from the audited ones until the auditor accepts them.
		closed, err := disk.New(cfg.State.ClosedPath)
		if err != nil {
			return fmt.Errorf("unable to open closed notebook storage: %w", err)
		}
		defer closed.Close()

		n, err = notary.New(notary.Config{
			NotaryID:   ledger.NotaryID(cfg.Notary.ID),
			Operator:   operator,
			Genesis:    gen,
			Transfers:  hist,
			Audits:     auditor,
			Tick:       gen.TickAt(time.Now()),
			Registerer: reg,
			EvHandler:  ev,
		})
		if err != nil {
			return fmt.Errorf("unable to start notary: %w", err)
		}

		w, err = worker.Run(worker.Config{
			Genesis:   gen,
			Notary:    n,
			Auditor:   auditor,
			Storage:   closed,
			EvHandler: ev,
		})
		if err != nil {
			return fmt.Errorf("unable to start worker: %w", err)
		}
		defer w.Shutdown()
	}

	// =========================================================================
	// Start Debug Service

	log.Infow("startup", "status", "debug v1 router started", "host", cfg.Web.DebugHost)

	debugMux := handlers.DebugMux(build, log, auditor, reg)

	// Not concerned with shutting this down with load shedding.
	go func() {
		if err := http.ListenAndServe(cfg.Web.DebugHost, debugMux); err != nil {
			log.Errorw("shutdown", "status", "debug v1 router closed", "host", cfg.Web.DebugHost, "ERROR", err)
		}
	}()

	// =========================================================================
	// Service Start/Stop Support

	// Make a channel to listen for an interrupt or terminate signal from the OS.
	// Use a buffered channel because the signal package requires it.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	// Make a channel to listen for errors coming from the listener. Use a
	// buffered channel so the goroutine can exit if we don't collect this error.
	serverErrors := make(chan error, 1)

	muxCfg := handlers.MuxConfig{
		Shutdown:   shutdown,
		Log:        log,
		Genesis:    gen,
		Notary:     n,
		Auditor:    auditor,
		History:    hist,
		NS:         ns,
		Evts:       evts,
		CorsOrigin: cfg.Web.CorsOrigin,
		Registerer: reg,
	}
	if w != nil {
		muxCfg.Worker = w
	}

	// =========================================================================
	// Start Public Service

	log.Infow("startup", "status", "initializing V1 public API support")

	public := http.Server{
		Addr:         cfg.Web.PublicHost,
		Handler:      handlers.PublicMux(muxCfg),
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	go func() {
		log.Infow("startup", "status", "public api router started", "host", public.Addr)
		serverErrors <- public.ListenAndServe()
	}()

	// =========================================================================
	// Start Private Service

	log.Infow("startup", "status", "initializing V1 private API support")

	private := http.Server{
		Addr:         cfg.Web.PrivateHost,
		Handler:      handlers.PrivateMux(muxCfg),
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	go func() {
		log.Infow("startup", "status", "private api router started", "host", private.Addr)
		serverErrors <- private.ListenAndServe()
	}()

	// =========================================================================
	// Shutdown

	// Blocking main and waiting for shutdown.
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Infow("shutdown", "status", "shutdown started", "signal", sig)
		defer log.Infow("shutdown", "status", "shutdown complete", "signal", sig)

		// Release any web sockets that are currently active.
		log.Infow("shutdown", "status", "shutdown web socket channels")
		evts.Shutdown()

		// Give outstanding requests a deadline for completion.
		ctx, cancelPri := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancelPri()

		log.Infow("shutdown", "status", "shutdown private API started")
		if err := private.Shutdown(ctx); err != nil {
			private.Close()
			return fmt.Errorf("could not stop private service gracefully: %w", err)
		}

		ctx, cancelPub := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancelPub()

		log.Infow("shutdown", "status", "shutdown public API started")
		if err := public.Shutdown(ctx); err != nil {
			public.Close()
			return fmt.Errorf("could not stop public service gracefully: %w", err)
		}
	}

	return nil
}
