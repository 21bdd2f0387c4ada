// Command attendd is the edge attendance coordinator daemon.
//
// It sits beside the classroom's fingerprint scanners, mediating between
// the scanner fleet, a local MongoDB instance, connected operator
// consoles (REST + WebSocket), and the intermittently reachable central
// backend. Students register and swipe whether or not the uplink is up;
// everything recorded offline is replayed by the background sync worker
// once the backend answers again.
//
// Usage:
//
//	attendd [flags]
//
// Flags:
//
//	-config string   Configuration file path (YAML, optional)
//	-listen string   HTTP listen address (overrides config)
//	-log-level string   Log level: debug, info, warn, error
//	-dev             Run with an in-memory store instead of MongoDB
//
// Examples:
//
//	# Production: MongoDB from MONGO_URI, scanners from devices_config.json
//	attendd -config /etc/attendd/attendd.yaml
//
//	# Local development without a database
//	attendd -dev -log-level debug
//
// Environment:
//
//	MONGO_URI        MongoDB connection string
//	DATABASE_NAME    Database holding the coordinator's collections
//	HOST_REMOTE_URL  Central backend base URL (empty = permanently offline)
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/attendd/attendd/internal/api"
	"github.com/attendd/attendd/internal/attendance"
	"github.com/attendd/attendd/internal/config"
	"github.com/attendd/attendd/internal/device"
	"github.com/attendd/attendd/internal/enroll"
	"github.com/attendd/attendd/internal/ident"
	"github.com/attendd/attendd/internal/operator"
	"github.com/attendd/attendd/internal/remote"
	"github.com/attendd/attendd/internal/store"
	"github.com/attendd/attendd/internal/syncer"
	"github.com/attendd/attendd/pkg/prototrace"
	"github.com/attendd/attendd/pkg/zk"
)

const shutdownTimeout = 10 * time.Second

var opts struct {
	configFile string
	listenAddr string
	logLevel   string
	devMode    bool
}

func init() {
	flag.StringVar(&opts.configFile, "config", "", "Configuration file path")
	flag.StringVar(&opts.listenAddr, "listen", "", "HTTP listen address (overrides config)")
	flag.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flag.BoolVar(&opts.devMode, "dev", false, "Run with an in-memory store instead of MongoDB")
}

func main() {
	flag.Parse()

	cfg, err := config.Load(opts.configFile)
	if err != nil {
		logrus.WithError(err).Fatal("configuration unreadable")
	}
	if opts.listenAddr != "" {
		cfg.ListenAddr = opts.listenAddr
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}

	log := logrus.New()
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logrus.WithField("level", cfg.LogLevel).Fatal("unknown log level")
	}
	log.SetLevel(level)

	loc, err := cfg.Location()
	if err != nil {
		log.WithError(err).Fatal("timezone unresolvable")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, closeStore := openStore(ctx, cfg, log)
	defer closeStore()

	var tracer prototrace.Logger
	if cfg.TracePath != "" {
		fl, err := prototrace.NewFileLogger(cfg.TracePath)
		if err != nil {
			log.WithError(err).WithField("path", cfg.TracePath).Fatal("trace file unwritable")
		}
		defer fl.Close()
		tracer = fl
		log.WithField("path", cfg.TracePath).Info("protocol tracing enabled")
	}

	driver := zk.NewTCPDriver(zk.Options{
		CommKey: cfg.CommKey,
		Tracer:  tracer,
	})
	registry := device.LoadRegistry(driver, cfg.DevicePath, cfg.DeviceTimeout.Std(), log)
	pool := device.NewPool(registry, log)

	client := remote.NewClient(cfg.RemoteURL, log)
	probe := remote.NewProbe(cfg.RemoteURL, log)
	if cfg.RemoteURL == "" {
		log.Warn("no remote configured, every capture takes the offline path")
	}

	hub := operator.NewHub(log)
	alloc := ident.NewAllocator(st)
	arbiter := attendance.NewArbiter(st, client, hub, log)
	orchestrator := attendance.NewOrchestrator(st, client, probe, arbiter, hub, loc, log)
	enroller := enroll.NewEnroller(registry, alloc, client, probe, st, hub, log)
	worker := syncer.NewWorker(st, client, probe, hub, cfg.SyncInterval.Std(), "", log)

	server := api.NewServer(api.Deps{
		Store:          st,
		Alloc:          alloc,
		Enroller:       enroller,
		Registry:       registry,
		Pool:           pool,
		Orchestrator:   orchestrator,
		Arbiter:        arbiter,
		Syncer:         worker,
		Hub:            hub,
		Probe:          probe,
		AllowedOrigins: cfg.AllowedOrigins,
		Log:            log,
	})

	go worker.Run(ctx)

	httpSrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.WithField("addr", cfg.ListenAddr).Info("attendd listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("http server failed")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	pool.StopAll()
	hub.Shutdown()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http shutdown incomplete")
	}
	log.Info("attendd stopped")
}

// openStore connects the configured store. Development mode trades
// MongoDB for the in-process store so the daemon runs standalone.
func openStore(ctx context.Context, cfg *config.Config, log *logrus.Logger) (store.Store, func()) {
	if opts.devMode {
		log.Warn("dev mode: in-memory store, nothing survives a restart")
		return store.NewMem(), func() {}
	}

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	m, err := store.Open(dialCtx, cfg.MongoURI, cfg.DatabaseName)
	if err != nil {
		log.WithError(err).WithField("uri", cfg.MongoURI).Fatal("mongodb unreachable")
	}
	log.WithField("database", cfg.DatabaseName).Info("mongodb connected")

	return m, func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := m.Close(closeCtx); err != nil {
			log.WithError(err).Warn("mongodb close failed")
		}
	}
}
