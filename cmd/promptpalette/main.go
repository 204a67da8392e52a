package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hazyhaar/promptpalette/pkg/api"
	"github.com/hazyhaar/promptpalette/pkg/catalog"
	"github.com/hazyhaar/promptpalette/pkg/chassis"
	"github.com/hazyhaar/promptpalette/pkg/generate"
	"github.com/hazyhaar/promptpalette/pkg/history"
	"github.com/hazyhaar/promptpalette/pkg/kvstore"
	"github.com/hazyhaar/promptpalette/pkg/onboarding"
	"github.com/hazyhaar/promptpalette/pkg/session"
	"github.com/hazyhaar/promptpalette/pkg/settings"
)

var version = "dev"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		cmdServe(os.Args[2:])
	case "topics":
		cmdTopics(os.Args[2:])
	case "render":
		cmdRender(os.Args[2:])
	case "build":
		cmdBuild(os.Args[2:])
	case "mcp":
		cmdMCP(os.Args[2:])
	case "version":
		fmt.Println(version)
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: promptpalette <command> [flags]

Commands:
  serve    Start the HTTP API (and MCP at /mcp)
  topics   List subjects, or search a subject's topics
  render   Print the meta-prompt for a subject and topic
  build    Validate catalog.yaml and write a catalog.gob snapshot
  mcp      Serve the MCP tools over stdio
  version  Print the version
`)
}

// setup loads config, logger and catalog shared by every command.
func setup(fs *flag.FlagSet, args []string) (config, *slog.Logger, *catalog.Registry) {
	cfgPath := fs.String("config", "config.yaml", "path to config file")
	fs.Parse(args)

	boot := newLogger(slog.LevelInfo)
	cfg, err := loadConfig(*cfgPath, boot)
	if err != nil {
		boot.Error("config", "error", err)
		os.Exit(1)
	}
	logger := newLogger(cfg.logLevel())

	reg := catalog.NewRegistry(cfg.CatalogDir)
	if err := reg.Load(); err != nil {
		logger.Error("failed to load catalog", "dir", cfg.CatalogDir, "error", err)
		os.Exit(1)
	}
	info := reg.Info()
	logger.Debug("catalog loaded", "id", info.ID, "subjects", info.Subjects, "topics", info.Topics)
	return cfg, logger, reg
}

func cmdServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := fs.String("addr", "", "listen address (overrides config)")
	cfg, logger, reg := setup(fs, args)
	if *addr != "" {
		cfg.Addr = *addr
	}

	store, err := kvstore.Open(cfg.Storage.Driver, cfg.Storage.Path)
	if err != nil {
		logger.Error("failed to open storage", "driver", cfg.Storage.Driver, "path", cfg.Storage.Path, "error", err)
		os.Exit(1)
	}
	defer kvstore.Close(store)

	gen, err := newGenerator(cfg)
	if err != nil {
		logger.Error("generator", "error", err)
		os.Exit(1)
	}
	if cfg.apiKey() == "" {
		logger.Warn("no API key in environment; AI generation will fail", "provider", cfg.Generate.Provider)
	}

	hist := history.Open(store, logger)
	creds := settings.NewCredentials(store, logger)
	tour := onboarding.Open(store, logger)
	sess := session.New(session.Deps{
		Catalog:   reg,
		History:   hist,
		Generator: gen,
		APIKey:    cfg.apiKey(),
		Logger:    logger,
	})

	router := api.NewRouter(api.Deps{
		Catalog:     reg,
		Session:     sess,
		History:     hist,
		Credentials: creds,
		Tour:        tour,
		MCP:         api.NewMCPServer(reg, version, logger),
		Logger:      logger,
	})

	srv, err := chassis.New(chassis.Config{
		Addr:     cfg.Addr,
		CertFile: cfg.TLS.CertFile,
		KeyFile:  cfg.TLS.KeyFile,
		Handler:  router,
		Logger:   logger,
	})
	if err != nil {
		logger.Error("chassis", "error", err)
		os.Exit(1)
	}

	// SIGHUP: hot reload catalog.
	// SIGINT/SIGTERM: graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sighup := make(chan os.Signal, 1)
	signal.Notify(sighup, syscall.SIGHUP)
	go func() {
		for range sighup {
			logger.Info("SIGHUP received, reloading catalog")
			if err := reg.Reload(); err != nil {
				logger.Error("reload failed", "error", err)
			} else {
				sess.CatalogReloaded()
				info := reg.Info()
				logger.Info("catalog reloaded", "subjects", info.Subjects, "topics", info.Topics)
			}
		}
	}()

	ready := make(chan struct{})
	go func() {
		if srv.Addr() != nil {
			close(ready)
		}
	}()
	// The tour shows no step until the listener is bound.
	go func() {
		show, err := tour.Await(ctx, ready)
		if err == nil && show {
			logger.Info("first run: onboarding tour pending", "steps", len(onboarding.Steps))
		}
	}()

	if err := srv.Start(ctx); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	srv.Stop(shutdownCtx)
}

func newGenerator(cfg config) (generate.Generator, error) {
	gen, err := generate.New(cfg.Generate.Provider, cfg.Generate.Model)
	if err != nil {
		return nil, err
	}
	if o, ok := gen.(*generate.OpenAI); ok {
		o.BaseURL = cfg.Generate.BaseURL
	}
	return generate.WithTimeout(gen, cfg.Generate.Timeout), nil
}
