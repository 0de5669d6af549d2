package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	nethttp "net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/finmcp/finmcp/internal/catalog"
	"github.com/finmcp/finmcp/internal/config"
	"github.com/finmcp/finmcp/internal/core"
	httpsvr "github.com/finmcp/finmcp/internal/http"
	mcpsvr "github.com/finmcp/finmcp/internal/mcp"
	"github.com/finmcp/finmcp/internal/netinfo"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

var (
	version   = ""
	gitCommit = ""
	buildTime = ""
)

func main() {
	service := pflag.String("service", "", "service to serve: bank, tax, arbitr or all (overrides FINMCP_SERVICE)")
	configPath := pflag.String("config", "", "YAML config file (defaults to FINMCP_CONFIG)")
	envFile := pflag.String("env-file", ".env", "dotenv file loaded before reading the environment")
	listen := pflag.String("listen", "", "HTTP listen address host:port (overrides HOST and PORT)")
	tcpListen := pflag.String("mcp-tcp-listen", "", "line-delimited MCP listen address (overrides MCP_TCP_LISTEN)")
	pflag.Parse()

	boot := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		boot.Error("env file load failed", "path", *envFile, "err", err)
		os.Exit(1)
	}

	path := *configPath
	if path == "" {
		path = os.Getenv("FINMCP_CONFIG")
	}
	cfg, err := config.Load(path, os.Getenv)
	if err != nil {
		boot.Error("config load failed", "err", err)
		os.Exit(1)
	}
	if *service != "" {
		cfg.Service = *service
	}
	if *tcpListen != "" {
		cfg.Server.MCPTCPListen = *tcpListen
	}
	if err := cfg.Validate(); err != nil {
		boot.Error("invalid config", "err", err)
		os.Exit(1)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Server.LogLevel)); err != nil {
		boot.Error("invalid LOG_LEVEL", "value", cfg.Server.LogLevel)
		os.Exit(1)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	httpClient := &nethttp.Client{}
	tools, err := catalog.Build(cfg, os.Getenv, logger, httpClient)
	if err != nil {
		logger.Error("tool catalog build failed", "err", err)
		os.Exit(1)
	}
	registry, err := core.NewRegistry(logger, tools...)
	if err != nil {
		logger.Error("tool registry init failed", "err", err)
		os.Exit(1)
	}

	name := catalog.DisplayName(cfg.Service)
	modes := catalog.Modes(cfg)
	logger.Info("effective config",
		"service", cfg.Service,
		"modes", modes,
		"tools", len(registry.Names()),
		"enable_metrics", cfg.Server.EnableMetrics,
		"mcp_tcp_listen", cfg.Server.MCPTCPListen,
	)

	dispatcher := mcpsvr.NewDispatcher(mcpsvr.ServerInfo{Name: name, Version: version}, registry, logger)

	addr := cfg.Server.Addr()
	if *listen != "" {
		addr = *listen
	}
	httpServer := httpsvr.NewServer(httpsvr.Options{
		Addr:          addr,
		Service:       name,
		Modes:         modes,
		Registry:      registry,
		MCP:           mcpsvr.NewStreamableHandler(dispatcher, logger),
		EnableMetrics: cfg.Server.EnableMetrics,
		Build: httpsvr.BuildInfo{
			Version:         version,
			GitCommit:       gitCommit,
			BuildTime:       buildTime,
			ContractVersion: core.ContractVersion,
		},
		Logger: logger,
	})
	var tcpServer *mcpsvr.TCPServer
	if cfg.Server.MCPTCPListen != "" {
		tcpServer = mcpsvr.NewTCPServer(cfg.Server.MCPTCPListen, dispatcher, logger)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if servesTax(cfg.Service) && cfg.Tax.LogExternalIP {
		go netinfo.LogExternalIP(ctx, logger, netinfo.NewDetector(logger, httpClient))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := httpServer.ListenAndServe(); !errors.Is(err, nethttp.ErrServerClosed) {
			return err
		}
		return nil
	})
	if tcpServer != nil {
		g.Go(tcpServer.ListenAndServe)
	}
	g.Go(func() error {
		<-gctx.Done()
		if ctx.Err() != nil {
			logger.Info("shutting down", "reason", "signal")
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		err := httpServer.Shutdown(shutdownCtx)
		if tcpServer != nil {
			err = errors.Join(err, tcpServer.Shutdown(shutdownCtx))
		}
		return err
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", "err", err)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

func servesTax(service string) bool {
	s := strings.ToLower(service)
	return s == "tax" || s == catalog.All
}
