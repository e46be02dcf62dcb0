package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"tailscale.com/tsnet"

	"github.com/claude/vitalsync/internal/config"
	"github.com/claude/vitalsync/internal/garmin"
	"github.com/claude/vitalsync/internal/ingest"
	"github.com/claude/vitalsync/internal/mcp"
	"github.com/claude/vitalsync/internal/metrics"
	"github.com/claude/vitalsync/internal/report"
	"github.com/claude/vitalsync/internal/server"
	"github.com/claude/vitalsync/internal/storage"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	mcpMode := flag.Bool("mcp", false, "serve MCP over stdio instead of HTTP")
	mcpRemote := flag.String("mcp-remote", "", "serve MCP against a remote VitalSync API at this base URL")
	mcpUser := flag.Int64("mcp-user", 1, "user ID for the MCP stdio session")
	flag.Parse()

	// MCP stdio traffic owns stdout, so logs go to stderr in that mode.
	logOut := os.Stdout
	if *mcpMode {
		logOut = os.Stderr
	}
	log := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: slog.LevelInfo}))
	log.Info("VitalSync starting", "version", Version)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Remote MCP mode needs no local storage at all.
	if *mcpMode && *mcpRemote != "" {
		ds := mcp.NewHTTPClient(*mcpRemote, cfg.Auth.APIKey)
		serveMCP(ds, *mcpUser, log)
		return
	}

	store, err := storage.Open(cfg.Data.Dir, log)
	if err != nil {
		log.Error("failed to open data store", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	log.Info("data store opened", "dir", cfg.Data.Dir)

	sessions := garmin.NewSessionProvider(cfg.Garmin.TokenDir, cfg.Garmin.BaseURL, cfg.Garmin.Timeout(), log)
	orchestrator := ingest.New(store, sessions, log)
	extractor := metrics.NewExtractor(store, log)
	reports := report.NewGenerator(extractor, log)

	if *mcpMode {
		ds := &mcp.Local{Store: store, Extractor: extractor, Reports: reports}
		serveMCP(ds, *mcpUser, log)
		return
	}

	srv := server.New(orchestrator, extractor, store, reports, cfg.Auth.APIKey, log)

	// Start server — tsnet or plain HTTP
	var listener net.Listener
	var tsServer *tsnet.Server

	if cfg.Tailscale.Enabled {
		tsServer = &tsnet.Server{
			Hostname: cfg.Tailscale.Hostname,
			Dir:      cfg.Tailscale.StateDir,
		}
		if err := tsServer.Start(); err != nil {
			log.Error("tsnet start failed", "error", err)
			os.Exit(1)
		}
		defer tsServer.Close()

		listener, err = tsServer.Listen("tcp", ":80")
		if err != nil {
			log.Error("tsnet listen failed", "error", err)
			os.Exit(1)
		}
		log.Info("tsnet server starting", "hostname", cfg.Tailscale.Hostname)
	} else {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		listener, err = net.Listen("tcp", addr)
		if err != nil {
			log.Error("listen failed", "addr", addr, "error", err)
			os.Exit(1)
		}
		log.Info("server starting", "addr", addr, "mode", "dev (no tailscale)")
	}

	httpSrv := &http.Server{Handler: srv}

	go func() {
		if err := httpSrv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("shutting down", "signal", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
	log.Info("server stopped")
}

func serveMCP(ds mcp.DataSource, userID int64, log *slog.Logger) {
	s := mcp.New(ds, Version, log)
	log.Info("MCP server starting", "transport", "stdio", "user", userID)

	err := mcpserver.ServeStdio(s, mcpserver.WithStdioContextFunc(func(ctx context.Context) context.Context {
		return mcp.WithUserID(ctx, userID)
	}))
	if err != nil {
		log.Error("mcp server error", "error", err)
		os.Exit(1)
	}
}
