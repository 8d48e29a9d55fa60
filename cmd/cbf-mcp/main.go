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

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/cbf-tools-mcp/internal/cbf"
	"github.com/ironsheep/cbf-tools-mcp/internal/config"
	"github.com/ironsheep/cbf-tools-mcp/internal/imaging"
	"github.com/ironsheep/cbf-tools-mcp/internal/logger"
	"github.com/ironsheep/cbf-tools-mcp/internal/server"
	"github.com/ironsheep/cbf-tools-mcp/internal/storage"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Handle --version and -v flags
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("cbf-tools-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			fmt.Println("cbf-tools-mcp - MCP server for CBF diffraction images")
			fmt.Println()
			fmt.Println("Usage: cbf-tools-mcp [options]")
			fmt.Println()
			fmt.Println("Options:")
			fmt.Println("  --version, -v    Print version information")
			fmt.Println("  --help, -h       Print this help message")
			fmt.Println()
			fmt.Println("Environment variables:")
			fmt.Println("  CBF_MCP_LOG_LEVEL=debug          Log level (debug, info, warn, error)")
			fmt.Println("  CBF_MCP_LOG_FORMAT=json          Log format (text, json)")
			fmt.Println("  CBF_MCP_HTTP_ADDR=:8080          Also serve MCP and tools over HTTP")
			fmt.Println("  CBF_MCP_FETCH_TIMEOUT=30s        Timeout for one tool call, including fetches")
			fmt.Println("  CBF_MCP_VERIFY_DIGEST=true       Check Content-MD5 of every image")
			fmt.Println("  CBF_MCP_ANGULAR_BINS=720         Default angular bins of radial profiles")
			fmt.Println("  CBF_MCP_RADIAL_BINS=500          Default radial bins of radial profiles")
			fmt.Println("  CBF_MCP_MAX_RADIUS=1.414         Default outer radius of radial profiles")
			fmt.Println("  AZURE_STORAGE_ACCOUNT, AZURE_STORAGE_KEY")
			fmt.Println("                                   Enable azblob://container/blob paths")
			fmt.Println()
			fmt.Println("This server communicates via MCP protocol over stdin/stdout.")
			fmt.Println("Configure it in your MCP client (e.g., Claude Desktop).")
			return
		}
	}

	if err := run(); err != nil {
		logger.WithError(err).Fatal("Server error")
	}
}

func run() error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := logger.Configure(cfg.LogLevel, cfg.LogFormat); err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{
		"version":    Version,
		"build_time": BuildTime,
		"commit":     GitCommit,
	}).Debug("CBF MCP Server starting")

	storageOpts := []storage.Option{storage.WithLogger(logger.WithField("component", "storage"))}
	if cfg.AzureEnabled() {
		blobs, err := storage.NewAzureBlobs(cfg.AzureAccount, cfg.AzureKey)
		if err != nil {
			return fmt.Errorf("failed to create Azure client: %w", err)
		}
		storageOpts = append(storageOpts, storage.WithAzure(blobs))
	}

	cache := imaging.NewImageCache(
		storage.NewOpener(storageOpts...),
		cbf.WithDigestVerification(cfg.VerifyDigest),
		cbf.WithLogger(logger.WithField("component", "cbf")),
	)
	srv := server.New(cache, server.WithDefaults(server.Defaults{
		AngularBins: cfg.AngularBins,
		RadialBins:  cfg.RadialBins,
		MaxRadius:   cfg.MaxRadius,
		CallTimeout: cfg.FetchTimeout,
	}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.HTTPAddr != "" {
		httpSrv := &http.Server{
			Addr:         cfg.HTTPAddr,
			Handler:      srv.Handler(),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: cfg.FetchTimeout + 15*time.Second,
			IdleTimeout:  60 * time.Second,
		}
		go func() {
			logger.WithField("addr", cfg.HTTPAddr).Info("Starting HTTP server")
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.WithError(err).Error("HTTP server failed")
				stop()
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := httpSrv.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Error("HTTP server forced to shutdown")
			}
			logger.Logger.Info("HTTP server exited")
		}()
	}

	err = srv.Run(ctx, os.Stdin, os.Stdout)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	if err != nil {
		return err
	}

	// A closed stdin ends the stdio session; keep serving HTTP until signalled.
	if cfg.HTTPAddr != "" {
		logger.Logger.Info("stdin closed, serving HTTP only")
		<-ctx.Done()
	}
	return nil
}
