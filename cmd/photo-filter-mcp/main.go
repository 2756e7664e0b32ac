package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"

	"github.com/ironsheep/photo-filter-mcp/internal/config"
	"github.com/ironsheep/photo-filter-mcp/internal/logging"
	"github.com/ironsheep/photo-filter-mcp/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

const envConfigPath = "PHOTO_FILTER_CONFIG"

func main() {
	configPath := os.Getenv(envConfigPath)
	check := false

	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--version", "-v", "version":
			fmt.Printf("photo-filter-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			printHelp()
			return
		case "--check":
			check = true
		case "--config", "-c":
			if i+1 >= len(args) {
				fmt.Fprintf(os.Stderr, "%s requires a file path\n", args[i])
				os.Exit(2)
			}
			i++
			configPath = args[i]
		default:
			fmt.Fprintf(os.Stderr, "unknown option: %s\n", args[i])
			os.Exit(2)
		}
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	// Logging goes to stderr (stdout is for MCP protocol)
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging error: %v\n", err)
		os.Exit(1)
	}
	logger.WithFields(logrus.Fields{
		"version": Version,
		"built":   BuildTime,
		"commit":  GitCommit,
	}).Debug("photo filter MCP server starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if check {
		os.Exit(runCheck(ctx, os.Stdout, cfg, logger))
	}

	srv, err := server.New(ctx, cfg, logger, Version)
	if err != nil {
		logger.WithError(err).Fatal("failed to start server")
	}
	defer srv.Close()

	if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
		logger.WithError(err).Error("server error")
		srv.Close()
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Println("photo-filter-mcp - MCP server for previewing and saving filtered photos")
	fmt.Println()
	fmt.Println("Usage: photo-filter-mcp [options]")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --config, -c FILE  Read settings from a YAML file")
	fmt.Println("  --check            Verify configuration, filters and library, then exit")
	fmt.Println("  --version, -v      Print version information")
	fmt.Println("  --help, -h         Print this help message")
	fmt.Println()
	fmt.Println("Environment variables:")
	fmt.Println("  PHOTO_FILTER_CONFIG=FILE            YAML settings file")
	fmt.Println("  PHOTO_FILTER_LOG_LEVEL=debug        Enable debug logging")
	fmt.Println("  PHOTO_FILTER_LIBRARY_DIR=DIR        Where saved photos go (default ./photos)")
	fmt.Println("  PHOTO_FILTER_MAX_DIMENSION=N        Longest side of the working image (default 1024)")
	fmt.Println("  PHOTO_FILTER_SAVE_FORMAT=jpeg|png   Saved photo format")
	fmt.Println("  PHOTO_FILTER_MAX_REQUEST_BYTES=N    Largest request line (default 64 MiB)")
	fmt.Println()
	fmt.Println("Variables may also be set in a .env file in the working directory.")
	fmt.Println("This server communicates via MCP protocol over stdin/stdout.")
}
