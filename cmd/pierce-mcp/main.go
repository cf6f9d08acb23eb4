package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ironsheep/pierce-mcp/internal/config"
	"github.com/ironsheep/pierce-mcp/internal/server"
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
			fmt.Printf("pierce-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			fmt.Println("pierce-mcp - MCP server for transparency-aware hit testing")
			fmt.Println()
			fmt.Println("Usage: pierce-mcp [options]")
			fmt.Println()
			fmt.Println("Options:")
			fmt.Println("  --config <file>  YAML configuration file")
			fmt.Println("  --http <addr>    Also serve JSON-RPC over HTTP on addr (e.g. :8080)")
			fmt.Println("  --version, -v    Print version information")
			fmt.Println("  --help, -h       Print this help message")
			fmt.Println()
			fmt.Println("Environment variables:")
			fmt.Println("  PIERCE_MCP_CONFIG=<file>        Configuration file when --config is not given")
			fmt.Println("  PIERCE_MCP_LOG_LEVEL=debug      Log level: debug, info, warn, error")
			fmt.Println()
			fmt.Println("This server communicates via MCP protocol over stdin/stdout.")
			fmt.Println("Configure it in your MCP client (e.g., Claude Desktop).")
			return
		}
	}

	configPath := flag.String("config", "", "path to YAML configuration file")
	httpAddr := flag.String("http", "", "address for the HTTP JSON-RPC transport")
	flag.Parse()

	// Logs go to stderr; stdout is for MCP protocol
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(os.Getenv("PIERCE_MCP_LOG_LEVEL")),
	}))
	logger.Debug("pierce-mcp starting", "version", Version, "built", BuildTime, "commit", GitCommit)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("config", "error", err)
		os.Exit(1)
	}
	if *httpAddr != "" {
		cfg.HTTP.Addr = *httpAddr
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server.Version = Version
	srv := server.New(cfg, logger)

	err = run(ctx, srv, cfg.HTTP.Addr, logger)
	if cerr := srv.Close(); cerr != nil {
		logger.Warn("shutdown", "error", cerr)
	}
	if err != nil {
		stop()
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// run serves stdio until stdin closes. With an HTTP address it keeps serving
// HTTP after that, until ctx is cancelled.
func run(ctx context.Context, srv *server.Server, httpAddr string, logger *slog.Logger) error {
	if httpAddr == "" {
		return srv.Run(ctx)
	}

	httpErr := make(chan error, 1)
	go func() { httpErr <- srv.ListenAndServe(ctx, httpAddr) }()

	if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	logger.Debug("stdio closed, serving http only")
	return <-httpErr
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
