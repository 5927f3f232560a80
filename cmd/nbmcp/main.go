// nbmcp: Jupyter Notebook MCP Server
//
// An MCP server that gives AI coding tools a dependency-graph view of
// Jupyter notebooks (which cells feed which, what is stale and why) and
// serialized code execution on the notebooks' live kernels.
//
// Usage:
//
//	nbmcp serve    # Start MCP server (stdio transport by default)
//	nbmcp update   # Update to the latest version
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"

	"github.com/nbmcp/nbmcp/internal/config"
	nbserver "github.com/nbmcp/nbmcp/internal/server"
	"github.com/nbmcp/nbmcp/internal/updater"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		if err := run(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "update":
		runUpdate()
	case "--help", "-h", "help":
		printUsage()
		os.Exit(0)
	case "--version", "-v", "version":
		fmt.Printf("nbmcp v%s\n", nbserver.Version)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}

	s, cleanup, err := nbserver.New()
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	defer cleanup()

	// Background version check — prints to stderr so it doesn't
	// interfere with MCP's stdio transport on stdout.
	go checkForUpdates()

	// Graceful shutdown on interrupt.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigCh
		cancel()
	}()

	if cfg.Transport == config.TransportStreamableHTTP {
		httpServer := server.NewStreamableHTTPServer(s)
		go func() {
			<-ctx.Done()
			_ = httpServer.Shutdown(context.Background())
		}()
		fmt.Fprintf(os.Stderr, "nbmcp v%s listening on %s (streamable-http)\n", nbserver.Version, cfg.HTTPAddr())
		if err := httpServer.Start(cfg.HTTPAddr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	_ = ctx // stdio server manages its own lifecycle

	return server.ServeStdio(s)
}

// checkForUpdates runs a non-blocking version check and prints a notice
// to stderr if an update is available. This runs in a goroutine during
// "serve" and is best-effort — network failures are silently ignored.
func checkForUpdates() {
	result := updater.CheckVersion(nbserver.Version)
	if result.UpdateAvailable {
		fmt.Fprintf(os.Stderr,
			"\n  📦 Update available: v%s → v%s\n"+
				"     Run: nbmcp update\n"+
				"     Release: %s\n\n",
			result.CurrentVersion, result.LatestVersion, result.ReleaseURL,
		)
	}
}

// runUpdate performs a self-update to the latest version.
func runUpdate() {
	fmt.Fprintf(os.Stderr, "🔍 Checking for updates...\n")

	result := updater.CheckVersion(nbserver.Version)
	if !result.UpdateAvailable {
		fmt.Fprintf(os.Stderr, "✅ Already at the latest version (v%s)\n", result.CurrentVersion)
		return
	}

	fmt.Fprintf(os.Stderr, "📦 New version available: v%s → v%s\n", result.CurrentVersion, result.LatestVersion)
	fmt.Fprintf(os.Stderr, "⬇️  Downloading...\n")

	if err := updater.SelfUpdate(nbserver.Version); err != nil {
		fmt.Fprintf(os.Stderr, "❌ Update failed: %v\n", err)
		fmt.Fprintf(os.Stderr, "\n   You can download manually from:\n   %s\n", result.ReleaseURL)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "✅ Updated to v%s!\n", result.LatestVersion)
	fmt.Fprintf(os.Stderr, "   Restart nbmcp to use the new version.\n")
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `nbmcp v%s — Jupyter Notebook MCP Server

Usage:
  nbmcp serve    Start the MCP server (stdio transport by default)
  nbmcp update   Update to the latest version

Environment:
  JUPYTER_BASE_URL    Jupyter Server URL, e.g. http://localhost:8888
                      (required for the jupyter_* tools; notebook_*
                      analysis tools work without it)
  JUPYTER_TOKEN       API token, if the server requires one
  MCP_TRANSPORT       "stdio" (default) or "streamable-http"
  MCP_HOST, MCP_PORT  streamable-http bind address (default 127.0.0.1:8000)
  NBMCP_LOG_LEVEL     debug, info, warn, error, fatal (default info)
  NBMCP_HISTORY_PATH  directory for the execution history database

Configuration:
  Add to your AI tool's MCP config:

  {
    "mcpServers": {
      "nbmcp": {
        "command": "nbmcp",
        "args": ["serve"],
        "env": { "JUPYTER_BASE_URL": "http://localhost:8888" }
      }
    }
  }

Learn more: https://github.com/nbmcp/nbmcp
`, nbserver.Version)
}
