package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/certforge/formsync/internal/config"
	"github.com/certforge/formsync/internal/mcp"
	"github.com/certforge/formsync/internal/template"
)

// Populated through -ldflags at release time.
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

func main() {
	if wantsVersion(os.Args[1:]) {
		fmt.Print(versionString())
		return
	}

	cfg, err := config.LoadFromFlags()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if version != "dev" {
		cfg.Version = version
	}

	if err := run(cfg); err != nil {
		// Stdio mode keeps stderr quiet unless debugging; the exit code
		// still tells the parent something went wrong.
		if cfg.IsServerMode() || cfg.IsDebug() {
			log.Printf("Server error: %v", err)
		}
		os.Exit(1)
	}
}

// run wires the template service into the MCP server and serves until the
// transport closes or, in server mode, a termination signal arrives.
func run(cfg *config.Config) error {
	log.SetOutput(logDestination(cfg))

	templates := template.NewService(cfg.MaxFileSize, cfg.IsDebug())
	srv, err := mcp.NewServer(cfg, templates)
	if err != nil {
		return err
	}

	if !cfg.IsServerMode() {
		// The parent process owns our lifecycle; exit when stdin closes.
		return srv.Run(context.Background())
	}

	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if cfg.IsDebug() {
		log.Printf("Configuration: %s", cfg.String())
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run(ctx) }()

	select {
	case <-ctx.Done():
		log.Println("Shutdown signal received, stopping")
		return nil
	case err := <-errCh:
		if err != nil {
			return err
		}
		log.Println("Server stopped")
		return nil
	}
}

// logDestination picks where log output goes. Server mode and debug runs log
// to stderr; quiet stdio runs discard logs so nothing leaks near the protocol
// stream.
func logDestination(cfg *config.Config) io.Writer {
	if cfg.IsServerMode() || cfg.IsDebug() {
		return os.Stderr
	}
	devnull, err := os.OpenFile(os.DevNull, os.O_WRONLY, 0)
	if err != nil {
		return os.Stderr
	}
	return devnull
}

// wantsVersion reports whether any argument asks for version output. Checked
// before flag parsing so it works regardless of the other flags present.
func wantsVersion(args []string) bool {
	for _, arg := range args {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			return true
		}
	}
	return false
}

func versionString() string {
	return fmt.Sprintf("Formsync\nVersion: %s\nBuild Time: %s\nGit Commit: %s\nBuilt with: %s\n",
		version, buildTime, gitCommit, runtime.Version())
}
