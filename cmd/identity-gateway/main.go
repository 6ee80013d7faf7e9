// ABOUTME: Entry point for the identity-gateway server
// ABOUTME: Subcommands serve, health, ready, token, and audit

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"

	"github.com/2389/identity-gateway/internal/config"
	"github.com/2389/identity-gateway/internal/gateway"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
 _     _            _   _ _                     _
(_) __| | ___ _ __ | |_(_) |_ _   _        __ _| |_ ___
| |/ _' |/ _ \ '_ \| __| | __| | | |_____ / _' | __/ _ \
| | (_| |  __/ | | | |_| | |_| |_| |_____| (_| | ||  __/
|_|\__,_|\___|_| |_|\__|_|\__|\__, |      \__, |\__\___|
                              |___/       |___/
`

func printUsage() {
	fmt.Println("Usage: identity-gateway <command>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  serve                      Start the gateway server")
	fmt.Println("  health                     Check gateway liveness")
	fmt.Println("  ready                      Check gateway readiness (directory reachable)")
	fmt.Println("  token --sub ID [--admin]   Mint a caller token signed with auth.jwt_secret")
	fmt.Println("  audit [filters]            List recent audit log entries")
	fmt.Println()
	fmt.Printf("Config: %s (override with %s)\n", config.DefaultPath(), config.EnvConfigPath)
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	args := os.Args[2:]

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "health":
		err = runProbe(ctx, "/health", "healthy")
	case "ready":
		err = runProbe(ctx, "/health/ready", "ready")
	case "token":
		err = runToken(args, os.Stdout)
	case "audit":
		err = runAudit(ctx, args, os.Stdout)
	case "version":
		fmt.Println(version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	configPath := config.DefaultPath()

	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging)

	green := color.New(color.FgGreen)
	green.Print("    ▶ ")
	fmt.Printf("Directory: ")
	cyan.Println(cfg.Directory.Driver)

	green.Print("    ▶ ")
	fmt.Printf("Audit log: ")
	if cfg.Audit.Path != "" {
		cyan.Println(cfg.Audit.Path)
	} else {
		gray.Println("disabled")
	}

	if cfg.Tailscale.Enabled {
		green.Print("    ▶ ")
		fmt.Printf("Tailscale: ")
		cyan.Print(cfg.Tailscale.Hostname)
		if cfg.Tailscale.Ephemeral {
			gray.Print(" (ephemeral)")
		}
		fmt.Println()
	} else {
		green.Print("    ▶ ")
		fmt.Printf("gRPC: ")
		cyan.Print(cfg.Server.GRPCAddr)
		fmt.Printf("  HTTP: ")
		cyan.Println(cfg.Server.HTTPAddr)
	}
	fmt.Println()

	logger.Info("starting identity-gateway",
		"config", configPath,
		"version", version,
		"grpc_addr", cfg.Server.GRPCAddr,
		"http_addr", cfg.Server.HTTPAddr,
	)

	gw, err := gateway.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating gateway: %w", err)
	}

	return gw.Run(ctx)
}

// runProbe requests path on the configured HTTP address and prints ok on 200.
func runProbe(ctx context.Context, path, ok string) error {
	cfg, err := config.Load(config.DefaultPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	url := fmt.Sprintf("http://%s%s", cfg.Server.HTTPAddr, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s check failed: %w", ok, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("not %s: status %d", ok, resp.StatusCode)
	}

	fmt.Println(ok)
	return nil
}
