// ABOUTME: token subcommand minting caller tokens signed with auth.jwt_secret
// ABOUTME: Bootstraps the first admin before any elevated token can be granted

package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/2389/identity-gateway/internal/auth"
	"github.com/2389/identity-gateway/internal/config"
)

// defaultCallerTokenTTL matches the lifetime of bootstrap tokens: 30 days.
const defaultCallerTokenTTL = 30 * 24 * time.Hour

type tokenOptions struct {
	subject string
	admin   bool
	ttl     time.Duration
	save    bool
}

func parseTokenArgs(args []string) (tokenOptions, error) {
	var opts tokenOptions
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&opts.subject, "sub", "", "subject (user ID) of the token")
	fs.BoolVar(&opts.admin, "admin", false, "include the admin claim")
	fs.DurationVar(&opts.ttl, "ttl", defaultCallerTokenTTL, "token lifetime")
	fs.BoolVar(&opts.save, "save", false, "write the token where identity-admin reads it")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if fs.NArg() > 0 {
		return opts, fmt.Errorf("unexpected argument: %s", fs.Arg(0))
	}
	if opts.subject == "" {
		return opts, errors.New("--sub flag is required")
	}
	if opts.ttl <= 0 {
		return opts, errors.New("--ttl must be positive")
	}
	return opts, nil
}

func mintCallerToken(secret string, opts tokenOptions) (string, error) {
	if secret == "" {
		return "", errors.New("auth.jwt_secret is not configured")
	}
	verifier, err := auth.NewJWTVerifier([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("creating JWT verifier: %w", err)
	}

	claims := map[string]any{}
	if opts.admin {
		claims["admin"] = true
	}
	return verifier.Generate(opts.subject, claims, opts.ttl)
}

// tokenFilePath is $XDG_CONFIG_HOME/identity-gateway/token.
func tokenFilePath() (string, error) {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "identity-gateway", "token"), nil
}

func runToken(args []string, out io.Writer) error {
	opts, err := parseTokenArgs(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load(config.DefaultPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	token, err := mintCallerToken(cfg.Auth.JWTSecret, opts)
	if err != nil {
		return err
	}

	if opts.save {
		path, err := tokenFilePath()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return fmt.Errorf("creating token directory: %w", err)
		}
		if err := os.WriteFile(path, []byte(token), 0600); err != nil {
			return fmt.Errorf("writing token file: %w", err)
		}
		fmt.Fprintf(os.Stderr, "saved token to %s\n", path)
	}

	_, err = fmt.Fprintln(out, token)
	return err
}
