// ABOUTME: Admin CLI for identity-gateway account management
// ABOUTME: Calls the AccountAdmin gRPC service with a bearer token

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"

	"github.com/2389/identity-gateway/internal/client"
)

const callTimeout = 10 * time.Second

// accountAdmin is the subset of client.Client the commands use.
type accountAdmin interface {
	GrantElevatedToken(ctx context.Context, targetUserID string) (string, error)
	CreateAccount(ctx context.Context, email, displayName string) (string, error)
	UpdateAccount(ctx context.Context, targetUserID string, email, displayName *string) (string, error)
	DeleteAccount(ctx context.Context, targetUserID string) (string, error)
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	if cmd == "help" || cmd == "-h" || cmd == "--help" {
		printUsage()
		return
	}

	grpcAddr := os.Getenv("IDENTITY_GATEWAY_GRPC")
	if grpcAddr == "" {
		if host := os.Getenv("IDENTITY_GATEWAY_HOST"); host != "" {
			grpcAddr = host + ":50051"
		} else {
			grpcAddr = "localhost:50051"
		}
	}

	token := client.ResolveToken()
	if token == "" {
		color.Red("Error: %s environment variable is required\n", client.EnvToken)
		os.Exit(1)
	}

	c, err := client.Dial(grpcAddr, token)
	if err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	if err := run(ctx, c, cmd, os.Args[2:], os.Stdout); err != nil {
		color.Red("Error: %v\n", err)
		c.Close()
		os.Exit(1)
	}
}

func printUsage() {
	yellow := color.New(color.FgYellow)

	fmt.Println("Usage: identity-admin <command> [args]")
	fmt.Println()
	yellow.Println("Commands:")
	fmt.Println("  grant <uid>                                  Mint an elevated (admin) token for an account")
	fmt.Println("  create --email <email> --name <name>         Create an account with the initial password")
	fmt.Println("  update <uid> [--email <email>] [--name <n>]  Change an account's email or display name")
	fmt.Println("  delete <uid>                                 Delete an account")
	fmt.Println()
	yellow.Println("Environment:")
	fmt.Println("  IDENTITY_GATEWAY_HOST    Gateway hostname (derives gRPC :50051)")
	fmt.Println("  IDENTITY_GATEWAY_GRPC    Gateway gRPC address (default: localhost:50051)")
	fmt.Println("  IDENTITY_TOKEN           Caller token (falls back to ~/.config/identity-gateway/token)")
	fmt.Println()
}

func run(ctx context.Context, c accountAdmin, cmd string, args []string, out io.Writer) error {
	switch cmd {
	case "grant":
		return cmdGrant(ctx, c, args, out)
	case "create":
		return cmdCreate(ctx, c, args, out)
	case "update":
		return cmdUpdate(ctx, c, args, out)
	case "delete", "rm":
		return cmdDelete(ctx, c, args, out)
	default:
		return fmt.Errorf("unknown command: %s", cmd)
	}
}

// splitTarget returns the leading positional uid and the remaining flags.
func splitTarget(args []string, usage string) (string, []string, error) {
	if len(args) < 1 || args[0] == "" || args[0][0] == '-' {
		return "", nil, fmt.Errorf("usage: %s", usage)
	}
	return args[0], args[1:], nil
}

func cmdGrant(ctx context.Context, c accountAdmin, args []string, out io.Writer) error {
	uid, rest, err := splitTarget(args, "grant <uid>")
	if err != nil {
		return err
	}
	if len(rest) > 0 {
		return fmt.Errorf("unexpected argument: %s", rest[0])
	}

	token, err := c.GrantElevatedToken(ctx, uid)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, token)
	return err
}

func cmdCreate(ctx context.Context, c accountAdmin, args []string, out io.Writer) error {
	var email, name string
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&email, "email", "", "account email")
	fs.StringVar(&name, "name", "", "display name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if email == "" || name == "" {
		return errors.New("usage: create --email <email> --name <display name>")
	}

	uid, err := c.CreateAccount(ctx, email, name)
	if err != nil {
		return err
	}

	green := color.New(color.FgGreen)
	green.Fprintf(out, "✓ Created account: %s\n", uid)
	fmt.Fprintf(out, "  Email:         %s\n", email)
	fmt.Fprintf(out, "  Display Name:  %s\n", name)
	return nil
}

func cmdUpdate(ctx context.Context, c accountAdmin, args []string, out io.Writer) error {
	uid, rest, err := splitTarget(args, "update <uid> [--email <email>] [--name <display name>]")
	if err != nil {
		return err
	}

	var email, name *string
	fs := flag.NewFlagSet("update", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Func("email", "new email", func(v string) error { email = &v; return nil })
	fs.Func("name", "new display name", func(v string) error { name = &v; return nil })
	if err := fs.Parse(rest); err != nil {
		return err
	}
	if email == nil && name == nil {
		return errors.New("nothing to update: pass --email and/or --name")
	}

	msg, err := c.UpdateAccount(ctx, uid, email, name)
	if err != nil {
		return err
	}
	color.New(color.FgGreen).Fprintf(out, "✓ %s\n", msg)
	return nil
}

func cmdDelete(ctx context.Context, c accountAdmin, args []string, out io.Writer) error {
	uid, rest, err := splitTarget(args, "delete <uid>")
	if err != nil {
		return err
	}
	if len(rest) > 0 {
		return fmt.Errorf("unexpected argument: %s", rest[0])
	}

	msg, err := c.DeleteAccount(ctx, uid)
	if err != nil {
		return err
	}
	color.New(color.FgGreen).Fprintf(out, "✓ %s\n", msg)
	return nil
}
