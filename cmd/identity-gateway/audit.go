// ABOUTME: audit subcommand listing recorded account mutations
// ABOUTME: Reads the audit log database directly with optional filters

package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/2389/identity-gateway/internal/config"
	"github.com/2389/identity-gateway/internal/store"
)

func parseAuditArgs(args []string, now time.Time) (store.AuditFilter, error) {
	var (
		filter store.AuditFilter
		actor  string
		action string
		target string
		since  time.Duration
	)

	fs := flag.NewFlagSet("audit", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&actor, "actor", "", "only entries by this caller")
	fs.StringVar(&action, "action", "", "only this action")
	fs.StringVar(&target, "target", "", "only entries for this account uid")
	fs.DurationVar(&since, "since", 0, "only entries newer than this, e.g. 24h")
	fs.IntVar(&filter.Limit, "limit", 50, "maximum entries")

	if err := fs.Parse(args); err != nil {
		return filter, err
	}
	if fs.NArg() > 0 {
		return filter, fmt.Errorf("unexpected argument: %s", fs.Arg(0))
	}

	if actor != "" {
		filter.ActorUserID = &actor
	}
	if target != "" {
		filter.TargetID = &target
	}
	if action != "" {
		a := store.AuditAction(action)
		if !slices.Contains(store.ValidAuditActions, a) {
			return filter, fmt.Errorf("unknown action %q", action)
		}
		filter.Action = &a
	}
	if since < 0 {
		return filter, errors.New("--since must be positive")
	}
	if since > 0 {
		t := now.Add(-since)
		filter.Since = &t
	}
	return filter, nil
}

func runAudit(ctx context.Context, args []string, out io.Writer) error {
	filter, err := parseAuditArgs(args, time.Now())
	if err != nil {
		return err
	}

	cfg, err := config.Load(config.DefaultPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.Audit.Path == "" {
		return errors.New("audit.path is not configured")
	}

	s, err := store.NewSQLiteStore(cfg.Audit.Path)
	if err != nil {
		return fmt.Errorf("opening audit log: %w", err)
	}
	defer s.Close()

	entries, err := s.ListAuditLog(ctx, filter)
	if err != nil {
		return fmt.Errorf("listing audit log: %w", err)
	}
	return printAuditEntries(out, entries)
}

func printAuditEntries(out io.Writer, entries []store.AuditEntry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(out, "(no audit entries)")
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tACTOR\tACTION\tTARGET\tDETAIL")
	for _, e := range entries {
		detail := ""
		if len(e.Detail) > 0 {
			b, err := json.Marshal(e.Detail)
			if err == nil {
				detail = string(b)
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			e.Timestamp.Local().Format("Jan 02 15:04:05"), e.ActorUserID, e.Action, e.TargetID, detail)
	}
	return w.Flush()
}
