package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Veraticus/scribe/internal/cli"
	"github.com/Veraticus/scribe/internal/config"
	"github.com/Veraticus/scribe/internal/engine"
	"github.com/Veraticus/scribe/internal/ident"
	"github.com/Veraticus/scribe/internal/llm"
	"github.com/Veraticus/scribe/internal/state"
	"github.com/Veraticus/scribe/internal/storage"
)

// app bundles the opened database and the state loaded from it.
type app struct {
	storage *storage.SQLiteStorage
	store   *state.Store
}

// openApp opens and migrates the database and loads the saved state.
func openApp(ctx context.Context) (*app, error) {
	store, err := initStorage(ctx)
	if err != nil {
		return nil, err
	}

	st, err := store.LoadState(ctx)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to load state: %w", err)
	}

	return &app{
		storage: store,
		store:   state.NewStore(ident.UUIDGenerator{}, st),
	}, nil
}

// initStorage opens the configured database and applies pending migrations.
func initStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	dbPath := config.DatabasePath(viper.GetViper())

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return store, nil
}

func (a *app) Close() error {
	return a.storage.Close()
}

// save persists the in-memory state after a direct edit.
func (a *app) save(ctx context.Context) error {
	if err := a.storage.SaveState(ctx, a.store.Snapshot()); err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	return nil
}

// assistant wires the configured extraction gateway to the loaded state.
func (a *app) assistant() (*engine.Assistant, error) {
	gatewayCfg, err := config.LoadGatewayConfig(viper.GetViper())
	if err != nil {
		return nil, err
	}
	gateway, err := llm.NewGateway(gatewayCfg, slog.Default())
	if err != nil {
		return nil, err
	}
	return engine.NewWithConfig(a.store, gateway, a.storage, ident.UUIDGenerator{}, config.LoadAssistantConfig(viper.GetViper())), nil
}

// offlineAssistant merges pre-extracted records and never calls a gateway.
func (a *app) offlineAssistant() *engine.Assistant {
	return engine.NewWithConfig(a.store, nil, a.storage, ident.UUIDGenerator{}, config.LoadAssistantConfig(viper.GetViper()))
}

// settle asks the user to resolve a parked conflict, if there is one.
func settle(ctx context.Context, assistant *engine.Assistant, prompter *cli.Prompter, out io.Writer) error {
	session, pending := assistant.PendingConflict()
	if !pending {
		return nil
	}
	res, err := prompter.ResolveConflict(ctx, session)
	if err != nil {
		return err
	}
	outcome, err := assistant.Resolve(ctx, res)
	if err != nil {
		return fmt.Errorf("failed to resolve conflict: %w", err)
	}
	if outcome.History != nil {
		fmt.Fprintln(out, cli.FormatSuccess("Saved "+cli.SummarizeExtraction(outcome.History.Output)))
	} else {
		fmt.Fprintln(out, cli.FormatInfo("Nothing was saved."))
	}
	return nil
}

// confirm asks a yes/no question; anything but y/yes is no.
func confirm(ctx context.Context, prompter *cli.Prompter, question string) bool {
	answer, err := prompter.ReadInput(ctx, question+" (y/N)")
	if err != nil {
		return false
	}
	return strings.HasPrefix(strings.ToLower(answer), "y")
}

func formatFileSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}

func formatRelativeTime(t time.Time) string {
	duration := time.Since(t)

	switch {
	case duration < time.Minute:
		return "just now"
	case duration < time.Hour:
		if minutes := int(duration.Minutes()); minutes != 1 {
			return fmt.Sprintf("%d minutes ago", minutes)
		}
		return "1 minute ago"
	case duration < 24*time.Hour:
		if hours := int(duration.Hours()); hours != 1 {
			return fmt.Sprintf("%d hours ago", hours)
		}
		return "1 hour ago"
	case duration < 7*24*time.Hour:
		days := int(duration.Hours() / 24)
		if days == 1 {
			return "yesterday"
		}
		return fmt.Sprintf("%d days ago", days)
	default:
		return t.Format("2006-01-02 15:04")
	}
}
