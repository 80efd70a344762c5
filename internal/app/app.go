// Package app wires configuration, logging, the client registry and a
// session store into the halcyon command.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/halcyonhq/halcyon/pkg/halsdk"
	"github.com/halcyonhq/halcyon/pkg/sessions/sqlite"
	"github.com/halcyonhq/halcyon/pkg/slogx"
)

type App struct {
	cfg     Config
	logger  *slog.Logger
	store   *sqlite.Store
	api     *halsdk.Client
	manager *halsdk.Manager
}

func New(cfg Config) (*App, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("app: HALCYON_ENDPOINT is required")
	}
	if cfg.Identity == "" {
		return nil, errors.New("app: HALCYON_IDENTITY is required")
	}

	logger := slogx.New(slogx.Config{
		Service: "halcyon",
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	})

	store, err := sqlite.Open(cfg.SessionDB)
	if err != nil {
		return nil, fmt.Errorf("app: failed to open session database: %w", err)
	}
	if err := store.ApplyMigrations(); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("app: failed to apply migrations: %w", err)
	}

	identities := halsdk.NewIdentities(cfg.IdentitiesFile)
	registry := halsdk.NewRegistry(cfg.Identity, identities,
		halsdk.WithTokenRoute(cfg.TokenRoute),
	)
	api := registry.Client(cfg.Endpoint)

	manager := halsdk.NewManager(store.Session(cfg.SessionID), api.Tokens(), api, cfg.Identity)
	manager.IdentityRoute = cfg.IdentityRoute
	manager.Scope = cfg.Scope
	manager.Logger = logger
	api.UseBearerSource(manager)

	return &App{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		api:     api,
		manager: manager,
	}, nil
}

func (a *App) Close() error { return a.store.Close() }

// Run dispatches one subcommand: login, logout, whoami, or get.
func (a *App) Run(ctx context.Context, args []string) error {
	ctx = slogx.WithContext(ctx, a.logger)

	if len(args) == 0 {
		return errors.New("usage: halcyon <login|logout|whoami|get> [args]")
	}

	switch args[0] {
	case "login":
		if len(args) != 3 {
			return errors.New("usage: halcyon login <username> <password>")
		}
		return a.login(ctx, args[1], args[2])
	case "logout":
		return a.manager.EndSession(ctx)
	case "whoami":
		return a.whoami(ctx)
	case "get":
		if len(args) != 2 {
			return errors.New("usage: halcyon get <path>")
		}
		return a.get(ctx, args[1])
	default:
		return fmt.Errorf("app: unknown command %q", args[0])
	}
}

func (a *App) login(ctx context.Context, username, password string) error {
	principal, err := a.manager.Authenticate(ctx, username, password)
	if err != nil {
		var failure *halsdk.Failure
		if errors.As(err, &failure) {
			return fmt.Errorf("login failed: %s: %s", failure.Message, failure.Description)
		}
		return err
	}

	a.logger.Info("logged_in", "scope", principal.Scope(), "expires", principal.Expires())
	return nil
}

func (a *App) whoami(ctx context.Context) error {
	principal := a.manager.Instance(ctx)
	if principal == nil {
		fmt.Println("not logged in")
		return nil
	}

	user := principal.User(ctx)
	if user == nil {
		fmt.Println("not logged in")
		return nil
	}
	return printJSON(user)
}

func (a *App) get(ctx context.Context, path string) error {
	resp, err := a.api.Get(ctx, path)
	if err != nil {
		return err
	}
	return printJSON(resp.Resource())
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
