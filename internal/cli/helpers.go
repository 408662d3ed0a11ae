// Package cli implements the ucsp subcommands.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/GIDEON-BOADU/ucsp-cli/internal/api"
	"github.com/GIDEON-BOADU/ucsp-cli/internal/config"
	"github.com/GIDEON-BOADU/ucsp-cli/internal/session"
	"github.com/GIDEON-BOADU/ucsp-cli/internal/storage"
)

// stdin is shared by every prompt so buffered input survives between
// consecutive reads.
var stdin = bufio.NewReader(os.Stdin)

// deps bundles the pieces every command builds on.
type deps struct {
	cfg   *config.Config
	store *storage.CredentialsStore
	api   *api.Client
	mgr   *session.Manager
}

func buildDeps(cfg *config.Config) (*deps, error) {
	store, err := storage.OpenCredentialsStore(cfg.CredentialsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open credentials store: %w", err)
	}

	client := api.New(cfg.ServerURL, cfg.HTTPTimeout, store.AccessToken)

	mgr, err := session.NewManager(session.ManagerConfig{
		Store:            store,
		Refresh:          refreshVia(client),
		RefreshThreshold: cfg.RefreshThreshold,
		RefreshTimeout:   cfg.HTTPTimeout,
	})
	if err != nil {
		return nil, err
	}

	return &deps{cfg: cfg, store: store, api: client, mgr: mgr}, nil
}

// refreshVia adapts the token refresh endpoint to the session manager.
func refreshVia(client *api.Client) session.RefreshFunc {
	return func(ctx context.Context, refreshToken string) (string, string, error) {
		pair, err := client.RefreshTokens(ctx, refreshToken)
		if err != nil {
			return "", "", err
		}
		return pair.Access, pair.Refresh, nil
	}
}

// renewSession adapts the session manager to the notification socket's
// renewal hook.
func renewSession(mgr *session.Manager) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		_, err := mgr.Refresh(ctx)
		return err
	}
}

func readLine(prompt string) (string, error) {
	fmt.Print(prompt)
	line, err := stdin.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// readPassword prompts without echo when stdin is a terminal and falls back
// to a plain line read otherwise, so piped input keeps working.
func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		secret, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(secret), nil
	}

	line, err := stdin.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// formatSeconds renders a second count the way a countdown reads, e.g.
// "4m32s" or "1h05m".
func formatSeconds(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	switch {
	case seconds >= 3600:
		return fmt.Sprintf("%dh%02dm", seconds/3600, seconds%3600/60)
	case seconds >= 60:
		return fmt.Sprintf("%dm%02ds", seconds/60, seconds%60)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}
