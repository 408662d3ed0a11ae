package cli

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/GIDEON-BOADU/ucsp-cli/internal/config"
	"github.com/GIDEON-BOADU/ucsp-cli/pkg/logger"
)

// LoginCommand signs in with username/email and password and stores the
// issued token pair.
func LoginCommand(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	username := fs.String("username", "", "Username or email address")
	if err := fs.Parse(args); err != nil {
		return err
	}

	d, err := buildDeps(cfg)
	if err != nil {
		return err
	}

	user := *username
	if user == "" {
		if user, err = readLine("Username or email: "); err != nil {
			return err
		}
	}
	if user == "" {
		return fmt.Errorf("username must not be empty")
	}

	password, err := readPassword("Password: ")
	if err != nil {
		return err
	}
	if password == "" {
		return fmt.Errorf("password must not be empty")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTPTimeout)
	defer cancel()

	result, err := d.api.Login(ctx, user, password)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	if err := d.store.SetPair(result.Tokens.Access, result.Tokens.Refresh); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	logger.Debugf("session stored at %s", d.store.Path())

	fmt.Printf("Signed in as %s (%s)\n", result.User.Username, result.User.UserType)

	status := d.mgr.Status()
	if !status.Expired {
		fmt.Printf("Access token expires in %s\n", formatSeconds(status.ExpiresIn))
	}
	return nil
}
