package cli

import (
	"context"
	"fmt"

	"github.com/GIDEON-BOADU/ucsp-cli/internal/config"
)

// TokenCommand prints a fresh access token for scripting, renewing it first
// when it is expired or inside the renewal window.
func TokenCommand(cfg *config.Config) error {
	d, err := buildDeps(cfg)
	if err != nil {
		return err
	}

	token, err := d.mgr.EnsureFresh(context.Background())
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
