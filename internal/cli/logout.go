package cli

import (
	"fmt"

	"github.com/GIDEON-BOADU/ucsp-cli/internal/config"
)

// LogoutCommand clears the stored session.
func LogoutCommand(cfg *config.Config) error {
	d, err := buildDeps(cfg)
	if err != nil {
		return err
	}

	if _, ok := d.store.Pair(); !ok {
		fmt.Println("No active session.")
		return nil
	}

	if err := d.mgr.SignOut(); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	fmt.Println("Signed out.")
	return nil
}
