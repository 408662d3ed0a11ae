package cli

import (
	"context"
	"fmt"

	"github.com/GIDEON-BOADU/ucsp-cli/internal/config"
)

// ExtendCommand forces an immediate session renewal.
func ExtendCommand(cfg *config.Config) error {
	d, err := buildDeps(cfg)
	if err != nil {
		return err
	}

	if _, ok := d.store.Pair(); !ok {
		return fmt.Errorf("not signed in, run `ucsp login` first")
	}

	renewed, err := d.mgr.Refresh(context.Background())
	if err != nil {
		return fmt.Errorf("failed to extend session: %w", err)
	}
	if !renewed {
		fmt.Println("A renewal is already in progress.")
		return nil
	}

	st := d.mgr.Status()
	fmt.Printf("Session extended, token expires in %s\n", formatSeconds(st.ExpiresIn))
	return nil
}
