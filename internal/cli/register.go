package cli

import (
	"context"
	"fmt"

	"github.com/GIDEON-BOADU/ucsp-cli/internal/api"
	"github.com/GIDEON-BOADU/ucsp-cli/internal/config"
)

// RegisterCommand creates a new account interactively. Registration does
// not sign in, the user follows up with `ucsp login`.
func RegisterCommand(cfg *config.Config) error {
	d, err := buildDeps(cfg)
	if err != nil {
		return err
	}

	username, err := readLine("Username: ")
	if err != nil {
		return err
	}
	email, err := readLine("Email: ")
	if err != nil {
		return err
	}
	phone, err := readLine("Phone number: ")
	if err != nil {
		return err
	}
	userType, err := readLine("Account type (student/vendor) [student]: ")
	if err != nil {
		return err
	}
	if userType == "" {
		userType = "student"
	}
	if userType != "student" && userType != "vendor" {
		return fmt.Errorf("invalid account type %q (expected student or vendor)", userType)
	}

	password, err := readPassword("Password: ")
	if err != nil {
		return err
	}
	confirm, err := readPassword("Confirm password: ")
	if err != nil {
		return err
	}
	if password != confirm {
		return fmt.Errorf("passwords do not match")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTPTimeout)
	defer cancel()

	user, err := d.api.Register(ctx, api.RegisterRequest{
		Username:        username,
		Email:           email,
		Password:        password,
		PasswordConfirm: confirm,
		UserType:        userType,
		PhoneNumber:     phone,
	})
	if err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}

	fmt.Printf("Account %s created. Run `ucsp login` to sign in.\n", user.Username)
	return nil
}
