package cli

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/GIDEON-BOADU/ucsp-cli/internal/api"
	"github.com/GIDEON-BOADU/ucsp-cli/internal/config"
)

// ProfileCommand prints the signed-in profile, or applies a partial update
// when any of the update flags are set.
func ProfileCommand(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("profile", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	email := fs.String("email", "", "New email address")
	phone := fs.String("phone", "", "New phone number")
	firstName := fs.String("first-name", "", "New first name")
	lastName := fs.String("last-name", "", "New last name")
	if err := fs.Parse(args); err != nil {
		return err
	}

	d, err := buildDeps(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*cfg.HTTPTimeout)
	defer cancel()

	if _, err := d.mgr.EnsureFresh(ctx); err != nil {
		return err
	}

	update := api.ProfileUpdate{
		Email:       *email,
		PhoneNumber: *phone,
		FirstName:   *firstName,
		LastName:    *lastName,
	}
	if update == (api.ProfileUpdate{}) {
		user, err := d.api.Profile(ctx)
		if err != nil {
			return err
		}
		printUser(user)
		return nil
	}

	user, err := d.api.UpdateProfile(ctx, update)
	if err != nil {
		return err
	}
	fmt.Println("Profile updated.")
	printUser(user)
	return nil
}

func printUser(user *api.User) {
	fmt.Printf("User:     %s (#%d)\n", user.Username, user.ID)
	fmt.Printf("Name:     %s\n", user.FullName())
	fmt.Printf("Email:    %s\n", user.Email)
	fmt.Printf("Phone:    %s\n", user.PhoneNumber)
	fmt.Printf("Type:     %s\n", user.UserType)
	if user.Status != "" {
		fmt.Printf("Status:   %s\n", user.Status)
	}
	if user.CreatedAt != "" {
		fmt.Printf("Joined:   %s\n", user.CreatedAt)
	}
}
