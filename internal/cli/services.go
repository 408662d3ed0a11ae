package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/GIDEON-BOADU/ucsp-cli/internal/config"
)

// ServicesCommand lists marketplace services.
func ServicesCommand(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("services", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	category := fs.String("category", "", "Only show services in this category")
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

	services, err := d.api.Services(ctx)
	if err != nil {
		return err
	}

	shown := 0
	for _, svc := range services {
		if *category != "" && !strings.EqualFold(svc.Category, *category) {
			continue
		}
		availability := svc.AvailabilityStatus
		if availability == "" {
			if svc.Available {
				availability = "available"
			} else {
				availability = "unavailable"
			}
		}
		fmt.Printf("#%-5d %-28s %-12s GHS %-9s %s (%s)\n",
			svc.ID, svc.Name, svc.Category, svc.BasePrice, availability, svc.VendorName)
		shown++
	}

	if shown == 0 {
		fmt.Println("No services found.")
	}
	return nil
}
