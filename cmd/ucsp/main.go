package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/GIDEON-BOADU/ucsp-cli/internal/cli"
	"github.com/GIDEON-BOADU/ucsp-cli/internal/config"
	"github.com/GIDEON-BOADU/ucsp-cli/internal/version"
	"github.com/GIDEON-BOADU/ucsp-cli/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger.SetLevel(level)

	args, done, err := parseFlags(os.Args[1:])
	if err != nil || done {
		return err
	}

	if cfg.Debug {
		logger.Debugf("config: server=%s home=%s threshold=%s interval=%s",
			cfg.ServerURL, cfg.UCSPHome, cfg.RefreshThreshold, cfg.CheckInterval)
	}

	if len(args) == 0 {
		printUsage()
		return nil
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "login":
		return cli.LoginCommand(cfg, rest)
	case "logout":
		return cli.LogoutCommand(cfg)
	case "register":
		return cli.RegisterCommand(cfg)
	case "status":
		return cli.StatusCommand(cfg, rest)
	case "extend":
		return cli.ExtendCommand(cfg)
	case "token":
		return cli.TokenCommand(cfg)
	case "profile":
		return cli.ProfileCommand(cfg, rest)
	case "services":
		return cli.ServicesCommand(cfg, rest)
	case "notifications":
		return cli.NotificationsCommand(cfg, rest)
	case "version", "--version", "-v":
		fmt.Printf("ucsp %s\n", version.RichVersion())
		return nil
	case "help", "--help", "-h":
		printUsage()
		return nil
	default:
		printUsage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func parseFlags(args []string) ([]string, bool, error) {
	fs := flag.NewFlagSet("ucsp", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	showHelp := fs.Bool("help", false, "Show help")
	showVersion := fs.Bool("version", false, "Show version information")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			printUsage()
			return nil, true, nil
		}
		return nil, false, err
	}

	if *showHelp {
		printUsage()
		return nil, true, nil
	}
	if *showVersion {
		fmt.Printf("ucsp %s\n", version.RichVersion())
		return nil, true, nil
	}

	return fs.Args(), false, nil
}

func printUsage() {
	fmt.Println(`ucsp - Unified Campus Services Platform CLI

Usage:
  ucsp login [--username <name>]   Sign in and store the session
  ucsp logout                      Clear the stored session
  ucsp register                    Create a new account
  ucsp status [--watch]            Show (or keep watching) the session state
  ucsp extend                      Renew the session now
  ucsp token                       Print a fresh access token for scripting
  ucsp profile [--email <addr>]    Show or update the profile
  ucsp services [--category <c>]   List marketplace services
  ucsp notifications [--follow]    Recent notifications or a live stream
  ucsp version                     Show version information
  ucsp help                        Show this help message

Environment Variables:
  UCSP_SERVER_URL        API base URL (default: http://localhost:8000/api)
  UCSP_HOME              State directory (default: ~/.ucsp)
  UCSP_REFRESH_THRESHOLD Renew when expiry is this close, seconds (default: 300)
  UCSP_CHECK_INTERVAL    Background renewal check interval, seconds (default: 60)
  UCSP_HTTP_TIMEOUT      HTTP timeout, seconds (default: 15)
  UCSP_LOG_LEVEL         trace|debug|info|warn|error (default: info)
  DEBUG                  Enable debug logging (true/1)

Examples:
  # Sign in against a local backend
  UCSP_SERVER_URL=http://localhost:8000/api ucsp login

  # Keep the session alive while watching its state
  ucsp status --watch

  # Use a fresh token in a script
  curl -H "Authorization: Bearer $(ucsp token)" http://localhost:8000/api/users/profile/`)
}
