package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// ServerURL is the base URL of the UCSP REST API, including the /api prefix.
	ServerURL string

	// UCSPHome is the directory where the CLI stores local state.
	UCSPHome string
	// CredentialsPath is the path to the stored token pair.
	CredentialsPath string

	// RefreshThreshold is how soon before access token expiry the session
	// is renewed.
	RefreshThreshold time.Duration
	// CheckInterval is how often the background renewal check runs.
	CheckInterval time.Duration
	// HTTPTimeout bounds every REST call, including token refresh.
	HTTPTimeout time.Duration

	// LogLevel is the logger threshold (trace|debug|info|warn|error).
	LogLevel string
	// Debug enables verbose logging.
	Debug bool
}

const (
	defaultServerURL        = "http://localhost:8000/api"
	defaultRefreshThreshold = 300 * time.Second
	defaultCheckInterval    = 60 * time.Second
	defaultHTTPTimeout      = 15 * time.Second
)

// Load loads configuration from environment and defaults
func Load() (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}

	ucspHome := os.Getenv("UCSP_HOME")
	if ucspHome == "" {
		ucspHome = filepath.Join(homeDir, ".ucsp")
	}

	// Ensure ucsp home exists
	if err := os.MkdirAll(ucspHome, 0700); err != nil {
		return nil, fmt.Errorf("failed to create ucsp home: %w", err)
	}

	serverURL := getenvFirst("UCSP_SERVER_URL", "UCSP_API_URL")
	if serverURL == "" {
		serverURL = defaultServerURL
	}

	refreshThreshold, err := getenvSeconds("UCSP_REFRESH_THRESHOLD", defaultRefreshThreshold)
	if err != nil {
		return nil, err
	}
	checkInterval, err := getenvSeconds("UCSP_CHECK_INTERVAL", defaultCheckInterval)
	if err != nil {
		return nil, err
	}
	httpTimeout, err := getenvSeconds("UCSP_HTTP_TIMEOUT", defaultHTTPTimeout)
	if err != nil {
		return nil, err
	}

	debug := os.Getenv("DEBUG") == "true" || os.Getenv("DEBUG") == "1"
	if !debug {
		debug = os.Getenv("UCSP_DEBUG") == "true" || os.Getenv("UCSP_DEBUG") == "1"
	}
	logLevel := os.Getenv("UCSP_LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	if debug {
		logLevel = "debug"
	}

	return &Config{
		ServerURL:        strings.TrimRight(serverURL, "/"),
		UCSPHome:         ucspHome,
		CredentialsPath:  filepath.Join(ucspHome, "credentials.json"),
		RefreshThreshold: refreshThreshold,
		CheckInterval:    checkInterval,
		HTTPTimeout:      httpTimeout,
		LogLevel:         logLevel,
		Debug:            debug,
	}, nil
}

// NotificationsURL derives the realtime notifications endpoint from ServerURL:
// the scheme switches to ws(s) and the /api prefix is replaced by the
// websocket mount.
func (c *Config) NotificationsURL() (string, error) {
	u, err := url.Parse(c.ServerURL)
	if err != nil {
		return "", fmt.Errorf("invalid server URL %q: %w", c.ServerURL, err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("invalid server URL scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(strings.TrimSuffix(u.Path, "/"), "/api") + "/ws/notifications/"
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}

func getenvFirst(primary, fallback string) string {
	if val := os.Getenv(primary); val != "" {
		return val
	}
	return os.Getenv(fallback)
}

// getenvSeconds reads a positive integer seconds value, falling back when unset.
func getenvSeconds(name string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback, nil
	}
	secs, err := strconv.Atoi(raw)
	if err != nil || secs <= 0 {
		return 0, fmt.Errorf("invalid %s %q (expected positive seconds)", name, raw)
	}
	return time.Duration(secs) * time.Second, nil
}
