package main

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	secretmanagerpb "cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/spf13/viper"
)

// Config holds the indexer configuration. Everything comes from the
// environment (optionally seeded from a .env file).
type Config struct {
	APIEndpoint string

	// DedupStore selects the dedup backend; empty means in-memory.
	DedupStore          string
	DedupPasswordSecret string
	ProjectID           string

	PageSize          int
	PollIdleDelay     time.Duration
	HTTPClientTimeout time.Duration
	StartCursor       int

	LogLevel slog.Level
}

const (
	defaultPageSize = 10
	maxPageSize     = 1000
)

// LoadConfig reads configuration from environment variables. Names follow
// the earlier Python watcher (API_ENDPOINT, REDIS_HOST) so deployments can be
// reused.
func LoadConfig() (Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("api_endpoint", "http://localhost")
	v.SetDefault("dedup_store", "")
	v.SetDefault("redis_host", "")
	v.SetDefault("dedup_password_secret", "")
	v.SetDefault("gcp_project_id", "")
	v.SetDefault("page_size", defaultPageSize)
	v.SetDefault("poll_idle_delay", "10s")
	v.SetDefault("http_client_timeout", "60s")
	v.SetDefault("start_cursor", 0)
	v.SetDefault("log_level", "info")

	endpoint := strings.TrimRight(strings.TrimSpace(v.GetString("api_endpoint")), "/")
	if endpoint == "" {
		return Config{}, fmt.Errorf("API_ENDPOINT must not be empty")
	}

	store := strings.TrimSpace(v.GetString("dedup_store"))
	if store == "" {
		store = strings.TrimSpace(v.GetString("redis_host"))
	}

	pageSize := v.GetInt("page_size")
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	idle, err := parseDelay(v.GetString("poll_idle_delay"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid POLL_IDLE_DELAY: %w", err)
	}
	timeout, err := parseDelay(v.GetString("http_client_timeout"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid HTTP_CLIENT_TIMEOUT: %w", err)
	}

	cursor := v.GetInt("start_cursor")
	if cursor < 0 {
		return Config{}, fmt.Errorf("invalid START_CURSOR: %d", cursor)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(v.GetString("log_level")))); err != nil {
		return Config{}, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	return Config{
		APIEndpoint:         endpoint,
		DedupStore:          store,
		DedupPasswordSecret: strings.TrimSpace(v.GetString("dedup_password_secret")),
		ProjectID:           strings.TrimSpace(v.GetString("gcp_project_id")),
		PageSize:            pageSize,
		PollIdleDelay:       idle,
		HTTPClientTimeout:   timeout,
		StartCursor:         cursor,
		LogLevel:            level,
	}, nil
}

// parseDelay accepts Go durations ("10s", "1m30s") or a plain number of
// seconds.
func parseDelay(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if n, err := strconv.Atoi(raw); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("negative delay %q", raw)
		}
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative delay %q", raw)
	}
	return d, nil
}

// secretVersionName expands a short secret id to the latest version of that
// secret in projectID. Full resource names are returned unchanged.
func secretVersionName(projectID, secret string) string {
	if strings.HasPrefix(secret, "projects/") {
		if strings.Contains(secret, "/versions/") {
			return secret
		}
		return secret + "/versions/latest"
	}
	return fmt.Sprintf("projects/%s/secrets/%s/versions/latest", projectID, secret)
}

// loadDedupPassword reads the dedup store password from Google Secret
// Manager.
func loadDedupPassword(ctx context.Context, projectID, secret string) (string, error) {
	if !strings.HasPrefix(secret, "projects/") && projectID == "" {
		return "", fmt.Errorf("GCP_PROJECT_ID is required to resolve secret %q", secret)
	}

	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return "", fmt.Errorf("secretmanager.NewClient: %w", err)
	}
	defer func() {
		if err := client.Close(); err != nil {
			slog.Warn("Error closing Secret Manager client", "error", err)
		}
	}()

	name := secretVersionName(projectID, secret)
	resp, err := client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: name})
	if err != nil {
		return "", fmt.Errorf("AccessSecretVersion(%s): %w", name, err)
	}
	if resp.Payload == nil || len(resp.Payload.Data) == 0 {
		return "", fmt.Errorf("secret %s has empty payload", name)
	}
	return strings.TrimSpace(string(resp.Payload.Data)), nil
}
