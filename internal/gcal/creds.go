package gcal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
)

// Environment variables holding raw credential JSON for cloud
// deployments where the files are not committed.
const (
	CredentialsEnv = "GOOGLE_CALENDAR_CREDENTIALS"
	TokenEnv       = "GOOGLE_CALENDAR_TOKEN"
)

// MaterializeCredentials writes credentials.json and token.json from
// their environment variables when the files are absent. Running locally
// the files already exist and nothing happens; on a cloud host they are
// generated at startup from the deployment environment.
func MaterializeCredentials(credentialsFile, tokenFile string) error {
	if err := materializeFile(credentialsFile, CredentialsEnv); err != nil {
		return err
	}
	return materializeFile(tokenFile, TokenEnv)
}

func materializeFile(path, envVar string) error {
	raw := os.Getenv(envVar)
	if raw == "" {
		return nil
	}
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		return fmt.Errorf("materialize %s from %s: %w", path, envVar, err)
	}
	return nil
}

// LoadHTTPClient builds an authenticated HTTP client from the OAuth
// client credentials and a previously authorized user token.
func LoadHTTPClient(ctx context.Context, credentialsFile, tokenFile string) (*http.Client, error) {
	credData, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}

	conf, err := google.ConfigFromJSON(credData, calendar.CalendarScope)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}

	tokenData, err := os.ReadFile(tokenFile)
	if err != nil {
		return nil, fmt.Errorf("read token: %w", err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(tokenData, &token); err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	return conf.Client(ctx, &token), nil
}
