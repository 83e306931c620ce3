package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/podline/podline/internal/api"
	"github.com/podline/podline/internal/assistant"
	"github.com/podline/podline/internal/auth"
	"github.com/podline/podline/internal/chat"
	"github.com/podline/podline/internal/db"
	"github.com/podline/podline/internal/env"
)

// loadResolver builds the configuration snapshot for this invocation.
// Validation problems are warnings, not failures; most commands can run
// without a fully configured backend.
func loadResolver() (*env.Resolver, error) {
	resolver, err := env.Load(env.Options{ConfigFile: cfgFile, Pairs: envPairs})
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	if err := resolver.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	if verbose && resolver.IsDevelopment() {
		fmt.Fprintln(os.Stderr, "running in development mode")
	}
	return resolver, nil
}

// newBridge creates the auth bridge and resumes any stored session.
func newBridge(resolver *env.Resolver) *auth.Bridge {
	var fb *auth.FirebaseClient
	if key := resolver.FirebaseAPIKey(); key != "" {
		fb = auth.NewFirebaseClient(key)
	}
	bridge := auth.NewBridge(fb)
	if err := bridge.Resume(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not restore session: %v\n", err)
	}
	return bridge
}

// newAPIClient creates the gateway client using the bridge as its token
// source.
func newAPIClient(resolver *env.Resolver, bridge *auth.Bridge) *api.Client {
	return api.New(api.Config{
		BaseURL:       resolver.BackendAPIURL(),
		Timeout:       resolver.APITimeout(),
		RetryAttempts: resolver.RetryAttempts(),
		RetryDelay:    resolver.RetryDelay(),
		Tokens:        bridge,
	})
}

// openDatabase opens the local SQLite store under the data directory.
func openDatabase(resolver *env.Resolver) (*db.DB, error) {
	path := filepath.Join(resolver.DataDir(), "podline.db")
	database, err := db.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening local database: %w", err)
	}
	return database, nil
}

// newChatStore builds the session store for the signed-in user. The
// remote side is only attached when a backend URL is configured.
func newChatStore(resolver *env.Resolver, client *api.Client, bridge *auth.Bridge, database *db.DB) *chat.Store {
	var remote chat.Remote
	if resolver.BackendAPIURL() != "" {
		remote = chat.NewBackendRemote(client)
	}
	return chat.NewStore(chat.NewLocalStore(database), remote, bridge.UserID())
}

// newAssistant builds the completer, or nil when no backend is
// configured.
func newAssistant(resolver *env.Resolver, token string) assistant.Completer {
	if resolver.BackendAPIURL() == "" {
		return nil
	}
	return assistant.NewClient(assistant.Options{
		BaseURL: resolver.BackendAPIURL(),
		Token:   token,
		Model:   resolver.ChatModel(),
	})
}

// userMessage renders an error for terminal output, honoring the
// detailed_errors setting.
func userMessage(resolver *env.Resolver, err error) string {
	var apiErr *api.Error
	if errors.As(err, &apiErr) && !resolver.DetailedErrors() {
		return apiErr.UserMessage()
	}
	return err.Error()
}
