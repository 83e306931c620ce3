package env

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// Build-time injected configuration, set via -ldflags:
//
//	-X github.com/podline/podline/internal/env.BuildBackendAPIURL=https://api.example.com
var (
	BuildBackendAPIURL string
	BuildEnvironment   string
)

// Options controls where the resolver reads configuration from.
type Options struct {
	ConfigFile string   // YAML config file path; empty means ~/.podline/config.yml
	Pairs      []string // repeatable --env KEY=VALUE overrides
}

// Resolver is the single merged configuration snapshot for a process.
// Sources are layered lowest to highest precedence: compiled defaults,
// build-time injection, config file, PODLINE_* environment variables,
// --env pairs, and (development only) the local overrides file.
type Resolver struct {
	k *koanf.Koanf
}

// Load builds a Resolver by merging all configuration sources.
func Load(opts Options) (*Resolver, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	// Build-time injection.
	build := map[string]interface{}{}
	if BuildBackendAPIURL != "" {
		build[KeyBackendAPIURL] = BuildBackendAPIURL
	}
	if BuildEnvironment != "" {
		build[KeyEnvironment] = BuildEnvironment
	}
	if len(build) > 0 {
		if err := k.Load(confmap.Provider(build, "."), nil); err != nil {
			return nil, fmt.Errorf("loading build-time values: %w", err)
		}
	}

	// Config file, if present.
	path := opts.ConfigFile
	if path == "" {
		path = DefaultConfigPath()
	}
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	// Environment variables: PODLINE_BACKEND_API_URL -> backend_api_url, etc.
	if err := k.Load(env.Provider("PODLINE_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "PODLINE_"))
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	// --env KEY=VALUE pairs. Malformed pairs are skipped with a warning
	// rather than failing the whole load.
	if pairs := parsePairs(opts.Pairs); len(pairs) > 0 {
		if err := k.Load(confmap.Provider(pairs, "."), nil); err != nil {
			return nil, fmt.Errorf("loading --env overrides: %w", err)
		}
	}

	r := &Resolver{k: k}

	// Hostname-based environment detection applies only when no source
	// set the environment explicitly.
	if !k.Exists(KeyEnvironment) {
		detected := EnvProduction
		if isLoopbackURL(r.BackendAPIURL()) {
			detected = EnvDevelopment
		}
		if err := k.Load(confmap.Provider(map[string]interface{}{KeyEnvironment: detected}, "."), nil); err != nil {
			return nil, fmt.Errorf("setting detected environment: %w", err)
		}
	}

	// Developer local overrides are the highest-precedence source, but are
	// only honored in development.
	if r.IsDevelopment() {
		ovr := OverridesPath()
		if _, err := os.Stat(ovr); err == nil {
			if err := k.Load(file.Provider(ovr), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("reading overrides %s: %w", ovr, err)
			}
		}
	}

	return r, nil
}

// parsePairs converts KEY=VALUE strings into a config map with
// lowercased keys.
func parsePairs(pairs []string) map[string]interface{} {
	m := map[string]interface{}{}
	for _, p := range pairs {
		key, value, ok := strings.Cut(p, "=")
		if !ok || key == "" {
			log.Printf("env: ignoring malformed --env pair %q", p)
			continue
		}
		m[strings.ToLower(key)] = value
	}
	return m
}

// isLoopbackURL reports whether the URL's host is localhost or 127.0.0.1.
func isLoopbackURL(raw string) bool {
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := u.Hostname()
	return host == "localhost" || host == "127.0.0.1"
}

// Get returns the string value for key, or def if the key is unset.
func (r *Resolver) Get(key, def string) string {
	if !r.k.Exists(key) {
		return def
	}
	return r.k.String(key)
}

// All returns every resolved key as a string value.
func (r *Resolver) All() map[string]string {
	out := map[string]string{}
	for key, v := range r.k.All() {
		out[key] = fmt.Sprintf("%v", v)
	}
	return out
}

func (r *Resolver) BackendAPIURL() string {
	return strings.TrimRight(r.k.String(KeyBackendAPIURL), "/")
}

func (r *Resolver) Environment() string { return r.k.String(KeyEnvironment) }

func (r *Resolver) IsDevelopment() bool { return r.Environment() == EnvDevelopment }

func (r *Resolver) IsDebugEnabled() bool { return r.k.Bool(KeyDebug) }

// DetailedErrors reports whether raw error detail should be shown to the
// user instead of category messages.
func (r *Resolver) DetailedErrors() bool { return r.k.Bool(KeyDetailedErrors) }

func (r *Resolver) APITimeout() time.Duration {
	return time.Duration(r.k.Int(KeyAPITimeout)) * time.Second
}

func (r *Resolver) RetryAttempts() int { return r.k.Int(KeyRetryAttempts) }

func (r *Resolver) RetryDelay() time.Duration {
	return time.Duration(r.k.Int(KeyRetryDelay)) * time.Millisecond
}

func (r *Resolver) ItemsPerPage() int { return r.k.Int(KeyItemsPerPage) }

func (r *Resolver) CacheDuration() time.Duration {
	return time.Duration(r.k.Int(KeyCacheDuration)) * time.Second
}

func (r *Resolver) FirebaseAPIKey() string { return r.k.String(KeyFirebaseAPIKey) }

func (r *Resolver) ChatModel() string { return r.k.String(KeyChatModel) }

func (r *Resolver) EmbeddingModel() string { return r.k.String(KeyEmbeddingModel) }

// AssistantRPM caps assistant completions per minute where one process
// serves several clients.
func (r *Resolver) AssistantRPM() int { return r.k.Int(KeyAssistantRPM) }

func (r *Resolver) DashboardPort() int { return r.k.Int(KeyDashboardPort) }

// DataDir returns the directory for local state (SQLite DB, search index).
func (r *Resolver) DataDir() string {
	if dir := r.k.String(KeyDataDir); dir != "" {
		return dir
	}
	return podlineDir()
}

// Validate checks the configuration for problems that should be surfaced
// as warnings. A missing or unparseable backend URL does not block
// startup; callers print the returned error and continue.
func (r *Resolver) Validate() error {
	raw := r.BackendAPIURL()
	if raw == "" {
		return fmt.Errorf("no backend API URL configured; set %s in %s or PODLINE_BACKEND_API_URL", KeyBackendAPIURL, DefaultConfigPath())
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid backend API URL %q", raw)
	}
	return nil
}

// Set writes a single key into the config file so it survives restarts.
func Set(configFile, key, value string) error {
	path := configFile
	if path == "" {
		path = DefaultConfigPath()
	}

	values := map[string]interface{}{}
	if data, err := os.ReadFile(path); err == nil {
		if err := yamlv3.Unmarshal(data, &values); err != nil {
			return fmt.Errorf("parsing config %s: %w", path, err)
		}
	}
	values[strings.ToLower(key)] = value

	data, err := yamlv3.Marshal(values)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// DefaultConfigPath returns ~/.podline/config.yml.
func DefaultConfigPath() string {
	return filepath.Join(podlineDir(), "config.yml")
}

// OverridesPath returns ~/.podline/overrides.yml, the development-only
// local override file.
func OverridesPath() string {
	return filepath.Join(podlineDir(), "overrides.yml")
}

func podlineDir() string {
	if dir := os.Getenv("PODLINE_HOME"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".podline"
	}
	return filepath.Join(home, ".podline")
}
