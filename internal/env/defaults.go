package env

// Configuration keys understood by the resolver. Every source addresses
// values by these names (env vars use the PODLINE_ prefix and upper case).
const (
	KeyBackendAPIURL   = "backend_api_url"
	KeyEnvironment     = "environment"
	KeyDebug           = "debug"
	KeyDetailedErrors  = "detailed_errors"
	KeyAPITimeout      = "api_timeout"
	KeyRetryAttempts   = "api_retry_attempts"
	KeyRetryDelay      = "api_retry_delay"
	KeyItemsPerPage    = "items_per_page"
	KeyCacheDuration   = "cache_duration"
	KeyFirebaseAPIKey  = "firebase_api_key"
	KeyChatModel       = "chat_model"
	KeyEmbeddingModel  = "embedding_model"
	KeyAssistantRPM    = "assistant_rpm"
	KeyDashboardPort   = "dashboard_port"
	KeyDataDir         = "data_dir"
)

// Recognized environment names.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// defaults returns the lowest-precedence configuration layer.
func defaults() map[string]interface{} {
	return map[string]interface{}{
		KeyBackendAPIURL:  "",
		KeyDebug:          false,
		KeyDetailedErrors: false,
		KeyAPITimeout:     30,   // seconds
		KeyRetryAttempts:  3,    //
		KeyRetryDelay:     1000, // milliseconds, multiplied by the attempt number
		KeyItemsPerPage:   20,
		KeyCacheDuration:  300, // seconds
		KeyChatModel:      "gpt-4o-mini",
		KeyEmbeddingModel: "text-embedding-3-small",
		KeyAssistantRPM:   20, // completions per minute across all dashboard clients
		KeyDashboardPort:  8765,
	}
}
