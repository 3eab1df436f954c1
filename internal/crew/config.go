package crew

import (
	"os"

	"github.com/rs/zerolog/log"
)

// DefaultBaseURL is the hosted interview-prep crew deployment used when
// CREW_API_URL is not set.
const DefaultBaseURL = "https://interview-prep-crew.onrender.com"

// Config carries the resolved crew service endpoint and credential.
// Constructed fresh per request and threaded explicitly so the client and
// poller never read ambient environment state themselves.
type Config struct {
	BaseURL string
	APIKey  string
}

// ResolveConfig reads the crew service configuration from the environment.
// The API key comes from CREW_API_KEY, falling back to CREWAI_API_KEY.
// An empty APIKey means the service is unconfigured; callers must fail fast
// rather than attempt a network call.
func ResolveConfig() Config {
	baseURL := os.Getenv("CREW_API_URL")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	apiKey := os.Getenv("CREW_API_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("CREWAI_API_KEY")
	}

	log.Debug().
		Str("baseUrl", baseURL).
		Bool("apiKeySet", apiKey != "").
		Msg("Resolved crew service config")

	return Config{BaseURL: baseURL, APIKey: apiKey}
}
