package crew

import "testing"

func TestResolveConfigDefaults(t *testing.T) {
	t.Setenv("CREW_API_URL", "")
	t.Setenv("CREW_API_KEY", "")
	t.Setenv("CREWAI_API_KEY", "")

	cfg := ResolveConfig()
	if cfg.BaseURL != DefaultBaseURL {
		t.Errorf("expected default base URL, got %s", cfg.BaseURL)
	}
	if cfg.APIKey != "" {
		t.Errorf("expected empty API key, got %q", cfg.APIKey)
	}
}

func TestResolveConfigPrimaryKey(t *testing.T) {
	t.Setenv("CREW_API_URL", "https://crew.internal.example.com")
	t.Setenv("CREW_API_KEY", "primary")
	t.Setenv("CREWAI_API_KEY", "fallback")

	cfg := ResolveConfig()
	if cfg.BaseURL != "https://crew.internal.example.com" {
		t.Errorf("unexpected base URL: %s", cfg.BaseURL)
	}
	if cfg.APIKey != "primary" {
		t.Errorf("expected primary key to win, got %q", cfg.APIKey)
	}
}

func TestResolveConfigFallbackKey(t *testing.T) {
	t.Setenv("CREW_API_URL", "")
	t.Setenv("CREW_API_KEY", "")
	t.Setenv("CREWAI_API_KEY", "fallback")

	cfg := ResolveConfig()
	if cfg.APIKey != "fallback" {
		t.Errorf("expected fallback key, got %q", cfg.APIKey)
	}
}
