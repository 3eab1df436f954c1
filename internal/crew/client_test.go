package crew

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

// newTestClient creates a Client pointing at a test HTTP server.
func newTestClient(server *httptest.Server) *Client {
	return &Client{
		httpClient: server.Client(),
		baseURL:    server.URL,
		apiKey:     "test-key",
	}
}

func TestKickoff(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/kickoff" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header: %q", got)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("unexpected content type: %q", got)
		}

		var body struct {
			Inputs map[string]any `json:"inputs"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body.Inputs["target_role"] != "Backend Engineer" {
			t.Errorf("unexpected inputs: %#v", body.Inputs)
		}

		json.NewEncoder(w).Encode(map[string]string{"kickoff_id": "abc123"})
	}))
	defer server.Close()

	client := newTestClient(server)
	id, err := client.Kickoff(context.Background(), map[string]any{
		"resume_text": "ten years of Go",
		"target_role": "Backend Engineer",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "abc123" {
		t.Errorf("expected abc123, got %s", id)
	}
}

func TestKickoffMissingID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{})
	}))
	defer server.Close()

	client := newTestClient(server)
	_, err := client.Kickoff(context.Background(), map[string]any{"resume_text": "x"})
	if !errors.Is(err, ErrMissingKickoffID) {
		t.Errorf("expected ErrMissingKickoffID, got %v", err)
	}
}

func TestKickoffUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := newTestClient(server)
	_, err := client.Kickoff(context.Background(), map[string]any{"resume_text": "x"})

	var ke *KickoffError
	if !errors.As(err, &ke) {
		t.Fatalf("expected KickoffError, got %v", err)
	}
	if ke.StatusCode != http.StatusTooManyRequests {
		t.Errorf("expected status 429, got %d", ke.StatusCode)
	}
	if ke.Body == "" {
		t.Error("expected response body preserved in error")
	}
}

func TestKickoffUnconfigured(t *testing.T) {
	client := NewClient(Config{BaseURL: DefaultBaseURL, APIKey: ""})
	_, err := client.Kickoff(context.Background(), map[string]any{"resume_text": "x"})
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
}

func TestFetchStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		if r.URL.Path != "/status/job-1" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header: %q", got)
		}

		json.NewEncoder(w).Encode(map[string]any{
			"state": "SUCCESS",
			"last_executed_task": map[string]any{
				"output": map[string]any{"score": 88},
			},
		})
	}))
	defer server.Close()

	client := newTestClient(server)
	status, err := client.FetchStatus(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.State != StateSuccess {
		t.Errorf("expected SUCCESS, got %s", status.State)
	}
	out, ok := status.Output()
	if !ok {
		t.Fatal("expected output present")
	}
	m, ok := out.(map[string]any)
	if !ok || m["score"] != 88.0 {
		t.Errorf("unexpected output: %#v", out)
	}
}

func TestFetchStatusStringOutput(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"state": "RUNNING",
			"last_executed_task": map[string]any{
				"output": "```json\n{\"partial\": true}\n```",
			},
		})
	}))
	defer server.Close()

	client := newTestClient(server)
	status, err := client.FetchStatus(context.Background(), "job-2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Interim output may arrive before SUCCESS; the client just reports it.
	if _, ok := status.Output(); !ok {
		t.Error("expected interim output to be carried through")
	}
	if status.State != StateRunning {
		t.Errorf("expected RUNNING, got %s", status.State)
	}
}

func TestFetchStatusUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(server)
	_, err := client.FetchStatus(context.Background(), "nope")

	var se *StatusCheckError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusCheckError, got %v", err)
	}
	if se.StatusCode != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", se.StatusCode)
	}
}

func TestFetchStatusUnconfigured(t *testing.T) {
	client := NewClient(Config{BaseURL: DefaultBaseURL, APIKey: ""})
	_, err := client.FetchStatus(context.Background(), "job-1")
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
}
