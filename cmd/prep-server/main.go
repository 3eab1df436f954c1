package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/rkapur/ai-interview-prep/internal/crew"
	"github.com/rkapur/ai-interview-prep/internal/logging"
	"github.com/rkapur/ai-interview-prep/internal/store"
)

// CLI flags
var portFlag int

// sessionStore is nil when MONGODB_URI is unset; handlers treat persistence
// as best-effort and skip it in that case.
var sessionStore store.SessionStore

var rootCmd = &cobra.Command{
	Use:   "prep-server",
	Short: "API server for AI interview preparation",
	Long: `Prep Server exposes the analysis API of the interview-prep app.
It submits resume and interview analyses to the crew orchestration service,
polls them to completion, and serves the normalized results.

Examples:
  prep-server
  prep-server --port 9090`,
	Run: runMain,
}

func init() {
	rootCmd.Flags().IntVar(&portFlag, "port", 8080, "Port to listen on")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runMain(cmd *cobra.Command, args []string) {
	logging.Init()
	startTime := time.Now()

	// Resolve once at startup purely to surface misconfiguration early;
	// handlers re-resolve per request.
	cfg := crew.ResolveConfig()
	if cfg.APIKey == "" {
		log.Warn().Msg("No crew API key configured; analysis requests will fail until CREW_API_KEY is set")
	}

	ctx := context.Background()
	if uri := os.Getenv("MONGODB_URI"); uri != "" {
		dbName := os.Getenv("MONGODB_DB")
		if dbName == "" {
			dbName = "interview_prep"
		}
		connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		ms, err := store.NewMongoStore(connectCtx, uri, dbName)
		cancel()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to MongoDB")
		}
		defer ms.Close(ctx)
		sessionStore = ms
		log.Info().Str("db", dbName).Msg("Session persistence enabled")
	} else {
		log.Info().Msg("MONGODB_URI not set; running without session persistence")
	}

	mux := http.NewServeMux()

	// Analysis routes
	mux.HandleFunc("/api/analysis/start", handleAnalysisStart)
	mux.HandleFunc("/api/analysis/run", handleAnalysisRun)
	mux.HandleFunc("/api/analysis/status/", handleAnalysisStatus)

	// Session history routes (only useful with persistence)
	if sessionStore != nil {
		mux.HandleFunc("/api/sessions", handleSessionList)
		mux.HandleFunc("/api/sessions/", handleSessionGet)
	}

	handler := withLogging(withCORS(mux))

	addr := fmt.Sprintf(":%d", portFlag)
	srv := &http.Server{
		Addr:        addr,
		Handler:     handler,
		ReadTimeout: 30 * time.Second,
		// The blocking /api/analysis/run handler polls the crew service for
		// up to MaxAttempts × Interval, so the write timeout must outlast it.
		WriteTimeout: crew.DefaultMaxAttempts*crew.DefaultPollInterval + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info().Msg("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logging.NewStartupLogger("prep-server").
		Config("port", fmt.Sprintf("%d", portFlag)).
		Config("crewBaseUrl", cfg.BaseURL).
		Feature("persistence", sessionStore != nil).
		Feature("crewApiKey", cfg.APIKey != "").
		InitDuration(time.Since(startTime)).
		Log()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Server failed")
	}
}

// --- Middleware ---

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		if strings.HasPrefix(r.URL.Path, "/api/") {
			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Dur("duration", time.Since(start)).
				Msg("API request")
		}
	})
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The Next.js frontend runs on its own origin during development.
		origin := r.Header.Get("Origin")
		if origin != "" && (strings.HasPrefix(origin, "http://localhost:") || strings.HasPrefix(origin, "http://127.0.0.1:")) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
