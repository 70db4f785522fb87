// Command metadata-mock serves release-date lookups for local runs and tests.
package main

import (
	"flag"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/Clark-Hu/kinoapp/internal/logging"
)

type movieEntry struct {
	Title       string  `json:"title"`
	ReleaseDate *string `json:"releaseDate"`
}

func defaultEntries() map[string]movieEntry {
	date := func(s string) *string { return &s }
	return map[string]movieEntry{
		"Inception":    {Title: "Inception", ReleaseDate: date("2010-07-16")},
		"Heat":         {Title: "Heat", ReleaseDate: date("1995-12-15")},
		"Alien":        {Title: "Alien", ReleaseDate: date("1979-05-25")},
		"Blade Runner": {Title: "Blade Runner", ReleaseDate: date("1982-06-25")},
		"Unreleased":   {Title: "Unreleased"},
	}
}

func main() {
	var (
		port   = flag.String("port", "9099", "port to listen on")
		data   = flag.String("data", "", "path to a JSON object of title -> entry; built-in entries when empty")
		apiKey = flag.String("api-key", "", "require this X-API-Key when set")
		format = flag.String("log-format", "console", "json or console")
	)
	flag.Parse()

	logger := logging.New(logging.Config{Format: *format, Level: "info"})

	entries, err := loadEntries(*data)
	if err != nil {
		logger.Fatal().Err(err).Str("path", *data).Msg("load mock data")
	}

	addr := ":" + *port
	logger.Info().Str("addr", addr).Int("entries", len(entries)).Msg("mock metadata listening")
	if err := http.ListenAndServe(addr, newRouter(entries, *apiKey, logger)); err != nil {
		logger.Fatal().Err(err).Msg("server error")
	}
}

func loadEntries(path string) (map[string]movieEntry, error) {
	if path == "" {
		return defaultEntries(), nil
	}
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var payload map[string]movieEntry
	if err := json.Unmarshal(file, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func newRouter(entries map[string]movieEntry, apiKey string, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(logging.AccessLog(logger))
	r.Get("/movies", func(w http.ResponseWriter, r *http.Request) {
		if apiKey != "" && r.Header.Get("X-API-Key") != apiKey {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		entry, ok := entries[r.URL.Query().Get("title")]
		if !ok {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(entry); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
	return r
}
