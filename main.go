package main

import (
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
)

func main() {
	cfg := loadConfig()

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).
		With().Timestamp().Logger()

	var (
		profiles ProfileStore
		prefs    PreferenceStore
		ledger   InteractionLedger
		matches  MatchRegistry
		selector CandidateSelector
	)

	if cfg.DatabaseURL != "" {
		db, err := initDB(cfg.DatabaseURL, log)
		if err != nil {
			log.Fatal().Err(err).Msg("database init failed")
		}
		defer db.Close()

		profiles = newPgProfileStore(db)
		prefs = newPgPreferenceStore(db)
		ledger = newPgInteractionLedger(db)
		matches = newPgMatchRegistry(db)
		selector = newPgCandidateSelector(db, profiles, prefs)
	} else {
		// No DATABASE_URL: run on in-memory stores. Useful for local
		// development; all state is lost on restart.
		log.Warn().Msg("DATABASE_URL not set, using in-memory storage")

		memProfiles := newMemProfileStore()
		memPrefs := newMemPreferenceStore()
		memMatches := newMemMatchRegistry()
		memLedger := newMemInteractionLedger(memMatches)

		profiles = memProfiles
		prefs = memPrefs
		ledger = memLedger
		matches = memMatches
		selector = newMemCandidateSelector(memProfiles, memPrefs, memLedger)
	}

	hub := newHub(log)
	notifier := newMatchNotifier(profiles, hub, log)
	defer notifier.Close()

	engine := NewEngine(profiles, prefs, ledger, matches, selector, hub, notifier, log)

	mux := http.NewServeMux()
	mux.Handle("/ws", wsHandler(hub, engine, cfg.JWTSecret, log))

	// Health check endpoint for Docker
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	log.Info().Str("addr", cfg.ListenAddr).Msg("starting matchmaking backend")
	if err := http.ListenAndServe(cfg.ListenAddr, mux); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
