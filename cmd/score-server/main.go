package main

import (
	"context"
	"net/http"
	"time"

	"scoresheet/internal/config"
	"scoresheet/internal/logging"
	"scoresheet/internal/store"
	httptransport "scoresheet/internal/transport/http"

	"github.com/rs/zerolog/log"
)

func main() {
	logCfg, err := config.LoadLog()
	if err != nil {
		panic(err)
	}
	logging.Init(logCfg)
	cfg, err := config.LoadServer()
	if err != nil {
		log.Fatal().Err(err).Msg("load server config failed")
	}

	st, err := store.New(cfg.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("store init failed")
	}
	defer st.Close()
	if err := st.Ping(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("db ping failed")
	}

	startIdleJanitor(st, time.Duration(cfg.IdleTimeoutMins)*time.Minute)

	r := httptransport.NewRouter(st, cfg)
	httptransport.LogRoutes(r)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	log.Info().Str("addr", cfg.HTTPAddr).Msg("http listening")
	log.Fatal().Err(server.ListenAndServe()).Msg("server stopped")
}

// startIdleJanitor pauses sessions that nobody has touched for idleAfter.
// Paused sessions still serve state; they just stop counting as live.
func startIdleJanitor(st *store.Store, idleAfter time.Duration) {
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			n, err := st.MarkIdleSessionsPaused(context.Background(), idleAfter)
			if err != nil {
				log.Warn().Err(err).Msg("idle janitor sweep failed")
				continue
			}
			if n > 0 {
				log.Info().Int64("sessions", n).Msg("paused idle sessions")
			}
		}
	}()
}
