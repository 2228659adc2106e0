package main

import (
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"scoresheet/internal/config"
	"scoresheet/internal/logging"
	"scoresheet/internal/sessionsync"
	"scoresheet/internal/wire"

	"github.com/rs/zerolog/log"
)

// session-watch follows one session from the terminal: it runs the same
// sync stack the web client does and reprints the standings whenever the
// server state actually changes.
func main() {
	logCfg, err := config.LoadLog()
	if err != nil {
		panic(err)
	}
	logging.Init(logCfg)
	cfg, err := config.LoadClient()
	if err != nil {
		log.Fatal().Err(err).Msg("load client config failed")
	}

	var userID *int64
	if cfg.UserID > 0 {
		userID = &cfg.UserID
	}
	coord := sessionsync.NewCoordinator(sessionsync.Config{
		BaseURL:        cfg.BaseURL,
		SessionID:      cfg.SessionID,
		GameSlug:       cfg.GameSlug,
		UserID:         userID,
		BaseInterval:   cfg.PollInterval,
		FetchTimeout:   cfg.FetchTimeout,
		MaxRetries:     cfg.MaxRetries,
		RetryBaseDelay: cfg.RetryBaseDelay,
		RetryMaxDelay:  cfg.RetryMaxDelay,
		OnChange:       render,
	})
	coord.Start()
	defer coord.Close()

	log.Info().Int64("session_id", cfg.SessionID).Str("base_url", cfg.BaseURL).Msg("watching session")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	fmt.Println()
}

func render(st sessionsync.State) {
	if st.Session == nil {
		fmt.Printf("[%s] waiting for first snapshot\n", st.StatusText)
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s (%s) round %d\n",
		st.StatusText, st.Session.Name, st.Session.Status, st.Session.CurrentRound)

	players := append([]wire.Player(nil), st.Session.Players...)
	sort.Slice(players, func(i, j int) bool {
		if players[i].TotalScore == players[j].TotalScore {
			return players[i].Position < players[j].Position
		}
		return players[i].TotalScore > players[j].TotalScore
	})
	for rank, p := range players {
		fmt.Fprintf(&b, "  %d. %-20s %6d\n", rank+1, p.Name, p.TotalScore)
	}
	if n := len(st.Events); n > 0 {
		last := st.Events[n-1]
		fmt.Fprintf(&b, "  last event: %s\n", last.EventType)
	}
	if st.Err != nil {
		fmt.Fprintf(&b, "  error: %v\n", st.Err)
	}
	fmt.Print(b.String())
}
