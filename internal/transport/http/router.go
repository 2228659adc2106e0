package httptransport

import (
	"context"
	"encoding/json"
	"expvar"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"scoresheet/internal/app/realtime"
	"scoresheet/internal/app/rounds"
	"scoresheet/internal/config"
	"scoresheet/internal/store"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

type healthPinger interface {
	Ping(ctx context.Context) error
}

func NewRouter(st *store.Store, cfg config.ServerConfig) *chi.Mux {
	realtimeSvc := realtime.NewService(st, cfg.EventsLimit)
	roundsSvc := rounds.NewService(st)
	return routerWith(realtimeSvc, roundsSvc, st)
}

func routerWith(rt RealtimeService, rd RoundsService, hp healthPinger) *chi.Mux {
	realtimeHandlers := NewRealtimeHandlers(rt)
	roundsHandlers := NewRoundsHandlers(rd)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	r.With(APILogMiddleware()).Get("/healthz", healthHandler(hp))

	r.Route("/api", func(r chi.Router) {
		r.Use(APILogMiddleware())
		r.Use(IdentityMiddleware())
		r.Get("/sessions/{session_id}/realtime", realtimeHandlers.State())
		r.Post("/sessions/{session_id}/rounds", roundsHandlers.Submit())
		r.Post("/games/{game_slug}/sessions/{session_id}/rounds", roundsHandlers.Submit())
		r.Post("/sessions/{session_id}/events", realtimeHandlers.Events())
		r.Get("/debug/vars", expvar.Handler().ServeHTTP)
	})

	return r
}

func healthHandler(hp healthPinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := hp.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "db": "down"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "db": "up"})
	}
}

func LogRoutes(r chi.Router) {
	type routeDef struct {
		Method string
		Path   string
	}
	routes := make([]routeDef, 0, 16)
	err := chi.Walk(r, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routes = append(routes, routeDef{Method: method, Path: route})
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("walk routes failed")
		return
	}
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path == routes[j].Path {
			return routes[i].Method < routes[j].Method
		}
		return routes[i].Path < routes[j].Path
	})
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Registered routes (%d):\n", len(routes)))
	for _, rt := range routes {
		b.WriteString(fmt.Sprintf("  %-6s %s\n", rt.Method, rt.Path))
	}
	fmt.Print(b.String())
}
