package httptransport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"scoresheet/internal/app/realtime"
	"scoresheet/internal/wire"

	"github.com/go-chi/chi/v5"
)

// RealtimeService is what the realtime handlers need from the app layer.
type RealtimeService interface {
	SessionState(ctx context.Context, sessionID int64, gameSlug string, caller realtime.Identity) (*wire.StateDocument, error)
	AppendEvent(ctx context.Context, sessionID int64, caller realtime.Identity, sub wire.EventSubmission) (*wire.EventResult, error)
}

type RealtimeHandlers struct {
	svc RealtimeService
}

func NewRealtimeHandlers(svc RealtimeService) *RealtimeHandlers {
	return &RealtimeHandlers{svc: svc}
}

// State serves GET /api/sessions/{session_id}/realtime. One logical read
// reconstructing the whole session view; polled frequently, so it sets
// no-store cache headers and reports latency via expvar.
func (h *RealtimeHandlers) State() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		defer func() {
			stateQueryLastMS.Set(time.Since(start).Milliseconds())
		}()
		stateQueryTotal.Add(1)

		sessionID, ok := parseSessionID(r)
		if !ok {
			stateQueryErrorsTotal.Add(1)
			WriteHTTPError(w, http.StatusBadRequest, "Invalid session id")
			return
		}
		caller := IdentityFromContext(r.Context())
		gameSlug := r.URL.Query().Get("gameSlug")

		doc, err := h.svc.SessionState(r.Context(), sessionID, gameSlug, caller)
		if err != nil {
			stateQueryErrorsTotal.Add(1)
			switch {
			case errors.Is(err, realtime.ErrSessionNotFound):
				WriteHTTPError(w, http.StatusNotFound, "Session not found")
			case errors.Is(err, realtime.ErrAuthRequired):
				WriteHTTPError(w, http.StatusUnauthorized, "Authentication required")
			case errors.Is(err, realtime.ErrAccessDenied):
				WriteHTTPError(w, http.StatusForbidden, "Access denied")
			default:
				writeInternalError(w)
			}
			return
		}
		w.Header().Set("Cache-Control", "no-store")
		_ = json.NewEncoder(w).Encode(doc)
	}
}

// Events serves POST /api/sessions/{session_id}/events, the side channel
// clients use for signaling outside the authoritative snapshot.
func (h *RealtimeHandlers) Events() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		eventAppendTotal.Add(1)
		sessionID, ok := parseSessionID(r)
		if !ok {
			WriteHTTPError(w, http.StatusBadRequest, "Invalid session id")
			return
		}
		var sub wire.EventSubmission
		if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "Invalid JSON body")
			return
		}
		caller := IdentityFromContext(r.Context())
		res, err := h.svc.AppendEvent(r.Context(), sessionID, caller, sub)
		if err != nil {
			switch {
			case errors.Is(err, realtime.ErrSessionNotFound):
				WriteHTTPError(w, http.StatusNotFound, "Session not found")
			case errors.Is(err, realtime.ErrInvalidRequest):
				WriteHTTPError(w, http.StatusBadRequest, "Invalid request")
			default:
				writeInternalError(w)
			}
			return
		}
		_ = json.NewEncoder(w).Encode(res)
	}
}

func parseSessionID(r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "session_id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}

func writeInternalError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error":     "Internal server error",
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
	})
}
