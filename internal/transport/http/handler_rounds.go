package httptransport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"scoresheet/internal/app/rounds"
	"scoresheet/internal/wire"
)

type RoundsService interface {
	Submit(ctx context.Context, sessionID int64, userID *int64, sub wire.RoundSubmission) (*wire.RoundResult, error)
}

type RoundsHandlers struct {
	svc RoundsService
}

func NewRoundsHandlers(svc RoundsService) *RoundsHandlers {
	return &RoundsHandlers{svc: svc}
}

// Submit serves both the game-scoped and the session-generic rounds routes;
// the game slug carries no extra meaning on the write path.
func (h *RoundsHandlers) Submit() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roundSubmitTotal.Add(1)
		sessionID, ok := parseSessionID(r)
		if !ok {
			roundSubmitErrors.Add(1)
			WriteHTTPError(w, http.StatusBadRequest, "Invalid session id")
			return
		}
		var sub wire.RoundSubmission
		if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
			roundSubmitErrors.Add(1)
			WriteHTTPError(w, http.StatusBadRequest, "Invalid JSON body")
			return
		}
		caller := IdentityFromContext(r.Context())
		res, err := h.svc.Submit(r.Context(), sessionID, caller.UserID, sub)
		if err != nil {
			roundSubmitErrors.Add(1)
			switch {
			case errors.Is(err, rounds.ErrSessionNotFound):
				WriteHTTPError(w, http.StatusNotFound, "Session not found")
			case errors.Is(err, rounds.ErrSessionClosed):
				WriteHTTPError(w, http.StatusConflict, "Session is not accepting rounds")
			case errors.Is(err, rounds.ErrUnknownPlayer), errors.Is(err, rounds.ErrInvalidRequest):
				WriteHTTPError(w, http.StatusBadRequest, "Invalid request")
			default:
				writeInternalError(w)
			}
			return
		}
		_ = json.NewEncoder(w).Encode(res)
	}
}
