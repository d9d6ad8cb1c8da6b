package rest

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/wildguess-backend/internal/domain"
)

type playerService interface {
	ResetHistory(ctx context.Context, playerID uuid.UUID) error
	PendingJournal(ctx context.Context, playerID uuid.UUID) ([]string, error)
	ConfirmJournal(ctx context.Context, playerID uuid.UUID, species string) error
	Flags(ctx context.Context, playerID uuid.UUID) ([]string, error)
	MarkFlag(ctx context.Context, playerID uuid.UUID, flag string) error
	Stats(ctx context.Context, playerID uuid.UUID) (domain.PlayerStats, error)
	Recent(ctx context.Context, playerID uuid.UUID, limit int) ([]domain.RoundOutcome, error)
}

// liveSessions drops in-memory state kept by a player's open sessions.
type liveSessions interface {
	ForgetPlayed(ctx context.Context, playerID uuid.UUID) int
}

// PlayerHandler serves the authenticated player's persisted state.
type PlayerHandler struct {
	svc      playerService
	sessions liveSessions
	log      *slog.Logger
}

// NewPlayerHandler creates a PlayerHandler.
func NewPlayerHandler(svc playerService, sessions liveSessions, logger *slog.Logger) *PlayerHandler {
	return &PlayerHandler{svc: svc, sessions: sessions, log: logger.With("handler", "player")}
}

type statsResponse struct {
	Games        int               `json:"games"`
	Wins         int               `json:"wins"`
	TotalScore   int               `json:"totalScore"`
	AverageScore float64           `json:"averageScore"`
	Tier         domain.PlayerTier `json:"tier"`
}

type outcomeResponse struct {
	SessionID  string             `json:"sessionId"`
	TaxonID    int                `json:"taxonId"`
	Species    string             `json:"species"`
	Region     string             `json:"region"`
	Result     domain.RoundResult `json:"result"`
	Score      int                `json:"score"`
	ClueIndex  int                `json:"clueIndex"`
	Offline    bool               `json:"offline"`
	ResolvedAt time.Time          `json:"resolvedAt"`
}

// Journal handles GET /api/v1/me/journal.
func (h *PlayerHandler) Journal(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.svc.PendingJournal)
}

// ConfirmJournal handles DELETE /api/v1/me/journal/{species}.
func (h *PlayerHandler) ConfirmJournal(w http.ResponseWriter, r *http.Request) {
	h.do(w, r, func(ctx context.Context, id uuid.UUID) error {
		return h.svc.ConfirmJournal(ctx, id, r.PathValue("species"))
	})
}

// Flags handles GET /api/v1/me/flags.
func (h *PlayerHandler) Flags(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.svc.Flags)
}

// MarkFlag handles PUT /api/v1/me/flags/{flag}.
func (h *PlayerHandler) MarkFlag(w http.ResponseWriter, r *http.Request) {
	h.do(w, r, func(ctx context.Context, id uuid.UUID) error {
		return h.svc.MarkFlag(ctx, id, r.PathValue("flag"))
	})
}

// ResetHistory handles DELETE /api/v1/me/history. Open sessions forget the
// species too, so their next rounds may repeat them.
func (h *PlayerHandler) ResetHistory(w http.ResponseWriter, r *http.Request) {
	h.do(w, r, func(ctx context.Context, id uuid.UUID) error {
		if err := h.svc.ResetHistory(ctx, id); err != nil {
			return err
		}
		h.sessions.ForgetPlayed(ctx, id)
		return nil
	})
}

// Stats handles GET /api/v1/me/stats.
func (h *PlayerHandler) Stats(w http.ResponseWriter, r *http.Request) {
	playerID, err := requirePlayer(r)
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	st, err := h.svc.Stats(r.Context(), playerID)
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{
		Games:        st.Games,
		Wins:         st.Wins,
		TotalScore:   st.TotalScore,
		AverageScore: st.AverageScore,
		Tier:         st.Tier,
	})
}

// Recent handles GET /api/v1/me/rounds?limit=.
func (h *PlayerHandler) Recent(w http.ResponseWriter, r *http.Request) {
	playerID, err := requirePlayer(r)
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	outcomes, err := h.svc.Recent(r.Context(), playerID, limit)
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	out := make([]outcomeResponse, len(outcomes))
	for i, o := range outcomes {
		out[i] = outcomeResponse{
			SessionID:  o.SessionID.String(),
			TaxonID:    o.TaxonID,
			Species:    o.Species,
			Region:     o.Region,
			Result:     o.Result,
			Score:      o.Score,
			ClueIndex:  o.ClueIndex,
			Offline:    o.Offline,
			ResolvedAt: o.ResolvedAt,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *PlayerHandler) list(w http.ResponseWriter, r *http.Request, fn func(context.Context, uuid.UUID) ([]string, error)) {
	playerID, err := requirePlayer(r)
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	items, err := fn(r.Context(), playerID)
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"items": items})
}

func (h *PlayerHandler) do(w http.ResponseWriter, r *http.Request, fn func(context.Context, uuid.UUID) error) {
	playerID, err := requirePlayer(r)
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	if err := fn(r.Context(), playerID); err != nil {
		handleError(h.log, w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
