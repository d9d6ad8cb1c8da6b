package rest

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/wildguess-backend/internal/domain"
	"github.com/heartmarshall/wildguess-backend/internal/service/game"
	"github.com/heartmarshall/wildguess-backend/internal/service/game/round"
	"github.com/heartmarshall/wildguess-backend/pkg/ctxutil"
)

type sessionManager interface {
	Create(ctx context.Context, playerID *uuid.UUID, regionName string) (*game.Session, error)
	Get(id uuid.UUID, playerID *uuid.UUID) (*game.Session, error)
	Remove(id uuid.UUID, playerID *uuid.UUID) error
}

type eventReader interface {
	ListBySession(ctx context.Context, sessionID uuid.UUID, limit int) ([]domain.GameEvent, error)
}

// SessionHandler serves the game session endpoints.
type SessionHandler struct {
	games  sessionManager
	events eventReader
	log    *slog.Logger
}

// NewSessionHandler creates a SessionHandler.
func NewSessionHandler(games sessionManager, events eventReader, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{games: games, events: events, log: logger.With("handler", "session")}
}

const (
	defaultEventLimit = 100
	maxEventLimit     = 500
)

type regionRequest struct {
	Region string `json:"region"`
}

type guessRequest struct {
	TaxonID int    `json:"taxonId"`
	Name    string `json:"name"`
}

type clueResponse struct {
	Index    int                 `json:"index"`
	Kind     round.ClueKind      `json:"kind"`
	Text     string              `json:"text,omitempty"`
	PhotoURL string              `json:"photoUrl,omitempty"`
	Location *domain.Coordinates `json:"location,omitempty"`
}

type targetResponse struct {
	TaxonID        int     `json:"taxonId"`
	SpeciesName    string  `json:"speciesName"`
	ScientificName string  `json:"scientificName"`
	Category       string  `json:"category"`
	Emoji          string  `json:"emoji,omitempty"`
	ObservationID  int64   `json:"observationId,omitempty"`
	PhotoURL       string  `json:"photoUrl"`
	Observer       string  `json:"observer,omitempty"`
	URI            string  `json:"uri,omitempty"`
	ObservedDate   string  `json:"observedDate,omitempty"`
	Summary        *string `json:"summary,omitempty"`
}

type sessionResponse struct {
	ID        string              `json:"id"`
	Region    regionResponse      `json:"region"`
	Phase     domain.RoundPhase   `json:"phase"`
	ClueIndex int                 `json:"clueIndex"`
	Score     int                 `json:"score"`
	Locked    bool                `json:"locked"`
	Rejected  []string            `json:"rejected"`
	Result    *domain.RoundResult `json:"result,omitempty"`
	TimeLeft  int                 `json:"timeLeft,omitempty"`
	Clues     []clueResponse      `json:"clues"`
	Category  string              `json:"category,omitempty"`
	Offline   bool                `json:"offline"`
	Loading   bool                `json:"loading"`
	Target    *targetResponse     `json:"target,omitempty"`
	UpdatedAt time.Time           `json:"updatedAt"`
}

type eventResponse struct {
	Type      domain.GameEventType `json:"type"`
	Payload   map[string]any       `json:"payload"`
	CreatedAt time.Time            `json:"createdAt"`
}

type guessResponse struct {
	Accepted bool            `json:"accepted"`
	Correct  bool            `json:"correct"`
	Session  sessionResponse `json:"session"`
}

func toSessionResponse(v game.View) sessionResponse {
	resp := sessionResponse{
		ID:        v.SessionID.String(),
		Region:    toRegionResponse(v.Region),
		Phase:     v.Phase,
		ClueIndex: v.ClueIndex,
		Score:     v.Score,
		Locked:    v.Locked,
		Rejected:  v.Rejected,
		Result:    v.Result,
		TimeLeft:  v.TimeLeft,
		Clues:     make([]clueResponse, len(v.Clues)),
		Category:  v.Category,
		Offline:   v.Offline,
		Loading:   v.Loading,
		UpdatedAt: v.UpdatedAt,
	}
	for i, c := range v.Clues {
		resp.Clues[i] = clueResponse{Index: c.Index, Kind: c.Kind, Text: c.Text, PhotoURL: c.PhotoURL, Location: c.Location}
	}
	if t := v.Target; t != nil {
		resp.Target = &targetResponse{
			TaxonID:        t.TaxonID,
			SpeciesName:    t.SpeciesName,
			ScientificName: t.ScientificName,
			Category:       t.Category,
			Emoji:          t.Emoji,
			ObservationID:  t.ObservationID,
			PhotoURL:       t.PhotoURL,
			Observer:       t.Observer,
			URI:            t.URI,
			ObservedDate:   t.ObservedDate,
			Summary:        t.Summary,
		}
	}
	return resp
}

// Create handles POST /api/v1/sessions.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req regionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(h.log, w, r, err)
		return
	}

	s, err := h.games.Create(r.Context(), ctxutil.PlayerRef(r.Context()), req.Region)
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSessionResponse(s.View()))
}

// Get handles GET /api/v1/sessions/{id}.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(s.View()))
}

// Delete handles DELETE /api/v1/sessions/{id}.
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	if err := h.games.Remove(id, ctxutil.PlayerRef(r.Context())); err != nil {
		handleError(h.log, w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SelectRegion handles PUT /api/v1/sessions/{id}/region.
func (h *SessionHandler) SelectRegion(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req regionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(h.log, w, r, err)
		return
	}
	h.respond(w, r, func() (game.View, error) { return s.SelectRegion(r.Context(), req.Region) })
}

// StartRound handles POST /api/v1/sessions/{id}/rounds.
func (h *SessionHandler) StartRound(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	h.respond(w, r, func() (game.View, error) { return s.StartRound(r.Context()) })
}

// Guess handles POST /api/v1/sessions/{id}/guess.
func (h *SessionHandler) Guess(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req guessRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(h.log, w, r, err)
		return
	}

	res, err := s.Guess(r.Context(), game.GuessInput{TaxonID: req.TaxonID, Name: req.Name})
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, guessResponse{
		Accepted: res.Accepted,
		Correct:  res.Correct,
		Session:  toSessionResponse(res.View),
	})
}

// Skip handles POST /api/v1/sessions/{id}/skip.
func (h *SessionHandler) Skip(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	h.respond(w, r, func() (game.View, error) { return s.Skip(r.Context()) })
}

// Surrender handles POST /api/v1/sessions/{id}/surrender.
func (h *SessionHandler) Surrender(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	h.respond(w, r, func() (game.View, error) { return s.Surrender(r.Context()) })
}

// Options handles GET /api/v1/sessions/{id}/options.
func (h *SessionHandler) Options(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	list, err := s.Options(r.Context())
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSpeciesList(list))
}

// Events handles GET /api/v1/sessions/{id}/events?limit=. Only live
// sessions can be inspected; the owner check is the same as for Get.
func (h *SessionHandler) Events(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	if limit == 0 {
		limit = defaultEventLimit
	}
	limit = min(limit, maxEventLimit)

	events, err := h.events.ListBySession(r.Context(), s.ID(), limit)
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	items := make([]eventResponse, len(events))
	for i, e := range events {
		items[i] = eventResponse{Type: e.Type, Payload: e.Payload, CreatedAt: e.CreatedAt}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *SessionHandler) session(w http.ResponseWriter, r *http.Request) (*game.Session, bool) {
	id, err := pathUUID(r, "id")
	if err != nil {
		handleError(h.log, w, r, err)
		return nil, false
	}
	s, err := h.games.Get(id, ctxutil.PlayerRef(r.Context()))
	if err != nil {
		handleError(h.log, w, r, err)
		return nil, false
	}
	return s, true
}

func (h *SessionHandler) respond(w http.ResponseWriter, r *http.Request, fn func() (game.View, error)) {
	v, err := fn()
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(v))
}
