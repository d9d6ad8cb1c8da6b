package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/wildguess-backend/internal/catalog"
	"github.com/heartmarshall/wildguess-backend/internal/domain"
	"github.com/heartmarshall/wildguess-backend/internal/service/acquisition"
	"github.com/heartmarshall/wildguess-backend/internal/service/game"
	"github.com/heartmarshall/wildguess-backend/internal/service/game/round"
	"github.com/heartmarshall/wildguess-backend/internal/service/player"
	"github.com/heartmarshall/wildguess-backend/internal/service/species"
	"github.com/heartmarshall/wildguess-backend/internal/transport/middleware"
)

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

var testCatalog = []domain.Species{
	{TaxonID: 42069, Name: "Red Fox", ScientificName: "Vulpes vulpes", Category: "Mammal", Region: "Europe", Hint1: "Bushy tail"},
	{TaxonID: 41777, Name: "Eurasian Badger", ScientificName: "Meles meles", Category: "Mammal", Region: "Europe"},
	{TaxonID: 13094, Name: "European Robin", ScientificName: "Erithacus rubecula", Category: "Bird", Region: "Europe"},
	{TaxonID: 5305, Name: "Bald Eagle", ScientificName: "Haliaeetus leucocephalus", Category: "Bird", Region: "North America"},
}

type staticSource struct{}

func (staticSource) Fetch(context.Context) (*catalog.ParseResult, error) {
	return &catalog.ParseResult{Species: testCatalog}, nil
}

type foxAcquirer struct{}

func (foxAcquirer) Acquire(_ context.Context, req acquisition.Request) acquisition.Result {
	return acquisition.Result{
		Record: domain.RoundRecord{
			TaxonID:        42069,
			SpeciesName:    "Red Fox",
			ScientificName: "Vulpes vulpes",
			Category:       "Mammal",
			PhotoURL:       "https://static.example.org/photos/1/large.jpg",
			PlaceGuess:     req.Region.Name,
			Hint1:          "Bushy tail",
		},
		Attempts: 1,
	}
}

type nopRecorder struct{}

func (nopRecorder) RoundStarted(context.Context, game.Info, domain.RoundRecord, bool, int) {}
func (nopRecorder) RoundResolved(context.Context, game.Info, round.State, bool)            {}
func (nopRecorder) RegionChanged(context.Context, game.Info, string)                       {}

type mockPlayers struct {
	mu        sync.Mutex
	journal   map[uuid.UUID][]string
	flags     map[uuid.UUID][]string
	histories map[uuid.UUID]*player.History
	err       error
}

func newMockPlayers() *mockPlayers {
	return &mockPlayers{
		journal:   map[uuid.UUID][]string{},
		flags:     map[uuid.UUID][]string{},
		histories: map[uuid.UUID]*player.History{},
	}
}

func (m *mockPlayers) History(_ context.Context, id uuid.UUID) (*player.History, error) {
	h := player.NewMemoryHistory()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.histories[id] = h
	return h, nil
}

func (m *mockPlayers) historyOf(id uuid.UUID) *player.History {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.histories[id]
}

func (m *mockPlayers) ResetHistory(context.Context, uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

func (m *mockPlayers) PendingJournal(_ context.Context, id uuid.UUID) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string{}, m.journal[id]...), m.err
}

func (m *mockPlayers) ConfirmJournal(_ context.Context, id uuid.UUID, sp string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, s := range m.journal[id] {
		if s == sp {
			m.journal[id] = append(m.journal[id][:i], m.journal[id][i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *mockPlayers) Flags(_ context.Context, id uuid.UUID) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string{}, m.flags[id]...), m.err
}

func (m *mockPlayers) MarkFlag(_ context.Context, id uuid.UUID, flag string) error {
	if len(flag) > 64 {
		return domain.NewValidationError("flag", "too long")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flags[id] = append(m.flags[id], flag)
	return nil
}

func (m *mockPlayers) Stats(context.Context, uuid.UUID) (domain.PlayerStats, error) {
	return domain.PlayerStats{Games: 12, Wins: 9, TotalScore: 30, AverageScore: 2.5, Tier: domain.PlayerTierExplorer}, m.err
}

func (m *mockPlayers) Recent(_ context.Context, _ uuid.UUID, limit int) ([]domain.RoundOutcome, error) {
	return []domain.RoundOutcome{{Species: "Red Fox", Result: domain.RoundResultWin, Score: 4, ResolvedAt: time.Now()}}, m.err
}

type mockEvents struct {
	mu        sync.Mutex
	sessionID uuid.UUID
	limit     int
}

func (m *mockEvents) ListBySession(_ context.Context, sessionID uuid.UUID, limit int) ([]domain.GameEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessionID, m.limit = sessionID, limit
	return []domain.GameEvent{{
		SessionID: sessionID,
		Type:      domain.GameEventRoundStarted,
		Payload:   map[string]any{"taxon_id": 42069},
	}}, nil
}

func (m *mockEvents) last() (uuid.UUID, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionID, m.limit
}

// tokenValidator accepts "tok-<uuid>".
type tokenValidator struct{}

func (tokenValidator) ValidateAccessToken(token string) (uuid.UUID, error) {
	id, ok := strings.CutPrefix(token, "tok-")
	if !ok {
		return uuid.Nil, errors.New("invalid token")
	}
	return uuid.Parse(id)
}

// ---------------------------------------------------------------------------
// Server
// ---------------------------------------------------------------------------

type testServer struct {
	*httptest.Server
	players *mockPlayers
	events  *mockEvents
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	regions := []domain.Region{{Name: "Any"}, {Name: "Europe", PlaceID: 97391}, {Name: "North America", PlaceID: 97394}}

	speciesSvc := species.NewService(logger, staticSource{}, regions, time.Hour)
	players := newMockPlayers()
	events := &mockEvents{}
	games := game.NewManager(logger, foxAcquirer{}, speciesSvc, players, nopRecorder{}, game.Config{
		IdleTTL:         time.Hour,
		JanitorInterval: time.Hour,
	})
	t.Cleanup(games.Shutdown)

	router := NewRouter(Handlers{
		Health:  NewHealthHandler("test"),
		Catalog: NewCatalogHandler(speciesSvc, logger),
		Session: NewSessionHandler(games, events, logger),
		Player:  NewPlayerHandler(players, games, logger),
	}, middleware.Chain(middleware.RequestID, middleware.Auth(tokenValidator{})))

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, players: players, events: events}
}

// do sends a request, optionally as player, and decodes a JSON response
// into out when out is non-nil.
func (s *testServer) do(t *testing.T, method, path string, body any, as *uuid.UUID, out any) *http.Response {
	t.Helper()
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, s.URL+path, rd)
	require.NoError(t, err)
	if as != nil {
		req.Header.Set("Authorization", "Bearer tok-"+as.String())
	}
	resp, err := s.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func (s *testServer) createSession(t *testing.T, region string, as *uuid.UUID) sessionResponse {
	t.Helper()
	var sess sessionResponse
	resp := s.do(t, http.MethodPost, "/api/v1/sessions", regionRequest{Region: region}, as, &sess)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return sess
}

// ---------------------------------------------------------------------------
// Catalog
// ---------------------------------------------------------------------------

func TestCatalog_Regions(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	var regions []regionResponse
	resp := srv.do(t, http.MethodGet, "/api/v1/regions", nil, nil, &regions)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, regions, 3)
	assert.Equal(t, regionResponse{Name: "Europe", PlaceID: 97391}, regions[1])
	assert.NotEmpty(t, resp.Header.Get(middleware.RequestIDHeader))
}

func TestCatalog_Species(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	var list []speciesResponse
	resp := srv.do(t, http.MethodGet, "/api/v1/regions/europe/species", nil, nil, &list)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, list, 3)

	var errResp errorResponse
	resp = srv.do(t, http.MethodGet, "/api/v1/regions/Atlantis/species", nil, nil, &errResp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION", errResp.Code)
	require.Len(t, errResp.Fields, 1)
	assert.Equal(t, "region", errResp.Fields[0].Field)
}

func TestCatalog_Search(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	var matches []matchResponse
	resp := srv.do(t, http.MethodGet, "/api/v1/regions/Any/species/search?q=red+fox&limit=3", nil, nil, &matches)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, matches)
	assert.Equal(t, "Red Fox", matches[0].Name)
	assert.Equal(t, "exact", matches[0].Source)

	resp = srv.do(t, http.MethodGet, "/api/v1/regions/Any/species/search?q=fox&limit=-1", nil, nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// ---------------------------------------------------------------------------
// Sessions
// ---------------------------------------------------------------------------

func TestSession_PlayRound(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	sess := srv.createSession(t, "Europe", nil)
	assert.Equal(t, domain.RoundPhaseIdle, sess.Phase)
	base := "/api/v1/sessions/" + sess.ID

	var started sessionResponse
	resp := srv.do(t, http.MethodPost, base+"/rounds", nil, nil, &started)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, domain.RoundPhaseClueReveal, started.Phase)
	assert.Equal(t, round.MaxScore, started.Score)
	require.Len(t, started.Clues, 1)
	assert.Equal(t, round.ClueLocation, started.Clues[0].Kind)
	assert.Nil(t, started.Target)

	var conflict errorResponse
	resp = srv.do(t, http.MethodPost, base+"/rounds", nil, nil, &conflict)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "CONFLICT", conflict.Code)

	var wrong guessResponse
	resp = srv.do(t, http.MethodPost, base+"/guess", guessRequest{Name: "eurasian badger"}, nil, &wrong)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, wrong.Accepted)
	assert.False(t, wrong.Correct)
	assert.Equal(t, []string{"Eurasian Badger"}, wrong.Session.Rejected)
	assert.Equal(t, 1, wrong.Session.ClueIndex)

	var skipped sessionResponse
	resp = srv.do(t, http.MethodPost, base+"/skip", nil, nil, &skipped)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, skipped.ClueIndex)

	var options []speciesResponse
	resp = srv.do(t, http.MethodGet, base+"/options", nil, nil, &options)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, options, 3)

	var right guessResponse
	resp = srv.do(t, http.MethodPost, base+"/guess", guessRequest{TaxonID: 42069}, nil, &right)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, right.Correct)
	assert.Equal(t, domain.RoundPhaseResolved, right.Session.Phase)
	require.NotNil(t, right.Session.Result)
	assert.Equal(t, domain.RoundResultWin, *right.Session.Result)
	require.NotNil(t, right.Session.Target)
	assert.Equal(t, "Red Fox", right.Session.Target.SpeciesName)
}

func TestSession_GuessValidation(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)
	base := "/api/v1/sessions/" + srv.createSession(t, "", nil).ID

	srv.do(t, http.MethodPost, base+"/rounds", nil, nil, nil)

	resp := srv.do(t, http.MethodPost, base+"/guess", `{"name":`, nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var errResp errorResponse
	resp = srv.do(t, http.MethodPost, base+"/guess", guessRequest{}, nil, &errResp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION", errResp.Code)
}

func TestSession_SelectRegionAndSurrender(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)
	base := "/api/v1/sessions/" + srv.createSession(t, "Any", nil).ID

	var moved sessionResponse
	resp := srv.do(t, http.MethodPut, base+"/region", regionRequest{Region: "North America"}, nil, &moved)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "North America", moved.Region.Name)

	srv.do(t, http.MethodPost, base+"/rounds", nil, nil, nil)

	var done sessionResponse
	resp = srv.do(t, http.MethodPost, base+"/surrender", nil, nil, &done)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, domain.RoundResultSurrender, *done.Result)
	assert.Equal(t, "North America", done.Clues[0].Text)
}

func TestSession_Ownership(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)
	owner, other := uuid.New(), uuid.New()
	path := "/api/v1/sessions/" + srv.createSession(t, "", &owner).ID

	assert.Equal(t, http.StatusOK, srv.do(t, http.MethodGet, path, nil, &owner, nil).StatusCode)
	assert.Equal(t, http.StatusNotFound, srv.do(t, http.MethodGet, path, nil, &other, nil).StatusCode)
	assert.Equal(t, http.StatusNotFound, srv.do(t, http.MethodGet, path, nil, nil, nil).StatusCode)
}

func TestSession_Lookup(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	assert.Equal(t, http.StatusBadRequest, srv.do(t, http.MethodGet, "/api/v1/sessions/not-a-uuid", nil, nil, nil).StatusCode)
	assert.Equal(t, http.StatusNotFound, srv.do(t, http.MethodGet, "/api/v1/sessions/"+uuid.NewString(), nil, nil, nil).StatusCode)

	path := "/api/v1/sessions/" + srv.createSession(t, "", nil).ID
	assert.Equal(t, http.StatusNoContent, srv.do(t, http.MethodDelete, path, nil, nil, nil).StatusCode)
	assert.Equal(t, http.StatusNotFound, srv.do(t, http.MethodGet, path, nil, nil, nil).StatusCode)
}

func TestSession_Events(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)
	owner := uuid.New()
	sess := srv.createSession(t, "Europe", &owner)

	var body struct {
		Items []eventResponse `json:"items"`
	}
	resp := srv.do(t, http.MethodGet, "/api/v1/sessions/"+sess.ID+"/events", nil, &owner, &body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, body.Items, 1)
	assert.Equal(t, domain.GameEventRoundStarted, body.Items[0].Type)
	gotID, gotLimit := srv.events.last()
	assert.Equal(t, sess.ID, gotID.String())
	assert.Equal(t, defaultEventLimit, gotLimit)

	resp = srv.do(t, http.MethodGet, "/api/v1/sessions/"+sess.ID+"/events?limit=9000", nil, &owner, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_, gotLimit = srv.events.last()
	assert.Equal(t, maxEventLimit, gotLimit)

	stranger := uuid.New()
	resp = srv.do(t, http.MethodGet, "/api/v1/sessions/"+sess.ID+"/events", nil, &stranger, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSession_InvalidToken(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/v1/regions", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer forged")
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

// ---------------------------------------------------------------------------
// Player
// ---------------------------------------------------------------------------

func TestPlayer_RequiresAuth(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	for _, path := range []string{"/api/v1/me/journal", "/api/v1/me/flags", "/api/v1/me/stats", "/api/v1/me/rounds"} {
		assert.Equal(t, http.StatusUnauthorized, srv.do(t, http.MethodGet, path, nil, nil, nil).StatusCode, path)
	}
	assert.Equal(t, http.StatusUnauthorized, srv.do(t, http.MethodDelete, "/api/v1/me/history", nil, nil, nil).StatusCode)
}

func TestPlayer_ResetHistoryClearsLiveSessions(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)
	id := uuid.New()
	srv.createSession(t, "Europe", &id)

	h := srv.players.historyOf(id)
	require.NotNil(t, h)
	h.Add(context.Background(), "Red Fox")
	h.Add(context.Background(), "European Robin")

	resp := srv.do(t, http.MethodDelete, "/api/v1/me/history", nil, &id, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Zero(t, h.Len())
	assert.False(t, h.Has("Red Fox"))
}

func TestPlayer_ResetHistoryFailureKeepsLiveSessions(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)
	id := uuid.New()
	srv.createSession(t, "Europe", &id)

	h := srv.players.historyOf(id)
	require.NotNil(t, h)
	h.Add(context.Background(), "Red Fox")
	srv.players.mu.Lock()
	srv.players.err = errors.New("db down")
	srv.players.mu.Unlock()

	resp := srv.do(t, http.MethodDelete, "/api/v1/me/history", nil, &id, nil)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.True(t, h.Has("Red Fox"))
}

func TestPlayer_Journal(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)
	id := uuid.New()
	srv.players.journal[id] = []string{"Red Fox", "European Robin"}

	var list map[string][]string
	resp := srv.do(t, http.MethodGet, "/api/v1/me/journal", nil, &id, &list)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"Red Fox", "European Robin"}, list["items"])

	resp = srv.do(t, http.MethodDelete, "/api/v1/me/journal/Red%20Fox", nil, &id, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = srv.do(t, http.MethodDelete, "/api/v1/me/journal/Red%20Fox", nil, &id, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPlayer_Flags(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)
	id := uuid.New()

	assert.Equal(t, http.StatusNoContent, srv.do(t, http.MethodPut, "/api/v1/me/flags/tutorial_seen", nil, &id, nil).StatusCode)
	assert.Equal(t, http.StatusBadRequest,
		srv.do(t, http.MethodPut, "/api/v1/me/flags/"+strings.Repeat("x", 65), nil, &id, nil).StatusCode)

	var list map[string][]string
	srv.do(t, http.MethodGet, "/api/v1/me/flags", nil, &id, &list)
	assert.Equal(t, []string{"tutorial_seen"}, list["items"])
}

func TestPlayer_StatsAndRounds(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)
	id := uuid.New()

	var stats statsResponse
	resp := srv.do(t, http.MethodGet, "/api/v1/me/stats", nil, &id, &stats)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, statsResponse{Games: 12, Wins: 9, TotalScore: 30, AverageScore: 2.5, Tier: domain.PlayerTierExplorer}, stats)

	var rounds []outcomeResponse
	resp = srv.do(t, http.MethodGet, "/api/v1/me/rounds?limit=5", nil, &id, &rounds)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, rounds, 1)
	assert.Equal(t, domain.RoundResultWin, rounds[0].Result)

	resp = srv.do(t, http.MethodGet, "/api/v1/me/rounds?limit=abc", nil, &id, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPlayer_InternalErrorIsHidden(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)
	srv.players.err = errors.New("pq: connection reset")
	id := uuid.New()

	var errResp errorResponse
	resp := srv.do(t, http.MethodGet, "/api/v1/me/stats", nil, &id, &errResp)

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "internal error", errResp.Error)
	assert.Equal(t, "INTERNAL", errResp.Code)
}

// ---------------------------------------------------------------------------
// Probes
// ---------------------------------------------------------------------------

func TestProbes_OutsideMiddleware(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	resp := srv.do(t, http.MethodGet, "/live", nil, nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, resp.Header.Get(middleware.RequestIDHeader))
}
