package game

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/wildguess-backend/internal/domain"
	"github.com/heartmarshall/wildguess-backend/internal/service/game/round"
)

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

type mockTx struct{ calls int }

func (m *mockTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	m.calls++
	return fn(ctx)
}

type mockOutcomes struct {
	InsertFunc func(ctx context.Context, o domain.RoundOutcome) error
	inserted   []domain.RoundOutcome
}

func (m *mockOutcomes) Insert(ctx context.Context, o domain.RoundOutcome) error {
	m.inserted = append(m.inserted, o)
	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, o)
	}
	return nil
}

type mockEvents struct {
	appended []domain.GameEvent
	err      error
}

func (m *mockEvents) Append(_ context.Context, e domain.GameEvent) error {
	m.appended = append(m.appended, e)
	return m.err
}

type mockJournal struct{ queued []string }

func (m *mockJournal) QueueJournal(_ context.Context, _ uuid.UUID, species string) error {
	m.queued = append(m.queued, species)
	return nil
}

type recorderFixture struct {
	rec      *Recorder
	tx       *mockTx
	outcomes *mockOutcomes
	events   *mockEvents
	journal  *mockJournal
}

func newRecorderFixture() recorderFixture {
	f := recorderFixture{tx: &mockTx{}, outcomes: &mockOutcomes{}, events: &mockEvents{}, journal: &mockJournal{}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.rec = NewRecorder(logger, f.tx, f.outcomes, f.events, f.journal)
	return f
}

func resolvedState(result domain.RoundResult, score, clue int) round.State {
	return round.State{
		Phase:     domain.RoundPhaseResolved,
		ClueIndex: clue,
		Score:     score,
		Rejected:  []string{},
		Result:    &result,
		Target:    foxRecord("Europe"),
	}
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestRecorder_RoundResolved_PlayerWin(t *testing.T) {
	t.Parallel()
	f := newRecorderFixture()
	playerID := uuid.New()
	info := Info{SessionID: uuid.New(), PlayerID: &playerID, Region: "Europe"}

	f.rec.RoundResolved(context.Background(), info, resolvedState(domain.RoundResultWin, 3, 2), false)

	assert.Equal(t, 1, f.tx.calls)
	require.Len(t, f.outcomes.inserted, 1)
	o := f.outcomes.inserted[0]
	assert.Equal(t, playerID, o.PlayerID)
	assert.Equal(t, info.SessionID, o.SessionID)
	assert.Equal(t, fox.TaxonID, o.TaxonID)
	assert.Equal(t, domain.RoundResultWin, o.Result)
	assert.Equal(t, 3, o.Score)
	assert.Equal(t, 2, o.ClueIndex)
	assert.Equal(t, "Europe", o.Region)

	assert.Equal(t, []string{fox.Name}, f.journal.queued)

	require.Len(t, f.events.appended, 1)
	e := f.events.appended[0]
	assert.Equal(t, domain.GameEventRoundResolved, e.Type)
	assert.Equal(t, "WIN", e.Payload["result"])
	assert.Equal(t, "Europe", e.Payload["region"])
}

func TestRecorder_RoundResolved_LossSkipsJournal(t *testing.T) {
	t.Parallel()
	f := newRecorderFixture()
	playerID := uuid.New()

	f.rec.RoundResolved(context.Background(), Info{SessionID: uuid.New(), PlayerID: &playerID},
		resolvedState(domain.RoundResultLoss, 0, 4), false)

	assert.Len(t, f.outcomes.inserted, 1)
	assert.Empty(t, f.journal.queued)
	assert.Len(t, f.events.appended, 1)
}

func TestRecorder_RoundResolved_AnonymousOnlyLogsEvent(t *testing.T) {
	t.Parallel()
	f := newRecorderFixture()

	f.rec.RoundResolved(context.Background(), Info{SessionID: uuid.New()},
		resolvedState(domain.RoundResultWin, 5, 0), true)

	assert.Empty(t, f.outcomes.inserted)
	assert.Empty(t, f.journal.queued)
	require.Len(t, f.events.appended, 1)
	assert.Nil(t, f.events.appended[0].PlayerID)
	assert.Equal(t, true, f.events.appended[0].Payload["offline"])
}

func TestRecorder_RoundResolved_InsertErrorStopsTx(t *testing.T) {
	t.Parallel()
	f := newRecorderFixture()
	f.outcomes.InsertFunc = func(context.Context, domain.RoundOutcome) error { return errors.New("db down") }
	playerID := uuid.New()

	f.rec.RoundResolved(context.Background(), Info{SessionID: uuid.New(), PlayerID: &playerID},
		resolvedState(domain.RoundResultWin, 5, 0), false)

	assert.Empty(t, f.journal.queued)
	assert.Empty(t, f.events.appended)
}

func TestRecorder_RoundResolved_IgnoresUnresolved(t *testing.T) {
	t.Parallel()
	f := newRecorderFixture()

	f.rec.RoundResolved(context.Background(), Info{SessionID: uuid.New()}, round.Idle(), false)

	assert.Zero(t, f.tx.calls)
	assert.Empty(t, f.events.appended)
}

func TestRecorder_RoundStarted(t *testing.T) {
	t.Parallel()

	t.Run("online", func(t *testing.T) {
		t.Parallel()
		f := newRecorderFixture()
		f.rec.RoundStarted(context.Background(), Info{SessionID: uuid.New(), Region: "Any"}, foxRecord("Any"), false, 3)

		require.Len(t, f.events.appended, 1)
		assert.Equal(t, domain.GameEventRoundStarted, f.events.appended[0].Type)
		assert.Equal(t, 3, f.events.appended[0].Payload["attempts"])
	})

	t.Run("offline fallback", func(t *testing.T) {
		t.Parallel()
		f := newRecorderFixture()
		f.rec.RoundStarted(context.Background(), Info{SessionID: uuid.New()}, foxRecord("Any"), true, 20)

		require.Len(t, f.events.appended, 2)
		assert.Equal(t, domain.GameEventOfflineFallback, f.events.appended[1].Type)
	})

	t.Run("append error is swallowed", func(t *testing.T) {
		t.Parallel()
		f := newRecorderFixture()
		f.events.err = errors.New("db down")
		assert.NotPanics(t, func() {
			f.rec.RoundStarted(context.Background(), Info{SessionID: uuid.New()}, foxRecord("Any"), true, 20)
		})
	})
}

func TestRecorder_RegionChanged(t *testing.T) {
	t.Parallel()
	f := newRecorderFixture()

	f.rec.RegionChanged(context.Background(), Info{SessionID: uuid.New(), Region: "Europe"}, "Any")

	require.Len(t, f.events.appended, 1)
	e := f.events.appended[0]
	assert.Equal(t, domain.GameEventRegionChanged, e.Type)
	assert.Equal(t, "Any", e.Payload["from"])
	assert.Equal(t, "Europe", e.Payload["to"])
}
