package game

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/wildguess-backend/internal/domain"
	"github.com/heartmarshall/wildguess-backend/internal/service/game/round"
)

const recordTimeout = 5 * time.Second

type txManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type outcomeStore interface {
	Insert(ctx context.Context, o domain.RoundOutcome) error
}

type eventStore interface {
	Append(ctx context.Context, e domain.GameEvent) error
}

type journalQueue interface {
	QueueJournal(ctx context.Context, playerID uuid.UUID, species string) error
}

// Recorder persists what happens in sessions: the event log for every
// session, plus scores and the pending journal for known players.
// Recording is best-effort; failures are logged and never reach the game.
type Recorder struct {
	log      *slog.Logger
	tx       txManager
	outcomes outcomeStore
	events   eventStore
	journal  journalQueue
	now      func() time.Time
}

// NewRecorder creates a new Recorder.
func NewRecorder(logger *slog.Logger, tx txManager, outcomes outcomeStore, events eventStore, journal journalQueue) *Recorder {
	return &Recorder{
		log:      logger.With("service", "recorder"),
		tx:       tx,
		outcomes: outcomes,
		events:   events,
		journal:  journal,
		now:      time.Now,
	}
}

// RoundStarted logs ROUND_STARTED, and OFFLINE_FALLBACK when the record came
// from the backup dataset.
func (r *Recorder) RoundStarted(ctx context.Context, info Info, rec domain.RoundRecord, offline bool, attempts int) {
	ctx, cancel := detach(ctx)
	defer cancel()

	r.append(ctx, r.event(info, domain.GameEventRoundStarted, map[string]any{
		"taxon_id":       rec.TaxonID,
		"observation_id": rec.ObservationID,
		"offline":        offline,
		"attempts":       attempts,
	}))
	if offline {
		r.append(ctx, r.event(info, domain.GameEventOfflineFallback, map[string]any{
			"attempts": attempts,
		}))
	}
}

// RoundResolved stores the outcome, queues a won species for the journal
// and logs ROUND_RESOLVED in one transaction. Anonymous sessions only get
// the event.
func (r *Recorder) RoundResolved(ctx context.Context, info Info, st round.State, offline bool) {
	if st.Result == nil {
		return
	}
	ctx, cancel := detach(ctx)
	defer cancel()

	now := r.now()
	result := *st.Result
	ev := r.event(info, domain.GameEventRoundResolved, map[string]any{
		"taxon_id":   st.Target.TaxonID,
		"species":    st.Target.SpeciesName,
		"result":     string(result),
		"score":      st.Score,
		"clue_index": st.ClueIndex,
		"rejected":   st.Rejected,
		"offline":    offline,
	})

	err := r.tx.RunInTx(ctx, func(ctx context.Context) error {
		if info.PlayerID != nil {
			outcome := domain.RoundOutcome{
				ID:         uuid.New(),
				PlayerID:   *info.PlayerID,
				SessionID:  info.SessionID,
				TaxonID:    st.Target.TaxonID,
				Species:    st.Target.SpeciesName,
				Region:     info.Region,
				Result:     result,
				Score:      st.Score,
				ClueIndex:  st.ClueIndex,
				Offline:    offline,
				ResolvedAt: now,
			}
			if err := r.outcomes.Insert(ctx, outcome); err != nil {
				return err
			}
			if result == domain.RoundResultWin {
				if err := r.journal.QueueJournal(ctx, *info.PlayerID, st.Target.SpeciesName); err != nil {
					return err
				}
			}
		}
		return r.events.Append(ctx, ev)
	})
	if err != nil {
		r.log.ErrorContext(ctx, "record round outcome",
			slog.String("session_id", info.SessionID.String()),
			slog.String("error", err.Error()),
		)
	}
}

// RegionChanged logs REGION_CHANGED.
func (r *Recorder) RegionChanged(ctx context.Context, info Info, from string) {
	ctx, cancel := detach(ctx)
	defer cancel()

	r.append(ctx, r.event(info, domain.GameEventRegionChanged, map[string]any{
		"from": from,
		"to":   info.Region,
	}))
}

func (r *Recorder) event(info Info, typ domain.GameEventType, payload map[string]any) domain.GameEvent {
	payload["region"] = info.Region
	return domain.GameEvent{
		ID:        uuid.New(),
		PlayerID:  info.PlayerID,
		SessionID: info.SessionID,
		Type:      typ,
		Payload:   payload,
		CreatedAt: r.now(),
	}
}

func (r *Recorder) append(ctx context.Context, e domain.GameEvent) {
	if err := r.events.Append(ctx, e); err != nil {
		r.log.ErrorContext(ctx, "append game event",
			slog.String("type", string(e.Type)),
			slog.String("session_id", e.SessionID.String()),
			slog.String("error", err.Error()),
		)
	}
}

// detach keeps request values (request id) but not the request's
// cancellation: an outcome is recorded even if the client went away.
func detach(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
}
