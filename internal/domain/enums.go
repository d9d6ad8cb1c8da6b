package domain

// RoundPhase is the coarse state of a round's clue-reveal machine.
type RoundPhase string

const (
	RoundPhaseIdle               RoundPhase = "IDLE"
	RoundPhaseClueReveal         RoundPhase = "CLUE_REVEAL"
	RoundPhaseAwaitingFinalGuess RoundPhase = "AWAITING_FINAL_GUESS"
	RoundPhaseResolved           RoundPhase = "RESOLVED"
)

func (p RoundPhase) String() string { return string(p) }

func (p RoundPhase) IsValid() bool {
	switch p {
	case RoundPhaseIdle, RoundPhaseClueReveal, RoundPhaseAwaitingFinalGuess, RoundPhaseResolved:
		return true
	}
	return false
}

// Revealing reports whether guesses and skips are accepted in this phase.
func (p RoundPhase) Revealing() bool {
	return p == RoundPhaseClueReveal || p == RoundPhaseAwaitingFinalGuess
}

// RoundResult is the outcome of a resolved round.
type RoundResult string

const (
	RoundResultWin       RoundResult = "WIN"
	RoundResultLoss      RoundResult = "LOSS"
	RoundResultSurrender RoundResult = "SURRENDER"
)

func (r RoundResult) String() string { return string(r) }

func (r RoundResult) IsValid() bool {
	switch r {
	case RoundResultWin, RoundResultLoss, RoundResultSurrender:
		return true
	}
	return false
}

// GameEventType classifies entries written to the event log.
type GameEventType string

const (
	GameEventRoundStarted    GameEventType = "ROUND_STARTED"
	GameEventRoundResolved   GameEventType = "ROUND_RESOLVED"
	GameEventOfflineFallback GameEventType = "OFFLINE_FALLBACK"
	GameEventRegionChanged   GameEventType = "REGION_CHANGED"
)

func (t GameEventType) String() string { return string(t) }

func (t GameEventType) IsValid() bool {
	switch t {
	case GameEventRoundStarted, GameEventRoundResolved, GameEventOfflineFallback, GameEventRegionChanged:
		return true
	}
	return false
}

// PlayerList names one of the persisted per-player string lists.
type PlayerList string

const (
	PlayerListPlayed         PlayerList = "PLAYED"
	PlayerListJournalPending PlayerList = "JOURNAL_PENDING"
)

func (l PlayerList) String() string { return string(l) }

func (l PlayerList) IsValid() bool {
	switch l {
	case PlayerListPlayed, PlayerListJournalPending:
		return true
	}
	return false
}

// PlayerTier groups players on the all-time board by how many games they finished.
type PlayerTier string

const (
	PlayerTierHobbyist PlayerTier = "HOBBYIST"
	PlayerTierExplorer PlayerTier = "EXPLORER"
)

func (t PlayerTier) String() string { return string(t) }

// explorerMinGames is the first game count that promotes a player out of the hobbyist tier.
const explorerMinGames = 11

// TierForGames returns the tier for a player with the given number of finished games.
func TierForGames(games int) PlayerTier {
	if games >= explorerMinGames {
		return PlayerTierExplorer
	}
	return PlayerTierHobbyist
}
