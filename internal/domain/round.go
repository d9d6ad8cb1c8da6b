package domain

import (
	"time"

	"github.com/google/uuid"
)

// RoundRecord is the finalized payload of one round. It is built once by
// acquisition and owned by the round until it resolves.
type RoundRecord struct {
	TaxonID        int          `json:"taxon_id"`
	SpeciesName    string       `json:"species_name"`
	ScientificName string       `json:"scientific_name"`
	Category       string       `json:"category"`
	Emoji          string       `json:"emoji"`
	ObservationID  int64        `json:"observation_id"`
	PhotoURL       string       `json:"photo_url"`
	Location       *Coordinates `json:"location"`
	PlaceGuess     string       `json:"place_guess"`
	Observer       string       `json:"observer"`
	URI            string       `json:"uri"`
	Hint1          string       `json:"hint1"`
	Hint2          string       `json:"hint2"`
	ObservedDate   string       `json:"observed_date"`
	Summary        *string      `json:"summary,omitempty"`
}

// RoundOutcome is what gets recorded once a round resolves.
type RoundOutcome struct {
	ID         uuid.UUID
	PlayerID   uuid.UUID
	SessionID  uuid.UUID
	TaxonID    int
	Species    string
	Region     string
	Result     RoundResult
	Score      int
	ClueIndex  int
	Offline    bool
	ResolvedAt time.Time
}

// GameEvent is an entry for the external event-log sink.
type GameEvent struct {
	ID        uuid.UUID
	PlayerID  *uuid.UUID
	SessionID uuid.UUID
	Type      GameEventType
	Payload   map[string]any
	CreatedAt time.Time
}
