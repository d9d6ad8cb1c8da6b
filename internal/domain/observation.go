package domain

import "time"

// Annotation is a controlled-vocabulary property attached to an observation
// (life status, evidence type, ...).
type Annotation struct {
	AttributeID int
	ValueID     int
}

// Photo is one media item of an observation.
type Photo struct {
	URL         string
	Description string
	Title       string
}

// Coordinates is a latitude/longitude pair in decimal degrees.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// ObservationRecord is a single upstream observation. It is evaluated and
// either promoted to a RoundRecord or discarded.
type ObservationRecord struct {
	ID          int64
	TaxonID     int
	Photos      []Photo
	Location    *Coordinates
	PlaceGuess  string
	Observer    string
	URI         string
	ObservedOn  string // YYYY-MM-DD as reported upstream, may be empty
	CreatedAt   time.Time
	Annotations []Annotation

	// StructuredText is a JSON object of observation field name/value pairs.
	StructuredText string

	Description       string
	OccurrenceRemarks string
	FieldNotes        string
	Tags              []string
}

// FirstPhotoURL returns the URL of the first photo, or "" if the record has none.
func (r ObservationRecord) FirstPhotoURL() string {
	for _, p := range r.Photos {
		if p.URL != "" {
			return p.URL
		}
	}
	return ""
}
