package inaturalist

// apiObservationPage is the JSON envelope of GET /observations.
type apiObservationPage struct {
	TotalResults int              `json:"total_results"`
	PerPage      int              `json:"per_page"`
	Results      []apiObservation `json:"results"`
}

type apiObservation struct {
	ID                int64           `json:"id"`
	Taxon             *apiTaxonRef    `json:"taxon"`
	Photos            []apiPhoto      `json:"photos"`
	GeoJSON           *apiGeoJSON     `json:"geojson"`
	PlaceGuess        string          `json:"place_guess"`
	ObservedOn        string          `json:"observed_on"`
	CreatedAt         string          `json:"created_at"`
	User              *apiUser        `json:"user"`
	URI               string          `json:"uri"`
	Annotations       []apiAnnotation `json:"annotations"`
	Description       string          `json:"description"`
	OccurrenceRemarks string          `json:"occurrence_remarks"`
	FieldNotes        string          `json:"field_notes"`
	Tags              []string        `json:"tags"`
	FieldValues       []apiFieldValue `json:"ofvs"`
}

type apiTaxonRef struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type apiPhoto struct {
	ID          int64  `json:"id"`
	URL         string `json:"url"`
	Attribution string `json:"attribution"`
	Description string `json:"description"`
	Title       string `json:"title"`
}

// apiGeoJSON coordinates are in [lng, lat] order.
type apiGeoJSON struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

type apiUser struct {
	Login string `json:"login"`
}

type apiAnnotation struct {
	ControlledAttributeID int `json:"controlled_attribute_id"`
	ControlledValueID     int `json:"controlled_value_id"`
}

type apiFieldValue struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// apiTaxaPage is the JSON envelope of GET /taxa/{id}.
type apiTaxaPage struct {
	Results []apiTaxon `json:"results"`
}

type apiTaxon struct {
	ID               int    `json:"id"`
	Name             string `json:"name"`
	WikipediaSummary string `json:"wikipedia_summary"`
}
