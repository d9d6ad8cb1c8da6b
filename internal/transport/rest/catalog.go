package rest

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/heartmarshall/wildguess-backend/internal/domain"
	"github.com/heartmarshall/wildguess-backend/internal/service/species"
)

type speciesService interface {
	Regions() []domain.Region
	Region(name string) (domain.Region, error)
	Species(ctx context.Context, region domain.Region) ([]domain.Species, error)
	Search(ctx context.Context, region domain.Region, query string, limit int) ([]species.Match, error)
}

// CatalogHandler serves the static species catalog.
type CatalogHandler struct {
	svc speciesService
	log *slog.Logger
}

// NewCatalogHandler creates a CatalogHandler.
func NewCatalogHandler(svc speciesService, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{svc: svc, log: logger.With("handler", "catalog")}
}

type regionResponse struct {
	Name    string `json:"name"`
	PlaceID int    `json:"placeId"`
}

type speciesResponse struct {
	TaxonID        int    `json:"taxonId"`
	Name           string `json:"name"`
	ScientificName string `json:"scientificName"`
	Category       string `json:"category"`
	Emoji          string `json:"emoji,omitempty"`
}

type matchResponse struct {
	speciesResponse
	Score  float64 `json:"score"`
	Source string  `json:"source"`
}

func toRegionResponse(r domain.Region) regionResponse {
	return regionResponse{Name: r.Name, PlaceID: r.PlaceID}
}

// toSpeciesResponse leaves out the hints: they are clues.
func toSpeciesResponse(sp domain.Species) speciesResponse {
	return speciesResponse{
		TaxonID:        sp.TaxonID,
		Name:           sp.Name,
		ScientificName: sp.ScientificName,
		Category:       sp.Category,
		Emoji:          sp.Emoji,
	}
}

func toSpeciesList(list []domain.Species) []speciesResponse {
	out := make([]speciesResponse, len(list))
	for i, sp := range list {
		out[i] = toSpeciesResponse(sp)
	}
	return out
}

// Regions handles GET /api/v1/regions.
func (h *CatalogHandler) Regions(w http.ResponseWriter, _ *http.Request) {
	regions := h.svc.Regions()
	out := make([]regionResponse, len(regions))
	for i, r := range regions {
		out[i] = toRegionResponse(r)
	}
	writeJSON(w, http.StatusOK, out)
}

// Species handles GET /api/v1/regions/{region}/species.
func (h *CatalogHandler) Species(w http.ResponseWriter, r *http.Request) {
	region, err := h.svc.Region(r.PathValue("region"))
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	list, err := h.svc.Species(r.Context(), region)
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSpeciesList(list))
}

// Search handles GET /api/v1/regions/{region}/species/search?q=&limit=.
func (h *CatalogHandler) Search(w http.ResponseWriter, r *http.Request) {
	region, err := h.svc.Region(r.PathValue("region"))
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	matches, err := h.svc.Search(r.Context(), region, r.URL.Query().Get("q"), limit)
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	out := make([]matchResponse, len(matches))
	for i, m := range matches {
		out[i] = matchResponse{speciesResponse: toSpeciesResponse(m.Species), Score: m.Score, Source: m.Source}
	}
	writeJSON(w, http.StatusOK, out)
}
