// Package offer provides the HTTP handlers and business logic for
// calculating seller-finance offers and managing saved analyses.
package offer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sellerfin/offer-engine/internal/calculator"
	"github.com/sellerfin/offer-engine/internal/metrics"
	"github.com/sellerfin/offer-engine/internal/model"
	"github.com/sellerfin/offer-engine/internal/property"
	"github.com/sellerfin/offer-engine/internal/store"
)

// maxBodyBytes bounds request bodies; a property is a few hundred bytes.
const maxBodyBytes = 1 << 20

// maxAddressLen bounds the free-form address label.
const maxAddressLen = 512

// Service runs calculations and persists analyses. The calculator is
// stateless, so handlers need no locking of their own.
type Service struct {
	calc  *calculator.Calculator
	store store.Store
	wsHub *WSHub // optional WebSocket hub for analysis events
	now   func() time.Time
}

// NewService creates a new offer service.
// Pass nil for hub if WebSocket broadcasting is not needed.
func NewService(calc *calculator.Calculator, st store.Store, hub *WSHub) *Service {
	return &Service{
		calc:  calc,
		store: st,
		wsHub: hub,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Routes mounts the service's endpoints on r.
func (s *Service) Routes(r chi.Router) {
	r.Post("/offers/calculate", s.CalculateOffers)
	r.Get("/profiles", s.GetProfiles)

	r.Route("/analyses", func(r chi.Router) {
		r.Post("/", s.CreateAnalysis)
		r.Get("/", s.ListAnalyses)
		r.Get("/{analysisID}", s.GetAnalysis)
		r.Delete("/{analysisID}", s.DeleteAnalysis)
	})

	if s.wsHub != nil {
		r.Get("/ws", s.wsHub.HandleWS)
	}
}

// --- Request/Response types ---

// CalculateResponse is the JSON body returned from POST /offers/calculate.
type CalculateResponse struct {
	Offers []model.OfferResult `json:"offers"`
}

// CreateAnalysisRequest is the JSON body for POST /analyses.
type CreateAnalysisRequest struct {
	Address  string             `json:"address"`
	Property model.PropertyData `json:"property"`
}

// --- Business logic ---

// Calculate validates p and derives its three offers.
func (s *Service) Calculate(p model.PropertyData) ([]model.OfferResult, error) {
	if err := property.Validate(p); err != nil {
		metrics.InvalidInputs.Inc()
		return nil, err
	}

	start := time.Now()
	offers := s.calc.Calculate(p)
	metrics.CalculationLatency.Observe(time.Since(start).Seconds())

	for _, o := range offers {
		metrics.OffersTotal.WithLabelValues(o.OfferType.String(), string(o.Viability)).Inc()
	}
	return offers, nil
}

// Analyze calculates offers for p and persists them as a new analysis.
func (s *Service) Analyze(ctx context.Context, address string, p model.PropertyData) (*model.Analysis, error) {
	address = strings.TrimSpace(address)
	if len(address) > maxAddressLen {
		return nil, fmt.Errorf("%w: address longer than %d characters", property.ErrInvalidInput, maxAddressLen)
	}

	offers, err := s.Calculate(p)
	if err != nil {
		return nil, err
	}

	a := &model.Analysis{
		ID:            uuid.New().String(),
		Address:       address,
		Property:      p,
		Offers:        offers,
		BestViability: model.BestViability(offers),
		CreatedAt:     s.now(),
	}
	if err := s.store.SaveAnalysis(ctx, a); err != nil {
		return nil, fmt.Errorf("save analysis: %w", err)
	}
	metrics.AnalysesSaved.WithLabelValues(string(a.BestViability)).Inc()

	slog.Info("analysis saved",
		"id", a.ID,
		"address", a.Address,
		"listed_price", p.ListedPrice.String(),
		"monthly_rent", p.MonthlyRent.String(),
		"best_viability", a.BestViability,
	)

	if s.wsHub != nil {
		s.wsHub.Broadcast(WSMessage{
			Type:          EventAnalysisSaved,
			AnalysisID:    a.ID,
			Address:       a.Address,
			BestViability: a.BestViability,
		})
	}
	return a, nil
}

// --- HTTP Handlers ---

// CalculateOffers handles POST /api/v1/offers/calculate
func (s *Service) CalculateOffers(w http.ResponseWriter, r *http.Request) {
	var p model.PropertyData
	if err := decodeBody(w, r, &p); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	offers, err := s.Calculate(p)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, CalculateResponse{Offers: offers})
}

// CreateAnalysis handles POST /api/v1/analyses
func (s *Service) CreateAnalysis(w http.ResponseWriter, r *http.Request) {
	var req CreateAnalysisRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	a, err := s.Analyze(r.Context(), req.Address, req.Property)
	if errors.Is(err, property.ErrInvalidInput) {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		slog.Error("analysis failed", "err", err)
		writeError(w, "failed to save analysis", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, a)
}

// ListAnalyses handles GET /api/v1/analyses
// Optional query parameters: ?viability=<not_viable|marginal|good>&limit=<n>.
func (s *Service) ListAnalyses(w http.ResponseWriter, r *http.Request) {
	var f store.ListFilter

	q := r.URL.Query()
	if v := q.Get("viability"); v != "" {
		parsed, err := model.ParseViability(v)
		if err != nil {
			writeError(w, "viability must be not_viable, marginal or good", http.StatusBadRequest)
			return
		}
		f.Viability = parsed
	}
	if l := q.Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n <= 0 {
			writeError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		f.Limit = n
	}

	analyses, err := s.store.ListAnalyses(r.Context(), f)
	if err != nil {
		slog.Error("list analyses failed", "err", err)
		writeError(w, "failed to list analyses", http.StatusInternalServerError)
		return
	}
	if analyses == nil {
		analyses = []model.Analysis{}
	}

	writeJSON(w, http.StatusOK, analyses)
}

// GetAnalysis handles GET /api/v1/analyses/{analysisID}
func (s *Service) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "analysisID")

	a, err := s.store.GetAnalysis(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, "analysis not found", http.StatusNotFound)
		return
	}
	if err != nil {
		slog.Error("get analysis failed", "id", id, "err", err)
		writeError(w, "failed to load analysis", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, a)
}

// DeleteAnalysis handles DELETE /api/v1/analyses/{analysisID}
func (s *Service) DeleteAnalysis(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "analysisID")

	err := s.store.DeleteAnalysis(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, "analysis not found", http.StatusNotFound)
		return
	}
	if err != nil {
		slog.Error("delete analysis failed", "id", id, "err", err)
		writeError(w, "failed to delete analysis", http.StatusInternalServerError)
		return
	}

	slog.Info("analysis deleted", "id", id)
	if s.wsHub != nil {
		s.wsHub.Broadcast(WSMessage{Type: EventAnalysisDeleted, AnalysisID: id})
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetProfiles handles GET /api/v1/profiles
// Returns the active calculator configuration, including every profile.
func (s *Service) GetProfiles(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.calc.Config())
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}
