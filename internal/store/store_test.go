package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sellerfin/offer-engine/internal/model"
)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

var baseTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func testAnalysis(i int, v model.Viability) *model.Analysis {
	return &model.Analysis{
		ID:      fmt.Sprintf("00000000-0000-0000-0000-%012d", i),
		Address: fmt.Sprintf("%d Elm St", i),
		Property: model.PropertyData{
			ListedPrice:        d(87000),
			MonthlyRent:        d(1150.5),
			MonthlyPropertyTax: d(95),
			MonthlyInsurance:   d(80),
			MonthlyHOAFee:      d(0),
			MonthlyOtherFees:   d(150),
		},
		Offers: []model.OfferResult{{
			OfferType:         model.OwnerFavored,
			IsBuyable:         true,
			Viability:         v,
			ViabilityReasons:  []string{"reason"},
			MonthlyPayment:    d(601.98),
			AmortizationYears: decimal.NewNullDecimal(d(11.36)),
		}, {
			OfferType:        model.BuyerFavored,
			Viability:        model.NotViable,
			ViabilityReasons: []string{"other"},
		}},
		BestViability: v,
		CreatedAt:     baseTime.Add(time.Duration(i) * time.Minute),
	}
}

// runStoreSuite exercises the Store contract against any implementation.
func runStoreSuite(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("save and get", func(t *testing.T) {
		s := newStore(t)
		a := testAnalysis(1, model.Good)
		if err := s.SaveAnalysis(ctx, a); err != nil {
			t.Fatalf("save: %v", err)
		}

		got, err := s.GetAnalysis(ctx, a.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.Address != a.Address || got.BestViability != model.Good {
			t.Errorf("unexpected analysis: %+v", got)
		}
		if !got.Property.MonthlyRent.Equal(d(1150.5)) {
			t.Errorf("expected rent 1150.5, got %s", got.Property.MonthlyRent)
		}
		if !got.CreatedAt.Equal(a.CreatedAt) {
			t.Errorf("expected created_at %v, got %v", a.CreatedAt, got.CreatedAt)
		}
		if len(got.Offers) != 2 {
			t.Fatalf("expected 2 offers, got %d", len(got.Offers))
		}
		if got.Offers[1].OfferType != model.BuyerFavored {
			t.Errorf("expected buyer_favored second, got %s", got.Offers[1].OfferType)
		}
		if !got.Offers[0].AmortizationYears.Valid || !got.Offers[0].AmortizationYears.Decimal.Equal(d(11.36)) {
			t.Errorf("amortization years not preserved: %+v", got.Offers[0].AmortizationYears)
		}
		if got.Offers[1].AmortizationYears.Valid {
			t.Error("null amortization years should stay null")
		}
	})

	t.Run("get missing", func(t *testing.T) {
		s := newStore(t)
		_, err := s.GetAnalysis(ctx, "00000000-0000-0000-0000-000000000999")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("list newest first with filter and limit", func(t *testing.T) {
		s := newStore(t)
		viabilities := []model.Viability{model.Good, model.Marginal, model.Good, model.NotViable, model.Good}
		for i, v := range viabilities {
			if err := s.SaveAnalysis(ctx, testAnalysis(i+1, v)); err != nil {
				t.Fatalf("save %d: %v", i, err)
			}
		}

		all, err := s.ListAnalyses(ctx, ListFilter{})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(all) != 5 {
			t.Fatalf("expected 5 analyses, got %d", len(all))
		}
		for i := 1; i < len(all); i++ {
			if all[i].CreatedAt.After(all[i-1].CreatedAt) {
				t.Errorf("list not newest first at %d", i)
			}
		}

		good, err := s.ListAnalyses(ctx, ListFilter{Viability: model.Good, Limit: 2})
		if err != nil {
			t.Fatalf("list good: %v", err)
		}
		if len(good) != 2 {
			t.Fatalf("expected 2 good analyses, got %d", len(good))
		}
		if good[0].ID != testAnalysis(5, model.Good).ID || good[1].ID != testAnalysis(3, model.Good).ID {
			t.Errorf("unexpected good analyses: %s, %s", good[0].ID, good[1].ID)
		}
	})

	t.Run("delete", func(t *testing.T) {
		s := newStore(t)
		a := testAnalysis(1, model.Marginal)
		if err := s.SaveAnalysis(ctx, a); err != nil {
			t.Fatalf("save: %v", err)
		}
		if err := s.DeleteAnalysis(ctx, a.ID); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if _, err := s.GetAnalysis(ctx, a.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound after delete, got %v", err)
		}
		if err := s.DeleteAnalysis(ctx, a.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("second delete should be ErrNotFound, got %v", err)
		}
	})

	t.Run("duplicate id rejected", func(t *testing.T) {
		s := newStore(t)
		a := testAnalysis(1, model.Good)
		if err := s.SaveAnalysis(ctx, a); err != nil {
			t.Fatalf("save: %v", err)
		}
		if err := s.SaveAnalysis(ctx, a); err == nil {
			t.Error("expected error saving duplicate id")
		}
	})
}

func TestMemoryStore(t *testing.T) {
	runStoreSuite(t, func(*testing.T) Store { return NewMemoryStore() })
}

func TestSQLiteStore(t *testing.T) {
	runStoreSuite(t, func(t *testing.T) Store {
		s, err := OpenSQLite(filepath.Join(t.TempDir(), "analyses.db"))
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	a := testAnalysis(1, model.Good)
	if err := s.SaveAnalysis(ctx, a); err != nil {
		t.Fatalf("save: %v", err)
	}

	a.Offers[0].ViabilityReasons[0] = "mutated"
	got, _ := s.GetAnalysis(ctx, a.ID)
	if got.Offers[0].ViabilityReasons[0] != "reason" {
		t.Error("store shares slices with the caller")
	}

	got.Address = "elsewhere"
	again, _ := s.GetAnalysis(ctx, a.ID)
	if again.Address == "elsewhere" {
		t.Error("returned analysis aliases stored state")
	}
}

func TestListFilter_EffectiveLimit(t *testing.T) {
	tests := []struct {
		limit, want int
	}{
		{0, DefaultListLimit},
		{-3, DefaultListLimit},
		{10, 10},
		{MaxListLimit, MaxListLimit},
		{MaxListLimit + 1, MaxListLimit},
	}
	for _, tt := range tests {
		if got := (ListFilter{Limit: tt.limit}).EffectiveLimit(); got != tt.want {
			t.Errorf("limit %d: expected %d, got %d", tt.limit, tt.want, got)
		}
	}
}
