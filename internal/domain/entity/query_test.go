package entity_test

import (
	"math"
	"testing"

	"amp-whale-tracker/internal/domain/entity"
)

func TestQueryParamsValidate(t *testing.T) {
	tests := []struct {
		name    string
		params  entity.QueryParams
		wantErr bool
	}{
		{"valid defaults", entity.QueryParams{MinEth: 50, WindowHours: 6, Limit: 200}, false},
		{"smallest values", entity.QueryParams{MinEth: 0.000001, WindowHours: 1, Limit: 1}, false},
		{"largest values", entity.QueryParams{MinEth: 1e9, WindowHours: 720, Limit: 1000}, false},
		{"zero threshold", entity.QueryParams{MinEth: 0, WindowHours: 6, Limit: 200}, true},
		{"negative threshold", entity.QueryParams{MinEth: -1, WindowHours: 6, Limit: 200}, true},
		{"nan threshold", entity.QueryParams{MinEth: math.NaN(), WindowHours: 6, Limit: 200}, true},
		{"inf threshold", entity.QueryParams{MinEth: math.Inf(1), WindowHours: 6, Limit: 200}, true},
		{"window too small", entity.QueryParams{MinEth: 50, WindowHours: 0, Limit: 200}, true},
		{"window too large", entity.QueryParams{MinEth: 50, WindowHours: 721, Limit: 200}, true},
		{"limit too small", entity.QueryParams{MinEth: 50, WindowHours: 6, Limit: 0}, true},
		{"limit too large", entity.QueryParams{MinEth: 50, WindowHours: 6, Limit: 1001}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if tt.wantErr && err == nil {
				t.Fatalf("expected validation error for %+v", tt.params)
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected validation error: %v", err)
			}
			if !tt.wantErr {
				return
			}
			qerr, ok := entity.AsQueryError(err)
			if !ok {
				t.Fatalf("expected a query error, got %T", err)
			}
			if qerr.Kind != entity.ErrKindInvalidParameter {
				t.Errorf("expected kind %q, got %q", entity.ErrKindInvalidParameter, qerr.Kind)
			}
		})
	}
}

func TestQueryParamsKey(t *testing.T) {
	params := entity.QueryParams{MinEth: 50, WindowHours: 6, Limit: 200}
	if got, want := params.Key(), "min=50&window=6&limit=200"; got != want {
		t.Errorf("expected key %q, got %q", want, got)
	}

	fractional := entity.QueryParams{MinEth: 12.5, WindowHours: 1, Limit: 10}
	if got, want := fractional.Key(), "min=12.5&window=1&limit=10"; got != want {
		t.Errorf("expected key %q, got %q", want, got)
	}

	// Equal parameters must collide, different ones must not.
	same := entity.QueryParams{MinEth: 50, WindowHours: 6, Limit: 200}
	if params.Key() != same.Key() {
		t.Error("equal parameters produced different keys")
	}
	other := entity.QueryParams{MinEth: 50, WindowHours: 12, Limit: 200}
	if params.Key() == other.Key() {
		t.Error("different parameters produced the same key")
	}
}

func TestQueryParamsForLeaderboard(t *testing.T) {
	params := entity.QueryParams{MinEth: 50, WindowHours: 6, Limit: 200}
	lb := params.ForLeaderboard(20)
	if lb.WindowHours != 12 {
		t.Errorf("expected doubled window 12, got %d", lb.WindowHours)
	}
	if lb.Limit != 20 {
		t.Errorf("expected limit 20, got %d", lb.Limit)
	}
	if lb.MinEth != 50 {
		t.Errorf("expected threshold carried over, got %v", lb.MinEth)
	}

	// Doubling never exceeds the validation ceiling.
	wide := entity.QueryParams{MinEth: 50, WindowHours: 700, Limit: 200}
	if got := wide.ForLeaderboard(20).WindowHours; got != entity.MaxWindowHours {
		t.Errorf("expected capped window %d, got %d", entity.MaxWindowHours, got)
	}
	if err := wide.ForLeaderboard(20).Validate(); err != nil {
		t.Errorf("capped leaderboard params failed validation: %v", err)
	}
}
