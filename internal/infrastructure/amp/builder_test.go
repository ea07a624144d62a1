package amp_test

import (
	"strings"
	"testing"

	"amp-whale-tracker/internal/domain/entity"
	"amp-whale-tracker/internal/infrastructure/amp"
)

func TestWhaleTransfersQuery(t *testing.T) {
	builder := amp.NewQueryBuilder("ethereum/eth_rpc@latest")

	query, err := builder.WhaleTransfersQuery(entity.QueryParams{MinEth: 50, WindowHours: 6, Limit: 200})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, fragment := range []string{
		`FROM "ethereum/eth_rpc@latest".transactions`,
		`CAST(value AS DOUBLE) >= 50000000000000000000`,
		`INTERVAL '6 hours'`,
		`"to" IS NOT NULL`,
		`ORDER BY timestamp DESC`,
		`LIMIT 200`,
	} {
		if !strings.Contains(query, fragment) {
			t.Errorf("query missing %q:\n%s", fragment, query)
		}
	}
	if strings.Contains(query, "%!") {
		t.Errorf("query contains a formatting artifact:\n%s", query)
	}
}

func TestTopAddressesQuery(t *testing.T) {
	builder := amp.NewQueryBuilder("ethereum/eth_rpc@latest")

	query, err := builder.TopAddressesQuery(entity.QueryParams{MinEth: 100, WindowHours: 12, Limit: 20})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, fragment := range []string{
		`GROUP BY "from"`,
		`HAVING COUNT(*) >= 2`,
		`CAST(value AS DOUBLE) >= 100000000000000000000`,
		`INTERVAL '12 hours'`,
		`ORDER BY total_eth_sent DESC`,
		`LIMIT 20`,
	} {
		if !strings.Contains(query, fragment) {
			t.Errorf("query missing %q:\n%s", fragment, query)
		}
	}
}

func TestWhaleCountQuery(t *testing.T) {
	builder := amp.NewQueryBuilder("ethereum/eth_rpc@latest")

	query, err := builder.WhaleCountQuery(50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(query, "COUNT(*) AS whale_count") {
		t.Errorf("query missing count column:\n%s", query)
	}
	if strings.Contains(query, "INTERVAL") {
		t.Errorf("count query must not be windowed:\n%s", query)
	}

	if _, err := builder.WhaleCountQuery(0); err == nil {
		t.Fatal("expected error for zero threshold")
	}
}

func TestQueryBuilderRejectsInvalidParams(t *testing.T) {
	builder := amp.NewQueryBuilder("ethereum/eth_rpc@latest")

	_, err := builder.WhaleTransfersQuery(entity.QueryParams{MinEth: -5, WindowHours: 6, Limit: 200})
	if err == nil {
		t.Fatal("expected error for negative threshold")
	}
	qerr, ok := entity.AsQueryError(err)
	if !ok || qerr.Kind != entity.ErrKindInvalidParameter {
		t.Fatalf("expected invalid_parameter, got %v", err)
	}

	_, err = builder.TopAddressesQuery(entity.QueryParams{MinEth: 50, WindowHours: 1000, Limit: 20})
	if err == nil {
		t.Fatal("expected error for oversized window")
	}
}

func TestWeiLiteral(t *testing.T) {
	tests := []struct {
		eth  float64
		want string
	}{
		{1, "1000000000000000000"},
		{50, "50000000000000000000"},
		{0.5, "500000000000000000"},
		{1000000, "1000000000000000000000000"},
	}

	for _, tt := range tests {
		got := amp.WeiLiteral(tt.eth)
		if got != tt.want {
			t.Errorf("WeiLiteral(%v) = %q, want %q", tt.eth, got, tt.want)
		}
		if strings.ContainsAny(got, "e.+") {
			t.Errorf("WeiLiteral(%v) = %q is not a plain integer literal", tt.eth, got)
		}
	}
}
