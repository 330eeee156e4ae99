package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestListingQuery_ToSQL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		query         ListingQuery
		wantCountSQL  string
		wantArgs      []any
		wantDataHas   []string // substrings that must appear in dataSQL
		wantDataNotIn []string // substrings that must NOT appear
	}{
		{
			name:  "empty query uses defaults",
			query: ListingQuery{},
			wantDataHas: []string{
				"FROM listings",
				"ORDER BY first_seen_at DESC",
				"LIMIT 50",
				"OFFSET 0",
			},
			wantDataNotIn: []string{"WHERE"},
			wantCountSQL:  "SELECT COUNT(*) FROM listings",
			wantArgs:      nil,
		},
		{
			name: "strategy filter",
			query: ListingQuery{
				Strategy: ptr("buy"),
			},
			wantDataHas: []string{
				"WHERE strategy = $1",
				"LIMIT 50",
			},
			wantCountSQL: "SELECT COUNT(*) FROM listings WHERE strategy = $1",
			wantArgs:     []any{"buy"},
		},
		{
			name: "gate state filter",
			query: ListingQuery{
				GateState: ptr("needs_enrichment"),
			},
			wantDataHas:  []string{"WHERE gate_state = $1"},
			wantCountSQL: "SELECT COUNT(*) FROM listings WHERE gate_state = $1",
			wantArgs:     []any{"needs_enrichment"},
		},
		{
			name: "bundle type filter",
			query: ListingQuery{
				BundleType: ptr("quantity_bundle"),
			},
			wantDataHas:  []string{"WHERE bundle_type = $1"},
			wantCountSQL: "SELECT COUNT(*) FROM listings WHERE bundle_type = $1",
			wantArgs:     []any{"quantity_bundle"},
		},
		{
			name: "identity key filter",
			query: ListingQuery{
				IdentityKey: ptr("bose:quietcomfort_45:audio"),
			},
			wantDataHas:  []string{"WHERE identity_key = $1"},
			wantCountSQL: "SELECT COUNT(*) FROM listings WHERE identity_key = $1",
			wantArgs:     []any{"bose:quietcomfort_45:audio"},
		},
		{
			name: "min profit filter",
			query: ListingQuery{
				MinProfit: ptr(25.0),
			},
			wantDataHas:  []string{"WHERE expected_profit >= $1"},
			wantCountSQL: "SELECT COUNT(*) FROM listings WHERE expected_profit >= $1",
			wantArgs:     []any{25.0},
		},
		{
			name: "multiple filters with correct parameter numbering",
			query: ListingQuery{
				Strategy:  ptr("buy"),
				GateState: ptr("ready_for_pricing"),
				MinProfit: ptr(10.0),
			},
			wantDataHas: []string{
				"strategy = $1",
				"gate_state = $2",
				"expected_profit >= $3",
				" AND ",
			},
			wantCountSQL: "SELECT COUNT(*) FROM listings WHERE strategy = $1 AND gate_state = $2 AND expected_profit >= $3",
			wantArgs:     []any{"buy", "ready_for_pricing", 10.0},
		},
		{
			name: "order by profit",
			query: ListingQuery{
				OrderBy: "profit",
			},
			wantDataHas: []string{"ORDER BY expected_profit DESC NULLS LAST"},
		},
		{
			name: "order by price",
			query: ListingQuery{
				OrderBy: "price",
			},
			wantDataHas: []string{"ORDER BY current_price ASC"},
		},
		{
			name: "invalid order by falls back to default",
			query: ListingQuery{
				OrderBy: "DROP TABLE listings; --",
			},
			wantDataHas:   []string{"ORDER BY first_seen_at DESC"},
			wantDataNotIn: []string{"DROP TABLE"},
		},
		{
			name: "custom limit and offset",
			query: ListingQuery{
				Limit:  25,
				Offset: 100,
			},
			wantDataHas: []string{
				"LIMIT 25",
				"OFFSET 100",
			},
		},
		{
			name: "zero limit defaults to 50",
			query: ListingQuery{
				Limit: 0,
			},
			wantDataHas: []string{"LIMIT 50"},
		},
		{
			name: "limit exceeding max is capped",
			query: ListingQuery{
				Limit: 1000,
			},
			wantDataHas: []string{"LIMIT 500"},
		},
		{
			name: "negative offset defaults to 0",
			query: ListingQuery{
				Offset: -5,
			},
			wantDataHas: []string{"OFFSET 0"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			q := tt.query
			dataSQL, countSQL, args := q.ToSQL()

			for _, s := range tt.wantDataHas {
				assert.Contains(t, dataSQL, s, "dataSQL should contain %q", s)
			}

			for _, s := range tt.wantDataNotIn {
				assert.NotContains(t, dataSQL, s, "dataSQL should not contain %q", s)
			}

			if tt.wantCountSQL != "" {
				assert.Equal(t, tt.wantCountSQL, countSQL)
			}

			if tt.wantArgs != nil {
				require.Len(t, args, len(tt.wantArgs))
				assert.Equal(t, tt.wantArgs, args)
			} else {
				assert.Empty(t, args)
			}
		})
	}
}
