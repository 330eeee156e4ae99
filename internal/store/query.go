package store

import (
	"fmt"
	"strings"
)

const (
	defaultLimit = 50
	maxLimit     = 500

	orderByProfit    = "profit"
	orderByPrice     = "price"
	orderByFirstSeen = "first_seen_at"
)

// validOrderBy maps allowed OrderBy values to their SQL column expressions.
var validOrderBy = map[string]string{
	orderByProfit:    "expected_profit DESC NULLS LAST",
	orderByPrice:     "current_price ASC",
	orderByFirstSeen: "first_seen_at DESC",
}

const defaultOrderBy = "first_seen_at DESC"

const baseListingsSelect = `SELECT id, source_id, title, item_url, COALESCE(image_url, ''),
	current_price, buy_now_price, currency,
	COALESCE(description, ''), COALESCE(category_hint, ''), end_time,
	COALESCE(normalized_title, ''), COALESCE(bundle_type, ''), COALESCE(bundle_confidence, 0),
	COALESCE(identity_key, ''), COALESCE(gate_state, ''),
	COALESCE(strategy, ''), COALESCE(skip_reason, ''),
	total_new, total_resale, expected_profit, COALESCE(components, '[]'),
	first_seen_at, updated_at
FROM listings`

const countListingsSelect = "SELECT COUNT(*) FROM listings"

// ToSQL builds the WHERE clause, ORDER BY, LIMIT, and OFFSET for a listing query.
// It returns two SQL strings (one for the data query, one for the count query)
// and the positional parameters.
func (q *ListingQuery) ToSQL() (dataSQL, countSQL string, args []any) {
	var conditions []string
	paramIdx := 1

	if q.Strategy != nil {
		conditions = append(conditions, fmt.Sprintf("strategy = $%d", paramIdx))
		args = append(args, *q.Strategy)
		paramIdx++
	}

	if q.GateState != nil {
		conditions = append(conditions, fmt.Sprintf("gate_state = $%d", paramIdx))
		args = append(args, *q.GateState)
		paramIdx++
	}

	if q.BundleType != nil {
		conditions = append(conditions, fmt.Sprintf("bundle_type = $%d", paramIdx))
		args = append(args, *q.BundleType)
		paramIdx++
	}

	if q.IdentityKey != nil {
		conditions = append(conditions, fmt.Sprintf("identity_key = $%d", paramIdx))
		args = append(args, *q.IdentityKey)
		paramIdx++
	}

	if q.MinProfit != nil {
		conditions = append(conditions, fmt.Sprintf("expected_profit >= $%d", paramIdx))
		args = append(args, *q.MinProfit)
	}

	var whereClause string
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	// Order by
	orderClause := defaultOrderBy
	if q.OrderBy != "" {
		if col, ok := validOrderBy[q.OrderBy]; ok {
			orderClause = col
		}
	}

	// Limit
	limit := q.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	offset := max(q.Offset, 0)

	dataSQL = fmt.Sprintf(
		"%s%s ORDER BY %s LIMIT %d OFFSET %d",
		baseListingsSelect, whereClause, orderClause, limit, offset,
	)

	countSQL = countListingsSelect + whereClause

	return dataSQL, countSQL, args
}
