package store

// SQL query constants organized by entity. All SQL lives here so
// PostgresStore methods stay readable.

// Listing queries.
const (
	queryUpsertListing = `
		INSERT INTO listings (
			source_id, title, item_url, image_url,
			current_price, buy_now_price, currency,
			description, category_hint, end_time,
			first_seen_at, updated_at
		) VALUES (
			@source_id, @title, @item_url, @image_url,
			@current_price, @buy_now_price, @currency,
			@description, @category_hint, @end_time,
			now(), now()
		)
		ON CONFLICT (source_id) DO UPDATE SET
			title = EXCLUDED.title,
			item_url = EXCLUDED.item_url,
			image_url = EXCLUDED.image_url,
			current_price = EXCLUDED.current_price,
			buy_now_price = EXCLUDED.buy_now_price,
			currency = EXCLUDED.currency,
			category_hint = EXCLUDED.category_hint,
			end_time = EXCLUDED.end_time,
			updated_at = now()
		RETURNING id, first_seen_at, updated_at`

	queryGetListingBySourceID = `
		SELECT id, source_id, title, item_url, COALESCE(image_url, ''),
			current_price, buy_now_price, currency,
			COALESCE(description, ''), COALESCE(category_hint, ''), end_time,
			COALESCE(normalized_title, ''), COALESCE(bundle_type, ''), COALESCE(bundle_confidence, 0),
			COALESCE(identity_key, ''), COALESCE(gate_state, ''),
			COALESCE(strategy, ''), COALESCE(skip_reason, ''),
			total_new, total_resale, expected_profit, COALESCE(components, '[]'),
			first_seen_at, updated_at
		FROM listings
		WHERE source_id = $1`

	queryGetListingByID = `
		SELECT id, source_id, title, item_url, COALESCE(image_url, ''),
			current_price, buy_now_price, currency,
			COALESCE(description, ''), COALESCE(category_hint, ''), end_time,
			COALESCE(normalized_title, ''), COALESCE(bundle_type, ''), COALESCE(bundle_confidence, 0),
			COALESCE(identity_key, ''), COALESCE(gate_state, ''),
			COALESCE(strategy, ''), COALESCE(skip_reason, ''),
			total_new, total_resale, expected_profit, COALESCE(components, '[]'),
			first_seen_at, updated_at
		FROM listings
		WHERE id = $1`

	queryUpdateListingDerived = `
		UPDATE listings SET
			normalized_title = $2,
			bundle_type = $3,
			bundle_confidence = $4,
			identity_key = $5,
			gate_state = $6,
			updated_at = now()
		WHERE id = $1`

	queryUpdateListingEvaluation = `
		UPDATE listings SET
			strategy = $2,
			skip_reason = $3,
			total_new = $4,
			total_resale = $5,
			expected_profit = $6,
			components = $7,
			gate_state = $8,
			updated_at = now()
		WHERE id = $1`

	queryUpdateListingDescription = `
		UPDATE listings SET
			description = $2,
			updated_at = now()
		WHERE id = $1`

	queryListListingsByGateState = `
		SELECT id, source_id, title, item_url, COALESCE(image_url, ''),
			current_price, buy_now_price, currency,
			COALESCE(description, ''), COALESCE(category_hint, ''), end_time,
			COALESCE(normalized_title, ''), COALESCE(bundle_type, ''), COALESCE(bundle_confidence, 0),
			COALESCE(identity_key, ''), COALESCE(gate_state, ''),
			COALESCE(strategy, ''), COALESCE(skip_reason, ''),
			total_new, total_resale, expected_profit, COALESCE(components, '[]'),
			first_seen_at, updated_at
		FROM listings
		WHERE gate_state = $1
		ORDER BY first_seen_at DESC
		LIMIT $2`
)

// Job run queries.
const (
	queryInsertJobRun = `
		INSERT INTO job_runs (job_name, started_at, status)
		VALUES ($1, now(), 'running')
		RETURNING id`

	queryCompleteJobRun = `
		UPDATE job_runs SET
			completed_at = now(),
			status = $2,
			error_text = $3,
			rows_affected = $4
		WHERE id = $1`

	queryListJobRuns = `
		SELECT id, job_name, started_at, completed_at, status,
			COALESCE(error_text, ''), rows_affected
		FROM job_runs
		WHERE job_name = $1
		ORDER BY started_at DESC
		LIMIT $2`

	queryListLatestJobRuns = `
		SELECT DISTINCT ON (job_name)
			id, job_name, started_at, completed_at, status,
			COALESCE(error_text, ''), rows_affected
		FROM job_runs
		ORDER BY job_name, started_at DESC`
)

// System state query.
const querySystemState = `
	SELECT
		COUNT(*),
		COUNT(*) FILTER (WHERE strategy = 'buy'),
		COUNT(*) FILTER (WHERE strategy = 'skip'),
		COUNT(*) FILTER (WHERE gate_state NOT IN ('ready_for_pricing', 'skipped') OR gate_state IS NULL),
		COUNT(DISTINCT identity_key) FILTER (WHERE identity_key IS NOT NULL AND identity_key <> '')
	FROM listings`
