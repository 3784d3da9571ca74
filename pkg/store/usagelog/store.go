package usagelog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/tokenatlas/tokenatlas/pkg/models/domain"
	"github.com/tokenatlas/tokenatlas/pkg/models/store"
)

// DefaultPageSize bounds how many rows one gateway call materializes.
const DefaultPageSize = 1000

// Page addresses one bounded slice of a result set. Number is 1-based.
type Page struct {
	Number int
	Size   int
}

// Sort selects the ordering of fetched rows. Field must be one of the
// whitelisted sortable columns; anything else falls back to timestamp.
type Sort struct {
	Field string
	Desc  bool
}

var sortableColumns = map[string]string{
	"timestamp":    "timestamp",
	"total_cost":   "total_cost",
	"total_tokens": "total_tokens",
	"latency_ms":   "latency_ms",
}

// SortableField reports whether a caller-supplied sort field is allowed.
func SortableField(field string) bool {
	_, ok := sortableColumns[field]
	return ok
}

// Store is the only component that touches the durable event log.
type Store interface {
	// FetchEvents returns one page of events matching the filter plus the
	// total match count. An empty store yields (nil, 0, nil).
	FetchEvents(ctx context.Context, fs domain.FilterSet, page Page, sort Sort) ([]store.UsageEvent, int, error)
	// TimeExtent reports the min/max event timestamps; ok is false when
	// the store holds no events.
	TimeExtent(ctx context.Context) (min, max time.Time, ok bool, err error)
	// DistinctValues lists the distinct models, endpoints and providers
	// present in the log, for filter option discovery.
	DistinctValues(ctx context.Context) (models, endpoints, providers []string, err error)
	// Insert appends one event and returns it with its assigned ID.
	Insert(ctx context.Context, ev store.UsageEvent) (store.UsageEvent, error)
}

type usageStore struct {
	db *sql.DB
}

func NewStore(db *sql.DB) Store {
	return &usageStore{db: db}
}

const eventColumns = `id, timestamp, model, endpoint_name, api_provider,
		prompt_tokens, completion_tokens, total_tokens,
		input_cost, output_cost, total_cost, latency_ms`

func (u *usageStore) FetchEvents(
	ctx context.Context,
	fs domain.FilterSet,
	page Page,
	sort Sort,
) ([]store.UsageEvent, int, error) {
	logger := zerolog.Ctx(ctx)

	if page.Size <= 0 {
		page.Size = DefaultPageSize
	}
	if page.Number <= 0 {
		page.Number = 1
	}

	where, args := buildWhere(fs)

	var total int
	countQuery := `SELECT COUNT(*) FROM token_logs ` + where
	if err := u.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("usage count query failed: %w", err)
	}
	if total == 0 {
		return nil, 0, nil
	}

	column := sortableColumns[sort.Field]
	if column == "" {
		column = "timestamp"
	}
	direction := "ASC"
	if sort.Desc {
		direction = "DESC"
	}

	query := fmt.Sprintf(`SELECT %s FROM token_logs %s ORDER BY %s %s LIMIT $%d OFFSET $%d`,
		eventColumns, where, column, direction, len(args)+1, len(args)+2)
	args = append(args, page.Size, (page.Number-1)*page.Size)

	rows, err := u.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("usage query failed: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close usage query rows")
		}
	}(rows)

	var events []store.UsageEvent
	for rows.Next() {
		var raw store.RawEvent
		err := rows.Scan(
			&raw.ID, &raw.Timestamp, &raw.Model, &raw.Endpoint, &raw.Provider,
			&raw.PromptTokens, &raw.CompletionTokens, &raw.TotalTokens,
			&raw.InputCost, &raw.OutputCost, &raw.TotalCost, &raw.LatencyMs,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("usage row scan failed: %w", err)
		}

		ev, err := store.ParseEvent(raw)
		if err != nil {
			// Malformed rows are dropped, not fatal.
			logger.Warn().Err(err).Int64("id", raw.ID.Int64).Msg("dropping malformed usage row")
			continue
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("usage row iteration failed: %w", err)
	}

	return events, total, nil
}

func (u *usageStore) TimeExtent(ctx context.Context) (time.Time, time.Time, bool, error) {
	var min, max sql.NullTime
	err := u.db.QueryRowContext(ctx, `SELECT MIN(timestamp), MAX(timestamp) FROM token_logs`).Scan(&min, &max)
	if err != nil {
		return time.Time{}, time.Time{}, false, fmt.Errorf("extent query failed: %w", err)
	}
	if !min.Valid || !max.Valid {
		return time.Time{}, time.Time{}, false, nil
	}
	return min.Time.UTC(), max.Time.UTC(), true, nil
}

func (u *usageStore) DistinctValues(ctx context.Context) ([]string, []string, []string, error) {
	models, err := u.distinct(ctx, "model")
	if err != nil {
		return nil, nil, nil, err
	}
	endpoints, err := u.distinct(ctx, "endpoint_name")
	if err != nil {
		return nil, nil, nil, err
	}
	providers, err := u.distinct(ctx, "api_provider")
	if err != nil {
		return nil, nil, nil, err
	}
	return models, endpoints, providers, nil
}

func (u *usageStore) distinct(ctx context.Context, column string) ([]string, error) {
	logger := zerolog.Ctx(ctx)

	query := fmt.Sprintf(
		`SELECT DISTINCT COALESCE(NULLIF(%[1]s, ''), '%[2]s') FROM token_logs ORDER BY 1`,
		column, domain.UnknownDimension)
	rows, err := u.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("distinct %s query failed: %w", column, err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close distinct query rows")
		}
	}(rows)

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

func (u *usageStore) Insert(ctx context.Context, ev store.UsageEvent) (store.UsageEvent, error) {
	query := `
		INSERT INTO token_logs (
			timestamp, model, endpoint_name, api_provider,
			prompt_tokens, completion_tokens, total_tokens,
			input_cost, output_cost, total_cost, latency_ms
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`

	err := u.db.QueryRowContext(ctx, query,
		ev.Timestamp, ev.Model, ev.Endpoint, ev.Provider,
		ev.PromptTokens, ev.CompletionTokens, ev.TotalTokens,
		ev.InputCost, ev.OutputCost, ev.TotalCost, ev.LatencyMs,
	).Scan(&ev.ID)
	if err != nil {
		return store.UsageEvent{}, fmt.Errorf("usage insert failed: %w", err)
	}
	return ev, nil
}

// buildWhere renders the filter as a WHERE clause with numbered args.
// The time range is half-open: [start, end).
func buildWhere(fs domain.FilterSet) (string, []any) {
	conditions := []string{"timestamp >= $1", "timestamp < $2"}
	args := []any{fs.Start.UTC(), fs.End.UTC()}

	appendIn := func(column string, values []string) {
		if len(values) == 0 {
			return
		}
		placeholders := make([]string, 0, len(values))
		for _, v := range values {
			args = append(args, v)
			placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
		}
		conditions = append(conditions, fmt.Sprintf("%s IN (%s)", column, strings.Join(placeholders, ", ")))
	}

	appendIn("model", fs.Models)
	appendIn("endpoint_name", fs.Endpoints)
	appendIn("api_provider", fs.Providers)

	return "WHERE " + strings.Join(conditions, " AND "), args
}
