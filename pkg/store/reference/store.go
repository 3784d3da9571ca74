package reference

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/tokenatlas/tokenatlas/pkg/models/store"
)

// Store reads the small model_alternatives and model_pricing reference
// tables. Read-only to the engine; no pagination needed.
type Store interface {
	FetchAlternatives(ctx context.Context, recommendedOnly bool) ([]store.ModelAlternative, error)
	FetchPrices(ctx context.Context, activeOnly bool) ([]store.ModelPrice, error)
	// PriceFor looks up the active price row for one model; ok is false
	// when the model has no active pricing.
	PriceFor(ctx context.Context, model string) (store.ModelPrice, bool, error)
}

type referenceStore struct {
	db *sql.DB
}

func NewStore(db *sql.DB) Store {
	return &referenceStore{db: db}
}

func (r *referenceStore) FetchAlternatives(ctx context.Context, recommendedOnly bool) ([]store.ModelAlternative, error) {
	logger := zerolog.Ctx(ctx)

	query := `SELECT source_model, alternative_model, similarity_score, is_recommended FROM model_alternatives`
	if recommendedOnly {
		query += ` WHERE is_recommended = TRUE`
	}

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("alternatives query failed: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close alternatives rows")
		}
	}(rows)

	var alternatives []store.ModelAlternative
	for rows.Next() {
		var alt store.ModelAlternative
		if err := rows.Scan(&alt.SourceModel, &alt.AlternativeModel, &alt.SimilarityScore, &alt.Recommended); err != nil {
			return nil, err
		}
		alternatives = append(alternatives, alt)
	}
	return alternatives, rows.Err()
}

func (r *referenceStore) FetchPrices(ctx context.Context, activeOnly bool) ([]store.ModelPrice, error) {
	logger := zerolog.Ctx(ctx)

	query := `SELECT model, input_price, output_price, is_active FROM model_pricing`
	if activeOnly {
		query += ` WHERE is_active = TRUE`
	}

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("pricing query failed: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close pricing rows")
		}
	}(rows)

	var prices []store.ModelPrice
	for rows.Next() {
		var price store.ModelPrice
		if err := rows.Scan(&price.Model, &price.InputPrice, &price.OutputPrice, &price.Active); err != nil {
			return nil, err
		}
		prices = append(prices, price)
	}
	return prices, rows.Err()
}

func (r *referenceStore) PriceFor(ctx context.Context, model string) (store.ModelPrice, bool, error) {
	query := `SELECT model, input_price, output_price, is_active
		FROM model_pricing WHERE model = $1 AND is_active = TRUE`

	var price store.ModelPrice
	err := r.db.QueryRowContext(ctx, query, model).Scan(
		&price.Model, &price.InputPrice, &price.OutputPrice, &price.Active)
	if err == sql.ErrNoRows {
		return store.ModelPrice{}, false, nil
	}
	if err != nil {
		return store.ModelPrice{}, false, fmt.Errorf("price lookup failed: %w", err)
	}
	return price, true, nil
}
