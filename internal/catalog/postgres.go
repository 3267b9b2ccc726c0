package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-resale/internal/pricing"
)

// PostgresStore backs the catalog with pgx. Numeric columns travel as text so
// decimals keep exact precision.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore constructs a pgx-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

var _ Store = (*PostgresStore)(nil)

const platformColumns = `id, name, category, manual_sensitive, default_markup::text, created_at, updated_at`

func scanPlatform(row pgx.Row) (*Platform, error) {
	var (
		p      Platform
		markup string
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Category, &p.ManualSensitive, &markup, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	value, err := decimal.NewFromString(markup)
	if err != nil {
		return nil, fmt.Errorf("parse default markup: %w", err)
	}
	p.DefaultMarkup = value
	return &p, nil
}

// ListPlatforms returns all platforms sorted by name.
func (s *PostgresStore) ListPlatforms(ctx context.Context) ([]Platform, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+platformColumns+` FROM platforms ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list platforms: %w", err)
	}
	defer rows.Close()

	var out []Platform
	for rows.Next() {
		p, err := scanPlatform(rows)
		if err != nil {
			return nil, fmt.Errorf("scan platform: %w", err)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list platforms: %w", err)
	}
	return out, nil
}

// GetPlatform fetches one platform by id.
func (s *PostgresStore) GetPlatform(ctx context.Context, id uuid.UUID) (*Platform, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+platformColumns+` FROM platforms WHERE id = $1`, id)
	p, err := scanPlatform(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get platform: %w", err)
	}
	return p, nil
}

// UpdatePlatformMarkup sets a platform's default markup.
func (s *PostgresStore) UpdatePlatformMarkup(ctx context.Context, id uuid.UUID, markup decimal.Decimal) (*Platform, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE platforms
		SET default_markup = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+platformColumns,
		id, markup.String())
	p, err := scanPlatform(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update platform markup: %w", err)
	}
	return p, nil
}

// VariantContext resolves the denormalised pricing context for a variant.
func (s *PostgresStore) VariantContext(ctx context.Context, variantID uuid.UUID) (*VariantContext, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT p.id, v.id, p.title, pl.name, pl.category, pl.manual_sensitive,
		       v.kind, v.market_price::text, pl.default_markup::text
		FROM product_variants v
		JOIN products p ON p.id = v.product_id
		JOIN platforms pl ON pl.id = p.platform_id
		WHERE v.id = $1`,
		variantID)

	var (
		vc             VariantContext
		category       string
		kind           string
		market, markup string
	)
	err := row.Scan(&vc.ProductID, &vc.VariantID, &vc.ProductTitle, &vc.PlatformName,
		&category, &vc.ManualSensitive, &kind, &market, &markup)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get variant context: %w", err)
	}
	vc.Category = pricing.Category(category)
	vc.VariantKind = pricing.VariantKind(kind)
	if vc.MarketPrice, err = decimal.NewFromString(market); err != nil {
		return nil, fmt.Errorf("parse market price: %w", err)
	}
	if vc.DefaultMarkup, err = decimal.NewFromString(markup); err != nil {
		return nil, fmt.Errorf("parse default markup: %w", err)
	}
	return &vc, nil
}
