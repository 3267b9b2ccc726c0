package calculator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-resale/internal/pricing"
)

// PostgresStore backs the calculator with pgx. Line inputs live in typed
// columns; computed breakdowns and session totals are JSONB snapshots that
// are rewritten wholesale on every recompute.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore constructs a pgx-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

var _ Store = (*PostgresStore)(nil)

// RateConfig loads all configuration entries.
func (s *PostgresStore) RateConfig(ctx context.Context) (map[string]pricing.RateValue, error) {
	rows, err := s.pool.Query(ctx, `SELECT key, value::text, kind FROM rate_config`)
	if err != nil {
		return nil, fmt.Errorf("load rate config: %w", err)
	}
	defer rows.Close()

	out := make(map[string]pricing.RateValue)
	for rows.Next() {
		var key, value, kind string
		if err := rows.Scan(&key, &value, &kind); err != nil {
			return nil, fmt.Errorf("scan rate config: %w", err)
		}
		parsed, err := decimal.NewFromString(value)
		if err != nil {
			return nil, fmt.Errorf("parse rate %s: %w", key, err)
		}
		out[key] = pricing.RateValue{Value: parsed, Kind: pricing.RateKind(kind)}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load rate config: %w", err)
	}
	return out, nil
}

// ReplaceRateConfig swaps the full configuration set in one transaction.
func (s *PostgresStore) ReplaceRateConfig(ctx context.Context, entries map[string]pricing.RateValue) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin replace rate config: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM rate_config`); err != nil {
		return fmt.Errorf("clear rate config: %w", err)
	}
	for key, entry := range entries {
		_, err := tx.Exec(ctx,
			`INSERT INTO rate_config (key, value, kind, updated_at) VALUES ($1, $2, $3, now())`,
			key, entry.Value.String(), string(entry.Kind))
		if err != nil {
			return fmt.Errorf("insert rate %s: %w", key, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit rate config: %w", err)
	}
	return nil
}

const sessionColumns = `id, name, source_name, asking_price::text, cashback_enabled, tax_exempt,
	status, purchase_order_id, totals, created_at, updated_at`

func scanSession(row pgx.Row) (*Session, error) {
	var (
		sess        Session
		askingPrice *string
		totalsRaw   []byte
	)
	err := row.Scan(&sess.ID, &sess.Name, &sess.SourceName, &askingPrice, &sess.CashbackEnabled,
		&sess.TaxExempt, &sess.Status, &sess.PurchaseOrderID, &totalsRaw, &sess.CreatedAt, &sess.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if askingPrice != nil {
		parsed, err := decimal.NewFromString(*askingPrice)
		if err != nil {
			return nil, fmt.Errorf("parse asking price: %w", err)
		}
		sess.AskingPrice = &parsed
	}
	if len(totalsRaw) > 0 {
		if err := json.Unmarshal(totalsRaw, &sess.Totals); err != nil {
			return nil, fmt.Errorf("decode totals: %w", err)
		}
	}
	return &sess, nil
}

// CreateSession stores a new session.
func (s *PostgresStore) CreateSession(ctx context.Context, sess Session) (*Session, error) {
	if sess.ID == uuid.Nil {
		sess.ID = uuid.New()
	}
	if sess.Status == "" {
		sess.Status = StatusDraft
	}
	totals, err := json.Marshal(sess.Totals)
	if err != nil {
		return nil, fmt.Errorf("encode totals: %w", err)
	}
	row := s.pool.QueryRow(ctx, `
		INSERT INTO calculator_sessions
			(id, name, source_name, asking_price, cashback_enabled, tax_exempt, status, totals, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
		RETURNING `+sessionColumns,
		sess.ID, sess.Name, sess.SourceName, decimalArg(sess.AskingPrice),
		sess.CashbackEnabled, sess.TaxExempt, string(sess.Status), totals)
	created, err := scanSession(row)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return created, nil
}

// GetSession fetches a session by id.
func (s *PostgresStore) GetSession(ctx context.Context, id uuid.UUID) (*Session, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+sessionColumns+` FROM calculator_sessions WHERE id = $1`, id)
	sess, err := scanSession(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return sess, nil
}

// ListSessions returns sessions newest first with the total match count.
func (s *PostgresStore) ListSessions(ctx context.Context, filter ListFilter) ([]Session, int64, error) {
	var status any
	if filter.Status != nil {
		status = string(*filter.Status)
	}
	var total int64
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM calculator_sessions WHERE ($1::text IS NULL OR status = $1)`,
		status).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count sessions: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+sessionColumns+`
		FROM calculator_sessions
		WHERE ($1::text IS NULL OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`,
		status, limit, filter.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, *sess)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list sessions: %w", err)
	}
	return out, total, nil
}

// UpdateSession rewrites a session row. The updated_at guard rejects writes
// racing a concurrent recompute.
func (s *PostgresStore) UpdateSession(ctx context.Context, sess Session) (*Session, error) {
	totals, err := json.Marshal(sess.Totals)
	if err != nil {
		return nil, fmt.Errorf("encode totals: %w", err)
	}
	row := s.pool.QueryRow(ctx, `
		UPDATE calculator_sessions
		SET name = $2, source_name = $3, asking_price = $4, cashback_enabled = $5,
			tax_exempt = $6, status = $7, purchase_order_id = $8, totals = $9, updated_at = now()
		WHERE id = $1 AND ($10::timestamptz IS NULL OR updated_at = $10)
		RETURNING `+sessionColumns,
		sess.ID, sess.Name, sess.SourceName, decimalArg(sess.AskingPrice),
		sess.CashbackEnabled, sess.TaxExempt, string(sess.Status), sess.PurchaseOrderID,
		totals, nullableTime(sess.UpdatedAt))
	updated, err := scanSession(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if _, getErr := s.GetSession(ctx, sess.ID); getErr == nil {
				return nil, ErrStaleUpdate
			}
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update session: %w", err)
	}
	return updated, nil
}

// DeleteSession removes a session; items cascade.
func (s *PostgresStore) DeleteSession(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM calculator_sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListSessionIDs returns ids of sessions in any of the given statuses.
func (s *PostgresStore) ListSessionIDs(ctx context.Context, statuses ...SessionStatus) ([]uuid.UUID, error) {
	values := make([]string, 0, len(statuses))
	for _, status := range statuses {
		values = append(values, string(status))
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id FROM calculator_sessions WHERE status = ANY($1) ORDER BY created_at`,
		values)
	if err != nil {
		return nil, fmt.Errorf("list session ids: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan session id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list session ids: %w", err)
	}
	return ids, nil
}

const itemColumns = `id, session_id, product_id, variant_id, product_title, platform_name,
	market_price::text, override_price::text, variant_kind, category, manual_sensitive, has_manual,
	custom_deduction::text, custom_deduction_note, markup_amount::text, shipping_cost_override::text,
	target_margin_override::text, quantity, breakdown, notes, created_at, updated_at`

func scanItem(row pgx.Row) (*Item, error) {
	var (
		it           Item
		market       string
		override     *string
		custom       *string
		markup       *string
		shipping     *string
		targetMargin *string
		breakdownRaw []byte
	)
	err := row.Scan(&it.ID, &it.SessionID, &it.ProductID, &it.VariantID, &it.ProductTitle,
		&it.PlatformName, &market, &override, &it.Line.VariantKind, &it.Line.Category,
		&it.Line.ManualSensitive, &it.Line.HasManual, &custom, &it.Line.CustomDeductionNote,
		&markup, &shipping, &targetMargin, &it.Line.Quantity, &breakdownRaw, &it.Notes,
		&it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if it.Line.MarketPrice, err = decimal.NewFromString(market); err != nil {
		return nil, fmt.Errorf("parse market price: %w", err)
	}
	if it.Line.OverridePrice, err = decimalPtr(override); err != nil {
		return nil, fmt.Errorf("parse override price: %w", err)
	}
	if it.Line.CustomDeduction, err = decimalPtr(custom); err != nil {
		return nil, fmt.Errorf("parse custom deduction: %w", err)
	}
	if it.Line.MarkupAmount, err = decimalPtr(markup); err != nil {
		return nil, fmt.Errorf("parse markup: %w", err)
	}
	if it.Line.ShippingCostOverride, err = decimalPtr(shipping); err != nil {
		return nil, fmt.Errorf("parse shipping override: %w", err)
	}
	if it.Line.TargetProfitMarginOverride, err = decimalPtr(targetMargin); err != nil {
		return nil, fmt.Errorf("parse margin override: %w", err)
	}
	if len(breakdownRaw) > 0 {
		if err := json.Unmarshal(breakdownRaw, &it.Breakdown); err != nil {
			return nil, fmt.Errorf("decode breakdown: %w", err)
		}
	}
	return &it, nil
}

// AddItem stores a new item.
func (s *PostgresStore) AddItem(ctx context.Context, it Item) (*Item, error) {
	if it.ID == uuid.Nil {
		it.ID = uuid.New()
	}
	breakdown, err := json.Marshal(it.Breakdown)
	if err != nil {
		return nil, fmt.Errorf("encode breakdown: %w", err)
	}
	row := s.pool.QueryRow(ctx, `
		INSERT INTO calculator_items
			(id, session_id, product_id, variant_id, product_title, platform_name,
			 market_price, override_price, variant_kind, category, manual_sensitive, has_manual,
			 custom_deduction, custom_deduction_note, markup_amount, shipping_cost_override,
			 target_margin_override, quantity, breakdown, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, now(), now())
		RETURNING `+itemColumns,
		it.ID, it.SessionID, it.ProductID, it.VariantID, it.ProductTitle, it.PlatformName,
		it.Line.MarketPrice.String(), decimalArg(it.Line.OverridePrice), string(it.Line.VariantKind),
		string(it.Line.Category), it.Line.ManualSensitive, it.Line.HasManual,
		decimalArg(it.Line.CustomDeduction), it.Line.CustomDeductionNote,
		decimalArg(it.Line.MarkupAmount), decimalArg(it.Line.ShippingCostOverride),
		decimalArg(it.Line.TargetProfitMarginOverride), it.Line.Quantity, breakdown, it.Notes)
	created, err := scanItem(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("add item: %w", err)
	}
	return created, nil
}

// GetItem fetches an item by id.
func (s *PostgresStore) GetItem(ctx context.Context, id uuid.UUID) (*Item, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+itemColumns+` FROM calculator_items WHERE id = $1`, id)
	it, err := scanItem(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get item: %w", err)
	}
	return it, nil
}

// ListItems returns a session's items oldest first.
func (s *PostgresStore) ListItems(ctx context.Context, sessionID uuid.UUID) ([]Item, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+itemColumns+` FROM calculator_items WHERE session_id = $1 ORDER BY created_at, id`,
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var out []Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		out = append(out, *it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return out, nil
}

// UpdateItem rewrites an item row.
func (s *PostgresStore) UpdateItem(ctx context.Context, it Item) (*Item, error) {
	breakdown, err := json.Marshal(it.Breakdown)
	if err != nil {
		return nil, fmt.Errorf("encode breakdown: %w", err)
	}
	row := s.pool.QueryRow(ctx, `
		UPDATE calculator_items
		SET product_id = $2, variant_id = $3, product_title = $4, platform_name = $5,
			market_price = $6, override_price = $7, variant_kind = $8, category = $9,
			manual_sensitive = $10, has_manual = $11, custom_deduction = $12,
			custom_deduction_note = $13, markup_amount = $14, shipping_cost_override = $15,
			target_margin_override = $16, quantity = $17, breakdown = $18, notes = $19,
			updated_at = now()
		WHERE id = $1
		RETURNING `+itemColumns,
		it.ID, it.ProductID, it.VariantID, it.ProductTitle, it.PlatformName,
		it.Line.MarketPrice.String(), decimalArg(it.Line.OverridePrice), string(it.Line.VariantKind),
		string(it.Line.Category), it.Line.ManualSensitive, it.Line.HasManual,
		decimalArg(it.Line.CustomDeduction), it.Line.CustomDeductionNote,
		decimalArg(it.Line.MarkupAmount), decimalArg(it.Line.ShippingCostOverride),
		decimalArg(it.Line.TargetProfitMarginOverride), it.Line.Quantity, breakdown, it.Notes)
	updated, err := scanItem(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update item: %w", err)
	}
	return updated, nil
}

// DeleteItem removes an item.
func (s *PostgresStore) DeleteItem(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM calculator_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

func decimalArg(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func decimalPtr(raw *string) (*decimal.Decimal, error) {
	if raw == nil {
		return nil, nil
	}
	parsed, err := decimal.NewFromString(*raw)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
