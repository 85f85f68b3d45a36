package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"arbitrage/internal/models"
	"arbitrage/pkg/retry"

	_ "github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS opportunities (
	id              UUID PRIMARY KEY,
	pair            TEXT NOT NULL,
	buy_venue       TEXT NOT NULL,
	sell_venue      TEXT NOT NULL,
	buy_price       NUMERIC NOT NULL,
	sell_price      NUMERIC NOT NULL,
	profit_pct      NUMERIC NOT NULL,
	profit_amount   NUMERIC NOT NULL,
	max_trade_size  NUMERIC NOT NULL,
	status          TEXT NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL,
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_opportunities_status ON opportunities (status);
CREATE INDEX IF NOT EXISTS idx_opportunities_pair ON opportunities (pair);
`

// Postgres is a lib/pq-backed Port. InitStore's connectivity check
// retries with pkg/retry's exponential backoff; individual queries are
// not retried. Venue adapters never retry on their own.
type Postgres struct {
	db         *sql.DB
	retryCfg   retry.Config
}

// NewPostgres opens (but does not yet verify) a connection pool against
// databaseURL.
func NewPostgres(databaseURL string) (*Postgres, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("store: opening postgres: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	return &Postgres{db: db, retryCfg: retry.NetworkConfig()}, nil
}

// InitStore pings the database and creates the schema if absent.
func (p *Postgres) InitStore(ctx context.Context) error {
	err := retry.Do(ctx, func() error {
		return p.db.PingContext(ctx)
	}, p.retryCfg)
	if err != nil {
		return fmt.Errorf("store: connecting: %w", err)
	}

	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("store: creating schema: %w", err)
	}
	return nil
}

// SaveOpportunity upserts opp by id, so repeated calls with the same ID
// are idempotent.
func (p *Postgres) SaveOpportunity(opp models.ArbitrageOpportunity) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := p.db.ExecContext(ctx, `
		INSERT INTO opportunities
			(id, pair, buy_venue, sell_venue, buy_price, sell_price, profit_pct, profit_amount, max_trade_size, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now())
		ON CONFLICT (id) DO UPDATE SET
			buy_price      = EXCLUDED.buy_price,
			sell_price     = EXCLUDED.sell_price,
			profit_pct     = EXCLUDED.profit_pct,
			profit_amount  = EXCLUDED.profit_amount,
			max_trade_size = EXCLUDED.max_trade_size,
			status         = EXCLUDED.status,
			updated_at     = now()
	`,
		opp.ID, opp.Pair.Symbol(), opp.BuyVenue, opp.SellVenue,
		opp.BuyPrice, opp.SellPrice, opp.ProfitPct, opp.ProfitAmount, opp.MaxTradeSize,
		string(opp.Status), opp.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("store: saving opportunity %s: %w", opp.ID, err)
	}
	return nil
}

// UpdateOpportunityStatus moves opp to its new terminal status.
func (p *Postgres) UpdateOpportunityStatus(opp models.ArbitrageOpportunity) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := p.db.ExecContext(ctx, `
		UPDATE opportunities SET status = $1, updated_at = now() WHERE id = $2
	`, string(opp.Status), opp.ID)
	if err != nil {
		return fmt.Errorf("store: updating opportunity %s: %w", opp.ID, err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (p *Postgres) Close() error {
	return p.db.Close()
}

var _ Port = (*Postgres)(nil)
