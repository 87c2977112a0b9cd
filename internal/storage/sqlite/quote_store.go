package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"brokerage-conductor/internal/types"
)

func (s *Store) SaveQuotes(ctx context.Context, quotes []types.Quote) error {
	if len(quotes) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save quotes: %w", err)
	}
	defer rollback(tx)

	for _, q := range quotes {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO quotes (symbol, last, time) VALUES (?, ?, ?)
			ON CONFLICT (symbol) DO UPDATE SET
				last = excluded.last,
				time = excluded.time`,
			q.Symbol, q.Last.String(), encodeTime(q.Time))
		if err != nil {
			return fmt.Errorf("save quote %s: %w", q.Symbol, err)
		}
	}
	return commit(tx, "save quotes")
}

func (s *Store) GetQuote(ctx context.Context, symbol string) (*types.Quote, error) {
	var q types.Quote
	var last, at string
	err := s.db.QueryRowContext(ctx,
		`SELECT symbol, last, time FROM quotes WHERE symbol = ?`, symbol).
		Scan(&q.Symbol, &last, &at)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no quote for %s", symbol)
	}
	if err != nil {
		return nil, fmt.Errorf("load quote %s: %w", symbol, err)
	}
	if q.Last, err = decodeDecimal(last); err != nil {
		return nil, fmt.Errorf("decode quote %s: %w", symbol, err)
	}
	if q.Time, err = decodeTime(at); err != nil {
		return nil, fmt.Errorf("decode quote time %s: %w", symbol, err)
	}
	return &q, nil
}
