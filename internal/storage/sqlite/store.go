package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"brokerage-conductor/internal/interfaces"
)

// Store implements every persistence interface the conductor consumes on one
// SQLite handle. Decimals are stored as their exact string form and times as
// RFC 3339 in UTC, so values round-trip without drift.
type Store struct {
	db *sql.DB
}

var (
	_ interfaces.OrderStore   = (*Store)(nil)
	_ interfaces.TradeStore   = (*Store)(nil)
	_ interfaces.HistoryStore = (*Store)(nil)
	_ interfaces.QuoteStore   = (*Store)(nil)
)

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// timeLayout is fixed-width (nanoseconds always padded to nine digits) so
// that lexicographic order on the TEXT columns matches chronological order.
// RFC3339Nano would drop trailing fractional zeros, making "00.5Z" sort
// before "00Z".
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func encodeTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func decodeTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

func decodeDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

func rollback(tx *sql.Tx) {
	_ = tx.Rollback()
}

func commit(tx *sql.Tx, op string) error {
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", op, err)
	}
	return nil
}
