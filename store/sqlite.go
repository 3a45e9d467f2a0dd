package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/etnz/holdings"
	"github.com/etnz/holdings/date"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS transactions (
	id          TEXT PRIMARY KEY,
	symbol      TEXT NOT NULL,
	stock_name  TEXT NOT NULL,
	market      TEXT NOT NULL,
	type        TEXT NOT NULL,
	quantity    TEXT NOT NULL,
	price       TEXT NOT NULL,
	currency    TEXT NOT NULL,
	date        TEXT NOT NULL,
	timestamp   TEXT NOT NULL,
	linked_buys TEXT NOT NULL DEFAULT '[]'
);
CREATE INDEX IF NOT EXISTS transactions_symbol ON transactions(market, symbol);
`

// tsFormat has a fixed width so that timestamps sort as text.
const tsFormat = "2006-01-02T15:04:05.000000000Z07:00"

// SQLite stores the log in a SQLite database. Amounts are stored as
// decimal strings.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens or creates the database at path.
func OpenSQLite(path string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

func (s *SQLite) All(ctx context.Context) ([]holdings.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, symbol, stock_name, market, type, quantity, price, currency, date, timestamp, linked_buys
		FROM transactions ORDER BY timestamp, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []holdings.Transaction
	for rows.Next() {
		var (
			tx                           holdings.Transaction
			market, typ, qty, price, cur string
			day, ts, linked              string
		)
		if err := rows.Scan(&tx.ID, &tx.Symbol, &tx.StockName, &market, &typ, &qty, &price, &cur, &day, &ts, &linked); err != nil {
			return nil, err
		}
		if err := decodeRow(&tx, market, typ, qty, price, cur, day, ts, linked); err != nil {
			return nil, fmt.Errorf("transaction %s: %w", tx.ID, err)
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

func decodeRow(tx *holdings.Transaction, market, typ, qty, price, cur, day, ts, linked string) error {
	tx.Market = holdings.Market(market)
	tx.Type = holdings.TxType(typ)
	q, err := decimal.NewFromString(qty)
	if err != nil {
		return err
	}
	tx.Quantity = holdings.Q(q)
	p, err := decimal.NewFromString(price)
	if err != nil {
		return err
	}
	tx.Price = holdings.M(p, cur)
	if tx.Date, err = date.Parse(day); err != nil {
		return err
	}
	if tx.Timestamp, err = time.Parse(time.RFC3339Nano, ts); err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(linked), &tx.LinkedBuyIDs); err != nil {
		return err
	}
	if len(tx.LinkedBuyIDs) == 0 {
		tx.LinkedBuyIDs = nil
	}
	return tx.Validate()
}

func (s *SQLite) Append(ctx context.Context, txs ...holdings.Transaction) error {
	if err := validate(txs); err != nil {
		return err
	}
	return s.inTx(ctx, func(tx *sql.Tx) error { return insert(ctx, tx, txs) })
}

func (s *SQLite) ReplaceAll(ctx context.Context, txs []holdings.Transaction) error {
	if err := validate(txs); err != nil {
		return err
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM transactions`); err != nil {
			return err
		}
		return insert(ctx, tx, txs)
	})
}

func (s *SQLite) inTx(ctx context.Context, f func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := f(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func insert(ctx context.Context, tx *sql.Tx, txs []holdings.Transaction) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO transactions
		(id, symbol, stock_name, market, type, quantity, price, currency, date, timestamp, linked_buys)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, t := range txs {
		linked := t.LinkedBuyIDs
		if linked == nil {
			linked = []string{}
		}
		buf, err := json.Marshal(linked)
		if err != nil {
			return err
		}
		_, err = stmt.ExecContext(ctx, t.ID, t.Symbol, t.StockName, string(t.Market), string(t.Type),
			t.Quantity.Decimal().String(), t.Price.Decimal().String(), t.Price.Currency(),
			t.Date.String(), t.Timestamp.UTC().Format(tsFormat), string(buf))
		if err != nil {
			return fmt.Errorf("cannot insert transaction %s: %w", t.ID, err)
		}
	}
	return nil
}
