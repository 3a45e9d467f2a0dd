// Package store persists the transaction log.
//
// The log is append only apart from a full replacement on backup import.
// Two backends are available: a JSONL file, one transaction per line, and
// a SQLite database.
package store

import (
	"context"
	"fmt"

	"github.com/etnz/holdings"
)

// Source is a transaction log.
type Source interface {
	// All returns every transaction in ledger order.
	All(ctx context.Context) ([]holdings.Transaction, error)
	// Append adds transactions at the end of the log.
	Append(ctx context.Context, txs ...holdings.Transaction) error
	// ReplaceAll replaces the whole log.
	ReplaceAll(ctx context.Context, txs []holdings.Transaction) error
	Close() error
}

// Open opens the log at path with the given kind, "jsonl" or "sqlite".
func Open(kind, path string) (Source, error) {
	switch kind {
	case "jsonl":
		return NewJSONL(path), nil
	case "sqlite":
		return OpenSQLite(path)
	default:
		return nil, fmt.Errorf("unknown store kind %q", kind)
	}
}

func validate(txs []holdings.Transaction) error {
	for _, tx := range txs {
		if err := tx.Validate(); err != nil {
			return err
		}
	}
	return nil
}
