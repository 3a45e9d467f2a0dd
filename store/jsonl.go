package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/etnz/holdings"
)

// JSONL stores the log in a text file, one JSON transaction per line.
// A missing file is an empty log.
type JSONL struct {
	path string
	mu   sync.Mutex
}

// NewJSONL returns the log stored in path.
func NewJSONL(path string) *JSONL { return &JSONL{path: path} }

func (s *JSONL) All(_ context.Context) ([]holdings.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	txs, err := holdings.DecodeTransactions(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.path, err)
	}
	return txs, nil
}

func (s *JSONL) Append(_ context.Context, txs ...holdings.Transaction) error {
	if err := validate(txs); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	for _, tx := range txs {
		if err := holdings.EncodeTransaction(f, tx); err != nil {
			f.Close()
			return err
		}
	}
	return f.Close()
}

// ReplaceAll writes a new file then renames it over the old one.
func (s *JSONL) ReplaceAll(_ context.Context, txs []holdings.Transaction) error {
	if err := validate(txs); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, filepath.Base(s.path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())
	if err := holdings.EncodeTransactions(f, txs); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), s.path)
}

func (s *JSONL) Close() error { return nil }
