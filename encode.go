package holdings

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/etnz/holdings/date"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// txJSON is the persisted form of a Transaction.
type txJSON struct {
	ID           string          `json:"id"`
	Symbol       string          `json:"symbol"`
	StockName    string          `json:"stockName,omitempty"`
	Market       Market          `json:"market"`
	Type         TxType          `json:"type"`
	Quantity     decimal.Decimal `json:"quantity"`
	Price        decimal.Decimal `json:"price"`
	Currency     string          `json:"currency"`
	Date         date.Date       `json:"date"`
	Timestamp    time.Time       `json:"timestamp"`
	LinkedBuyIDs []string        `json:"linkedBuyIds,omitempty"`

	// Older files store the lot state with the buys. It is read and ignored,
	// the state is always derived from the log.
	RemainingQuantity *decimal.Decimal `json:"remainingQuantity,omitempty"`
	IsFullySold       *bool            `json:"isFullySold,omitempty"`
}

func toJSON(tx Transaction) txJSON {
	return txJSON{
		ID:           tx.ID,
		Symbol:       tx.Symbol,
		StockName:    tx.StockName,
		Market:       tx.Market,
		Type:         tx.Type,
		Quantity:     tx.Quantity.Decimal(),
		Price:        tx.Price.Decimal(),
		Currency:     tx.Price.Currency(),
		Date:         tx.Date,
		Timestamp:    tx.Timestamp.UTC(),
		LinkedBuyIDs: tx.LinkedBuyIDs,
	}
}

// missing returns the name of the first missing required field.
func (j txJSON) missing() string {
	switch {
	case j.Symbol == "":
		return "symbol"
	case j.Type == "":
		return "type"
	case j.Quantity.IsZero():
		return "quantity"
	case j.Price.IsZero():
		return "price"
	case j.Date.IsZero():
		return "date"
	}
	return ""
}

// transaction converts j into a valid Transaction. A missing id is
// generated, a missing timestamp is the start of the trade date.
func (j txJSON) transaction() (Transaction, error) {
	if f := j.missing(); f != "" {
		return Transaction{}, fmt.Errorf("%w: missing %s", ErrInvalidTransaction, f)
	}
	typ, err := ParseTxType(string(j.Type))
	if err != nil {
		return Transaction{}, err
	}
	market, err := ParseMarket(string(j.Market))
	if err != nil {
		return Transaction{}, fmt.Errorf("%w: %w", ErrInvalidTransaction, err)
	}
	if j.Currency != "" && j.Currency != market.Currency() {
		return Transaction{}, fmt.Errorf("%w: currency %q does not match market %s", ErrInvalidTransaction, j.Currency, market)
	}
	if j.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return Transaction{}, err
		}
		j.ID = id.String()
	}
	if j.Timestamp.IsZero() {
		j.Timestamp = j.Date.Time()
	}
	symbol := NormalizeSymbol(j.Symbol)
	name := j.StockName
	if name == "" {
		name = symbol
	}
	tx := Transaction{
		ID:           j.ID,
		Symbol:       symbol,
		StockName:    name,
		Market:       market,
		Type:         typ,
		Quantity:     Q(j.Quantity),
		Price:        M(j.Price, market.Currency()),
		Date:         j.Date,
		Timestamp:    j.Timestamp.UTC(),
		LinkedBuyIDs: j.LinkedBuyIDs,
	}
	return tx, tx.Validate()
}

// EncodeTransactions writes txs as JSONL, one transaction per line, in
// ledger order.
func EncodeTransactions(w io.Writer, txs []Transaction) error {
	sorted := cloneTransactions(txs)
	slices.SortStableFunc(sorted, byTimestamp)
	enc := json.NewEncoder(w)
	for _, tx := range sorted {
		if err := enc.Encode(toJSON(tx)); err != nil {
			return fmt.Errorf("cannot encode transaction %s: %w", tx.ID, err)
		}
	}
	return nil
}

// EncodeTransaction writes a single JSONL line.
func EncodeTransaction(w io.Writer, tx Transaction) error {
	return json.NewEncoder(w).Encode(toJSON(tx))
}

// DecodeTransactions reads JSONL transactions. Empty lines are skipped.
func DecodeTransactions(r io.Reader) ([]Transaction, error) {
	var txs []Transaction
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		b := scanner.Bytes()
		if len(b) == 0 {
			continue
		}
		var j txJSON
		if err := json.Unmarshal(b, &j); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		tx, err := j.transaction()
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		txs = append(txs, tx)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading from input: %w", err)
	}
	return txs, nil
}

// BackupVersion is the version written in backups.
const BackupVersion = "2.0"

// ErrInvalidBackup is returned when a backup document cannot be imported.
var ErrInvalidBackup = errors.New("invalid backup")

// Backup is a complete export of the transaction log.
type Backup struct {
	Version      string
	ExportDate   time.Time
	Transactions []Transaction
}

// NewBackup returns a backup of txs dated now.
func NewBackup(txs []Transaction) Backup {
	return Backup{Version: BackupVersion, ExportDate: time.Now().UTC(), Transactions: cloneTransactions(txs)}
}

type backupJSON struct {
	Version      string   `json:"version"`
	ExportDate   string   `json:"exportDate"`
	Transactions []txJSON `json:"transactions"`
}

// EncodeBackup writes b as an indented JSON document.
func EncodeBackup(w io.Writer, b Backup) error {
	doc := backupJSON{
		Version:      b.Version,
		ExportDate:   b.ExportDate.UTC().Format(time.RFC3339Nano),
		Transactions: make([]txJSON, 0, len(b.Transactions)),
	}
	sorted := cloneTransactions(b.Transactions)
	slices.SortStableFunc(sorted, byTimestamp)
	for _, tx := range sorted {
		doc.Transactions = append(doc.Transactions, toJSON(tx))
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// DecodeBackup reads and validates a backup document. Every transaction
// must have a symbol, a BUY or SELL type, a quantity, a price and a date.
func DecodeBackup(r io.Reader) (Backup, error) {
	var doc backupJSON
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return Backup{}, fmt.Errorf("%w: %w", ErrInvalidBackup, err)
	}
	if doc.Version == "" {
		return Backup{}, fmt.Errorf("%w: missing version", ErrInvalidBackup)
	}
	if doc.ExportDate == "" {
		return Backup{}, fmt.Errorf("%w: missing export date", ErrInvalidBackup)
	}
	exported, err := time.Parse(time.RFC3339Nano, doc.ExportDate)
	if err != nil {
		return Backup{}, fmt.Errorf("%w: export date: %w", ErrInvalidBackup, err)
	}
	b := Backup{Version: doc.Version, ExportDate: exported}
	for i, j := range doc.Transactions {
		tx, err := j.transaction()
		if err != nil {
			return Backup{}, fmt.Errorf("%w: transaction %d: %w", ErrInvalidBackup, i+1, err)
		}
		b.Transactions = append(b.Transactions, tx)
	}
	return b, nil
}
