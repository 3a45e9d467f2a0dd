// Package holdings is a lot accounting engine for securities traded on
// several markets (US, TW, HK and JP).
//
// The transaction log is the single source of truth. Everything else is a
// pure function of it, plus market prices and exchange rates:
//   - Lot Ledger: open lots per symbol, consumed first in first out
//     (LotStates, BuildLots, CalculateHoldings).
//   - Sell Matcher: validates a sell against the open lots and links it to
//     the buys it consumes (ValidateSell, MatchSell, ProcessSell).
//   - Realized P&L: one record per sell, replayed in date order
//     (CalculateRealizedPnL).
//   - Unrealized P&L: open positions valued at the current price, falling
//     back to the average cost when no price is available
//     (CalculateUnrealizedPnL).
//   - Currency Normalizer: amounts converted to a reporting currency with
//     live, cached or static rates (Normalizer).
//   - Portfolio Aggregator: totals, return rate and market distribution in
//     the reporting currency (AccountingSystem.Summarize).
//
// Transactions are stored as JSONL (EncodeTransactions, DecodeTransactions)
// and exported as a JSON backup document (EncodeBackup, DecodeBackup).
package holdings
