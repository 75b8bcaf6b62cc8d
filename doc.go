// Package costbasis computes the cost basis and capital gains of security
// sales, and the market value of investment accounts over time.
//
// The core functionalities include:
//   - Lot Matching: sales consume the lots of prior purchases first in, first
//     out. Sales without enough lots wait for a later purchase, such as the
//     arrival of units transferred from another account.
//   - Stock Splits: lots and waiting sales dated before a split are rescaled,
//     keeping their total cost basis. Fractional shares of equities are paid
//     cash in lieu.
//   - Capital Gains: sales are classified as short-term or long-term (held
//     more than 365 days), and identical report lines are consolidated.
//   - Valuation: an account's transactions are replayed day by day against a
//     price cache to compute its market value.
//
// This package serves as the foundational logic for the `cgt` command-line
// tool. It does not read nor write any file format: see the ledgerfile and
// txf packages.
package costbasis
