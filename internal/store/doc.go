// Package store provides persistent storage for the bazaar ledger using SQLite.
//
// # Architecture
//
// SQLiteStore is the single implementation behind the market service. It owns
// every table of the ledger:
//
//   - principals/roles: participant identities and capability grants
//   - counters: the monotonic asset identifier allocator
//   - assets: minted tokens (id, owner, immutable token URI)
//   - listings: per-asset sale state machine (price, seller, listed flag)
//   - balances/payouts/treasury: accrued proceeds and lifetime value flow
//   - market_events: append-only audit trail
//
// Single-row updates are plain statements; every multi-table transition
// (mint, sale, withdrawal) runs in one SQL transaction via withTx, so a
// failure at any step rolls the whole operation back.
//
// # SQLite Configuration
//
// The store uses SQLite with WAL mode for concurrent reads:
//
//	PRAGMA journal_mode=WAL;
//	PRAGMA foreign_keys=ON;
//
// # Error Handling
//
// Common errors:
//
//   - ErrNotFound: Requested entity does not exist
//   - ErrDuplicatePrincipal: Principal already registered
//   - ErrEmptyBalance: Withdrawal with nothing to pay out
//   - ErrStateConflict: A guarded settlement update found unexpected state
//
// All methods accept context.Context for cancellation support.
package store
