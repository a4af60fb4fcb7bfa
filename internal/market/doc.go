// Package market implements the asset lifecycle and settlement state machine.
//
// All six concerns of the ledger meet here behind one atomic boundary:
// role registry, identifier allocation, asset ownership, the listing state
// machine, purchase settlement, and balance withdrawal. Every operation
// follows the same shape: resolve the caller from context, run role and
// precondition checks as guard clauses, then apply effects. Multi-table
// effects run inside a single store transaction; a process-wide mutex
// serializes mutations so no two operations observe overlapping state.
//
// Withdrawal zeroes the balance before the payout record is written, so a
// repeated call can never pay out twice.
package market
