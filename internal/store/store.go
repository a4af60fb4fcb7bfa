// ABOUTME: Store types and errors for bazaar-gateway persistence
// ABOUTME: Defines Asset, Listing, Payout structs shared by all store operations

package store

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrDuplicatePrincipal is returned when trying to create a principal that already exists
var ErrDuplicatePrincipal = errors.New("principal already exists")

// Asset represents a minted token: a unique identifier bound to an owner
// and an immutable metadata URI. Assets are never deleted, only transferred.
type Asset struct {
	ID        int64
	Owner     string
	TokenURI  string
	CreatedAt time.Time
}

// Listing represents the sale state of an asset. Every minted asset has a
// listing row; Listed=false means the asset is off the market.
type Listing struct {
	AssetID   int64
	Price     int64 // smallest currency unit, never negative
	Seller    string
	Listed    bool
	UpdatedAt time.Time
}

// ListedAsset joins an active listing with its asset for marketplace reads.
type ListedAsset struct {
	AssetID  int64
	Owner    string
	TokenURI string
	Price    int64
	Seller   string
}

// Payout records a completed withdrawal: the external value transfer that
// paid out a principal's accrued balance.
type Payout struct {
	ID          string
	PrincipalID string
	Amount      int64
	CreatedAt   time.Time
}

// TreasuryTotals tracks lifetime value flow through the market.
// Invariant: Received - Withdrawn == sum of all unwithdrawn balances.
type TreasuryTotals struct {
	Received  int64
	Withdrawn int64
}

// SaleResult reports the effects of a settled purchase.
type SaleResult struct {
	AssetID int64
	Buyer   string
	Seller  string
	Price   int64
	Refund  int64 // excess payment returned to the buyer
}
