// ABOUTME: Market service implementing the asset lifecycle and settlement state machine
// ABOUTME: Role-gated mint, listing, purchase, and withdrawal over the SQLite ledger

package market

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/lumenarts/bazaar-gateway/internal/auth"
	"github.com/lumenarts/bazaar-gateway/internal/store"
)

// OverpaymentPolicy selects what happens when a buyer pays more than the
// asking price.
type OverpaymentPolicy string

const (
	// OverpaymentRefund returns the excess to the buyer in the same settlement
	OverpaymentRefund OverpaymentPolicy = "refund"
	// OverpaymentReject fails the purchase unless payment equals the price exactly
	OverpaymentReject OverpaymentPolicy = "reject"
)

// Ledger is the persistence surface the market needs. *store.SQLiteStore
// satisfies it.
type Ledger interface {
	// Roles
	AddRole(ctx context.Context, principalID string, role store.RoleName) error
	RemoveRole(ctx context.Context, principalID string, role store.RoleName) error
	HasRole(ctx context.Context, principalID string, role store.RoleName) (bool, error)
	ListRoles(ctx context.Context, principalID string) ([]store.RoleName, error)

	// Assets and listings
	GetAsset(ctx context.Context, assetID int64) (*store.Asset, error)
	ListAssetsByOwner(ctx context.Context, owner string) ([]store.Asset, error)
	TokenIDCounter(ctx context.Context) (int64, error)
	GetListing(ctx context.Context, assetID int64) (*store.Listing, error)
	SetListingPrice(ctx context.Context, assetID int64, price int64) error
	SetListed(ctx context.Context, assetID int64, seller string, price int64, listed bool) error
	ListActiveListings(ctx context.Context) ([]store.ListedAsset, error)

	// Balances
	GetBalance(ctx context.Context, principalID string) (int64, error)

	// Settlement transactions
	MintListed(ctx context.Context, creator, tokenURI string, price int64) (int64, error)
	ExecuteSale(ctx context.Context, p store.SaleParams) (*store.SaleResult, error)
	ExecuteWithdrawal(ctx context.Context, principalID string) (*store.Payout, error)

	// Audit
	AppendEvent(ctx context.Context, event *store.MarketEvent) error
	ListEvents(ctx context.Context, limit int) ([]store.MarketEvent, error)
}

// Service executes marketplace operations against the ledger. A single
// mutex serializes all mutating operations: the ledger behaves as one
// shared resource and every mutation holds exclusive access for its whole
// duration, so checks and effects cannot interleave across callers.
type Service struct {
	ledger      Ledger
	overpayment OverpaymentPolicy
	logger      *slog.Logger

	mu sync.Mutex
}

// NewService creates a market service over the given ledger
func NewService(ledger Ledger, overpayment OverpaymentPolicy, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if overpayment == "" {
		overpayment = OverpaymentRefund
	}
	return &Service{
		ledger:      ledger,
		overpayment: overpayment,
		logger:      logger.With("component", "market"),
	}
}

// caller extracts the authenticated principal from ctx
func caller(ctx context.Context) (string, error) {
	authCtx := auth.FromContext(ctx)
	if authCtx == nil || authCtx.PrincipalID == "" {
		return "", ErrUnauthorized
	}
	return authCtx.PrincipalID, nil
}

// requireRole checks that the caller holds the given role before any
// mutation begins.
func (s *Service) requireRole(ctx context.Context, principalID string, role store.RoleName) error {
	has, err := s.ledger.HasRole(ctx, principalID, role)
	if err != nil {
		return fmt.Errorf("checking %s role: %w", role, err)
	}
	if !has {
		return fmt.Errorf("%w: %s role required", ErrUnauthorized, role)
	}
	return nil
}

// GrantRole grants a capability to a principal. Only admins may call it.
// Granting an already-held role is a no-op success.
func (s *Service) GrantRole(ctx context.Context, principalID string, role store.RoleName) error {
	actor, err := caller(ctx)
	if err != nil {
		return err
	}
	if !store.IsValidRole(role) {
		return fmt.Errorf("%w: %s", ErrInvalidRole, role)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireRole(ctx, actor, store.RoleAdmin); err != nil {
		return err
	}

	if err := s.ledger.AddRole(ctx, principalID, role); err != nil {
		return err
	}

	if err := s.ledger.AppendEvent(ctx, &store.MarketEvent{
		Type:         store.EventTypeRoleGrant,
		Actor:        actor,
		Counterparty: &principalID,
		Detail:       map[string]any{"role": string(role)},
	}); err != nil {
		s.logger.Error("recording role grant event", "error", err)
	}

	return nil
}

// RevokeRole removes a capability from a principal. Only admins may call it.
func (s *Service) RevokeRole(ctx context.Context, principalID string, role store.RoleName) error {
	actor, err := caller(ctx)
	if err != nil {
		return err
	}
	if !store.IsValidRole(role) {
		return fmt.Errorf("%w: %s", ErrInvalidRole, role)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireRole(ctx, actor, store.RoleAdmin); err != nil {
		return err
	}

	if err := s.ledger.RemoveRole(ctx, principalID, role); err != nil {
		return err
	}

	if err := s.ledger.AppendEvent(ctx, &store.MarketEvent{
		Type:         store.EventTypeRoleRevoke,
		Actor:        actor,
		Counterparty: &principalID,
		Detail:       map[string]any{"role": string(role)},
	}); err != nil {
		s.logger.Error("recording role revoke event", "error", err)
	}

	return nil
}

// HasRole reports whether a principal holds a role. Pure lookup.
func (s *Service) HasRole(ctx context.Context, principalID string, role store.RoleName) (bool, error) {
	return s.ledger.HasRole(ctx, principalID, role)
}

// CreateAndList mints a new asset owned by the caller and lists it at the
// given price in one atomic step. Requires the creator role. A price of
// zero is a valid free listing. Returns the issued asset ID.
func (s *Service) CreateAndList(ctx context.Context, tokenURI string, price int64) (int64, error) {
	actor, err := caller(ctx)
	if err != nil {
		return 0, err
	}
	if price < 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidPrice, price)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireRole(ctx, actor, store.RoleCreator); err != nil {
		return 0, err
	}

	return s.ledger.MintListed(ctx, actor, tokenURI, price)
}

// SetPrice updates the asking price on a listing. Only the listing's
// seller may call it, and the seller must hold the seller role.
func (s *Service) SetPrice(ctx context.Context, assetID int64, price int64) error {
	actor, err := caller(ctx)
	if err != nil {
		return err
	}
	if price < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidPrice, price)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	listing, err := s.ledger.GetListing(ctx, assetID)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %d", ErrUnknownAsset, assetID)
	}
	if err != nil {
		return err
	}

	if listing.Seller != actor {
		return fmt.Errorf("%w: asset %d", ErrNotOwnerOrSeller, assetID)
	}
	if err := s.requireRole(ctx, actor, store.RoleSeller); err != nil {
		return err
	}

	if err := s.ledger.SetListingPrice(ctx, assetID, price); err != nil {
		return err
	}

	if err := s.ledger.AppendEvent(ctx, &store.MarketEvent{
		Type:    store.EventTypePriceSet,
		Actor:   actor,
		AssetID: &assetID,
		Amount:  &price,
	}); err != nil {
		s.logger.Error("recording price event", "error", err)
	}

	return nil
}

// List puts an asset on the market at the given price. Only the current
// owner may call it; the owner becomes the listing's seller.
func (s *Service) List(ctx context.Context, assetID int64, price int64) error {
	actor, err := caller(ctx)
	if err != nil {
		return err
	}
	if price < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidPrice, price)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	asset, err := s.ledger.GetAsset(ctx, assetID)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %d", ErrUnknownAsset, assetID)
	}
	if err != nil {
		return err
	}

	if asset.Owner != actor {
		return fmt.Errorf("%w: asset %d", ErrNotOwnerOrSeller, assetID)
	}

	if err := s.ledger.SetListed(ctx, assetID, actor, price, true); err != nil {
		return err
	}

	if err := s.ledger.AppendEvent(ctx, &store.MarketEvent{
		Type:    store.EventTypeList,
		Actor:   actor,
		AssetID: &assetID,
		Amount:  &price,
	}); err != nil {
		s.logger.Error("recording list event", "error", err)
	}

	return nil
}

// Delist takes an asset off the market. Only the current owner may call
// it. Delisting an unlisted asset is a no-op success.
func (s *Service) Delist(ctx context.Context, assetID int64) error {
	actor, err := caller(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	asset, err := s.ledger.GetAsset(ctx, assetID)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %d", ErrUnknownAsset, assetID)
	}
	if err != nil {
		return err
	}

	if asset.Owner != actor {
		return fmt.Errorf("%w: asset %d", ErrNotOwnerOrSeller, assetID)
	}

	listing, err := s.ledger.GetListing(ctx, assetID)
	if err != nil {
		return err
	}
	if !listing.Listed {
		return nil
	}

	if err := s.ledger.SetListed(ctx, assetID, actor, listing.Price, false); err != nil {
		return err
	}

	if err := s.ledger.AppendEvent(ctx, &store.MarketEvent{
		Type:    store.EventTypeDelist,
		Actor:   actor,
		AssetID: &assetID,
	}); err != nil {
		s.logger.Error("recording delist event", "error", err)
	}

	return nil
}

// Buy settles a purchase: the caller pays at least the asking price,
// receives ownership, the listing closes, and the seller's balance is
// credited, all in one transaction. Requires the buyer role. All checks
// run before any effect; a failed check leaves every table untouched.
func (s *Service) Buy(ctx context.Context, assetID int64, payment int64) (*store.SaleResult, error) {
	actor, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if payment < 0 {
		return nil, fmt.Errorf("%w: negative payment", ErrInsufficientPayment)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireRole(ctx, actor, store.RoleBuyer); err != nil {
		return nil, err
	}

	asset, err := s.ledger.GetAsset(ctx, assetID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownAsset, assetID)
	}
	if err != nil {
		return nil, err
	}

	listing, err := s.ledger.GetListing(ctx, assetID)
	if err != nil {
		return nil, err
	}
	if !listing.Listed {
		return nil, fmt.Errorf("%w: %d", ErrNotListed, assetID)
	}

	// A listing whose seller no longer owns the asset is stale: the asset
	// moved outside the listing path. Refuse to settle against it.
	if listing.Seller != asset.Owner {
		return nil, fmt.Errorf("%w: stale listing for asset %d", ErrNotListed, assetID)
	}

	if actor == asset.Owner {
		return nil, fmt.Errorf("%w: asset %d", ErrSelfPurchase, assetID)
	}

	if payment < listing.Price {
		return nil, fmt.Errorf("%w: offered %d, price %d", ErrInsufficientPayment, payment, listing.Price)
	}

	refund := payment - listing.Price
	if refund > 0 && s.overpayment == OverpaymentReject {
		return nil, fmt.Errorf("%w: offered %d, price %d", ErrExcessPayment, payment, listing.Price)
	}

	return s.ledger.ExecuteSale(ctx, store.SaleParams{
		AssetID: assetID,
		Buyer:   actor,
		Owner:   asset.Owner,
		Seller:  listing.Seller,
		Price:   listing.Price,
		Refund:  refund,
	})
}

// Withdraw pays out the caller's full accrued balance and zeroes it.
// Every principal withdraws its own balance; an admin is just one such
// principal. Fails with ErrNothingToWithdraw on a zero balance.
func (s *Service) Withdraw(ctx context.Context) (*store.Payout, error) {
	actor, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	payout, err := s.ledger.ExecuteWithdrawal(ctx, actor)
	if errors.Is(err, store.ErrEmptyBalance) {
		return nil, ErrNothingToWithdraw
	}
	if err != nil {
		return nil, err
	}
	return payout, nil
}

// OwnerOf returns the current owner of an asset
func (s *Service) OwnerOf(ctx context.Context, assetID int64) (string, error) {
	asset, err := s.ledger.GetAsset(ctx, assetID)
	if errors.Is(err, store.ErrNotFound) {
		return "", fmt.Errorf("%w: %d", ErrUnknownAsset, assetID)
	}
	if err != nil {
		return "", err
	}
	return asset.Owner, nil
}

// TokenURI returns the immutable metadata URI of an asset
func (s *Service) TokenURI(ctx context.Context, assetID int64) (string, error) {
	asset, err := s.ledger.GetAsset(ctx, assetID)
	if errors.Is(err, store.ErrNotFound) {
		return "", fmt.Errorf("%w: %d", ErrUnknownAsset, assetID)
	}
	if err != nil {
		return "", err
	}
	return asset.TokenURI, nil
}

// GetAsset returns the full asset record
func (s *Service) GetAsset(ctx context.Context, assetID int64) (*store.Asset, error) {
	asset, err := s.ledger.GetAsset(ctx, assetID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownAsset, assetID)
	}
	return asset, err
}

// AllListed returns every asset currently on the market
func (s *Service) AllListed(ctx context.Context) ([]store.ListedAsset, error) {
	return s.ledger.ListActiveListings(ctx)
}

// MyAssets returns the assets owned by the caller
func (s *Service) MyAssets(ctx context.Context) ([]store.Asset, error) {
	actor, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	return s.ledger.ListAssetsByOwner(ctx, actor)
}

// MyBalance returns the caller's accrued, unwithdrawn proceeds
func (s *Service) MyBalance(ctx context.Context) (int64, error) {
	actor, err := caller(ctx)
	if err != nil {
		return 0, err
	}
	return s.ledger.GetBalance(ctx, actor)
}

// TokenIDCounter returns the most recently issued asset identifier
func (s *Service) TokenIDCounter(ctx context.Context) (int64, error) {
	return s.ledger.TokenIDCounter(ctx)
}

// Events returns recent market events. Admin only.
func (s *Service) Events(ctx context.Context, limit int) ([]store.MarketEvent, error) {
	actor, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.requireRole(ctx, actor, store.RoleAdmin); err != nil {
		return nil, err
	}
	return s.ledger.ListEvents(ctx, limit)
}
