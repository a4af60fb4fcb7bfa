// ABOUTME: Typed domain errors for marketplace operations
// ABOUTME: Every failure aborts the whole operation; callers match with errors.Is

package market

import "errors"

var (
	// ErrUnauthorized is returned when the caller lacks the role an operation requires
	ErrUnauthorized = errors.New("unauthorized")

	// ErrUnknownAsset is returned for asset identifiers that were never issued
	ErrUnknownAsset = errors.New("unknown asset")

	// ErrNotListed is returned when buying an asset that is not on the market
	ErrNotListed = errors.New("asset not listed")

	// ErrInsufficientPayment is returned when the offered payment is below the asking price
	ErrInsufficientPayment = errors.New("insufficient payment")

	// ErrExcessPayment is returned for overpayment when the keep-exact policy is configured
	ErrExcessPayment = errors.New("payment exceeds price")

	// ErrInvalidPrice is returned for prices that cannot be represented
	ErrInvalidPrice = errors.New("invalid price")

	// ErrNothingToWithdraw is returned when withdrawing a zero balance
	ErrNothingToWithdraw = errors.New("nothing to withdraw")

	// ErrSelfPurchase is returned when the current owner tries to buy their own asset
	ErrSelfPurchase = errors.New("cannot buy own asset")

	// ErrNotOwnerOrSeller is returned when a listing mutation comes from the wrong principal
	ErrNotOwnerOrSeller = errors.New("caller is not the owner or seller")

	// ErrInvalidRole is returned for role names outside the capability set
	ErrInvalidRole = errors.New("invalid role")
)
