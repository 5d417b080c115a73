// Package venue declares the external collaborators the position lifecycle
// depends on. Implementations wrap real token, swap, and lending systems;
// the core only sees these interfaces.
package venue

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"hedgeScope/internal/model"
)

// TokenAdapter moves and inspects tokens. Failures are reported as errors,
// never as silent zero-amount successes.
type TokenAdapter interface {
	Transfer(ctx context.Context, token, from, to common.Address, amount *uint256.Int) error
	Approve(ctx context.Context, token, spender common.Address, amount *uint256.Int) error
	BalanceOf(ctx context.Context, token, owner common.Address) (*uint256.Int, error)
	Decimals(ctx context.Context, token common.Address) (uint8, error)
}

// SwapVenue quotes and routes swaps. Quote may be approximate (spot price
// plus a fee haircut); SwapExactIn fails when the output falls below minOut.
type SwapVenue interface {
	Quote(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *uint256.Int) (*uint256.Int, error)
	SwapExactIn(ctx context.Context, tokenIn, tokenOut common.Address, amountIn, minOut *uint256.Int) (*uint256.Int, error)
}

// LendingVenue is one shared credit line: collateral, debt, and account
// data are aggregates across every position opened through it. FlashLoan
// issues a short-lived loan and invokes fn synchronously within the same
// atomic unit; when fn succeeds the venue reclaims amount plus fee from the
// caller's balance, and when fn fails the unit aborts and the venue
// reclaims the principal alone.
type LendingVenue interface {
	SupplyCollateral(ctx context.Context, token common.Address, amount *uint256.Int) error
	Borrow(ctx context.Context, token common.Address, amount *uint256.Int) error
	// Repay returns the amount actually applied to the debt; venues clamp
	// the payment to the outstanding balance.
	Repay(ctx context.Context, token common.Address, amount *uint256.Int) (*uint256.Int, error)
	Withdraw(ctx context.Context, token common.Address, amount *uint256.Int) (*uint256.Int, error)
	AccountData(ctx context.Context, owner common.Address) (model.AccountData, error)
	FlashLoan(ctx context.Context, token common.Address, amount *uint256.Int, fn func(ctx context.Context, fee *uint256.Int) error) error
}

// LiquidityPool manages concentrated-liquidity positions keyed by a
// position token id.
type LiquidityPool interface {
	Mint(ctx context.Context, token0, token1 common.Address, lowerSqrtPrice, upperSqrtPrice, amount0, amount1 *uint256.Int) (uint64, error)
	Increase(ctx context.Context, tokenID uint64, amount0, amount1 *uint256.Int) error
	Decrease(ctx context.Context, tokenID uint64) (*uint256.Int, *uint256.Int, error)
	Collect(ctx context.Context, tokenID uint64) (*uint256.Int, *uint256.Int, error)
}
