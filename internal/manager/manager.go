// Package manager runs the leveraged-short lifecycle: opening a short by
// borrowing against supplied collateral inside one atomic unit, and closing
// it by unwinding the debt and paying out the remainder.
package manager

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"hedgeScope/internal/config"
	"hedgeScope/internal/fixedpoint"
	"hedgeScope/internal/ledger"
	"hedgeScope/internal/model"
	"hedgeScope/internal/storage"
	"hedgeScope/internal/venue"
)

var (
	ErrInvalidInput         = errors.New("invalid input")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrAtomicSequenceFailed = errors.New("atomic sequence failed")
)

const bpsScale = 10_000

// Config holds the two safety constants. They are calibrated against
// different units (swap-back estimate vs quoted total debt) and stay
// independently tunable.
type Config struct {
	// OpenMarkupBps pads the leveraged-asset borrow at open so the
	// swap-back covers the short-lived loan even under slippage.
	OpenMarkupBps uint64
	// CloseBufferBps pads the quoted debt at close to tolerate interest
	// accrued between quote and repayment.
	CloseBufferBps uint64
}

// DefaultConfig returns the production markups: 1.01x at open, 1.005x on
// total debt at close.
func DefaultConfig() Config {
	return Config{OpenMarkupBps: 100, CloseBufferBps: 50}
}

// FromAppConfig maps the loaded application settings onto the manager's
// safety constants.
func FromAppConfig(cfg config.Config) Config {
	return Config{
		OpenMarkupBps:  cfg.OpenMarkupBps,
		CloseBufferBps: cfg.CloseBufferBps,
	}
}

// Manager serializes open/close sequences over one shared lending credit
// line. Every call runs to completion or fully unwinds before the next
// begins.
type Manager struct {
	mu sync.Mutex

	cfg     Config
	self    common.Address
	ledger  *ledger.Ledger
	tokens  venue.TokenAdapter
	swap    venue.SwapVenue
	lending venue.LendingVenue
	journal storage.Journal
	sink    storage.PositionSink
	logger  *zap.Logger
}

func New(cfg Config, self common.Address, book *ledger.Ledger, tokens venue.TokenAdapter, swap venue.SwapVenue, lending venue.LendingVenue, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		cfg:     cfg,
		self:    self,
		ledger:  book,
		tokens:  tokens,
		swap:    swap,
		lending: lending,
		logger:  logger,
	}
}

// WithJournal attaches an audit journal for committed transitions.
func (m *Manager) WithJournal(journal storage.Journal) *Manager {
	m.journal = journal
	return m
}

// WithSink attaches a durable mirror for position records.
func (m *Manager) WithSink(sink storage.PositionSink) *Manager {
	m.sink = sink
	return m
}

// Ledger exposes the position book for reads.
func (m *Manager) Ledger() *ledger.Ledger {
	return m.ledger
}

// AccountData returns the lending venue's aggregate exposure for this
// manager's credit line. It spans all open positions, not one.
func (m *Manager) AccountData(ctx context.Context) (model.AccountData, error) {
	return m.lending.AccountData(ctx, m.self)
}

// Short opens a leveraged short: pull supplied collateral from the owner,
// flash-borrow the leverage gap, collateralize, borrow the leveraged asset,
// swap it back to base, and repay the flash loan, all in one unit. Any
// failure unwinds every prior step including the ledger write.
func (m *Manager) Short(ctx context.Context, owner, baseAsset, leveragedAsset common.Address, suppliedAmount, leverage *uint256.Int) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if suppliedAmount == nil || suppliedAmount.IsZero() {
		return 0, fmt.Errorf("%w: supplied amount must be positive", ErrInvalidInput)
	}
	if leverage == nil || leverage.Cmp(fixedpoint.One) <= 0 {
		return 0, fmt.Errorf("%w: leverage must exceed 1.0", ErrInvalidInput)
	}

	balance, err := m.tokens.BalanceOf(ctx, baseAsset, owner)
	if err != nil {
		return 0, fmt.Errorf("balance of owner: %w", err)
	}
	if balance.Lt(suppliedAmount) {
		return 0, fmt.Errorf("%w: have %s, need %s", ErrInsufficientFunds, balance.Dec(), suppliedAmount.Dec())
	}

	// borrowNotional = supplied * (leverage - 1)
	gap := new(uint256.Int).Sub(leverage, fixedpoint.One)
	borrowNotional, err := fixedpoint.Mul(suppliedAmount, gap)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	// Size the leveraged-asset borrow before any state change: quote the
	// notional at the current price and pad it by the open markup.
	borrowLeveraged, err := m.swap.Quote(ctx, baseAsset, leveragedAsset, borrowNotional)
	if err != nil {
		return 0, fmt.Errorf("quote borrow size: %w", err)
	}
	borrowLeveraged = applyBps(borrowLeveraged, bpsScale+m.cfg.OpenMarkupBps)

	comp := newSaga(m.logger)

	if err := m.tokens.Transfer(ctx, baseAsset, owner, m.self, suppliedAmount); err != nil {
		return 0, fmt.Errorf("pull collateral: %w", err)
	}
	comp.push("return collateral", func(ctx context.Context) error {
		return m.tokens.Transfer(ctx, baseAsset, m.self, owner, suppliedAmount)
	})

	// The record exists in state Open before any external borrowing call
	// so a reentrant read sees a consistent entry.
	id := m.ledger.Append(model.LeveragedPosition{
		Owner:          owner,
		BaseAsset:      baseAsset,
		LeveragedAsset: leveragedAsset,
		SuppliedAmount: suppliedAmount.Clone(),
		Leverage:       leverage.Clone(),
		BorrowedAtOpen: borrowLeveraged.Clone(),
		State:          model.StateOpen,
	})
	comp.push("remove ledger record", func(ctx context.Context) error {
		return m.ledger.RemoveLast(owner, id)
	})

	leftover := new(uint256.Int)
	unwound := false
	err = m.lending.FlashLoan(ctx, baseAsset, borrowNotional, func(ctx context.Context, fee *uint256.Int) error {
		stepErr := func() error {
			totalCollateral, err := fixedpoint.Add(suppliedAmount, borrowNotional)
			if err != nil {
				return err
			}
			if err := m.lending.SupplyCollateral(ctx, baseAsset, totalCollateral); err != nil {
				return fmt.Errorf("supply collateral: %w", err)
			}
			comp.push("withdraw collateral", func(ctx context.Context) error {
				_, err := m.lending.Withdraw(ctx, baseAsset, totalCollateral)
				return err
			})

			if err := m.lending.Borrow(ctx, leveragedAsset, borrowLeveraged); err != nil {
				return fmt.Errorf("borrow leveraged asset: %w", err)
			}
			comp.push("repay borrow", func(ctx context.Context) error {
				_, err := m.lending.Repay(ctx, leveragedAsset, borrowLeveraged)
				return err
			})

			need, err := fixedpoint.Add(borrowNotional, fee)
			if err != nil {
				return err
			}
			proceeds, err := m.swap.SwapExactIn(ctx, leveragedAsset, baseAsset, borrowLeveraged, need)
			if err != nil {
				return fmt.Errorf("swap back to base: %w", err)
			}
			if proceeds.Lt(need) {
				return fmt.Errorf("swap proceeds %s below repayment %s", proceeds.Dec(), need.Dec())
			}
			leftover.Sub(proceeds, need)
			return nil
		}()
		if stepErr != nil {
			// Unwind inside the flash unit so the venue can reclaim its
			// principal from the restored balance.
			comp.unwind(ctx)
			unwound = true
		}
		return stepErr
	})
	if err != nil {
		if !unwound {
			comp.unwind(ctx)
		}
		m.logger.Warn("open aborted", zap.Stringer("owner", owner), zap.Error(err))
		return 0, fmt.Errorf("%w: %v", ErrAtomicSequenceFailed, err)
	}

	if !leftover.IsZero() {
		if err := m.tokens.Transfer(ctx, baseAsset, m.self, owner, leftover); err != nil {
			m.logger.Warn("leftover return failed", zap.Stringer("owner", owner), zap.Error(err))
		}
	}

	m.commit(ctx, owner, id, model.PositionEvent{
		Kind:       "open",
		Owner:      owner.Hex(),
		PositionID: id,
		BaseAsset:  baseAsset.Hex(),
		Asset:      leveragedAsset.Hex(),
		Supplied:   suppliedAmount.Dec(),
		Borrowed:   borrowLeveraged.Dec(),
	})

	m.logger.Info("position opened",
		zap.Stringer("owner", owner),
		zap.Uint64("id", id),
		zap.String("supplied", suppliedAmount.Dec()),
		zap.String("borrowed", borrowLeveraged.Dec()),
	)
	return id, nil
}

// Close unwinds a short: flash-borrow the repayment asset, clear the debt,
// withdraw all collateral, swap it into the leveraged asset, repay the
// flash loan, and pay any remainder to the owner.
func (m *Manager) Close(ctx context.Context, owner common.Address, id uint64) (*uint256.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pos, err := m.ledger.Get(owner, id)
	if err != nil {
		return nil, err
	}
	if pos.State == model.StateClosed {
		return nil, ledger.ErrAlreadyClosed
	}
	if pos.State != model.StateOpen {
		return nil, ledger.ErrNotOpen
	}

	acct, err := m.lending.AccountData(ctx, m.self)
	if err != nil {
		return nil, fmt.Errorf("account data: %w", err)
	}
	if acct.Debt == nil || acct.Debt.IsZero() {
		return nil, fmt.Errorf("%w: no outstanding debt", ErrInvalidInput)
	}

	// Repay target is the quoted total debt padded by the close buffer;
	// interest keeps accruing between the quote and the repayment.
	repayTarget := applyBps(acct.Debt, bpsScale+m.cfg.CloseBufferBps)

	comp := newSaga(m.logger)

	if err := m.ledger.SetState(owner, id, model.StateClosing); err != nil {
		return nil, err
	}
	comp.push("reopen position", func(ctx context.Context) error {
		return m.ledger.SetState(owner, id, model.StateOpen)
	})

	payout := new(uint256.Int)
	unwound := false
	err = m.lending.FlashLoan(ctx, pos.LeveragedAsset, repayTarget, func(ctx context.Context, fee *uint256.Int) error {
		stepErr := func() error {
			repaid, err := m.lending.Repay(ctx, pos.LeveragedAsset, repayTarget)
			if err != nil {
				return fmt.Errorf("repay debt: %w", err)
			}
			// The target carries the close buffer, so the venue applies
			// less than was offered; the undo restores exactly what the
			// repayment cleared.
			comp.push("reborrow debt", func(ctx context.Context) error {
				return m.lending.Borrow(ctx, pos.LeveragedAsset, repaid)
			})

			withdrawn, err := m.lending.Withdraw(ctx, pos.BaseAsset, acct.Collateral)
			if err != nil {
				return fmt.Errorf("withdraw collateral: %w", err)
			}
			comp.push("resupply collateral", func(ctx context.Context) error {
				return m.lending.SupplyCollateral(ctx, pos.BaseAsset, withdrawn)
			})

			need, err := fixedpoint.Add(repayTarget, fee)
			if err != nil {
				return err
			}
			proceeds, err := m.swap.SwapExactIn(ctx, pos.BaseAsset, pos.LeveragedAsset, withdrawn, need)
			if err != nil {
				return fmt.Errorf("swap collateral: %w", err)
			}
			if proceeds.Lt(need) {
				return fmt.Errorf("swap proceeds %s below repayment %s", proceeds.Dec(), need.Dec())
			}
			payout.Sub(proceeds, need)
			return nil
		}()
		if stepErr != nil {
			comp.unwind(ctx)
			unwound = true
		}
		return stepErr
	})
	if err != nil {
		if !unwound {
			comp.unwind(ctx)
		}
		m.logger.Warn("close aborted", zap.Stringer("owner", owner), zap.Uint64("id", id), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrAtomicSequenceFailed, err)
	}

	if !payout.IsZero() {
		if err := m.tokens.Transfer(ctx, pos.LeveragedAsset, m.self, owner, payout); err != nil {
			m.logger.Warn("payout transfer failed", zap.Stringer("owner", owner), zap.Error(err))
		}
	}

	if err := m.ledger.MarkClosed(owner, id); err != nil {
		return nil, err
	}
	m.commit(ctx, owner, id, model.PositionEvent{
		Kind:       "close",
		Owner:      owner.Hex(),
		PositionID: id,
		Asset:      pos.LeveragedAsset.Hex(),
		Payout:     payout.Dec(),
	})

	m.logger.Info("position closed",
		zap.Stringer("owner", owner),
		zap.Uint64("id", id),
		zap.String("payout", payout.Dec()),
	)
	return payout, nil
}

// commit records the transition in the journal and position sink. Both are
// best effort; the in-memory ledger is authoritative.
func (m *Manager) commit(ctx context.Context, owner common.Address, id uint64, event model.PositionEvent) {
	event.RecordedAt = time.Now().UTC().Format(time.RFC3339Nano)
	if m.journal != nil {
		if err := m.journal.Record(ctx, event); err != nil {
			m.logger.Warn("journal write failed", zap.Error(err))
		}
	}
	if m.sink != nil {
		if pos, err := m.ledger.Get(owner, id); err == nil {
			if err := m.sink.UpsertPosition(ctx, pos); err != nil {
				m.logger.Warn("position mirror failed", zap.Error(err))
			}
		}
	}
}

func applyBps(amount *uint256.Int, bps uint64) *uint256.Int {
	out := new(uint256.Int).Mul(amount, uint256.NewInt(bps))
	return out.Div(out, uint256.NewInt(bpsScale))
}
