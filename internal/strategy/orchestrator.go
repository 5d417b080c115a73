// Package strategy coordinates the two legs of a delta-neutral position:
// a concentrated-liquidity deposit and a leveraged short hedging it.
package strategy

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"hedgeScope/internal/fixedpoint"
	"hedgeScope/internal/hedge"
	"hedgeScope/internal/ledger"
	"hedgeScope/internal/liquidity"
	"hedgeScope/internal/manager"
	"hedgeScope/internal/model"
	"hedgeScope/internal/storage"
	"hedgeScope/internal/venue"
)

var (
	ErrHedgeNotFound = errors.New("hedged position not found")
	ErrHedgeClosed   = errors.New("hedged position already closed")
	ErrUnknownMode   = errors.New("unknown allocation mode")
)

// Mode selects how capital is split between the LP leg and the short leg.
type Mode string

const (
	// ModeStatic applies the fixed 79/21 split.
	ModeStatic Mode = "static"
	// ModeSolver sizes the short so both legs lose equally at the target
	// price.
	ModeSolver Mode = "solver"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeStatic, ModeSolver:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// OpenParams describes one hedged deployment. Prices are raw token1/token0
// prices; square roots are taken internally where the pool needs them.
type OpenParams struct {
	Token0 common.Address // volatile asset, shorted by the hedge leg
	Token1 common.Address // stable asset, collateral for the hedge leg

	CurrentPrice *uint256.Int
	LowerPrice   *uint256.Int
	UpperPrice   *uint256.Int

	// TargetPrice and ShortPrice feed the solver; static mode ignores them.
	TargetPrice *uint256.Int
	ShortPrice  *uint256.Int

	TotalCapital *uint256.Int
	Leverage     *uint256.Int
}

// Orchestrator opens and closes hedged positions. Calls are serialized so
// the two legs of one deployment never interleave with another.
type Orchestrator struct {
	mu sync.Mutex

	mode    Mode
	manager *manager.Manager
	pool    venue.LiquidityPool
	journal storage.Journal
	hedged  storage.HedgedSink
	logger  *zap.Logger

	positions map[common.Address][]*model.HedgedPosition
}

func New(mode Mode, mgr *manager.Manager, pool venue.LiquidityPool, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		mode:      mode,
		manager:   mgr,
		pool:      pool,
		logger:    logger,
		positions: make(map[common.Address][]*model.HedgedPosition),
	}
}

// WithJournal attaches an audit journal for hedged transitions.
func (o *Orchestrator) WithJournal(journal storage.Journal) *Orchestrator {
	o.journal = journal
	return o
}

// WithHedgedSink attaches a durable mirror for hedged position records.
func (o *Orchestrator) WithHedgedSink(sink storage.HedgedSink) *Orchestrator {
	o.hedged = sink
	return o
}

// Allocate splits totalCapital between the LP leg and the short leg under
// the configured mode. Static mode ignores the price arguments.
func (o *Orchestrator) Allocate(currentPrice, lowerPrice, upperPrice, targetPrice, shortPrice, totalCapital *uint256.Int) (*uint256.Int, *uint256.Int, error) {
	switch o.mode {
	case ModeStatic:
		alloc := hedge.StaticAllocation(totalCapital)
		return alloc.LPValue, alloc.ShortValue, nil
	case ModeSolver:
		alloc, err := hedge.SolveEqualPnLAllocation(currentPrice, lowerPrice, upperPrice, targetPrice, shortPrice)
		if err != nil {
			return nil, nil, fmt.Errorf("solve allocation: %w", err)
		}
		return hedge.Rescale(alloc, totalCapital)
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownMode, o.mode)
	}
}

// OpenHedged deploys totalCapital as an LP position plus a leveraged short
// and records the pair. If the short leg fails the LP leg is withdrawn
// before the error is returned.
func (o *Orchestrator) OpenHedged(ctx context.Context, owner common.Address, p OpenParams) (uint64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if p.TotalCapital == nil || p.TotalCapital.IsZero() {
		return 0, fmt.Errorf("%w: total capital must be positive", manager.ErrInvalidInput)
	}

	lpValue, shortValue, err := o.Allocate(p.CurrentPrice, p.LowerPrice, p.UpperPrice, p.TargetPrice, p.ShortPrice, p.TotalCapital)
	if err != nil {
		return 0, err
	}

	sp := fixedpoint.Sqrt(p.CurrentPrice)
	sa := fixedpoint.Sqrt(p.LowerPrice)
	sb := fixedpoint.Sqrt(p.UpperPrice)

	amount0, amount1, err := liquidity.SplitValueByRange(sp, sa, sb, lpValue)
	if err != nil {
		return 0, fmt.Errorf("split capital: %w", err)
	}

	lpTokenID, err := o.pool.Mint(ctx, p.Token0, p.Token1, sa, sb, amount0, amount1)
	if err != nil {
		return 0, fmt.Errorf("mint liquidity: %w", err)
	}

	var shortID uint64
	if !shortValue.IsZero() {
		shortID, err = o.manager.Short(ctx, owner, p.Token1, p.Token0, shortValue, p.Leverage)
		if err != nil {
			if _, _, derr := o.pool.Decrease(ctx, lpTokenID); derr != nil {
				o.logger.Warn("liquidity rollback failed", zap.Uint64("lp_token", lpTokenID), zap.Error(derr))
			}
			return 0, fmt.Errorf("hedge leg: %w", err)
		}
	}

	id := uint64(len(o.positions[owner]))
	pos := &model.HedgedPosition{
		Owner:      owner,
		ID:         id,
		LPTokenID:  lpTokenID,
		ShortID:    shortID,
		Amount0:    amount0.Clone(),
		Amount1:    amount1.Clone(),
		LPValue:    lpValue.Clone(),
		ShortValue: shortValue.Clone(),
		Active:     true,
	}
	o.positions[owner] = append(o.positions[owner], pos)
	o.mirror(ctx, *pos)

	o.record(ctx, model.PositionEvent{
		Kind:       "open_hedged",
		Owner:      owner.Hex(),
		PositionID: id,
		BaseAsset:  p.Token1.Hex(),
		Asset:      p.Token0.Hex(),
		Supplied:   p.TotalCapital.Dec(),
	})

	o.logger.Info("hedged position opened",
		zap.Stringer("owner", owner),
		zap.Uint64("id", id),
		zap.String("lp_value", lpValue.Dec()),
		zap.String("short_value", shortValue.Dec()),
	)
	return id, nil
}

// CloseHedged withdraws the LP leg, collects its fees, and unwinds the
// short leg. It returns the short leg's payout; the withdrawn LP amounts
// stay with the pool adapter's recipient.
func (o *Orchestrator) CloseHedged(ctx context.Context, owner common.Address, id uint64) (*uint256.Int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	list := o.positions[owner]
	if id >= uint64(len(list)) {
		return nil, ErrHedgeNotFound
	}
	pos := list[id]
	if !pos.Active {
		return nil, ErrHedgeClosed
	}

	if _, _, err := o.pool.Decrease(ctx, pos.LPTokenID); err != nil {
		return nil, fmt.Errorf("withdraw liquidity: %w", err)
	}
	if _, _, err := o.pool.Collect(ctx, pos.LPTokenID); err != nil {
		o.logger.Warn("fee collection failed", zap.Uint64("lp_token", pos.LPTokenID), zap.Error(err))
	}

	payout := new(uint256.Int)
	if !pos.ShortValue.IsZero() {
		got, err := o.manager.Close(ctx, owner, pos.ShortID)
		if err != nil && !errors.Is(err, ledger.ErrAlreadyClosed) {
			return nil, fmt.Errorf("close hedge leg: %w", err)
		}
		if got != nil {
			payout = got
		}
	}
	pos.Active = false
	o.mirror(ctx, *pos)

	o.record(ctx, model.PositionEvent{
		Kind:       "close_hedged",
		Owner:      owner.Hex(),
		PositionID: id,
		Payout:     payout.Dec(),
	})

	o.logger.Info("hedged position closed", zap.Stringer("owner", owner), zap.Uint64("id", id))
	return payout, nil
}

// List returns copies of the owner's hedged positions, open and closed.
func (o *Orchestrator) List(owner common.Address) []model.HedgedPosition {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make([]model.HedgedPosition, 0, len(o.positions[owner]))
	for _, pos := range o.positions[owner] {
		out = append(out, *pos)
	}
	return out
}

func (o *Orchestrator) record(ctx context.Context, event model.PositionEvent) {
	if o.journal == nil {
		return
	}
	if err := o.journal.Record(ctx, event); err != nil {
		o.logger.Warn("journal write failed", zap.Error(err))
	}
}

// mirror pushes the position snapshot to the durable sink, best effort.
func (o *Orchestrator) mirror(ctx context.Context, pos model.HedgedPosition) {
	if o.hedged == nil {
		return
	}
	if err := o.hedged.UpsertHedgedPositions(ctx, []model.HedgedPosition{pos}); err != nil {
		o.logger.Warn("hedged mirror failed", zap.Uint64("id", pos.ID), zap.Error(err))
	}
}
