package strategy

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"hedgeScope/internal/fixedpoint"
	"hedgeScope/internal/ledger"
	"hedgeScope/internal/manager"
	"hedgeScope/internal/model"
)

var (
	testOwner  = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	testMgr    = common.HexToAddress("0x00000000000000000000000000000000000000bb")
	testBank   = common.HexToAddress("0x00000000000000000000000000000000000000cc")
	testToken0 = common.HexToAddress("0x0000000000000000000000000000000000000010")
	testToken1 = common.HexToAddress("0x0000000000000000000000000000000000000011")
)

// wad converts a whole-unit count into 1e18 fixed point.
func wad(n uint64) *uint256.Int {
	return fixedpoint.FromUint64(n)
}

type fakeTokens struct {
	balances map[common.Address]map[common.Address]*uint256.Int
}

func newFakeTokens() *fakeTokens {
	return &fakeTokens{balances: make(map[common.Address]map[common.Address]*uint256.Int)}
}

func (f *fakeTokens) credit(token, owner common.Address, amount *uint256.Int) {
	if f.balances[token] == nil {
		f.balances[token] = make(map[common.Address]*uint256.Int)
	}
	if f.balances[token][owner] == nil {
		f.balances[token][owner] = new(uint256.Int)
	}
	f.balances[token][owner].Add(f.balances[token][owner], amount)
}

func (f *fakeTokens) balance(token, owner common.Address) *uint256.Int {
	if f.balances[token] == nil || f.balances[token][owner] == nil {
		return new(uint256.Int)
	}
	return f.balances[token][owner].Clone()
}

func (f *fakeTokens) Transfer(_ context.Context, token, from, to common.Address, amount *uint256.Int) error {
	bal := f.balance(token, from)
	if bal.Lt(amount) {
		return fmt.Errorf("transfer: balance %s below %s", bal.Dec(), amount.Dec())
	}
	f.balances[token][from].Sub(f.balances[token][from], amount)
	f.credit(token, to, amount)
	return nil
}

func (f *fakeTokens) Approve(context.Context, common.Address, common.Address, *uint256.Int) error {
	return nil
}

func (f *fakeTokens) BalanceOf(_ context.Context, token, owner common.Address) (*uint256.Int, error) {
	return f.balance(token, owner), nil
}

func (f *fakeTokens) Decimals(context.Context, common.Address) (uint8, error) {
	return 18, nil
}

type fakeSwap struct {
	tokens     *fakeTokens
	trader     common.Address
	haircutBps uint64
}

func (f *fakeSwap) out(amountIn *uint256.Int) *uint256.Int {
	out := new(uint256.Int).Mul(amountIn, uint256.NewInt(10_000-f.haircutBps))
	return out.Div(out, uint256.NewInt(10_000))
}

func (f *fakeSwap) Quote(_ context.Context, _, _ common.Address, amountIn *uint256.Int) (*uint256.Int, error) {
	return f.out(amountIn), nil
}

func (f *fakeSwap) SwapExactIn(ctx context.Context, tokenIn, tokenOut common.Address, amountIn, minOut *uint256.Int) (*uint256.Int, error) {
	out := f.out(amountIn)
	if out.Lt(minOut) {
		return nil, fmt.Errorf("swap output %s below minimum %s", out.Dec(), minOut.Dec())
	}
	if err := f.tokens.Transfer(ctx, tokenIn, f.trader, testBank, amountIn); err != nil {
		return nil, err
	}
	if err := f.tokens.Transfer(ctx, tokenOut, testBank, f.trader, out); err != nil {
		return nil, err
	}
	return out, nil
}

type fakeLending struct {
	tokens     *fakeTokens
	borrower   common.Address
	collateral *uint256.Int
	debt       *uint256.Int
}

func newFakeLending(tokens *fakeTokens, borrower common.Address) *fakeLending {
	return &fakeLending{
		tokens:     tokens,
		borrower:   borrower,
		collateral: new(uint256.Int),
		debt:       new(uint256.Int),
	}
}

func (f *fakeLending) SupplyCollateral(ctx context.Context, token common.Address, amount *uint256.Int) error {
	if err := f.tokens.Transfer(ctx, token, f.borrower, testBank, amount); err != nil {
		return err
	}
	f.collateral.Add(f.collateral, amount)
	return nil
}

func (f *fakeLending) Borrow(ctx context.Context, token common.Address, amount *uint256.Int) error {
	if err := f.tokens.Transfer(ctx, token, testBank, f.borrower, amount); err != nil {
		return err
	}
	f.debt.Add(f.debt, amount)
	return nil
}

func (f *fakeLending) Repay(ctx context.Context, token common.Address, amount *uint256.Int) (*uint256.Int, error) {
	pay := amount.Clone()
	if f.debt.Lt(pay) {
		pay = f.debt.Clone()
	}
	if err := f.tokens.Transfer(ctx, token, f.borrower, testBank, pay); err != nil {
		return nil, err
	}
	f.debt.Sub(f.debt, pay)
	return pay, nil
}

func (f *fakeLending) Withdraw(ctx context.Context, token common.Address, amount *uint256.Int) (*uint256.Int, error) {
	take := amount.Clone()
	if f.collateral.Lt(take) {
		take = f.collateral.Clone()
	}
	if err := f.tokens.Transfer(ctx, token, testBank, f.borrower, take); err != nil {
		return nil, err
	}
	f.collateral.Sub(f.collateral, take)
	return take, nil
}

func (f *fakeLending) AccountData(context.Context, common.Address) (model.AccountData, error) {
	return model.AccountData{
		Collateral:           f.collateral.Clone(),
		Debt:                 f.debt.Clone(),
		Available:            new(uint256.Int),
		LiquidationThreshold: uint256.NewInt(8_000),
		LTV:                  uint256.NewInt(7_000),
		HealthFactor:         fixedpoint.One.Clone(),
	}, nil
}

func (f *fakeLending) FlashLoan(ctx context.Context, token common.Address, amount *uint256.Int, fn func(ctx context.Context, fee *uint256.Int) error) error {
	if err := f.tokens.Transfer(ctx, token, testBank, f.borrower, amount); err != nil {
		return err
	}
	if err := fn(ctx, new(uint256.Int)); err != nil {
		if reclaim := f.tokens.Transfer(ctx, token, f.borrower, testBank, amount); reclaim != nil {
			return fmt.Errorf("flash principal stranded: %v (cause: %w)", reclaim, err)
		}
		return fmt.Errorf("flash unit aborted: %w", err)
	}
	return f.tokens.Transfer(ctx, token, f.borrower, testBank, amount)
}

type fakePool struct {
	nextID uint64
	live   map[uint64]bool
}

func newFakePool() *fakePool {
	return &fakePool{live: make(map[uint64]bool)}
}

func (f *fakePool) Mint(_ context.Context, _, _ common.Address, _, _, _, _ *uint256.Int) (uint64, error) {
	id := f.nextID
	f.nextID++
	f.live[id] = true
	return id, nil
}

func (f *fakePool) Increase(_ context.Context, tokenID uint64, _, _ *uint256.Int) error {
	if !f.live[tokenID] {
		return fmt.Errorf("no live position %d", tokenID)
	}
	return nil
}

func (f *fakePool) Decrease(_ context.Context, tokenID uint64) (*uint256.Int, *uint256.Int, error) {
	if !f.live[tokenID] {
		return nil, nil, fmt.Errorf("no live position %d", tokenID)
	}
	f.live[tokenID] = false
	return new(uint256.Int), new(uint256.Int), nil
}

func (f *fakePool) Collect(context.Context, uint64) (*uint256.Int, *uint256.Int, error) {
	return new(uint256.Int), new(uint256.Int), nil
}

type strategyFixture struct {
	tokens *fakeTokens
	swap   *fakeSwap
	pool   *fakePool
	orch   *Orchestrator
}

func newStrategyFixture(mode Mode) *strategyFixture {
	tokens := newFakeTokens()
	tokens.credit(testToken1, testOwner, wad(10_000))
	tokens.credit(testToken0, testBank, wad(1_000_000))
	tokens.credit(testToken1, testBank, wad(1_000_000))

	swap := &fakeSwap{tokens: tokens, trader: testMgr}
	lending := newFakeLending(tokens, testMgr)
	mgr := manager.New(manager.DefaultConfig(), testMgr, ledger.New(), tokens, swap, lending, nil)
	pool := newFakePool()

	return &strategyFixture{
		tokens: tokens,
		swap:   swap,
		pool:   pool,
		orch:   New(mode, mgr, pool, nil),
	}
}

func defaultOpenParams() OpenParams {
	return OpenParams{
		Token0:       testToken0,
		Token1:       testToken1,
		CurrentPrice: wad(100),
		LowerPrice:   wad(25),
		UpperPrice:   wad(400),
		TargetPrice:  wad(50),
		ShortPrice:   wad(100),
		TotalCapital: wad(1_000),
		Leverage:     wad(2),
	}
}

func TestAllocateStatic(t *testing.T) {
	f := newStrategyFixture(ModeStatic)
	p := defaultOpenParams()

	lp, short, err := f.orch.Allocate(p.CurrentPrice, p.LowerPrice, p.UpperPrice, p.TargetPrice, p.ShortPrice, wad(1_000))
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if !lp.Eq(wad(790)) {
		t.Fatalf("lp = %s, want %s", lp.Dec(), wad(790).Dec())
	}
	if !short.Eq(wad(210)) {
		t.Fatalf("short = %s, want %s", short.Dec(), wad(210).Dec())
	}
}

func TestAllocateSolverPreservesTotal(t *testing.T) {
	f := newStrategyFixture(ModeSolver)
	p := defaultOpenParams()
	total := wad(1_000)

	lp, short, err := f.orch.Allocate(p.CurrentPrice, p.LowerPrice, p.UpperPrice, p.TargetPrice, p.ShortPrice, total)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if short.IsZero() {
		t.Fatalf("downward target should size a nonzero short")
	}
	sum := new(uint256.Int).Add(lp, short)
	if !sum.Eq(total) {
		t.Fatalf("lp+short = %s, want %s", sum.Dec(), total.Dec())
	}
}

func TestAllocateSolverRejectsEqualPrices(t *testing.T) {
	f := newStrategyFixture(ModeSolver)
	p := defaultOpenParams()

	_, _, err := f.orch.Allocate(p.CurrentPrice, p.LowerPrice, p.UpperPrice, wad(100), wad(100), wad(1_000))
	if !errors.Is(err, fixedpoint.ErrDivisionByZero) {
		t.Fatalf("expected ErrDivisionByZero, got %v", err)
	}
}

func TestOpenCloseHedged(t *testing.T) {
	f := newStrategyFixture(ModeStatic)
	ctx := context.Background()

	id, err := f.orch.OpenHedged(ctx, testOwner, defaultOpenParams())
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	list := f.orch.List(testOwner)
	if len(list) != 1 {
		t.Fatalf("expected one position, got %d", len(list))
	}
	pos := list[0]
	if !pos.Active {
		t.Fatalf("fresh position should be active")
	}
	if !pos.LPValue.Eq(wad(790)) || !pos.ShortValue.Eq(wad(210)) {
		t.Fatalf("allocation on record = %s/%s", pos.LPValue.Dec(), pos.ShortValue.Dec())
	}
	if !f.pool.live[pos.LPTokenID] {
		t.Fatalf("LP leg was not minted")
	}

	if _, err := f.orch.CloseHedged(ctx, testOwner, id); err != nil {
		t.Fatalf("close: %v", err)
	}
	if f.orch.List(testOwner)[0].Active {
		t.Fatalf("closed position still active")
	}
	if f.pool.live[pos.LPTokenID] {
		t.Fatalf("LP leg was not withdrawn")
	}

	if _, err := f.orch.CloseHedged(ctx, testOwner, id); !errors.Is(err, ErrHedgeClosed) {
		t.Fatalf("second close: got %v", err)
	}
}

type fakeHedgedSink struct {
	batches [][]model.HedgedPosition
}

func (s *fakeHedgedSink) UpsertHedgedPositions(_ context.Context, positions []model.HedgedPosition) error {
	batch := make([]model.HedgedPosition, len(positions))
	copy(batch, positions)
	s.batches = append(s.batches, batch)
	return nil
}

func TestHedgedSinkMirrorsLifecycle(t *testing.T) {
	f := newStrategyFixture(ModeStatic)
	sink := &fakeHedgedSink{}
	f.orch.WithHedgedSink(sink)
	ctx := context.Background()

	id, err := f.orch.OpenHedged(ctx, testOwner, defaultOpenParams())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := f.orch.CloseHedged(ctx, testOwner, id); err != nil {
		t.Fatalf("close: %v", err)
	}

	if len(sink.batches) != 2 {
		t.Fatalf("sink saw %d batches, want 2", len(sink.batches))
	}
	opened := sink.batches[0][0]
	if opened.ID != id || !opened.Active {
		t.Fatalf("open mirror = id %d active %t, want id %d active", opened.ID, opened.Active, id)
	}
	closed := sink.batches[1][0]
	if closed.ID != id || closed.Active {
		t.Fatalf("close mirror = id %d active %t, want id %d inactive", closed.ID, closed.Active, id)
	}
}

func TestCloseHedgedUnknown(t *testing.T) {
	f := newStrategyFixture(ModeStatic)
	if _, err := f.orch.CloseHedged(context.Background(), testOwner, 7); !errors.Is(err, ErrHedgeNotFound) {
		t.Fatalf("expected ErrHedgeNotFound, got %v", err)
	}
}

func TestOpenRollsBackLPOnShortFailure(t *testing.T) {
	f := newStrategyFixture(ModeStatic)
	f.swap.haircutBps = 200 // defeats the open markup, failing the hedge leg

	_, err := f.orch.OpenHedged(context.Background(), testOwner, defaultOpenParams())
	if !errors.Is(err, manager.ErrAtomicSequenceFailed) {
		t.Fatalf("expected ErrAtomicSequenceFailed, got %v", err)
	}
	if len(f.orch.List(testOwner)) != 0 {
		t.Fatalf("failed open left a position record")
	}
	for id, live := range f.pool.live {
		if live {
			t.Fatalf("LP position %d left live after rollback", id)
		}
	}
}
