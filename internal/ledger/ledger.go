// Package ledger stores leveraged positions per owner. IDs are dense per
// owner, derived from the list length, and start at 0.
package ledger

import (
	"errors"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"hedgeScope/internal/model"
)

var (
	ErrPositionNotFound = errors.New("position not found")
	ErrAlreadyClosed    = errors.New("position already closed")
	ErrNotOpen          = errors.New("position not open")
)

// Ledger is the in-memory store of positions. All mutation goes through
// its methods; Get and List hand out copies.
type Ledger struct {
	mu        sync.RWMutex
	positions map[common.Address][]*model.LeveragedPosition
}

func New() *Ledger {
	return &Ledger{positions: make(map[common.Address][]*model.LeveragedPosition)}
}

// Append records a position and assigns its dense id.
func (l *Ledger) Append(pos model.LeveragedPosition) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	id := uint64(len(l.positions[pos.Owner]))
	pos.ID = id
	l.positions[pos.Owner] = append(l.positions[pos.Owner], &pos)
	return id
}

// RemoveLast undoes the most recent Append for an owner. It only pops the
// tail so ids stay dense; the id must match the last record.
func (l *Ledger) RemoveLast(owner common.Address, id uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	list := l.positions[owner]
	if len(list) == 0 || list[len(list)-1].ID != id {
		return ErrPositionNotFound
	}
	l.positions[owner] = list[:len(list)-1]
	return nil
}

// Get returns a copy of a position.
func (l *Ledger) Get(owner common.Address, id uint64) (model.LeveragedPosition, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	pos, err := l.locked(owner, id)
	if err != nil {
		return model.LeveragedPosition{}, err
	}
	return *pos, nil
}

// SetState moves a position into a new lifecycle state.
func (l *Ledger) SetState(owner common.Address, id uint64, state model.PositionState) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	pos, err := l.locked(owner, id)
	if err != nil {
		return err
	}
	pos.State = state
	return nil
}

// SetBorrowed records the debt taken when a position opened.
func (l *Ledger) SetBorrowed(owner common.Address, id uint64, borrowed *uint256.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	pos, err := l.locked(owner, id)
	if err != nil {
		return err
	}
	pos.BorrowedAtOpen = borrowed
	return nil
}

// MarkClosed transitions Open/Closing -> Closed. Closing twice fails with
// ErrAlreadyClosed and leaves the record untouched.
func (l *Ledger) MarkClosed(owner common.Address, id uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	pos, err := l.locked(owner, id)
	if err != nil {
		return err
	}
	if pos.State == model.StateClosed {
		return ErrAlreadyClosed
	}
	if pos.State != model.StateOpen && pos.State != model.StateClosing {
		return ErrNotOpen
	}
	pos.State = model.StateClosed
	return nil
}

// List returns copies of all positions for an owner in id order.
func (l *Ledger) List(owner common.Address) []model.LeveragedPosition {
	l.mu.RLock()
	defer l.mu.RUnlock()

	list := l.positions[owner]
	out := make([]model.LeveragedPosition, 0, len(list))
	for _, pos := range list {
		out = append(out, *pos)
	}
	return out
}

// Count returns the number of positions ever opened by an owner.
func (l *Ledger) Count(owner common.Address) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.positions[owner])
}

func (l *Ledger) locked(owner common.Address, id uint64) (*model.LeveragedPosition, error) {
	list := l.positions[owner]
	if id >= uint64(len(list)) {
		return nil, ErrPositionNotFound
	}
	return list[id], nil
}
