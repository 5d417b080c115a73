package model

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// PositionState is the lifecycle state of a leveraged position.
type PositionState int

const (
	StatePending PositionState = iota
	StateOpen
	StateClosing
	StateClosed
)

func (s PositionState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// LeveragedPosition is one leveraged short, keyed by (owner, ID). IDs are
// dense per owner and start at 0. A position belongs exclusively to the
// owner that opened it; there is no transfer.
type LeveragedPosition struct {
	Owner          common.Address
	ID             uint64
	BaseAsset      common.Address
	LeveragedAsset common.Address
	SuppliedAmount *uint256.Int
	Leverage       *uint256.Int // 10^18-scaled multiplier
	BorrowedAtOpen *uint256.Int // leveraged-asset debt taken at open
	State          PositionState
}

// Closed reports whether the position's lifecycle has ended.
func (p *LeveragedPosition) Closed() bool {
	return p.State == StateClosed
}
