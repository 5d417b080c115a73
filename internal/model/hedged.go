package model

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// HedgedPosition links one concentrated-liquidity mint to the leveraged
// short hedging it. Records are never removed; closing flips Active so the
// history stays readable.
type HedgedPosition struct {
	Owner      common.Address
	ID         uint64
	LPTokenID  uint64 // pool position token id of the LP leg
	ShortID    uint64 // LeveragedPosition id of the hedge leg
	Amount0    *uint256.Int
	Amount1    *uint256.Int
	LPValue    *uint256.Int
	ShortValue *uint256.Int
	Active     bool
}

// AccountData is the lending venue's aggregate view of one credit line.
// All positions opened through a manager share it.
type AccountData struct {
	Collateral           *uint256.Int
	Debt                 *uint256.Int
	Available            *uint256.Int
	LiquidationThreshold *uint256.Int
	LTV                  *uint256.Int
	HealthFactor         *uint256.Int
}
