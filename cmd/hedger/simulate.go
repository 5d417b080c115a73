package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"hedgeScope/internal/fixedpoint"
	"hedgeScope/internal/liquidity"
)

func runSimulate(cmd *cobra.Command, _ []string) error {
	logLevel, _ := cmd.Flags().GetString("log-level")

	logger, err := newLogger(logLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	priceStr, _ := cmd.Flags().GetString("price")
	lowerStr, _ := cmd.Flags().GetString("lower")
	upperStr, _ := cmd.Flags().GetString("upper")
	amount0Str, _ := cmd.Flags().GetString("amount0")
	amount1Str, _ := cmd.Flags().GetString("amount1")
	targetStr, _ := cmd.Flags().GetString("target-price")

	price, err := parseWad(priceStr)
	if err != nil {
		return fmt.Errorf("price: %w", err)
	}
	lower, err := parseWad(lowerStr)
	if err != nil {
		return fmt.Errorf("lower: %w", err)
	}
	upper, err := parseWad(upperStr)
	if err != nil {
		return fmt.Errorf("upper: %w", err)
	}
	amount0, err := parseWad(amount0Str)
	if err != nil {
		return fmt.Errorf("amount0: %w", err)
	}
	amount1, err := parseWad(amount1Str)
	if err != nil {
		return fmt.Errorf("amount1: %w", err)
	}
	target, err := parseWad(targetStr)
	if err != nil {
		return fmt.Errorf("target-price: %w", err)
	}

	x1, y1, err := liquidity.SimulateAmountsAfterPriceMove(price, lower, upper, amount0, amount1, target)
	if err != nil {
		return fmt.Errorf("simulate: %w", err)
	}

	valueBefore, err := liquidity.PositionValue(amount0, amount1, price)
	if err != nil {
		return fmt.Errorf("value before: %w", err)
	}
	valueAfter, err := liquidity.PositionValue(x1, y1, target)
	if err != nil {
		return fmt.Errorf("value after: %w", err)
	}
	diff := fixedpoint.SignedDiff(valueAfter, valueBefore)

	logger.Info("simulation complete",
		zap.String("price", formatWad(price)),
		zap.String("target", formatWad(target)),
		zap.String("amount0", formatWad(x1)),
		zap.String("amount1", formatWad(y1)),
	)

	fmt.Printf("amount0=%s amount1=%s value_before=%s value_after=%s pnl_wei=%s\n",
		formatWad(x1), formatWad(y1), formatWad(valueBefore), formatWad(valueAfter), diff.String())
	return nil
}
