package main

import (
	"encoding/json"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"hedgeScope/internal/config"
	"hedgeScope/internal/fixedpoint"
	"hedgeScope/internal/hedge"
	"hedgeScope/internal/liquidity"
	"hedgeScope/internal/strategy"
)

type allocateOutput struct {
	LPValue    string `json:"lp_value"`
	ShortValue string `json:"short_value"`
	Amount0    string `json:"amount0"`
	Amount1    string `json:"amount1"`
}

func runAllocate(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	parsedMode, err := strategy.ParseMode(cfg.Mode)
	if err != nil {
		return err
	}

	capitalStr, _ := cmd.Flags().GetString("capital")
	capital, err := parseWad(capitalStr)
	if err != nil {
		return fmt.Errorf("capital: %w", err)
	}
	priceStr, _ := cmd.Flags().GetString("price")
	price, err := parseWad(priceStr)
	if err != nil {
		return fmt.Errorf("price: %w", err)
	}
	lowerStr, _ := cmd.Flags().GetString("lower")
	lower, err := parseWad(lowerStr)
	if err != nil {
		return fmt.Errorf("lower: %w", err)
	}
	upperStr, _ := cmd.Flags().GetString("upper")
	upper, err := parseWad(upperStr)
	if err != nil {
		return fmt.Errorf("upper: %w", err)
	}

	var lp, short *uint256.Int
	switch parsedMode {
	case strategy.ModeStatic:
		alloc := hedge.StaticAllocation(capital)
		lp, short = alloc.LPValue, alloc.ShortValue
	case strategy.ModeSolver:
		targetStr, _ := cmd.Flags().GetString("target-price")
		target, err := parseWad(targetStr)
		if err != nil {
			return fmt.Errorf("target-price: %w", err)
		}
		shortPriceStr, _ := cmd.Flags().GetString("short-price")
		shortPrice, err := parseWad(shortPriceStr)
		if err != nil {
			return fmt.Errorf("short-price: %w", err)
		}

		alloc, err := hedge.SolveEqualPnLAllocation(price, lower, upper, target, shortPrice)
		if err != nil {
			return fmt.Errorf("solve allocation: %w", err)
		}
		lp, short, err = hedge.Rescale(alloc, capital)
		if err != nil {
			return fmt.Errorf("rescale allocation: %w", err)
		}
	}

	sp := fixedpoint.Sqrt(price)
	sa := fixedpoint.Sqrt(lower)
	sb := fixedpoint.Sqrt(upper)

	amount0, amount1, err := liquidity.SplitValueByRange(sp, sa, sb, lp)
	if err != nil {
		return fmt.Errorf("split lp value: %w", err)
	}

	logger.Info("allocation computed",
		zap.String("mode", cfg.Mode),
		zap.String("capital", formatWad(capital)),
		zap.String("lp_value", formatWad(lp)),
		zap.String("short_value", formatWad(short)),
	)

	out, err := json.Marshal(allocateOutput{
		LPValue:    formatWad(lp),
		ShortValue: formatWad(short),
		Amount0:    formatWad(amount0),
		Amount1:    formatWad(amount1),
	})
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
