package main

import (
	"fmt"
	"os"
	"time"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "hedger",
		Short:        "Delta-neutral LP hedging toolkit",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	allocateCmd := &cobra.Command{
		Use:   "allocate",
		Short: "Split capital between the LP leg and the short leg",
		RunE:  runAllocate,
	}

	allocateCmd.Flags().String("mode", "static", "allocation mode (static, solver)")
	allocateCmd.Flags().String("price", "", "current price (token1 per token0)")
	allocateCmd.Flags().String("lower", "", "range lower price")
	allocateCmd.Flags().String("upper", "", "range upper price")
	allocateCmd.Flags().String("target-price", "", "solver target price")
	allocateCmd.Flags().String("short-price", "", "solver short entry price")
	allocateCmd.Flags().String("capital", "", "total capital to deploy")
	allocateCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(allocateCmd)

	simulateCmd := &cobra.Command{
		Use:   "simulate",
		Short: "Project LP amounts after a price move",
		RunE:  runSimulate,
	}

	simulateCmd.Flags().String("price", "", "current price (token1 per token0)")
	simulateCmd.Flags().String("lower", "", "range lower price")
	simulateCmd.Flags().String("upper", "", "range upper price")
	simulateCmd.Flags().String("amount0", "", "current token0 amount")
	simulateCmd.Flags().String("amount1", "", "current token1 amount")
	simulateCmd.Flags().String("target-price", "", "target price")
	simulateCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(simulateCmd)

	journalCmd := &cobra.Command{
		Use:   "journal",
		Short: "Replay the audit journal",
		RunE:  runJournal,
	}

	journalCmd.Flags().String("journal", "", "journal file path")
	journalCmd.Flags().String("kind", "", "only print events of this kind")
	journalCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(journalCmd)

	positionsCmd := &cobra.Command{
		Use:   "positions",
		Short: "List mirrored positions for an owner",
		RunE:  runPositions,
	}

	positionsCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	positionsCmd.Flags().String("owner", "", "owner address")
	positionsCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(positionsCmd)

	tokensCmd := &cobra.Command{
		Use:   "tokens",
		Short: "Fetch ERC20 metadata and balances",
		RunE:  runTokens,
	}

	tokensCmd.Flags().String("rpc", "", "chain RPC URL")
	tokensCmd.Flags().StringSlice("address", nil, "token addresses (comma-separated)")
	tokensCmd.Flags().String("owner", "", "optional owner address for balances")
	tokensCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	tokensCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	tokensCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(tokensCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

// parseWad converts a human decimal string into 1e18 fixed point.
func parseWad(s string) (*uint256.Int, error) {
	if s == "" {
		return nil, fmt.Errorf("value is required")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", s, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("value %q must not be negative", s)
	}
	scaled := d.Shift(18)
	out, overflow := uint256.FromBig(scaled.BigInt())
	if overflow {
		return nil, fmt.Errorf("value %q overflows uint256", s)
	}
	return out, nil
}

// formatWad renders a 1e18 fixed-point value as a human decimal string.
func formatWad(x *uint256.Int) string {
	return decimal.NewFromBigInt(x.ToBig(), -18).String()
}
