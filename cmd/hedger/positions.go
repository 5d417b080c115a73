package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"hedgeScope/internal/config"
	"hedgeScope/internal/storage/postgres"
)

func runPositions(cmd *cobra.Command, _ []string) error {
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

	if cfg.PgDSN == "" {
		return fmt.Errorf("pg dsn is required")
	}
	ownerStr, _ := cmd.Flags().GetString("owner")
	if !common.IsHexAddress(ownerStr) {
		return fmt.Errorf("owner address is required")
	}
	owner := common.HexToAddress(ownerStr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := postgres.NewStore(ctx, cfg.PgDSN)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer store.Close()

	positions, err := store.ListPositions(ctx, owner.Hex())
	if err != nil {
		return fmt.Errorf("list positions: %w", err)
	}

	logger.Info("positions loaded", zap.Stringer("owner", owner), zap.Int("count", len(positions)))

	for _, pos := range positions {
		fmt.Printf("id=%d state=%s base=%s asset=%s supplied=%s leverage=%s borrowed=%s\n",
			pos.ID,
			pos.State,
			pos.BaseAsset.Hex(),
			pos.LeveragedAsset.Hex(),
			formatWad(pos.SuppliedAmount),
			formatWad(pos.Leverage),
			formatWad(pos.BorrowedAtOpen),
		)
	}
	return nil
}
