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

	"hedgeScope/internal/chain"
	"hedgeScope/internal/config"
	"hedgeScope/internal/erc20"
	"hedgeScope/internal/model"
)

func runTokens(cmd *cobra.Command, _ []string) error {
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

	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	tokenStrs, _ := cmd.Flags().GetStringSlice("address")
	if len(tokenStrs) == 0 {
		return fmt.Errorf("address list is required")
	}
	tokens := make([]common.Address, 0, len(tokenStrs))
	for _, s := range tokenStrs {
		if !common.IsHexAddress(s) {
			return fmt.Errorf("invalid token address %q", s)
		}
		tokens = append(tokens, common.HexToAddress(s))
	}

	ownerStr, _ := cmd.Flags().GetString("owner")
	var owner *common.Address
	if ownerStr != "" {
		if !common.IsHexAddress(ownerStr) {
			return fmt.Errorf("invalid owner address %q", ownerStr)
		}
		addr := common.HexToAddress(ownerStr)
		owner = &addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	cache := erc20.NewMetaCache()

	for _, token := range tokens {
		var meta model.TokenMeta
		err := chain.WithRetry(ctx, cfg.MaxRetries, cfg.RetryBackoff, func(ctx context.Context) error {
			var err error
			meta, err = erc20.FetchMetaCached(ctx, chainClient, token, cache, logger)
			return err
		})
		if err != nil {
			logger.Warn("metadata fetch failed", zap.String("token", token.Hex()), zap.Error(err))
			continue
		}

		line := fmt.Sprintf("token=%s symbol=%s name=%q decimals=%d", meta.Address, meta.Symbol, meta.Name, meta.Decimals)
		if owner != nil {
			balance, err := erc20.BalanceOf(ctx, chainClient, token, *owner)
			if err != nil {
				logger.Warn("balance fetch failed", zap.String("token", token.Hex()), zap.Error(err))
			} else {
				line += fmt.Sprintf(" balance=%s", balance.Dec())
			}
		}
		fmt.Println(line)
	}
	return nil
}
