package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"hedgeScope/internal/config"
	"hedgeScope/internal/model"
)

func runJournal(cmd *cobra.Command, _ []string) error {
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

	kindFilter, _ := cmd.Flags().GetString("kind")

	file, err := os.Open(cfg.Journal)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer file.Close()

	count := 0
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var event model.PositionEvent
		if err := json.Unmarshal(line, &event); err != nil {
			logger.Warn("skipping malformed journal line", zap.Error(err))
			continue
		}
		if kindFilter != "" && event.Kind != kindFilter {
			continue
		}
		count++
		fmt.Printf("%s kind=%s owner=%s id=%d", event.RecordedAt, event.Kind, event.Owner, event.PositionID)
		if event.Supplied != "" {
			fmt.Printf(" supplied=%s", event.Supplied)
		}
		if event.Borrowed != "" {
			fmt.Printf(" borrowed=%s", event.Borrowed)
		}
		if event.Payout != "" {
			fmt.Printf(" payout=%s", event.Payout)
		}
		fmt.Println()
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read journal: %w", err)
	}

	logger.Info("journal replayed", zap.String("path", cfg.Journal), zap.Int("events", count))
	return nil
}
