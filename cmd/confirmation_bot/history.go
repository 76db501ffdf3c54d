package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/penpal-confirmation-bot/internal/config"
	"github.com/jonathan/penpal-confirmation-bot/internal/db"
	"github.com/jonathan/penpal-confirmation-bot/internal/observability"
)

var historyCmd = &cobra.Command{
	Use:   "history <user>",
	Short: "List the recorded flair updates for a member",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistory,
}

var historyLimit int

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", db.DefaultHistoryLimit, "Maximum number of entries")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(_ *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required for history")
	}

	ctx := context.Background()
	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer database.Close()

	updates, err := database.ListUpdates(ctx, cfg.SubredditName, args[0], historyLimit)
	if err != nil {
		return err
	}
	observability.NewPrinter(os.Stdout).PrintHistory(args[0], updates)
	return nil
}
