package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/penpal-confirmation-bot/internal/observability"
	"github.com/jonathan/penpal-confirmation-bot/internal/submission"
)

var createMonthlyCmd = &cobra.Command{
	Use:   "create-monthly",
	Short: "Create this month's confirmation thread and lock the previous ones",
	Long:  "Creates and pins the confirmation thread for the current UTC month unless it already exists, then locks the bot's earlier threads in the community.",
	RunE:  runCreateMonthly,
}

func init() {
	rootCmd.AddCommand(createMonthlyCmd)
}

func runCreateMonthly(_ *cobra.Command, _ []string) error {
	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}

	monthly := submission.NewMonthly(a.client, a.settings.Current(), a.notifier, logger, a.cfg.MonthlyFlairID)
	res, err := monthly.Run(ctx)
	if err != nil {
		_ = a.notifier.Notify(ctx, "Monthly post failed for r/"+a.cfg.SubredditName+": "+err.Error())
		return err
	}
	observability.NewPrinter(os.Stdout).PrintMonthly(res.Thread, res.Created, res.Locked)
	return nil
}
