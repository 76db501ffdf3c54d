package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/penpal-confirmation-bot/internal/observability"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Load the flair templates and print how they were classified",
	RunE:  runCatalog,
}

func init() {
	rootCmd.AddCommand(catalogCmd)
}

func runCatalog(_ *cobra.Command, _ []string) error {
	a, err := newApp(context.Background())
	if err != nil {
		return err
	}
	observability.NewPrinter(os.Stdout).PrintCatalog(a.settings.Current().Catalog())
	return nil
}
