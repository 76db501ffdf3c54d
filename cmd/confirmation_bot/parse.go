package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/penpal-confirmation-bot/internal/confirm"
	"github.com/jonathan/penpal-confirmation-bot/internal/observability"
)

var parseCmd = &cobra.Command{
	Use:   "parse [comment text]",
	Short: "Show the confirmations the bot would find in a comment",
	Long:  "Runs the confirmation parser on the given text, or on stdin when no text is given. Nothing is sent to the platform.",
	RunE:  runParse,
}

var (
	parsePattern string
	parseJSON    bool
)

func init() {
	parseCmd.Flags().StringVar(&parsePattern, "pattern", "", "Confirmation pattern to use instead of the built-in one")
	parseCmd.Flags().BoolVar(&parseJSON, "json", false, "Print the requests as JSON")
	rootCmd.AddCommand(parseCmd)
}

func runParse(cmd *cobra.Command, args []string) error {
	body := strings.Join(args, " ")
	if len(args) == 0 {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		body = string(data)
	}
	return parseBody(parsePattern, body, parseJSON, cmd.OutOrStdout())
}

func parseBody(pattern, body string, asJSON bool, out io.Writer) error {
	parser := confirm.DefaultParser()
	if pattern != "" {
		var err error
		if parser, err = confirm.NewParser(pattern); err != nil {
			return err
		}
	}

	requests := parser.ExtractRequests(body)
	for _, r := range requests {
		if err := r.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(requests)
	}
	observability.NewPrinter(out).PrintRequests(requests)
	return nil
}
