// Package observability provides formatted output for the CLI's inspection commands.
package observability

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/jonathan/penpal-confirmation-bot/internal/catalog"
	"github.com/jonathan/penpal-confirmation-bot/internal/db"
	"github.com/jonathan/penpal-confirmation-bot/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 72
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 20
)

// Printer handles formatted output
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// truncate shortens s to width runes.
func truncate(s string, width int) string {
	if utf8.RuneCountInString(s) <= width {
		return s
	}
	r := []rune(s)
	return string(r[:width-3]) + "..."
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	inner := boxWidth - 4
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %s │\n", pad(title, inner))
	fmt.Fprintf(p.out, "├%s┤\n", border)
	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %s │\n", pad(truncate(line, inner), inner))
	}
	fmt.Fprintf(p.out, "└%s┘\n", border)
}

func pad(s string, width int) string {
	if n := utf8.RuneCountInString(s); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}

// PrintCatalog outputs the ranged and special templates and any overlapping ranges.
func (p *Printer) PrintCatalog(c *catalog.Catalog) {
	if c == nil {
		return
	}

	var sb strings.Builder
	ranged := c.Ranged()
	sb.WriteString(fmt.Sprintf("Ranged templates: %d\n", len(ranged)))
	for _, t := range ranged {
		mod := ""
		if t.ModOnly {
			mod = " [mod]"
		}
		sb.WriteString(fmt.Sprintf("  %d-%d%s  %s\n", t.Min, t.Max, mod, t.ID))
	}

	special := c.Special()
	sb.WriteString(fmt.Sprintf("\nSpecial templates: %d\n", len(special)))
	for _, t := range special {
		sb.WriteString(fmt.Sprintf("  %s  %s\n", t.CategoryID, t.RawText))
	}

	if overlaps := c.Overlaps(); len(overlaps) > 0 {
		sb.WriteString(fmt.Sprintf("\nOverlapping ranges: %d\n", len(overlaps)))
		for _, o := range overlaps {
			sb.WriteString(fmt.Sprintf("  ! %s (%d-%d) overlaps %s (%d-%d)\n",
				o.First.ID, o.First.Min, o.First.Max, o.Second.ID, o.Second.Min, o.Second.Max))
		}
	}

	p.printBox("FLAIR TEMPLATE CATALOG", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintRequests outputs the confirmations found in a comment body.
func (p *Printer) PrintRequests(requests []types.ConfirmationRequest) {
	var sb strings.Builder
	if len(requests) == 0 {
		sb.WriteString("No confirmations found")
	}
	for i, r := range requests {
		sb.WriteString(fmt.Sprintf("#%d  u/%s  emails +%d  letters +%d", i+1, r.TargetUser, r.Emails, r.Letters))
		if i < len(requests)-1 {
			sb.WriteString("\n")
		}
	}
	p.printBox("PARSED CONFIRMATIONS", sb.String())
}

// PrintHistory outputs a user's ledger entries, newest first.
func (p *Printer) PrintHistory(user string, updates []db.FlairUpdate) {
	var sb strings.Builder
	if len(updates) == 0 {
		sb.WriteString("No recorded updates")
	}

	count := min(len(updates), maxItemsToShow)
	for i := 0; i < count; i++ {
		u := updates[i]
		sb.WriteString(fmt.Sprintf("%s  %-14s by u/%s (+%d/+%d)\n",
			u.CreatedAt.UTC().Format("2006-01-02 15:04"), u.Outcome, u.Author, u.Emails, u.Letters))
		if u.NewFlair != "" {
			sb.WriteString(fmt.Sprintf("    %s -> %s\n", u.OldFlair, u.NewFlair))
		}
		if u.Error != nil {
			sb.WriteString(fmt.Sprintf("    error: %s\n", *u.Error))
		}
	}
	if len(updates) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("... and %d more", len(updates)-maxItemsToShow))
	}

	p.printBox("FLAIR HISTORY FOR u/"+user, strings.TrimSuffix(sb.String(), "\n"))
}

// PrintMonthly outputs the result of the monthly thread workflow.
func (p *Printer) PrintMonthly(thread types.Submission, created bool, locked []string) {
	var sb strings.Builder
	if created {
		sb.WriteString("Created: ")
	} else {
		sb.WriteString("Already exists: ")
	}
	sb.WriteString(thread.Title + "\n")
	sb.WriteString("  " + thread.Permalink + "\n")
	sb.WriteString(fmt.Sprintf("Locked %d previous threads", len(locked)))
	for _, l := range locked {
		sb.WriteString("\n  " + l)
	}
	p.printBox("MONTHLY CONFIRMATION THREAD", sb.String())
}
