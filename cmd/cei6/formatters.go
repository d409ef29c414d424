package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/agentx56431/cei6"
	"github.com/agentx56431/cei6/records"
	"github.com/agentx56431/cei6/sources"
	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
)

// titleWidth is the display width titles are truncated to.
const titleWidth = 80

// printer writes progress for humans, colored when enabled.
type printer struct {
	out       io.Writer
	err       io.Writer
	useColors bool
}

func newPrinter(out, err io.Writer, useColors bool) *printer {
	return &printer{out: out, err: err, useColors: useColors}
}

// Info prints an informational message
func (p *printer) Info(format string, args ...any) {
	if p.useColors {
		color.New(color.FgCyan).Fprintf(p.out, format+"\n", args...)
	} else {
		fmt.Fprintf(p.out, format+"\n", args...)
	}
}

// Header prints a section header
func (p *printer) Header(format string, args ...any) {
	if p.useColors {
		color.New(color.Bold).Fprintf(p.out, format+"\n", args...)
	} else {
		fmt.Fprintf(p.out, format+"\n", args...)
	}
}

// Success prints a success message
func (p *printer) Success(format string, args ...any) {
	if p.useColors {
		color.New(color.FgGreen).Fprintf(p.out, "✓ "+format+"\n", args...)
	} else {
		fmt.Fprintf(p.out, "[OK] "+format+"\n", args...)
	}
}

// Warning prints a warning message
func (p *printer) Warning(format string, args ...any) {
	if p.useColors {
		color.New(color.FgYellow).Fprintf(p.err, "⚠ "+format+"\n", args...)
	} else {
		fmt.Fprintf(p.err, "[WARN] "+format+"\n", args...)
	}
}

// Print prints a plain line
func (p *printer) Print(format string, args ...any) {
	fmt.Fprintf(p.out, format+"\n", args...)
}

// CategoryResult prints the outcome of one category.
func (p *printer) CategoryResult(res cei6.CategoryResult, save, details bool) {
	if res.Err != nil && res.Items == nil {
		p.Warning("%s: %v", res.Type, res.Err)
		return
	}

	p.Header("== %s: %d item(s) ==", res.Type, len(res.Items))
	for i, it := range res.Items {
		p.Print("%02d. %s", i+1, prettyLine(it))
	}

	if save {
		p.Success("%s: %d new listing line(s)", res.Type, res.ListingWritten)
	}
	if details {
		p.Info("%s: %d article page(s) parsed, %d skipped", res.Type, len(res.Details), res.DetailsSkipped)
		if save {
			p.Success("%s: %d new detail line(s)", res.Type, res.DetailsWritten)
		}
	}
	if res.Err != nil {
		p.Warning("%s: %v", res.Type, res.Err)
	}
}

// prettyLine renders "date | title | authors | issue", leaving out empty
// authors and issue.
func prettyLine(it records.ListingItem) string {
	date := "n.d."
	if it.DatePublished != nil {
		date = it.DatePublished.Short()
	}

	parts := []string{date, runewidth.Truncate(it.Title, titleWidth, "...")}
	if len(it.Authors) > 0 {
		parts = append(parts, strings.Join(it.Authors, ", "))
	}
	if issue := it.IssueText(); issue != "" {
		parts = append(parts, issue)
	}
	return strings.Join(parts, " | ")
}

func joinTypes(types []records.ContentType) string {
	return strings.Join(typeNames(types), ", ")
}

// printSourcesTable prints crawl state with columns padded to display
// width.
func printSourcesTable(w io.Writer, list []sources.Source) {
	if len(list) == 0 {
		fmt.Fprintln(w, "No categories have been fetched yet.")
		return
	}

	header := []string{"CATEGORY", "LAST FETCHED", "ITEMS", "ERRORS", "LISTING", "DETAILS", "LAST ERROR"}
	rows := [][]string{header}
	for _, s := range list {
		fetched := "never"
		if s.LastFetchedAt != nil {
			fetched = s.LastFetchedAt.Local().Format("2006-01-02 15:04")
		}
		lastError := "-"
		if s.LastError != nil {
			lastError = runewidth.Truncate(*s.LastError, 60, "...")
		}
		rows = append(rows, []string{
			string(s.ContentType),
			fetched,
			fmt.Sprint(s.LastItemCount),
			fmt.Sprint(s.FetchErrorCount),
			fmt.Sprint(s.ListingLines),
			fmt.Sprint(s.DetailLines),
			lastError,
		})
	}

	widths := make([]int, len(header))
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}

	for _, row := range rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			if i == len(row)-1 {
				cells[i] = cell
				continue
			}
			cells[i] = runewidth.FillRight(cell, widths[i])
		}
		fmt.Fprintln(w, strings.TrimRight(strings.Join(cells, "  "), " "))
	}
}
