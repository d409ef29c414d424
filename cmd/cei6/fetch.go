package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/agentx56431/cei6"
	"github.com/agentx56431/cei6/records"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch the first listing page of each category",
	Long: `Fetch the first listing page of the selected categories and print one line
per item. With --save, new items are appended to the listing files. With
--details, every item's article page is fetched as well; article pages that
fail are reported and skipped.`,
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().StringSlice("types", typeNames(records.AllContentTypes), "categories to fetch")
	fetchCmd.Flags().Bool("save", false, "append new records to the output files")
	fetchCmd.Flags().Bool("details", false, "fetch article pages for each listed item")
	fetchCmd.Flags().Int("max-details", 0, "fetch at most this many article pages per category (0 = all)")
	fetchCmd.Flags().String("via", string(cei6.ViaHTML), "listing source: html or feed")
}

func runFetch(cmd *cobra.Command, args []string) error {
	typeArgs, _ := cmd.Flags().GetStringSlice("types")
	save, _ := cmd.Flags().GetBool("save")
	details, _ := cmd.Flags().GetBool("details")
	maxDetails, _ := cmd.Flags().GetInt("max-details")
	viaArg, _ := cmd.Flags().GetString("via")

	types, err := parseTypes(typeArgs)
	if err != nil {
		return err
	}
	via, err := cei6.ParseVia(viaArg)
	if err != nil {
		return err
	}
	if maxDetails < 0 {
		return errors.New("--max-details must not be negative")
	}

	engine, cleanup, err := openEngine()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	p := newPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr(), !noColor)
	p.Info("CEI6 v%s", version)
	p.Info("Types: %s | Via: %s | Run: %s", joinTypes(types), via, engine.RunID())

	logger.Info("run started",
		zap.String("run_id", engine.RunID().String()),
		zap.Strings("types", typeNames(types)),
		zap.Bool("save", save),
		zap.Bool("details", details),
	)

	results := engine.Crawl(ctx, cei6.CrawlOptions{
		Types:      types,
		Via:        via,
		Save:       save,
		Details:    details,
		MaxDetails: maxDetails,
	}, func(res cei6.CategoryResult) {
		p.CategoryResult(res, save, details)
	})

	return crawlError(ctx, results, len(types))
}

// crawlError fails the command when nothing succeeded.
func crawlError(ctx context.Context, results []cei6.CategoryResult, requested int) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("interrupted: %w", err)
	}

	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
		}
	}
	if requested > 0 && failed == requested {
		return fmt.Errorf("all %d categories failed", failed)
	}
	return nil
}

// parseTypes accepts canonical names and their plural aliases, dropping
// duplicates.
func parseTypes(args []string) ([]records.ContentType, error) {
	seen := make(map[records.ContentType]bool)
	var types []records.ContentType
	for _, arg := range args {
		ct, err := records.ParseContentType(arg)
		if err != nil {
			return nil, err
		}
		if !seen[ct] {
			seen[ct] = true
			types = append(types, ct)
		}
	}
	if len(types) == 0 {
		return nil, errors.New("no categories selected")
	}
	return types, nil
}

func typeNames(types []records.ContentType) []string {
	names := make([]string, len(types))
	for i, ct := range types {
		names[i] = string(ct)
	}
	return names
}
