package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/brogergvhs/mangapdf/internal/chapters"
	"github.com/brogergvhs/mangapdf/internal/config"
	"github.com/brogergvhs/mangapdf/internal/providers"
	"github.com/brogergvhs/mangapdf/internal/util"
)

var flagPick bool

func init() {
	searchCmd := &cobra.Command{
		Use:   "search <keyword>...",
		Short: "Search the catalog for a series",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runSearch,
	}

	searchCmd.Flags().BoolVar(&flagPick, "pick", false, "choose a result interactively and show its info")

	rootCmd.AddCommand(searchCmd)
}

type searchRow struct {
	Link string
	providers.SearchResult
}

// sortedResults orders results by title, then link, for stable output.
func sortedResults(res providers.SearchResults) []searchRow {
	rows := make([]searchRow, 0, len(res))
	for link, r := range res {
		rows = append(rows, searchRow{Link: link, SearchResult: r})
	}

	slices.SortFunc(rows, func(a, b searchRow) int {
		if c := strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title)); c != 0 {
			return c
		}
		return strings.Compare(a.Link, b.Link)
	})
	return rows
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, _, err := config.LoadMerged(baseOptions())
	if err != nil {
		return err
	}

	a, err := newApp(cfg, newLogger(cfg, os.Stderr))
	if err != nil {
		return err
	}

	ctx := context.Background()
	res, err := a.scraper.Search(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	rows := sortedResults(res)
	if len(rows) == 0 {
		_, _ = fmt.Fprintln(out, "No results.")
		return nil
	}

	if !flagPick {
		printResults(out, rows)
		return nil
	}

	items := make([]string, len(rows))
	for i, r := range rows {
		items[i] = r.Title
	}

	prompt := promptui.Select{
		Label: "Select series",
		Items: items,
		Size:  10,
	}

	idx, _, err := prompt.Run()
	if err != nil {
		return fmt.Errorf("selection cancelled")
	}

	info, err := a.scraper.Info(ctx, rows[idx].Link)
	if err != nil {
		return err
	}

	id, _ := chapters.SeriesID(rows[idx].Link)
	printInfo(out, rows[idx].Link, id, info)
	return nil
}

func printResults(w io.Writer, rows []searchRow) {
	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintln(tw, "TITLE\tLINK")
	for _, r := range rows {
		_, _ = fmt.Fprintf(tw, "%s\t%s\n", util.Truncate(r.Title, 60), r.Link)
	}
	if err := tw.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to flush table output: %v\n", err)
	}
}
