package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/brogergvhs/mangapdf/internal/chapters"
	"github.com/brogergvhs/mangapdf/internal/config"
	"github.com/brogergvhs/mangapdf/internal/providers"
)

var infoCmd = &cobra.Command{
	Use:   "info <series-url>",
	Short: "Show title, description, genres and chapter count of a series",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := config.LoadMerged(baseOptions())
		if err != nil {
			return err
		}

		a, err := newApp(cfg, newLogger(cfg, os.Stderr))
		if err != nil {
			return err
		}

		info, err := a.scraper.Info(context.Background(), args[0])
		if err != nil {
			return err
		}

		id, _ := chapters.SeriesID(args[0])
		printInfo(cmd.OutOrStdout(), args[0], id, info)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func printInfo(w io.Writer, link, seriesID string, info providers.StoryInfo) {
	if info.Title != "" {
		_, _ = fmt.Fprintf(w, "%s\n", info.Title)
	}
	_, _ = fmt.Fprintf(w, "Link:     %s\n", link)
	if seriesID != "" {
		_, _ = fmt.Fprintf(w, "Series:   %s\n", seriesID)
	}
	_, _ = fmt.Fprintf(w, "Chapters: %d\n", info.Chapters)
	if len(info.Genres) > 0 {
		_, _ = fmt.Fprintf(w, "Genres:   %s\n", strings.Join(info.Genres, ", "))
	}
	if info.Description != "" {
		_, _ = fmt.Fprintf(w, "\n%s\n", info.Description)
	}
	if seriesID != "" && info.Chapters > 0 {
		_, _ = fmt.Fprintf(w, "\nConvert with: mangapdf convert %s 1-%d\n", seriesID, info.Chapters)
	}
}
