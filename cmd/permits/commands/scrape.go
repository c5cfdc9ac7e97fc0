package commands

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"rrcpermits-backend/internal/aggregate"
	"rrcpermits-backend/internal/components/telemetry"
	"rrcpermits-backend/internal/config"
	"rrcpermits-backend/internal/scrapers/rrc"
	"rrcpermits-backend/lib/util/serviceutil"

	"github.com/spf13/cobra"
)

var (
	scrapeOut      *string
	scrapeCounties *[]string
	scrapeFrom     *string
	scrapeTo       *string
	scrapeNoPlats  *bool
)

func init() {
	scrapeOut = scrapeCmd.Flags().StringP("out", "o", "permits.csv", "The csv file to write results to.")
	scrapeCounties = scrapeCmd.Flags().StringSlice("county", nil, "Counties to search, overrides the configured counties.")
	scrapeFrom = scrapeCmd.Flags().String("from", "", "Approval date lower bound (MM/DD/YYYY), overrides date_range.from.")
	scrapeTo = scrapeCmd.Flags().String("to", "", "Approval date upper bound (MM/DD/YYYY), overrides date_range.to.")
	scrapeNoPlats = scrapeCmd.Flags().Bool("no-plats", false, "Skip plat file retrieval.")
	rootCmd.AddCommand(scrapeCmd)
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape [--out <permits.csv>] [--county <name>]... [--from <date>] [--to <date>]",
	Short: "Runs a single scrape in the foreground and writes the results to a csv file.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		cfg, err := config.Load(*configPath)
		if err != nil {
			serviceutil.Fatal("failed to read config", err)
		}
		if len(*scrapeCounties) > 0 {
			cfg.Counties = *scrapeCounties
		}
		if *scrapeFrom != "" {
			cfg.DateRange.From = *scrapeFrom
		}
		if *scrapeTo != "" {
			cfg.DateRange.To = *scrapeTo
		}
		err = cfg.Validate()
		if err != nil {
			serviceutil.Fatal("invalid config", err)
		}

		tel := telemetry.SlogAPI{}
		searcher, retriever := scrapers(cfg, tel)

		t1 := time.Now()
		res := searcher.Search(ctx, cfg.SearchConfig())
		if res.Err != nil {
			slog.Warn("search was cut short, keeping partial results", "err", res.Err)
		}
		slog.Info("search finished", "records", res.Results.Len(), "pages", res.Pages)
		if res.Results.Len() == 0 {
			slog.Info("no permits found")
			return
		}

		outcomes := make([]string, res.Results.Len())
		if !*scrapeNoPlats {
			outcomes = retriever.Retrieve(ctx, res.Results.Records)
		}
		table := aggregate.Attach(res.Results, outcomes)

		err = os.MkdirAll(filepath.Dir(*scrapeOut), 0755)
		if err != nil {
			serviceutil.Fatal("failed to create output dir", err)
		}
		f, err := os.Create(*scrapeOut)
		if err != nil {
			serviceutil.Fatal("failed to create output", err)
		}
		defer f.Close()
		err = table.WriteCSV(f)
		if err != nil {
			serviceutil.Fatal("failed to write output", err)
		}

		table.Render(os.Stdout, 20, rrc.FieldAPINumber, "Operator Name", "Lease Name", rrc.FieldCounty, rrc.FieldPlatFilePath)
		slog.Info("scrape finished", "out", *scrapeOut, "seconds", time.Since(t1).Seconds())
	},
}
