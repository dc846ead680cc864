package cmd

import (
	"github.com/spf13/cobra"

	"github.com/JakeFAU/atcoder-search/internal/app"
	"github.com/JakeFAU/atcoder-search/internal/config"
	"github.com/JakeFAU/atcoder-search/internal/crawler"
	"github.com/JakeFAU/atcoder-search/internal/storage/postgres"
)

// newCrawlCmd creates the 'crawl' parent command. Each subcommand records
// one run in the history tables.
func newCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Fetch remote data into the database",
	}
	cmd.AddCommand(
		newCrawlContestCmd(),
		newCrawlDifficultyCmd(),
		newCrawlProblemCmd(),
		newCrawlSubmissionCmd(),
		newCrawlUserCmd(),
	)
	return cmd
}

func settingsOf(c config.CrawlConfig) crawler.Settings {
	return crawler.Settings{
		Interval:  c.Interval,
		Retry:     c.Retry,
		Backoff:   c.Backoff,
		ChunkSize: c.ChunkSize,
	}
}

func newCrawlContestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "contest",
		Short: "Fetch and categorize the contest listing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			c := crawler.NewContestCrawler(
				a.Aggregator(),
				postgres.NewContestRepository(a.DB()),
				nil,
				a.BatchRecorder(),
				settingsOf(a.Config().Crawler.Contest),
				a.Logger(),
			)
			return c.Crawl(cmd.Context())
		},
	}
}

func newCrawlDifficultyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "difficulty",
		Short: "Fetch the estimated problem difficulties",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			c := crawler.NewDifficultyCrawler(
				a.Aggregator(),
				postgres.NewDifficultyRepository(a.DB()),
				a.BatchRecorder(),
				settingsOf(a.Config().Crawler.Difficulty),
				a.Logger(),
			)
			return c.Crawl(cmd.Context())
		},
	}
}

func newCrawlProblemCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "problem",
		Short: "Fetch statements of problems not stored yet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			c := crawler.NewProblemCrawler(
				a.Aggregator(),
				a.Site(),
				postgres.NewProblemRepository(a.DB()),
				a.BatchRecorder(),
				a.Clock(),
				settingsOf(a.Config().Crawler.Problem),
				a.Logger(),
			)
			return c.Crawl(cmd.Context(), all)
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "refetch every listed problem")
	return cmd
}

func newCrawlUserCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "user",
		Short: "Fetch the rating ranking",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			c := crawler.NewUserCrawler(
				a.Site(),
				postgres.NewUserRepository(a.DB()),
				a.BatchRecorder(),
				a.Clock(),
				settingsOf(a.Config().Crawler.User),
				a.Logger(),
			)
			return c.Crawl(cmd.Context())
		},
	}
}

func newCrawlSubmissionCmd() *cobra.Command {
	var opts crawler.SubmissionOptions
	cmd := &cobra.Command{
		Use:   "submission",
		Short: "Fetch new submissions contest by contest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			return newSubmissionCrawler(a).Crawl(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringSliceVar(&opts.ContestIDs, "contest", nil, "contest ids to crawl (default all)")
	cmd.Flags().DurationVar(&opts.SkipRecent, "skip-recent", 0, "skip contests crawled within this duration")
	return cmd
}

func newSubmissionCrawler(a *app.App) *crawler.SubmissionCrawler {
	return crawler.NewSubmissionCrawler(
		a.Site(),
		postgres.NewContestRepository(a.DB()),
		postgres.NewSubmissionRepository(a.DB()),
		a.SubmissionHistory(),
		a.SubmissionRecorder(),
		a.Clock(),
		a.Clock(),
		settingsOf(a.Config().Crawler.Submission),
		a.Logger(),
	)
}
