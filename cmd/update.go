package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/atcoder-search/internal/app"
	"github.com/JakeFAU/atcoder-search/internal/documents"
	"github.com/JakeFAU/atcoder-search/internal/hash/sha256"
	"github.com/JakeFAU/atcoder-search/internal/indexer"
	"github.com/JakeFAU/atcoder-search/internal/storage/postgres"
	"github.com/JakeFAU/atcoder-search/internal/store"
)

// indexFlags are shared by update and upload.
type indexFlags struct {
	truncate bool
	optimize bool
}

func (f *indexFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.truncate, "truncate", false, "delete every document before posting")
	cmd.Flags().BoolVar(&f.optimize, "optimize", false, "optimize the index on commit (default index.optimize)")
}

func (f *indexFlags) options(cmd *cobra.Command, a *app.App) indexer.Options {
	opts := indexer.Options{Truncate: f.truncate, Optimize: f.optimize}
	if !cmd.Flags().Changed("optimize") {
		opts.Optimize = a.Config().Index.Optimize
	}
	return opts
}

// newIndexService wires the indexer against the core of entity. The staging
// store is opened only when staging is used.
func newIndexService(ctx context.Context, a *app.App, entity string, staged bool) (*indexer.Service, error) {
	engine, err := a.Search(entity)
	if err != nil {
		return nil, err
	}
	svc := a.Config().Index
	cfg := indexer.Config{BatchSize: svc.BatchSize, FlushInterval: svc.FlushInterval, Concurrency: svc.Concurrency}
	if !staged {
		return indexer.NewService(engine, nil, sha256.New(), a.BatchRecorder(), cfg, a.Logger()), nil
	}
	blobs, err := a.Staging(ctx)
	if err != nil {
		return nil, err
	}
	return indexer.NewService(engine, blobs, sha256.New(), a.BatchRecorder(), cfg, a.Logger()), nil
}

// newUpdateCmd creates the 'update' parent command.
func newUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Build search documents from the database",
		Long: `Reads every stored row of an entity, transforms it into a search document
and posts the documents in batches. With --generate-only the batches are
written to the staging store instead and can be posted later with upload.`,
	}
	cmd.AddCommand(
		newUpdateEntityCmd("problem", updateProblems),
		newUpdateEntityCmd("user", updateUsers),
		newUpdateSubmissionCmd(),
	)
	return cmd
}

type updateFunc func(ctx context.Context, svc *indexer.Service, a *app.App, opts indexer.Options) error

func newUpdateEntityCmd(entity string, index updateFunc) *cobra.Command {
	var (
		flags        indexFlags
		generateOnly bool
	)
	cmd := &cobra.Command{
		Use:   entity,
		Short: fmt.Sprintf("Index every stored %s", entity),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			svc, err := newIndexService(cmd.Context(), a, entity, generateOnly)
			if err != nil {
				return err
			}
			opts := flags.options(cmd, a)
			opts.GenerateOnly = generateOnly
			return index(cmd.Context(), svc, a, opts)
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&generateOnly, "generate-only", false, "write batches to the staging store without posting")
	return cmd
}

func updateProblems(ctx context.Context, svc *indexer.Service, a *app.App, opts indexer.Options) error {
	builder := documents.NewBuilder(a.Config().AtCoder.BaseURL)
	repo := postgres.NewProblemRepository(a.DB())
	return indexer.Update(ctx, svc, "problem", repo.StreamProblems, builder.Problem, opts)
}

func updateUsers(ctx context.Context, svc *indexer.Service, a *app.App, opts indexer.Options) error {
	builder := documents.NewBuilder(a.Config().AtCoder.BaseURL)
	repo := postgres.NewUserRepository(a.DB())
	return indexer.Update(ctx, svc, "user", repo.StreamUsers, builder.User, opts)
}

func newUpdateSubmissionCmd() *cobra.Command {
	var since time.Duration
	cmd := newUpdateEntityCmd("submission", func(ctx context.Context, svc *indexer.Service, a *app.App, opts indexer.Options) error {
		var sinceEpoch int64
		if since > 0 {
			sinceEpoch = a.Clock().Now().Add(-since).Unix()
		}
		builder := documents.NewBuilder(a.Config().AtCoder.BaseURL)
		repo := postgres.NewSubmissionRepository(a.DB())
		open := func(ctx context.Context) (store.RowSource[store.SubmissionRow], error) {
			return repo.StreamSubmissions(ctx, sinceEpoch)
		}
		return indexer.Update(ctx, svc, "submission", open, builder.Submission, opts)
	})
	cmd.Flags().DurationVar(&since, "since", 0, "only index submissions newer than this duration (default all)")
	return cmd
}
