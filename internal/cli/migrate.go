package cli

import (
	"context"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/ds-wizard/dsw2to3/internal/config"
	"github.com/ds-wizard/dsw2to3/internal/migration"
	"github.com/ds-wizard/dsw2to3/pkg/database"
	"github.com/ds-wizard/dsw2to3/pkg/logger"
)

type MigrateOptions struct {
	DryRun       bool
	BestEffort   bool
	FixIntegrity bool
	BlobsOnly    bool
	Verbose      bool
}

func NewMigrateCmd() *cobra.Command {
	opts := &MigrateOptions{}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run the migration",
		RunE: func(c *cobra.Command, args []string) error {
			return runMigration(c.Context(), opts)
		},
	}

	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "simulate the run without committing or touching the object store")
	cmd.Flags().BoolVar(&opts.BestEffort, "best-effort", false, "skip and log failing records and objects instead of aborting")
	cmd.Flags().BoolVar(&opts.FixIntegrity, "fix-integrity", false, "exclude integrity-violating records instead of aborting")
	cmd.Flags().BoolVar(&opts.BlobsOnly, "blobs-only", false, "re-run only the blob phase (after a committed relational phase)")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "enable debug logging")

	return cmd
}

func runMigration(ctx context.Context, opts *MigrateOptions) error {
	log := logger.New(opts.Verbose)

	cfg, err := config.Load(!opts.BlobsOnly)
	if err != nil {
		return err
	}

	mongoClient, err := database.ConnectMongo(ctx, cfg.Mongo)
	if err != nil {
		return err
	}
	defer func() {
		_ = mongoClient.Disconnect(context.Background())
	}()
	log.Info("connected to legacy MongoDB")

	source := migration.NewMongoSource(mongoClient.Database(cfg.Mongo.Database), log)

	var writer *migration.Writer
	if !opts.BlobsOnly {
		pool, err := database.ConnectPostgres(ctx, cfg.Postgres)
		if err != nil {
			return err
		}
		defer pool.Close()
		log.Info("connected to target PostgreSQL")
		writer = migration.NewWriter(migration.NewPostgresTarget(pool), opts.BestEffort, log)
	}

	s3Client, err := database.ConnectS3(ctx, cfg.S3)
	if err != nil {
		return err
	}
	blobs := migration.NewBlobMigrator(source, migration.NewS3ObjectStore(s3Client, cfg.S3.Bucket), log)

	engine := migration.NewEngine(source, writer, blobs, migration.Options{
		DryRun:       opts.DryRun,
		BestEffort:   opts.BestEffort,
		FixIntegrity: opts.FixIntegrity,
		BlobsOnly:    opts.BlobsOnly,
	}, log)

	report := engine.Run(ctx)
	report.Log(log)

	if report.Err != nil {
		return errors.Wrap(report.Err, "migration aborted")
	}
	return nil
}
