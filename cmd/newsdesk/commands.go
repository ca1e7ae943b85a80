package main

import (
	"fmt"
	"path/filepath"

	"github.com/poiesic/newsdesk"
	"github.com/poiesic/newsdesk/archive"
	"github.com/poiesic/newsdesk/config"
	"github.com/poiesic/newsdesk/console"
	"github.com/poiesic/newsdesk/core"
	"github.com/poiesic/newsdesk/feed"
	"github.com/poiesic/newsdesk/ingestion"
	"github.com/poiesic/newsdesk/query"
	"github.com/poiesic/newsdesk/reembed"
	"github.com/urfave/cli/v2"
)

// openDatabase is replaced in tests.
var openDatabase = func(cfg *config.Config) (*newsdesk.Database, error) {
	return newsdesk.NewDatabase(cfg)
}

// loadConfig reads and validates the configuration named by --config.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func open(c *cli.Context) (*newsdesk.Database, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	db, err := openDatabase(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

func feedSources(cfg *config.Config, catalogue string) ([]feed.Source, error) {
	opts := []feed.RSSOption{feed.WithUserAgent(cfg.Ingestion.UserAgent)}
	switch catalogue {
	case "news":
		return feed.Sources(cfg.NewsFeeds, opts...), nil
	case "blogs":
		return feed.Sources(cfg.BlogFeeds, opts...), nil
	}
	return nil, fmt.Errorf("unknown feed catalogue %q: must be news or blogs", catalogue)
}

func collectionName(c *cli.Context, cfg *config.Config) string {
	if name := c.String("collection"); name != "" {
		return name
	}
	return cfg.Collections.News
}

// newsPipeline creates a pipeline for the news collection that reports each
// stored article.
func newsPipeline(c *cli.Context, db *newsdesk.Database) (*ingestion.Pipeline, error) {
	out := c.App.Writer
	return db.NewIngestionPipeline(db.Config().Collections.News,
		ingestion.WithOnStored(func(record *core.Record) {
			fmt.Fprintf(out, "Fetched news article from %s\n", record.Link)
		}),
	)
}

// load ingests catalogue into the news collection in the background and
// waits for it. With on_failure continue a failed load is reported and the
// stored articles are served.
func load(c *cli.Context, db *newsdesk.Database, catalogue string) error {
	cfg := db.Config()
	out := c.App.Writer

	sources, err := feedSources(cfg, catalogue)
	if err != nil {
		return err
	}
	pipeline, err := newsPipeline(c, db)
	if err != nil {
		return err
	}
	defer pipeline.Release()

	job := pipeline.Start(c.Context, sources, cfg.Ingestion.PerSourceLimit)
	if _, err := job.Wait(c.Context); err != nil {
		if cfg.Ingestion.OnFailure == config.OnFailureAbort || c.Context.Err() != nil {
			return fmt.Errorf("failed to load data: %w", err)
		}
		fmt.Fprintln(out, "Failed to load data")
		return nil
	}
	fmt.Fprintln(out, "News data loading complete")
	fmt.Fprintln(out)
	return nil
}

func ingestCommand(c *cli.Context) error {
	db, err := open(c)
	if err != nil {
		return err
	}
	defer db.Close()
	cfg := db.Config()

	sources, err := feedSources(cfg, c.String("feeds"))
	if err != nil {
		return err
	}
	limit := cfg.Ingestion.PerSourceLimit
	if c.IsSet("limit") {
		limit = c.Int("limit")
	}

	pipeline, err := newsPipeline(c, db)
	if err != nil {
		return err
	}
	defer pipeline.Release()

	count, err := pipeline.Ingest(c.Context, sources, limit)
	fmt.Fprintf(c.App.Writer, "Stored %d new articles in %s\n", count, cfg.Collections.News)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}
	return nil
}

func chatCommand(c *cli.Context) error {
	db, err := open(c)
	if err != nil {
		return err
	}
	defer db.Close()
	cfg := db.Config()

	if !c.Bool("skip-load") {
		if err := load(c, db, c.String("feeds")); err != nil {
			return err
		}
	}

	queries, err := db.Collection(cfg.Collections.Queries)
	if err != nil {
		return err
	}
	feedback, err := db.Collection(cfg.Collections.Feedback)
	if err != nil {
		return err
	}
	svc, err := db.NewQueryService(cfg.Collections.News,
		query.WithQueryLog(queries),
		query.WithFeedback(feedback),
	)
	if err != nil {
		return err
	}
	if err := svc.EnsureCollections(c.Context); err != nil {
		return err
	}

	session := console.NewSession(svc, c.App.Reader, c.App.Writer, console.WithMode(console.ModeChat))
	return session.Run(c.Context)
}

func agentCommand(c *cli.Context) error {
	db, err := open(c)
	if err != nil {
		return err
	}
	defer db.Close()
	cfg := db.Config()

	if !c.Bool("skip-load") {
		if err := load(c, db, "news"); err != nil {
			return err
		}
	}

	userData, err := db.Collection(cfg.Collections.UserData)
	if err != nil {
		return err
	}
	feedback, err := db.Collection(cfg.Collections.Feedback)
	if err != nil {
		return err
	}
	svc, err := db.NewQueryService(cfg.Collections.News,
		query.WithUserData(userData, cfg.Query.FactsTop),
		query.WithFeedback(feedback),
	)
	if err != nil {
		return err
	}
	if err := svc.EnsureCollections(c.Context); err != nil {
		return err
	}
	if !c.Bool("skip-load") {
		if _, err := svc.Remember(c.Context, core.KindInteraction, "Fetched news"); err != nil {
			return err
		}
	}

	session := console.NewSession(svc, c.App.Reader, c.App.Writer,
		console.WithMode(console.ModeAgent),
		console.WithDisplayMinScore(cfg.Query.DisplayMinScore),
	)
	return session.Run(c.Context)
}

func teamCommand(c *cli.Context) error {
	db, err := open(c)
	if err != nil {
		return err
	}
	defer db.Close()
	cfg := db.Config()

	pipeline, err := db.NewIngestionPipeline(cfg.Collections.Team, ingestion.WithEmbedText(ingestion.DescriptionText))
	if err != nil {
		return err
	}
	defer pipeline.Release()

	if _, err := pipeline.IngestItems(c.Context, feed.TeamMembers()); err != nil {
		return fmt.Errorf("failed to load team: %w", err)
	}

	svc, err := db.NewQueryService(cfg.Collections.Team, query.WithTop(1))
	if err != nil {
		return err
	}
	result, err := svc.Search(c.Context, c.String("question"))
	if err != nil {
		return err
	}

	out := c.App.Writer
	if len(result.Matches) == 0 {
		fmt.Fprintln(out, "Result: no match")
		return nil
	}
	first := result.Matches[0].Record
	fmt.Fprintf(out, "Result: %s, %s\n", first.Text, first.Description)
	return nil
}

func reembedCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if c.IsSet("batch-size") {
		cfg.Reembed.BatchSize = c.Int("batch-size")
	}
	if c.IsSet("max-retries") {
		cfg.Reembed.MaxRetries = c.Int("max-retries")
	}
	if c.IsSet("retry-delay") {
		cfg.Reembed.RetryDelayMillis = int(c.Duration("retry-delay").Milliseconds())
	}
	if cfg.Reembed.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if cfg.Reembed.MaxRetries <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}
	field, err := reembed.ParseField(c.String("field"))
	if err != nil {
		return err
	}

	db, err := openDatabase(cfg)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	collection := collectionName(c, cfg)
	progress := c.App.ErrWriter
	reembedder, err := db.NewReembedder(collection, field, progress)
	if err != nil {
		return err
	}

	fmt.Fprintf(progress, "Collection: %s\n", collection)
	fmt.Fprintf(progress, "Embedding model: %s\n", cfg.AI.EmbeddingModel)
	fmt.Fprintln(progress)

	if _, err := reembedder.Run(c.Context); err != nil {
		return fmt.Errorf("reembedding failed: %w", err)
	}
	return nil
}

func exportCommand(c *cli.Context) error {
	db, err := open(c)
	if err != nil {
		return err
	}
	defer db.Close()
	cfg := db.Config()

	collection := collectionName(c, cfg)
	store, err := db.Collection(collection)
	if err != nil {
		return err
	}
	opts := []archive.Option{archive.WithVectors(c.Bool("vectors"))}

	target := c.String("output")
	if target == "" {
		target = collection + ".jsonl.zst"
	}

	var count int
	if c.Bool("bucket") {
		bucket, err := archive.OpenBucket(c.Context, cfg.Export.Bucket)
		if err != nil {
			return err
		}
		count, err = bucket.Export(c.Context, store, target, opts...)
		if err != nil {
			return fmt.Errorf("export failed: %w", err)
		}
		target = cfg.Export.Bucket.Bucket + "/" + target
	} else {
		if !filepath.IsAbs(target) {
			target = filepath.Join(cfg.Export.Directory, target)
		}
		count, err = archive.ExportFile(c.Context, store, target, opts...)
		if err != nil {
			return fmt.Errorf("export failed: %w", err)
		}
	}

	fmt.Fprintf(c.App.Writer, "Exported %d records from %s to %s\n", count, collection, target)
	return nil
}

func importCommand(c *cli.Context) error {
	db, err := open(c)
	if err != nil {
		return err
	}
	defer db.Close()
	cfg := db.Config()

	collection := collectionName(c, cfg)
	store, err := db.Collection(collection)
	if err != nil {
		return err
	}

	source := c.String("input")
	var count int
	if c.Bool("bucket") {
		bucket, err := archive.OpenBucket(c.Context, cfg.Export.Bucket)
		if err != nil {
			return err
		}
		count, err = bucket.Import(c.Context, store, source)
		if err != nil {
			return fmt.Errorf("import failed: %w", err)
		}
	} else {
		count, err = archive.ImportFile(c.Context, store, source)
		if err != nil {
			return fmt.Errorf("import failed: %w", err)
		}
	}

	fmt.Fprintf(c.App.Writer, "Imported %d records into %s\n", count, collection)
	return nil
}
