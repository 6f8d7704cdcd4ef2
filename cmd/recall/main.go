// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/poiesic/recall"
	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/config"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/ingestion"
	"github.com/poiesic/recall/reindex"
	"github.com/poiesic/recall/search"
	"github.com/poiesic/recall/storage"
	"github.com/poiesic/recall/storage/badger"
	"github.com/poiesic/recall/storage/file"
	"github.com/poiesic/recall/vectorindex"
	"github.com/urfave/cli/v2"
)

// runner carries the process dependencies the commands use.
type runner struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	lookup func(string) (string, bool)
	// newProvider overrides the OpenAI-compatible provider built from the
	// configuration. The runner closes providers it creates this way.
	newProvider func(*ai.Config) (ai.AIProvider, error)
}

func main() {
	_ = godotenv.Load()

	r := &runner{
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
		lookup: os.LookupEnv,
	}
	if err := r.app().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func (r *runner) app() *cli.App {
	return &cli.App{
		Name:      "recall",
		Usage:     "Hybrid lexical and semantic retrieval over a local corpus",
		Writer:    r.stdout,
		ErrWriter: r.stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML configuration file",
				Value:   "recall.yaml",
			},
			&cli.StringFlag{
				Name:    "snapshot",
				Aliases: []string{"s"},
				Usage:   "Snapshot path, overriding the configuration",
			},
		},
		Before: r.setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "init",
				Usage:     "Write a configuration file with default values",
				Action:    r.initCommand,
				ArgsUsage: " ",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Overwrite an existing configuration file",
					},
				},
			},
			{
				Name:      "ingest",
				Usage:     "Ingest files and inline text into the corpus",
				ArgsUsage: "[FILE...]",
				Action:    r.ingestCommand,
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:    "text",
						Aliases: []string{"t"},
						Usage:   "Inline text to ingest; may be repeated",
					},
				},
			},
			{
				Name:      "query",
				Usage:     "Retrieve the documents most relevant to a query",
				ArgsUsage: "QUERY",
				Action:    r.queryCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "top-k",
						Aliases: []string{"k"},
						Usage:   "Maximum number of results (default from configuration)",
					},
					&cli.Float64Flag{
						Name:  "threshold",
						Usage: "Drop trailing results farther than this distance (default from configuration)",
					},
					&cli.BoolFlag{
						Name:    "verbose",
						Aliases: []string{"v"},
						Usage:   "Log every retrieval stage at debug level",
					},
				},
			},
			{
				Name:   "chat",
				Usage:  "Read queries from stdin and print the evolving session context",
				Action: r.chatCommand,
			},
			{
				Name:   "stats",
				Usage:  "Show corpus and index statistics",
				Action: r.statsCommand,
			},
			{
				Name:   "reindex",
				Usage:  "Re-embed every document and rebuild the vector index",
				Action: r.reindexCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "index-kind",
						Usage: "Index kind to build (rebuild, incremental, hnsw); defaults to the configured kind",
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of documents to embed per call (default from configuration)",
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N documents",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed embedding calls (default from configuration)",
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff (default from configuration)",
					},
					&cli.BoolFlag{
						Name:  "normalize",
						Usage: "Scale embeddings to unit length before indexing",
					},
				},
			},
		},
	}
}

func (r *runner) setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(r.stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}

// loadConfig reads the configuration file, then applies RECALL_*
// environment overrides and the global flags.
func (r *runner) loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.ApplyEnv(r.lookup); err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}
	if path := c.String("snapshot"); path != "" {
		cfg.Snapshot.Path = path
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func openStore(cfg *config.Config) (storage.SnapshotStore, error) {
	switch cfg.Snapshot.Backend {
	case config.BackendBadger:
		return badger.Open(cfg.Snapshot.Path)
	default:
		return file.NewStore(cfg.Snapshot.Path)
	}
}

// openEngine opens the engine described by cfg. The returned function
// closes the engine and any provider the runner created.
func (r *runner) openEngine(ctx context.Context, cfg *config.Config, extra ...recall.Option) (*recall.Engine, func(), error) {
	store, err := openStore(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open snapshot store: %w", err)
	}

	ingestOpts := []ingestion.Option{
		ingestion.WithChunking(cfg.Ingestion.ChunkSize, cfg.Ingestion.ChunkOverlap),
		ingestion.WithBatchSize(cfg.Ingestion.BatchSize),
	}
	if cfg.Ingestion.PoolSize > 0 {
		ingestOpts = append(ingestOpts, ingestion.WithPoolSize(cfg.Ingestion.PoolSize))
	}
	opts := []recall.Option{
		recall.WithSnapshotStore(store),
		recall.WithIndexKind(cfg.IndexKind()),
		recall.WithIndexParams(cfg.IndexParams()),
		recall.WithIngestionOptions(ingestOpts...),
	}

	var provider ai.AIProvider
	if r.newProvider != nil {
		provider, err = r.newProvider(cfg.AI())
		if err != nil {
			store.Close()
			return nil, nil, fmt.Errorf("failed to create provider: %w", err)
		}
		opts = append(opts, recall.WithProvider(provider))
	} else {
		opts = append(opts, recall.WithAIConfig(cfg.AI()))
	}

	engine, err := recall.Open(ctx, append(opts, extra...)...)
	if err != nil {
		store.Close()
		if provider != nil {
			provider.Close()
		}
		return nil, nil, fmt.Errorf("failed to open engine: %w", err)
	}

	closer := func() {
		if err := engine.Close(); err != nil {
			slog.Error("error closing engine", "err", err)
		}
		if provider != nil {
			if err := provider.Close(); err != nil {
				slog.Error("error closing provider", "err", err)
			}
		}
	}
	return engine, closer, nil
}

func (r *runner) initCommand(c *cli.Context) error {
	path := c.String("config")
	if _, err := os.Stat(path); err == nil && !c.Bool("force") {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err := config.Save(path, config.Default()); err != nil {
		return fmt.Errorf("failed to write configuration: %w", err)
	}
	fmt.Fprintf(r.stdout, "Wrote %s\n", path)
	return nil
}

func (r *runner) ingestCommand(c *cli.Context) error {
	ctx := c.Context
	texts := c.StringSlice("text")
	files := c.Args().Slice()
	if len(texts) == 0 && len(files) == 0 {
		return fmt.Errorf("nothing to ingest: pass files or --text")
	}

	cfg, err := r.loadConfig(c)
	if err != nil {
		return err
	}
	engine, closeEngine, err := r.openEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeEngine()

	var total ingestion.Report
	add := func(source string, report *ingestion.Report) {
		total.Windows += report.Windows
		total.Documents = append(total.Documents, report.Documents...)
		total.Duplicates += report.Duplicates
		total.Empty += report.Empty
		fmt.Fprintf(r.stdout, "%s: %d new, %d skipped\n", source, len(report.Documents), report.Skipped())
	}

	var ingestErr error
	for _, path := range files {
		report, err := engine.IngestFile(ctx, path)
		if report != nil {
			add(path, report)
		}
		if core.IsSkip(err) {
			slog.Warn("skipping file", "path", path, "err", err)
			continue
		}
		if err != nil {
			ingestErr = fmt.Errorf("failed to ingest %s: %w", path, err)
			break
		}
	}
	for i, text := range texts {
		if ingestErr != nil {
			break
		}
		report, err := engine.Ingest(ctx, text)
		if report != nil {
			add(fmt.Sprintf("text #%d", i+1), report)
		}
		if err != nil {
			ingestErr = fmt.Errorf("failed to ingest text #%d: %w", i+1, err)
		}
	}

	// Whatever was committed before a failure is kept.
	if len(total.Documents) > 0 {
		if err := engine.Save(ctx); err != nil {
			return fmt.Errorf("failed to save snapshot: %w", err)
		}
	}
	if ingestErr != nil {
		return ingestErr
	}
	fmt.Fprintf(r.stdout, "Ingested %d documents (%d duplicates, %d empty)\n",
		len(total.Documents), total.Duplicates, total.Empty)
	return nil
}

func (r *runner) queryCommand(c *cli.Context) error {
	ctx := c.Context
	query := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("query is required")
	}

	cfg, err := r.loadConfig(c)
	if err != nil {
		return err
	}
	topK := cfg.Retrieval.TopK
	if c.IsSet("top-k") {
		topK = c.Int("top-k")
	}
	threshold := cfg.Retrieval.Threshold
	if c.IsSet("threshold") {
		threshold = float32(c.Float64("threshold"))
	}

	engine, closeEngine, err := r.openEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeEngine()

	var monitor search.SearchMonitor
	if c.Bool("verbose") {
		debug := slog.New(slog.NewTextHandler(r.stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
		monitor = search.NewLogMonitor(debug)
	}
	results, err := engine.RetrieveWithMonitor(ctx, query, topK, threshold, monitor)
	if err != nil {
		return fmt.Errorf("retrieval failed: %w", err)
	}
	if len(results) == 0 {
		fmt.Fprintln(r.stdout, "No matching documents")
		return nil
	}
	for i, candidate := range results {
		doc, ok := engine.Document(candidate.Document)
		if !ok {
			continue
		}
		fmt.Fprintf(r.stdout, "%d. [doc %d] distance %.4f\n   %s\n",
			i+1, candidate.Document, candidate.Distance, preview(doc.Text, 200))
	}
	return nil
}

func (r *runner) chatCommand(c *cli.Context) error {
	ctx := c.Context
	cfg, err := r.loadConfig(c)
	if err != nil {
		return err
	}
	engine, closeEngine, err := r.openEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeEngine()

	mem, err := engine.NewSession()
	if err != nil {
		return err
	}

	fmt.Fprintln(r.stdout, "Type a message; /reset clears the context, /quit exits.")
	scanner := bufio.NewScanner(r.stdin)
	for {
		fmt.Fprint(r.stdout, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(r.stdout)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/reset":
			mem.Reset()
			fmt.Fprintln(r.stdout, "Context cleared")
			continue
		}

		text, err := mem.Update(ctx, line)
		if err != nil {
			return fmt.Errorf("retrieval failed: %w", err)
		}
		fmt.Fprintf(r.stdout, "--- context: %d documents ---\n", len(mem.Candidates()))
		if text != "" {
			fmt.Fprintln(r.stdout, text)
		}
	}
}

func (r *runner) statsCommand(c *cli.Context) error {
	cfg, err := r.loadConfig(c)
	if err != nil {
		return err
	}
	engine, closeEngine, err := r.openEngine(c.Context, cfg)
	if err != nil {
		return err
	}
	defer closeEngine()

	stats := engine.Stats()
	fmt.Fprintf(r.stdout, "Snapshot:       %s (%s)\n", cfg.Snapshot.Path, cfg.Snapshot.Backend)
	fmt.Fprintf(r.stdout, "Documents:      %d\n", stats.Documents)
	fmt.Fprintf(r.stdout, "Points:         %d\n", stats.Points)
	fmt.Fprintf(r.stdout, "Terms:          %d\n", stats.Terms)
	fmt.Fprintf(r.stdout, "Average length: %.2f\n", stats.AverageLength)
	fmt.Fprintf(r.stdout, "Index:          %s\n", stats.IndexKind)
	return nil
}

func (r *runner) reindexCommand(c *cli.Context) error {
	ctx := c.Context
	cfg, err := r.loadConfig(c)
	if err != nil {
		return err
	}

	reindexConfig := &reindex.Config{
		BatchSize:      cfg.Reindex.BatchSize,
		ReportInterval: c.Int("report-interval"),
		MaxRetries:     cfg.Reindex.MaxRetries,
		RetryDelay:     cfg.Reindex.RetryDelay,
		Normalize:      cfg.Reindex.Normalize || c.Bool("normalize"),
		Kind:           cfg.IndexKind(),
		Params:         cfg.IndexParams(),
	}
	if c.IsSet("batch-size") {
		reindexConfig.BatchSize = c.Int("batch-size")
	}
	if c.IsSet("max-retries") {
		reindexConfig.MaxRetries = c.Int("max-retries")
	}
	if c.IsSet("retry-delay") {
		reindexConfig.RetryDelay = c.Duration("retry-delay")
	}
	if c.IsSet("index-kind") {
		kind, err := vectorindex.ParseKind(c.String("index-kind"))
		if err != nil {
			return err
		}
		reindexConfig.Kind = kind
	}

	if reindexConfig.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if reindexConfig.ReportInterval <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}
	if reindexConfig.MaxRetries <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}

	engine, closeEngine, err := r.openEngine(ctx, cfg, recall.WithIndexKind(reindexConfig.Kind))
	if err != nil {
		return err
	}
	defer closeEngine()

	fmt.Fprintf(r.stderr, "Snapshot: %s (%s)\n", cfg.Snapshot.Path, cfg.Snapshot.Backend)
	fmt.Fprintf(r.stderr, "Embedding host: %s\n", cfg.Embedding.Host)
	fmt.Fprintf(r.stderr, "Embedding model: %s\n", cfg.Embedding.Model)
	fmt.Fprintln(r.stderr)

	if err := engine.Reindex(ctx, reindexConfig, r.stderr); err != nil {
		return fmt.Errorf("reindexing failed: %w", err)
	}
	if err := engine.Save(ctx); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

func preview(text string, limit int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
