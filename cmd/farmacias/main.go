package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v2"

	farmacias "github.com/davidpenaloza/mvp-farmacias-v2"
	"github.com/davidpenaloza/mvp-farmacias-v2/ai"
	"github.com/davidpenaloza/mvp-farmacias-v2/cache"
	"github.com/davidpenaloza/mvp-farmacias-v2/core"
	"github.com/davidpenaloza/mvp-farmacias-v2/ingestion"
	"github.com/davidpenaloza/mvp-farmacias-v2/resolve"
	badgerstore "github.com/davidpenaloza/mvp-farmacias-v2/storage/badger"
)

func main() {
	app := &cli.App{
		Name:  "farmacias",
		Usage: "Locality resolution and pharmacy search over the MINSAL feed",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
				EnvVars: []string{"FARMACIAS_LOG_LEVEL"},
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "seed",
				Usage:  "Load a MINSAL feed file into the pharmacy store",
				Action: seedCommand,
				Flags: []cli.Flag{
					dbFlag(),
					redisFlag(),
					&cli.StringFlag{
						Name:    "file",
						Aliases: []string{"f"},
						Usage:   "Path to a feed JSON file",
					},
					&cli.StringFlag{
						Name:  "url",
						Usage: "Feed URL to fetch instead of reading a file",
					},
					&cli.BoolFlag{
						Name:  "minsal",
						Usage: "Fetch the official MINSAL endpoint matching --turno",
					},
					&cli.BoolFlag{
						Name:  "turno",
						Usage: "Mark every record in the file as on turno duty",
					},
					&cli.BoolFlag{
						Name:  "replace",
						Usage: "Replace the whole dataset instead of upserting",
					},
				},
			},
			{
				Name:      "resolve",
				Usage:     "Resolve free-form location text to a comuna",
				ArgsUsage: "<query>",
				Action:    resolveCommand,
				Flags: append([]cli.Flag{
					dbFlag(),
					redisFlag(),
					&cli.BoolFlag{
						Name:  "trace",
						Usage: "Log each pipeline stage while resolving",
					},
				}, aiFlags()...),
			},
			{
				Name:      "search",
				Usage:     "Resolve a query and list its pharmacies",
				ArgsUsage: "<query>",
				Action:    searchCommand,
				Flags: append([]cli.Flag{
					dbFlag(),
					redisFlag(),
					&cli.BoolFlag{
						Name:  "turno",
						Usage: "Only pharmacies on turno duty",
					},
					&cli.BoolFlag{
						Name:  "open",
						Usage: "Only pharmacies open right now",
					},
				}, aiFlags()...),
			},
			{
				Name:   "invalidate",
				Usage:  "Flush cached resolution and search results",
				Action: invalidateCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "redis",
						Usage:    "Redis URL, e.g. redis://localhost:6379/0",
						EnvVars:  []string{"FARMACIAS_REDIS_URL"},
						Required: true,
					},
					&cli.StringFlag{
						Name:  "pattern",
						Usage: "Glob pattern relative to the cache prefix (default: everything)",
						Value: "*",
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func dbFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "db",
		Aliases:  []string{"d"},
		Usage:    "Path to BadgerDB database directory",
		EnvVars:  []string{"FARMACIAS_DB"},
		Required: true,
	}
}

func redisFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "redis",
		Usage:   "Redis URL for result caching (optional)",
		EnvVars: []string{"FARMACIAS_REDIS_URL"},
	}
}

func aiFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "ai-host",
			Usage:   "OpenAI-compatible service host URL",
			Value:   "http://localhost:11434/v1",
			EnvVars: []string{"FARMACIAS_AI_HOST"},
		},
		&cli.StringFlag{
			Name:    "embedding-model",
			Usage:   "Embedding model name",
			Value:   "embeddinggemma",
			EnvVars: []string{"FARMACIAS_EMBEDDING_MODEL"},
		},
		&cli.StringFlag{
			Name:    "extractor-model",
			Usage:   "Extraction model name",
			Value:   "qwen2.5:3b",
			EnvVars: []string{"FARMACIAS_EXTRACTOR_MODEL"},
		},
	}
}

// redisClient builds a client from the --redis flag, or nil when unset.
func redisClient(c *cli.Context) (*redis.Client, error) {
	url := c.String("redis")
	if url == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	return redis.NewClient(opts), nil
}

func newFinder(ctx context.Context, c *cli.Context) (*farmacias.Finder, error) {
	aiConfig := ai.NewConfig(
		ai.WithHost(c.String("ai-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithExtractorModel(c.String("extractor-model")),
	)

	opts := []farmacias.FinderOption{farmacias.WithAIConfig(aiConfig)}

	client, err := redisClient(c)
	if err != nil {
		return nil, err
	}
	if client != nil {
		opts = append(opts, farmacias.WithRedis(client))
	}

	return farmacias.NewFinder(ctx, c.String("db"), opts...)
}

func seedCommand(c *cli.Context) error {
	ctx := context.Background()

	backend, err := badgerstore.OpenBackend(c.String("db"), false)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer backend.Close()

	repo, err := badgerstore.NewPharmacyRepository(backend)
	if err != nil {
		return fmt.Errorf("failed to create repository: %w", err)
	}
	defer repo.Close()

	var loaderOpts []ingestion.Option
	client, err := redisClient(c)
	if err != nil {
		return err
	}
	if client != nil {
		defer client.Close()
		resultCache, err := cache.New(client)
		if err != nil {
			return err
		}
		loaderOpts = append(loaderOpts, ingestion.WithInvalidator(resultCache))
	}

	loader, err := ingestion.NewLoader(repo, loaderOpts...)
	if err != nil {
		return err
	}

	count, err := runSeed(ctx, loader, c)
	if err != nil {
		return fmt.Errorf("seeding failed: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Stored %d pharmacies\n", count)
	return nil
}

// runSeed ingests the feed source selected by the flags. Exactly one of
// --file, --url, or --minsal must be given.
func runSeed(ctx context.Context, loader *ingestion.Loader, c *cli.Context) (int, error) {
	file, url := c.String("file"), c.String("url")

	sources := 0
	for _, set := range []bool{file != "", url != "", c.Bool("minsal")} {
		if set {
			sources++
		}
	}
	if sources != 1 {
		return 0, fmt.Errorf("exactly one of --file, --url, or --minsal is required")
	}

	turno := c.Bool("turno")
	if c.Bool("minsal") {
		url = ingestion.DefaultFeedURL
		if turno {
			url = ingestion.DefaultTurnoFeedURL
		}
	}

	if c.Bool("replace") {
		if url != "" {
			return loader.ReplaceURL(ctx, url, turno)
		}
		f, err := os.Open(file)
		if err != nil {
			return 0, err
		}
		defer f.Close()
		return loader.Replace(ctx, f, turno)
	}

	if url != "" {
		return loader.LoadURL(ctx, url, turno)
	}
	return loader.LoadFile(ctx, file, turno)
}

func resolveCommand(c *cli.Context) error {
	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return fmt.Errorf("query argument is required")
	}

	ctx := context.Background()
	finder, err := newFinder(ctx, c)
	if err != nil {
		return err
	}
	defer finder.Close()

	var monitor resolve.Monitor
	if c.Bool("trace") {
		monitor = &traceMonitor{logger: slog.Default().With("component", "resolve-trace")}
	}

	result, err := finder.ResolveWithMonitor(ctx, query, monitor)
	if err != nil {
		return err
	}
	return printJSON(result)
}

// traceMonitor logs every resolution stage for the --trace flag.
type traceMonitor struct {
	logger *slog.Logger
}

var _ resolve.Monitor = (*traceMonitor)(nil)

func (m *traceMonitor) Start(rawQuery string) {
	m.logger.Info("resolving", "query", rawQuery)
}

func (m *traceMonitor) CacheHit(result *core.MatchResult) {
	m.logger.Info("cache hit", "method", result.Method.String(), "confidence", result.Confidence)
}

func (m *traceMonitor) StageResolved(method core.MatchMethod, loc *core.Locality, confidence float64) {
	m.logger.Info("stage resolved",
		"method", method.String(),
		"locality", loc.Key,
		"confidence", confidence)
}

func (m *traceMonitor) ExtractionResult(extracted string, err error) {
	if err != nil {
		m.logger.Warn("extraction failed", "error", err)
		return
	}
	m.logger.Info("extraction", "locality", extracted)
}

func (m *traceMonitor) Finish(result *core.MatchResult) {
	m.logger.Info("resolved",
		"method", result.Method.String(),
		"confidence", result.Confidence)
}

func searchCommand(c *cli.Context) error {
	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return fmt.Errorf("query argument is required")
	}

	ctx := context.Background()
	finder, err := newFinder(ctx, c)
	if err != nil {
		return err
	}
	defer finder.Close()

	filters := core.FilterSignature{
		OnlyTurno: c.Bool("turno"),
		OnlyOpen:  c.Bool("open"),
	}

	result, set, err := finder.SmartSearch(ctx, query, filters)
	if err != nil {
		return err
	}
	if set == nil {
		fmt.Fprintf(os.Stderr, "Query did not resolve to a comuna (method %s, confidence %.2f)\n",
			result.Method, result.Confidence)
		return nil
	}
	return printJSON(set)
}

func invalidateCommand(c *cli.Context) error {
	ctx := context.Background()

	client, err := redisClient(c)
	if err != nil {
		return err
	}
	defer client.Close()

	resultCache, err := cache.New(client)
	if err != nil {
		return err
	}

	deleted, err := resultCache.InvalidatePattern(ctx, c.String("pattern"))
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Removed %d cache entries\n", deleted)
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func setupLogger(c *cli.Context) error {
	level, err := parseLogLevel(c.String("log-level"))
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", s)
	}
}
