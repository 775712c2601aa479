package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dotaconstants/internal/config"
	"dotaconstants/internal/db"
	"dotaconstants/internal/discord"
	"dotaconstants/internal/feed"
	"dotaconstants/internal/pipeline"
	"dotaconstants/internal/storage"
	"dotaconstants/internal/telemetry"

	"github.com/joho/godotenv"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Load .env
	envPaths := []string{".env", "../.env", "../../.env"}
	for _, path := range envPaths {
		if err := godotenv.Load(path); err == nil {
			fmt.Printf("Loaded .env from: %s\n", path)
			break
		}
	}

	cfg, err := config.Load()
	if err != nil {
		config.Exitf("Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.OTLPEndpoint != "" {
		shutdown, err := telemetry.Setup(ctx)
		if err != nil {
			log.Printf("Warning: tracing disabled: %v", err)
		} else {
			defer func() {
				flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				shutdown(flushCtx)
			}()
		}
	}

	return build(ctx, cfg)
}

func build(ctx context.Context, cfg config.Config) int {
	clientOpts := []feed.Option{
		feed.WithToken(cfg.StratzToken),
		feed.WithTimeout(cfg.HTTPTimeout),
		feed.WithRateLimit(cfg.RequestsPerSecond),
		feed.WithRetries(cfg.MaxRetries),
	}
	runnerOpts := []pipeline.Option{
		pipeline.WithWorkers(cfg.Workers),
		pipeline.WithFetchConcurrency(cfg.FetchConcurrency),
		pipeline.WithStaticDir(cfg.StaticDir),
		pipeline.WithIndexPath(cfg.IndexPath),
	}

	if cfg.StorePath != "" {
		store, err := db.Open(ctx, cfg.StorePath)
		if err != nil {
			log.Printf("Failed to open store: %v", err)
			return 1
		}
		defer store.Close()
		clientOpts = append(clientOpts, feed.WithCache(store))
		runnerOpts = append(runnerOpts, pipeline.WithStore(store))
		fmt.Printf("Using store at %s\n", cfg.StorePath)
	}

	if cfg.TursoURL != "" {
		turso, err := db.NewTursoPublisher(ctx, cfg.TursoURL, cfg.TursoAuthToken)
		if err != nil {
			log.Printf("Warning: Turso publishing disabled: %v", err)
		} else {
			defer turso.Close()
			runnerOpts = append(runnerOpts, pipeline.WithPublishers(turso))
		}
	}

	if cfg.DatabaseURL != "" {
		pg, err := db.NewPostgresPublisher(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Printf("Warning: Postgres publishing disabled: %v", err)
		} else {
			defer pg.Close()
			runnerOpts = append(runnerOpts, pipeline.WithPublishers(pg))
		}
	}

	writer, err := storage.NewWriter(cfg.BuildDir, cfg.ArchiveDir)
	if err != nil {
		log.Printf("Failed to prepare build directory: %v", err)
		return 1
	}

	if cfg.StratzToken == "" {
		fmt.Println("STRATZ_TOKEN not set, token-gated sources will be skipped")
	}

	runner := pipeline.New(feed.NewClient(clientOpts...), writer, runnerOpts...)
	report, runErr := runner.Run(ctx)

	if cfg.DiscordWebhookURL != "" {
		notifyCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := discord.NewWebhookClient(cfg.DiscordWebhookURL).SendRunReport(notifyCtx, summarize(report, runErr)); err != nil {
			log.Printf("Warning: failed to send Discord notification: %v", err)
		}
	}

	if runErr != nil {
		log.Printf("Build failed: %v", runErr)
		return 1
	}

	fmt.Printf("\n=== Build Complete ===\n")
	fmt.Printf("Documents: %d\n", len(report.Documents))
	fmt.Printf("Skipped: %d\n", len(report.Skipped))
	fmt.Printf("Duration: %s\n", report.Duration.Round(time.Millisecond))
	return 0
}

func summarize(report *pipeline.Report, runErr error) discord.RunSummary {
	s := discord.RunSummary{
		RunID:      report.RunID,
		Documents:  len(report.Documents),
		Duration:   report.Duration,
		Skipped:    report.Skipped,
		FinishedAt: time.Now(),
	}
	for _, doc := range report.Documents {
		s.TotalBytes += doc.Size
	}
	for _, f := range report.Failures {
		s.Failures = append(s.Failures, f.Error())
	}
	// Finalize errors are not tied to a source.
	if runErr != nil && len(s.Failures) == 0 {
		s.Failures = []string{runErr.Error()}
	}
	return s
}
