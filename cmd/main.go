package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"
	"github.com/xhad/scribe/internal/types"
	"github.com/xhad/scribe/pkg/config"
	"github.com/xhad/scribe/pkg/generate"
	"github.com/xhad/scribe/pkg/llm"
	"github.com/xhad/scribe/pkg/pipeline"
	"github.com/xhad/scribe/pkg/processor"
	"github.com/xhad/scribe/pkg/publish"
	"github.com/xhad/scribe/pkg/revise"
	"github.com/xhad/scribe/pkg/scheduler"
	"github.com/xhad/scribe/pkg/sources"
	"github.com/xhad/scribe/pkg/store"
	"github.com/xhad/scribe/server"
)

func main() {
	var configPath string
	var envPath string
	var ingestOnly bool

	flag.StringVar(&configPath, "config", "", "Path to config file")
	flag.StringVar(&envPath, "env", ".env", "Path to .env file")
	flag.BoolVar(&ingestOnly, "ingest-only", false, "Run ingestion once and exit")
	flag.Parse()

	if err := godotenv.Load(envPath); err != nil {
		log.Printf("no env file loaded from %s: %v", envPath, err)
	}

	if err := run(configPath, ingestOnly); err != nil {
		log.Fatal(err)
	}
}

func getSpinner(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(color.CyanString(description)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(20),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func run(configPath string, ingestOnly bool) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %v", err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			color.Red("config: %s", e.Error())
		}
		return fmt.Errorf("invalid configuration (%d errors)", len(errs))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	embedder, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
		Model:   cfg.LLM.EmbedModel,
		BaseURL: cfg.LLM.BaseURL,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize embedder: %v", err)
	}

	generator, err := llm.NewGeneratorWithConfig(llm.GeneratorConfig{
		Model:       cfg.LLM.Model,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
		BaseURL:     cfg.LLM.BaseURL,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize generator: %v", err)
	}

	vectorStore, err := store.NewWithConfig(ctx, store.VectorStoreConfig{
		ConnString: cfg.Database.URL,
		TableName:  cfg.Database.TableName,
		VectorDim:  cfg.Database.VectorDim,
	}, embedder)
	if err != nil {
		return fmt.Errorf("failed to initialize vector store: %v", err)
	}
	defer vectorStore.Close()

	proc := processor.NewWithConfig(processor.ProcessorConfig{
		ChunkSize:    cfg.Processor.ChunkSize,
		ChunkOverlap: cfg.Processor.ChunkOverlap,
		BatchSize:    cfg.Processor.BatchSize,
	})

	srcs := buildSources(cfg)
	if len(srcs) > 0 {
		color.Blue("\nStarting ingestion from %d source(s)\n", len(srcs))
		spinner := getSpinner("Ingesting documents...")

		pipe := pipeline.New(srcs, proc, vectorStore)
		stats, err := pipe.Run(ctx)
		spinner.Finish()
		fmt.Print("\n")
		if err != nil {
			return fmt.Errorf("ingestion failed: %v", err)
		}

		color.Green("✓ Fetched %d documents, %d after dedup, %d chunks", stats.Fetched, stats.Deduped, stats.Chunks)
		color.Green("✓ Stored %d batches (%d skipped, %d sources failed)", stats.StoredBatches, stats.SkippedBatches, stats.FailedSources)
	} else {
		color.Yellow("No document sources configured, skipping ingestion")
	}

	if ingestOnly {
		return nil
	}

	reviser := revise.NewWithConfig(vectorStore, revise.ReviserConfig{
		MinSimilarity: float32(cfg.Revise.MinSimilarity),
	})
	answerer := generate.NewAnswerer(vectorStore, generator)
	articles := generate.NewArticleWriter(vectorStore, generator)

	coordinator := scheduler.NewWithConfig(scheduler.CoordinatorConfig{
		Interval: time.Duration(cfg.Scheduler.IntervalSeconds) * time.Second,
	})
	registerSummaryJobs(cfg, generator, coordinator)
	coordinator.Start(ctx)

	srv := server.New(server.Config{Addr: cfg.Server.Addr}, vectorStore, answerer, articles, reviser)
	color.Cyan("\nServing commands on %s\n", cfg.Server.Addr)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		color.Yellow("\nShutting down")
		return nil
	case err := <-errCh:
		return err
	}
}

func buildSources(cfg *config.Config) []types.DocumentSource {
	var srcs []types.DocumentSource

	if cfg.Chat.BaseURL != "" {
		srcs = append(srcs, newChatSource(cfg, cfg.Chat.Token, cfg.Chat.Channel))
	}

	if cfg.Wiki.BaseURL != "" {
		srcs = append(srcs, newWikiSource(cfg))
	}

	return srcs
}

func newChatSource(cfg *config.Config, token, channel string) *sources.ChatSource {
	links := sources.NewLinkFetcher(sources.LinkFetcherConfig{
		RateLimit: cfg.Chat.RateLimit,
	})
	return sources.NewChatSource(sources.ChatSourceConfig{
		BaseURL: cfg.Chat.BaseURL,
		Token:   token,
		Channel: channel,
		Window:  time.Duration(cfg.Chat.WindowDays) * 24 * time.Hour,
	}, links)
}

func newWikiSource(cfg *config.Config) *sources.WikiSource {
	return sources.NewWikiSource(sources.WikiSourceConfig{
		BaseURL:   cfg.Wiki.BaseURL,
		Token:     cfg.Wiki.Token,
		Space:     cfg.Wiki.Space,
		PageLimit: cfg.Wiki.PageLimit,
	})
}

// generalSummarySources covers the whole knowledge stream: the main chat
// channel plus the wiki space.
func generalSummarySources(cfg *config.Config) []types.DocumentSource {
	var srcs []types.DocumentSource
	if cfg.Chat.BaseURL != "" {
		srcs = append(srcs, newChatSource(cfg, cfg.Chat.Token, cfg.Chat.Channel))
	}
	if cfg.Wiki.BaseURL != "" {
		srcs = append(srcs, newWikiSource(cfg))
	}
	return srcs
}

// supportSummarySources covers only the support channel, read with its own
// token when one is configured.
func supportSummarySources(cfg *config.Config) []types.DocumentSource {
	if cfg.Chat.BaseURL == "" || cfg.Chat.SupportChannel == "" {
		return nil
	}
	token := cfg.Chat.SupportToken
	if token == "" {
		token = cfg.Chat.Token
	}
	return []types.DocumentSource{newChatSource(cfg, token, cfg.Chat.SupportChannel)}
}

// registerSummaryJobs wires the two recurring publish jobs. Each job owns its
// own sources and summarizer so a failure or retry in one cannot leak into
// the other, and the two digests cover different streams: general reads chat
// plus wiki, support reads the support channel.
func registerSummaryJobs(cfg *config.Config, gen types.Generator, coordinator *scheduler.Coordinator) {
	if cfg.Wiki.BaseURL == "" {
		log.Println("summary jobs disabled: wiki not configured")
		return
	}

	jobs := []struct {
		name    string
		pageID  string
		heading string
		srcs    []types.DocumentSource
	}{
		{"general-summary", cfg.Publish.GeneralPageID, "General Summary", generalSummarySources(cfg)},
		{"support-summary", cfg.Publish.SupportPageID, "Support Summary", supportSummarySources(cfg)},
	}

	for _, job := range jobs {
		if job.pageID == "" || len(job.srcs) == 0 {
			log.Printf("summary job %s disabled: page or sources not configured", job.name)
			continue
		}
		publisher := publish.NewWithConfig(publish.WikiPublisherConfig{
			BaseURL: cfg.Wiki.BaseURL,
			Token:   cfg.Wiki.Token,
		})
		summarizer := generate.NewSummarizer(gen, generate.SummarizerConfig{})
		coordinator.Register(summaryJob(job.name, job.srcs, summarizer, publisher, job.pageID, job.heading))
	}
}

type textSummarizer interface {
	Summarize(ctx context.Context, texts []string, sourceName string) (string, error)
}

func summaryJob(name string, srcs []types.DocumentSource, summarizer textSummarizer, publisher types.Publisher, pageID, heading string) scheduler.Job {
	return scheduler.Job{
		Name: name,
		Run: func(ctx context.Context) error {
			var texts []string
			for _, src := range srcs {
				docs, err := src.Fetch(ctx)
				if err != nil {
					log.Printf("%s: source %s unavailable: %v", name, src.Name(), err)
					continue
				}
				for _, doc := range docs {
					texts = append(texts, doc.Content)
				}
			}
			if len(texts) == 0 {
				return nil
			}

			summary, err := summarizer.Summarize(ctx, texts, name)
			if err != nil {
				return fmt.Errorf("summarize failed: %w", err)
			}

			return publisher.AppendSummary(ctx, pageID, heading, summary)
		},
	}
}
