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
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/poiesic/recall"
	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/ai/openai"
	"github.com/poiesic/recall/config"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/ingest"
	"github.com/poiesic/recall/reindex"
	"github.com/poiesic/recall/segment"
	"github.com/poiesic/recall/storage/badger"
	"github.com/urfave/cli/v2"
)

func main() {
	// Optional .env for local development; absence is fine.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "recall",
		Usage: "Embedded semantic retrieval over vector embeddings",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "index",
				Usage:  "Ingest documents from a JSONL file into the workspace",
				Action: indexCommand,
				Flags: append(commonFlags(),
					&cli.StringFlag{
						Name:     "input",
						Aliases:  []string{"i"},
						Usage:    "Path to a JSONL file of documents ({\"id\", \"text\", \"tags\"})",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of documents to ingest per batch",
						Value: 10,
					},
				),
			},
			{
				Name:   "search",
				Usage:  "Search the workspace; interactive unless --query is given",
				Action: searchCommand,
				Flags: append(commonFlags(),
					&cli.StringFlag{
						Name:    "query",
						Aliases: []string{"q"},
						Usage:   "One-shot query text",
					},
					&cli.IntFlag{
						Name:    "top-k",
						Aliases: []string{"k"},
						Usage:   "Number of fused results per query (default from config)",
					},
				),
			},
			{
				Name:   "reindex",
				Usage:  "Rebuild the vector branches from stored records into fresh namespaces",
				Action: reindexCommand,
				Flags: append(commonFlags(),
					&cli.StringFlag{
						Name:  "target-suffix",
						Usage: "Suffix for the rebuilt branch namespaces",
						Value: "v2",
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of records to process in each batch",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N records",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed embedding calls",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
				),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// commonFlags are shared by every command touching a workspace.
func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to a YAML configuration file",
		},
		&cli.StringFlag{
			Name:    "workspace",
			Aliases: []string{"w"},
			Usage:   "Workspace directory holding the stores (overrides config)",
		},
		&cli.StringFlag{
			Name:  "embedding-host",
			Usage: "Embedding service host URL (overrides config)",
		},
		&cli.StringFlag{
			Name:  "embedding-model",
			Usage: "Embedding model name (overrides config)",
		},
	}
}

func setupLogger(c *cli.Context) error {
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
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", levelStr)
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
	return nil
}

// loadConfig resolves the effective configuration: the YAML file if given,
// defaults otherwise, with command-line overrides applied on top.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg := config.Default()
	if path := c.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if workspace := c.String("workspace"); workspace != "" {
		cfg.Workspace = workspace
	}
	if host := c.String("embedding-host"); host != "" {
		cfg.Embedding.Host = host
	}
	if model := c.String("embedding-model"); model != "" {
		cfg.Embedding.Model = model
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newEmbedder(cfg *config.Config) (ai.Embedder, error) {
	aiConfig := ai.NewConfig(
		ai.WithEmbeddingHost(cfg.Embedding.Host),
		ai.WithEmbeddingModel(cfg.Embedding.Model),
	)
	return openai.NewEmbedder(aiConfig)
}

func newSegmenter(cfg *config.Config) (*segment.Segmenter, error) {
	opts := []segment.Option{
		segment.WithMinSentenceLength(cfg.Segmenter.MinSentenceLength),
		segment.WithMaxSentenceLength(cfg.Segmenter.MaxSentenceLength),
		segment.WithPunctuation(cfg.Segmenter.Punctuation),
	}
	if !cfg.Segmenter.UniformWeight {
		opts = append(opts, segment.WithProportionalWeights())
	}
	return segment.NewSegmenter(opts...)
}

func newEngine(cfg *config.Config) (*recall.Engine, error) {
	branches := make([]recall.Branch, len(cfg.Branches))
	for i, b := range cfg.Branches {
		branches[i] = recall.Branch{Name: b.Name, Weight: b.Weight}
	}

	opts := []recall.EngineOption{}
	if cfg.PoolSize > 0 {
		opts = append(opts, recall.WithPoolSize(cfg.PoolSize))
	}
	if cfg.BranchTopK > 0 {
		opts = append(opts, recall.WithBranchTopK(cfg.BranchTopK))
	}
	return recall.NewEngine(cfg.Workspace, branches, opts...)
}

// inputDocument is one line of the JSONL ingestion format.
type inputDocument struct {
	Id   string            `json:"id"`
	Text string            `json:"text"`
	Tags map[string]string `json:"tags,omitempty"`
}

func indexCommand(c *cli.Context) error {
	ctx := context.Background()

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	batchSize := c.Int("batch-size")
	if batchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}

	embedder, err := newEmbedder(cfg)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}
	segmenter, err := newSegmenter(cfg)
	if err != nil {
		return fmt.Errorf("failed to create segmenter: %w", err)
	}

	engine, err := newEngine(cfg)
	if err != nil {
		return fmt.Errorf("failed to open workspace: %w", err)
	}
	defer engine.Close()

	pipeline, err := engine.NewPipeline(embedder, segmenter, recall.BranchDocuments, recall.BranchChunks,
		ingest.WithEmbedBatchSize(batchSize))
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}
	defer pipeline.Release()

	file, err := os.Open(c.String("input"))
	if err != nil {
		return fmt.Errorf("failed to open input: %w", err)
	}
	defer file.Close()

	total := 0
	batch := make([]*core.Document, 0, batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := pipeline.Ingest(ctx, batch...); err != nil {
			return err
		}
		total += len(batch)
		batch = batch[:0]
		return nil
	}

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		var in inputDocument
		if err := json.Unmarshal([]byte(text), &in); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		batch = append(batch, &core.Document{Id: in.Id, Text: in.Text, Tags: in.Tags})

		if len(batch) == batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}
	if err := flush(); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Indexed %d documents into %s\n", total, cfg.Workspace)
	return nil
}

func searchCommand(c *cli.Context) error {
	ctx := context.Background()

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	topK := c.Int("top-k")
	if topK == 0 {
		topK = cfg.TopK
	}
	if topK <= 0 {
		return fmt.Errorf("top-k must be greater than 0")
	}

	embedder, err := newEmbedder(cfg)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	engine, err := newEngine(cfg)
	if err != nil {
		return fmt.Errorf("failed to open workspace: %w", err)
	}
	defer engine.Close()

	runQuery := func(text string) error {
		embedding, err := embedder.EmbedText(ctx, text)
		if err != nil {
			return fmt.Errorf("failed to embed query: %w", err)
		}

		results, err := engine.Search(ctx, [][]float32{embedding}, topK)
		if err != nil {
			return err
		}

		matches := results[0]
		if len(matches) == 0 {
			fmt.Println("no results")
			return nil
		}
		for rank, m := range matches {
			fmt.Printf("%2d. [%.4f] %s: %s\n",
				rank+1, m.Score(core.ScoreRelevance), m.Document.Id, snippet(m.Document.Text, 120))
		}
		return nil
	}

	if query := c.String("query"); query != "" {
		return runQuery(query)
	}

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("query> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			return nil
		}
		if err := runQuery(text); err != nil {
			return err
		}
	}
}

func reindexCommand(c *cli.Context) error {
	ctx := context.Background()

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	suffix := c.String("target-suffix")
	if suffix == "" {
		return fmt.Errorf("target-suffix is required")
	}

	backend, err := badger.OpenBackend(cfg.Workspace, false)
	if err != nil {
		return fmt.Errorf("failed to open workspace: %w", err)
	}
	defer backend.Close()

	source, err := badger.NewDocumentStore(backend)
	if err != nil {
		return fmt.Errorf("failed to open document store: %w", err)
	}
	defer source.Close()

	documentVectors, err := badger.NewVectorStore(backend, recall.BranchDocuments+"-"+suffix)
	if err != nil {
		return fmt.Errorf("failed to open target store: %w", err)
	}
	defer documentVectors.Close()

	chunkVectors, err := badger.NewVectorStore(backend, recall.BranchChunks+"-"+suffix)
	if err != nil {
		return fmt.Errorf("failed to open target store: %w", err)
	}
	defer chunkVectors.Close()

	embedder, err := newEmbedder(cfg)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}
	segmenter, err := newSegmenter(cfg)
	if err != nil {
		return fmt.Errorf("failed to create segmenter: %w", err)
	}

	reindexConfig := &reindex.Config{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
	}

	reindexer, err := reindex.NewReindexer(source, documentVectors, chunkVectors,
		embedder, segmenter, reindexConfig, os.Stderr)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Workspace: %s\n", cfg.Workspace)
	fmt.Fprintf(os.Stderr, "Embedding host: %s\n", cfg.Embedding.Host)
	fmt.Fprintf(os.Stderr, "Embedding model: %s\n", cfg.Embedding.Model)

	summary, err := reindexer.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Reindexed %d parents and %d chunks into %s-%s/%s-%s in %s\n",
		summary.Parents, summary.Chunks,
		recall.BranchDocuments, suffix, recall.BranchChunks, suffix,
		summary.Elapsed.Round(time.Millisecond))
	return nil
}

// snippet truncates text for single-line display.
func snippet(text string, max int) string {
	text = strings.ReplaceAll(text, "\n", " ")
	if len(text) <= max {
		return text
	}
	return text[:max] + "…"
}
