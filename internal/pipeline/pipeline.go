package pipeline

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/TobiSchelling/trendfinder/internal/collect"
	"github.com/TobiSchelling/trendfinder/internal/config"
	"github.com/TobiSchelling/trendfinder/internal/database"
	"github.com/TobiSchelling/trendfinder/internal/digest"
	"github.com/TobiSchelling/trendfinder/internal/enrich"
	"github.com/TobiSchelling/trendfinder/internal/fetch"
	"github.com/TobiSchelling/trendfinder/internal/llm"
	"github.com/TobiSchelling/trendfinder/internal/notify"
	"github.com/TobiSchelling/trendfinder/internal/trends"
)

// StepResult holds the result of a single pipeline step.
type StepResult struct {
	Name    string
	Summary string
	Err     error
}

// Result holds the results of a full pipeline run.
type Result struct {
	Query  string
	RunID  string
	Trends trends.RankedTrendList
	Stats  *trends.Result
	Steps  []StepResult
}

// RunOptions switches off the optional steps.
type RunOptions struct {
	NoSave   bool
	NoNotify bool
}

// Deps are the collaborators a pipeline drives. New builds them from
// config; tests supply their own.
type Deps struct {
	Adapters []trends.SourceAdapter
	// Enricher returns the enricher for one query.
	Enricher     func(query string) trends.Enricher
	Notifier     notify.Notifier
	ProviderName string
}

// Pipeline runs find, store and notify for one query at a time. It is safe
// for concurrent use.
type Pipeline struct {
	cfg    *config.Config
	db     *database.DB
	deps   Deps
	logger zerolog.Logger
}

// New creates a pipeline from config. db may be nil, in which case runs are
// never stored.
func New(cfg *config.Config, db *database.DB, logger zerolog.Logger) *Pipeline {
	adapters := collect.Adapters(cfg, logger)
	if cfg.Sources.FillSnippets {
		fetcher := fetch.NewContentFetcher(time.Duration(cfg.Sources.Timeout), logger)
		for i, a := range adapters {
			adapters[i] = fetch.WithSnippets(a, fetcher, logger)
		}
	}

	enr := cfg.Enrichment
	provider := llm.CreateProvider(llm.Config{
		Provider:     enr.Provider,
		OllamaModel:  enr.Model,
		OllamaURL:    enr.OllamaURL,
		OpenAIModel:  enr.OpenAIModel,
		OpenAIKeyEnv: enr.OpenAIKeyEnv,
		GeminiModel:  enr.GeminiModel,
		GeminiKeyEnv: enr.GeminiKeyEnv,
	}, llm.Options{
		MaxRetries: enr.MaxRetries,
		Timeout:    time.Duration(enr.Timeout),
		Logger:     logger,
	})
	enricher := enrich.NewLLMEnricher(provider, enr.MaxTokens, logger)

	providerName := "none"
	if provider != nil {
		providerName = provider.Name()
	}

	return NewWithDeps(cfg, db, Deps{
		Adapters:     adapters,
		Enricher:     func(q string) trends.Enricher { return enricher.ForQuery(q) },
		Notifier:     newNotifier(cfg.Notify, logger),
		ProviderName: providerName,
	}, logger)
}

// NewWithDeps creates a pipeline over explicit collaborators.
func NewWithDeps(cfg *config.Config, db *database.DB, deps Deps, logger zerolog.Logger) *Pipeline {
	return &Pipeline{cfg: cfg, db: db, deps: deps, logger: logger}
}

func newNotifier(cfg config.Notify, logger zerolog.Logger) notify.Notifier {
	tg := cfg.Telegram
	if !tg.Enabled {
		return nil
	}
	token := os.Getenv(tg.BotTokenEnv)
	if token == "" || tg.ChatID == "" {
		logger.Warn().Str("env", tg.BotTokenEnv).Msg("telegram enabled but bot token or chat id missing")
		return nil
	}
	return notify.NewTelegramNotifier(token, tg.ChatID, logger)
}

// Run executes find, store and notify for query. An empty query falls back
// to the configured default. A failed find aborts the run and its error is
// returned; store and notify failures are only reported in the steps.
func (p *Pipeline) Run(ctx context.Context, query string, maxResults int, opts RunOptions) (*Result, error) {
	if strings.TrimSpace(query) == "" {
		query = p.cfg.Trends.Query
	}
	r := &Result{Query: query}

	// Step 1: Find
	step, err := p.runFind(ctx, r, maxResults)
	r.Steps = append(r.Steps, step)
	if err != nil {
		return r, err
	}

	// Step 2: Store
	if p.db != nil && !opts.NoSave {
		r.Steps = append(r.Steps, p.runStore(r, maxResults))
	}

	// Step 3: Notify
	if p.deps.Notifier != nil && !opts.NoNotify && len(r.Trends) > 0 {
		r.Steps = append(r.Steps, p.runNotify(ctx, r))
	}

	return r, nil
}

// DryRun shows what would be done without touching the network.
func (p *Pipeline) DryRun(query string) *Result {
	if strings.TrimSpace(query) == "" {
		query = p.cfg.Trends.Query
	}
	r := &Result{Query: query}

	names := make([]string, 0, len(p.deps.Adapters))
	for _, a := range p.deps.Adapters {
		names = append(names, a.Name())
	}
	r.Steps = append(r.Steps, StepResult{
		Name: "Find",
		Summary: fmt.Sprintf("[dry-run] would search %d sources (%s) and enrich with %s in chunks of %d",
			len(names), strings.Join(names, ", "), p.deps.ProviderName, p.cfg.Enrichment.ChunkSize),
	})

	if p.db != nil {
		stats, err := p.db.GetStats()
		summary := fmt.Sprintf("[dry-run] would store run in %s", p.db.Path())
		if err == nil {
			summary += fmt.Sprintf(" (%d runs so far)", stats.Runs)
		}
		r.Steps = append(r.Steps, StepResult{Name: "Store", Summary: summary})
	}

	if p.deps.Notifier != nil {
		r.Steps = append(r.Steps, StepResult{Name: "Notify", Summary: "[dry-run] would publish digest"})
	}
	return r
}

func (p *Pipeline) runFind(ctx context.Context, r *Result, maxResults int) (StepResult, error) {
	p.logger.Info().Str("query", r.Query).Int("max_results", maxResults).Msg("Step 1/3: Finding trends...")

	var enricher trends.Enricher
	if p.deps.Enricher != nil {
		enricher = p.deps.Enricher(r.Query)
	}
	finder := trends.NewFinder(p.deps.Adapters, enricher,
		trends.WithChunkSize(p.cfg.Enrichment.ChunkSize),
		trends.WithLogger(p.logger),
	)

	res, err := finder.Find(ctx, r.Query, maxResults)
	if err != nil {
		return StepResult{Name: "Find", Err: err}, err
	}
	r.Stats = res
	r.Trends = res.Trends
	return StepResult{
		Name: "Find",
		Summary: fmt.Sprintf("Found %d trends from %d articles in %d clusters (%d/%d chunks failed)",
			len(res.Trends), res.Articles, res.Clusters, res.FailedChunks, res.Chunks),
	}, nil
}

func (p *Pipeline) runStore(r *Result, maxResults int) StepResult {
	p.logger.Info().Msg("Step 2/3: Storing run...")
	run := &database.Run{
		Query:        r.Query,
		MaxResults:   maxResults,
		ArticleCount: r.Stats.Articles,
		ClusterCount: r.Stats.Clusters,
		ChunkCount:   r.Stats.Chunks,
		FailedChunks: r.Stats.FailedChunks,
		DurationMS:   r.Stats.Duration.Milliseconds(),
		Trends:       r.Trends,
	}
	if err := p.db.InsertRun(run); err != nil {
		return StepResult{Name: "Store", Err: err}
	}
	r.RunID = run.ID
	return StepResult{Name: "Store", Summary: fmt.Sprintf("Stored run %s", run.ID)}
}

func (p *Pipeline) runNotify(ctx context.Context, r *Result) StepResult {
	p.logger.Info().Msg("Step 3/3: Publishing digest...")
	if err := p.deps.Notifier.PublishDigest(ctx, digest.Markdown(r.Query, r.Trends)); err != nil {
		return StepResult{Name: "Notify", Err: err}
	}
	if r.RunID != "" {
		if err := p.db.MarkNotified(r.RunID); err != nil {
			p.logger.Warn().Err(err).Str("run", r.RunID).Msg("could not mark run notified")
		}
	}
	return StepResult{Name: "Notify", Summary: fmt.Sprintf("Published digest of %d trends", len(r.Trends))}
}
