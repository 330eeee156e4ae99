package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mbaumgartner/flipradar/internal/budget"
	"github.com/mbaumgartner/flipradar/internal/cache"
	"github.com/mbaumgartner/flipradar/internal/config"
	"github.com/mbaumgartner/flipradar/internal/engine"
	"github.com/mbaumgartner/flipradar/internal/market"
	"github.com/mbaumgartner/flipradar/internal/notify"
	"github.com/mbaumgartner/flipradar/internal/oracle"
	"github.com/mbaumgartner/flipradar/internal/store"
	"github.com/mbaumgartner/flipradar/pkg/evaluate"
	"github.com/mbaumgartner/flipradar/pkg/pricing"
)

// buildEngine wires the full pipeline from config: store, scraper,
// oracle backend, price cache, and notifier. The caller owns the
// returned store and must Close it.
func buildEngine(
	ctx context.Context,
	cfg *config.Config,
	log *slog.Logger,
) (*engine.Engine, *store.PostgresStore, error) {
	st, err := store.NewPostgresStore(ctx, cfg.Database.DSN())
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to database: %w", err)
	}

	scrapeGuard := budget.NewGuard(
		cfg.Market.RateLimit.PerSecond,
		cfg.Market.RateLimit.Burst,
		cfg.Market.RateLimit.DailyLimit,
	)
	scraper := market.NewScraper(cfg.Market, log, market.WithGuard(scrapeGuard))

	backend, err := oracleBackend(ctx, cfg.Oracle)
	if err != nil {
		st.Close()
		return nil, nil, fmt.Errorf("building oracle backend: %w", err)
	}

	oracleGuard := budget.NewGuard(
		float64(cfg.Oracle.Concurrency),
		cfg.Oracle.Concurrency,
		cfg.Oracle.DailyBudget,
	)
	estimator := oracle.New(backend, oracle.WithBudgetGuard(oracleGuard))

	var priceCache cache.PriceCache
	if cfg.Redis.Enabled {
		priceCache, err = cache.NewRedisCache(ctx, cfg.Redis)
		if err != nil {
			st.Close()
			return nil, nil, fmt.Errorf("connecting to redis: %w", err)
		}
	} else {
		priceCache = cache.NewMemoryCache(cfg.Redis.TTL)
	}

	var notifier notify.Notifier = notify.NewNoOpNotifier(log)
	if cfg.Notifications.Discord.Enabled {
		notifier = notify.NewDiscordNotifier(cfg.Notifications.Discord.WebhookURL)
	}

	eng := engine.NewEngine(st, scraper, estimator, priceCache, notifier,
		engine.WithLogger(log),
		engine.WithSearchQueries(cfg.Market.SearchQueries),
		engine.WithStaggerOffset(cfg.Schedule.StaggerOffset),
		engine.WithAggregator(pricing.NewAggregator(
			pricing.WithMaxObservations(cfg.Pricing.MaxObservations),
			pricing.WithOutlierBand(cfg.Pricing.OutlierLow, cfg.Pricing.OutlierHigh),
			pricing.WithFallbackMultiplier(cfg.Pricing.FallbackMultiplier),
		)),
		engine.WithEvaluator(evaluate.NewEvaluator(
			evaluate.WithFeeRate(cfg.Pricing.FeeRate),
			evaluate.WithMinProfit(cfg.Pricing.MinProfit),
		)),
	)

	return eng, st, nil
}

func oracleBackend(ctx context.Context, cfg config.OracleConfig) (oracle.LLMBackend, error) {
	switch cfg.Backend {
	case "ollama":
		return oracle.NewOllamaBackend(cfg.Ollama.Endpoint, cfg.Ollama.Model), nil
	case "openai_compat":
		return oracle.NewOpenAICompatBackend(cfg.OpenAICompat.Endpoint, cfg.OpenAICompat.Model), nil
	case "gemini":
		return oracle.NewGeminiBackend(ctx, cfg.Gemini.Model)
	default:
		return nil, fmt.Errorf("unknown oracle backend %q", cfg.Backend)
	}
}
