package cli

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"quiz-engine/internal/app"
	"quiz-engine/internal/config"
	"quiz-engine/internal/domain"
	"quiz-engine/internal/engine/eligibility"
	"quiz-engine/internal/engine/scoring"
	"quiz-engine/internal/infra/memory"
	pgstore "quiz-engine/internal/infra/postgres"
	rediscache "quiz-engine/internal/infra/redis"
)

// dataStore is a QuizDataService that can also feed the catalog.
type dataStore interface {
	app.QuizDataService
	LoadDefinition(ctx context.Context, quizID string) (domain.QuizDefinition, error)
}

// runtime holds the wired services shared by the subcommands.
type runtime struct {
	store     dataStore
	feed      *app.LeaderboardFeed
	attempts  *app.AttemptService
	reports   *app.ReportService
	authoring *app.AuthoringService
	closers   []func()
}

func (r *runtime) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
}

// buildRuntime picks Postgres or in-memory storage and Redis or in-process caching/locking
// depending on what the config provides.
func buildRuntime(ctx context.Context, cfg config.Config, log *zap.Logger) (*runtime, error) {
	rt := &runtime{feed: app.NewLeaderboardFeed()}

	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, pool.Close)
		rt.store = pgstore.NewStore(pool)
		log.Info("using postgres store")
	} else {
		rt.store = memory.NewStore()
		log.Warn("postgres url not configured; attempts are kept in memory")
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var catalog app.QuizCatalog
	var locker app.AttemptLocker
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		rt.closers = append(rt.closers, func() { _ = client.Close() })
		catalog = rediscache.NewCatalog(client, rt.store, quizTTL)
		locker = rediscache.NewLocker(client, config.TTLDuration(cfg.Redis.LockTTL, 5*time.Second))
		log.Info("using redis catalog and locks", zap.String("addr", cfg.Redis.Addr))
	} else {
		catalog = memory.NewCatalog(rt.store, quizTTL)
		locker = memory.NewLocker()
	}

	rt.attempts = app.NewAttemptService(rt.store, catalog, locker, rt.feed,
		app.WithLogger(log.Named("attempts")),
		app.WithScoringPolicy(scoring.Policy{ClampScore: cfg.Scoring.ClampScore}),
		app.WithLifecyclePolicy(eligibility.Policy{AbandonUnanswered: cfg.Attempt.AbandonUnanswered}),
	)
	rt.reports = app.NewReportService(rt.store, catalog)
	rt.authoring = app.NewAuthoringService(rt.store, catalog, log.Named("authoring"))
	return rt, nil
}
