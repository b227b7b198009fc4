package simulate

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/EdeAmaya/SistemaDeNotasExpo-sub001/internal/adapters/repository"
	"github.com/EdeAmaya/SistemaDeNotasExpo-sub001/pkg/logger"
)

const percentageMultiplier = 100

// ErrMismatch is returned when the service disagrees with the recomputation.
var ErrMismatch = errors.New("simulation mismatch")

// Run executes the complete simulation and returns its statistics.
func Run(ctx context.Context, cfg *Config) (Stats, error) {
	stats := Stats{StartTime: time.Now()}
	log := logger.Get()

	log.Info(ctx, "starting expo simulation",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("sections", cfg.Sections),
		logger.Int("projectsPerSection", cfg.ProjectsPerSection),
		logger.Int("judgesPerProject", cfg.JudgesPerProject),
		logger.Int("workers", cfg.Workers),
		logger.Duration("timeout", cfg.Timeout))

	// Step 1: Generate the cohort
	plan, err := Generate(ctx, cfg)
	if err != nil {
		return stats, fmt.Errorf("generate cohort: %w", err)
	}
	stats.ProjectsGenerated = len(plan.Fixtures.Projects)
	stats.EvaluationsPlanned = len(plan.Submissions)

	if cfg.FixturesOut != "" {
		if err := repository.WriteFixtures(cfg.FixturesOut, plan.Fixtures); err != nil {
			return stats, err
		}
		log.Info(ctx, "fixtures written", logger.String("file", cfg.FixturesOut))
	}

	// Step 2: Resolve the service under test
	baseURL := cfg.BaseURL
	if baseURL == "" {
		local, err := startLocal(ctx, cfg, plan.Fixtures)
		if err != nil {
			return stats, fmt.Errorf("start local service: %w", err)
		}
		defer local.stop()
		baseURL = local.url
	}
	c := newClient(baseURL, cfg)
	if err := c.health(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	// Step 3: Submit every evaluation and the resends concurrently
	if err := submitAll(ctx, cfg, c, plan, &stats); err != nil {
		return stats, err
	}

	// Step 4: Verify every section and level specialty ranking
	verified, err := verifyRankings(ctx, cfg, c, plan)
	stats.RankingsVerified = verified

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, &stats)
	if err != nil {
		return stats, err
	}

	log.Info(ctx, "simulation completed successfully")
	return stats, nil
}

// submitAll posts the plan in shuffled order so resends race their originals.
func submitAll(ctx context.Context, cfg *Config, c *client, plan Plan, stats *Stats) error {
	all := make([]Submission, 0, len(plan.Submissions)+len(plan.Resends))
	all = append(all, plan.Submissions...)
	all = append(all, plan.Resends...)
	rng := rand.New(rand.NewSource(cfg.Seed + 1)) //nolint:gosec // reproducible ordering
	rng.Shuffle(len(all), func(i, j int) { all[i], all[j] = all[j], all[i] })

	logger.Get().Info(ctx, "submitting evaluations",
		logger.Int("count", len(all)),
		logger.Int("workers", cfg.Workers))

	var created, duplicate, failed, submitted int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for _, s := range all {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcome, err := c.submit(gctx, s)
			n := atomic.AddInt64(&submitted, 1)
			switch outcome {
			case outcomeCreated:
				atomic.AddInt64(&created, 1)
			case outcomeDuplicate:
				atomic.AddInt64(&duplicate, 1)
			default:
				atomic.AddInt64(&failed, 1)
				if cfg.Verbose {
					logger.Get().Warn(gctx, "submission failed",
						logger.String("submissionID", s.SubmissionID), logger.Error(err))
				}
			}
			if cfg.Verbose && n%100 == 0 {
				logger.Get().Debug(gctx, "progress", logger.Int("submitted", int(n)), logger.Int("total", len(all)))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("evaluation submission interrupted: %w", err)
	}

	stats.Submitted = int(submitted)
	stats.Created = int(created)
	stats.Duplicate = int(duplicate)
	stats.Failed = int(failed)

	switch {
	case stats.Failed > 0:
		return fmt.Errorf("%w: %d of %d submissions failed", ErrMismatch, stats.Failed, stats.Submitted)
	case stats.Created+stats.Duplicate != len(all):
		return fmt.Errorf("%w: %d created and %d duplicate out of %d", ErrMismatch, stats.Created, stats.Duplicate, len(all))
	case stats.Created != len(plan.Submissions):
		// A store that already holds this cohort answers duplicate for everything.
		logger.Get().Warn(ctx, "created count differs from planned evaluations",
			logger.Int("created", stats.Created),
			logger.Int("planned", len(plan.Submissions)))
	}
	return nil
}

// verifyRankings fetches every scope ranking and checks it, collecting all
// mismatches instead of stopping at the first.
func verifyRankings(ctx context.Context, cfg *Config, c *client, plan Plan) (int, error) {
	want := Expect(plan, cfg.InternalWeight)
	queries := scopes(plan.Fixtures.Projects, cfg.RankLimit)

	var (
		mu       sync.Mutex
		problems []error
		verified int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for _, sq := range queries {
		g.Go(func() error {
			got, err := c.ranking(gctx, sq.query)
			if err == nil {
				err = want.Check(sq.label, sq.members, got.Entries)
			}
			if err != nil {
				mu.Lock()
				problems = append(problems, err)
				mu.Unlock()
				return nil
			}
			atomic.AddInt64(&verified, 1)
			if cfg.Verbose && len(got.Entries) > 0 {
				top := got.Entries[0]
				logger.Get().Info(gctx, "ranking verified",
					logger.String("scope", got.Scope),
					logger.String("first", top.ProjectCode),
					logger.Float64("score", top.ConsolidatedScore))
			}
			return nil
		})
	}
	_ = g.Wait()

	if len(problems) > 0 {
		return int(verified), fmt.Errorf("%w: %w", ErrMismatch, errors.Join(problems...))
	}
	logger.Get().Info(ctx, "rankings verified", logger.Int("scopes", len(queries)))
	return int(verified), nil
}

// displayFinalStats logs the run statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var successRate, perSecond float64
	if stats.Submitted > 0 {
		successRate = float64(stats.Created+stats.Duplicate) / float64(stats.Submitted) * percentageMultiplier
	}
	if stats.Duration > 0 {
		perSecond = float64(stats.Submitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(ctx, "final statistics",
		logger.Int("projectsGenerated", stats.ProjectsGenerated),
		logger.Int("evaluationsPlanned", stats.EvaluationsPlanned),
		logger.Int("submitted", stats.Submitted),
		logger.Int("created", stats.Created),
		logger.Int("duplicate", stats.Duplicate),
		logger.Int("failed", stats.Failed),
		logger.Int("rankingsVerified", stats.RankingsVerified),
		logger.Duration("duration", stats.Duration),
		logger.Float64("successRate", successRate),
		logger.Float64("submissionsPerSecond", perSecond))
}
