// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/EdeAmaya/SistemaDeNotasExpo-sub001/internal/adapters/repository"
	"github.com/EdeAmaya/SistemaDeNotasExpo-sub001/internal/domain/aggregate"
	"github.com/EdeAmaya/SistemaDeNotasExpo-sub001/internal/domain/dedupe"
	"github.com/EdeAmaya/SistemaDeNotasExpo-sub001/internal/domain/evalerr"
	"github.com/EdeAmaya/SistemaDeNotasExpo-sub001/internal/domain/model"
	"github.com/EdeAmaya/SistemaDeNotasExpo-sub001/internal/domain/placement"
	"github.com/EdeAmaya/SistemaDeNotasExpo-sub001/internal/domain/rubric"
	"github.com/EdeAmaya/SistemaDeNotasExpo-sub001/internal/domain/scoring"
	"github.com/EdeAmaya/SistemaDeNotasExpo-sub001/pkg/logger"
	"github.com/EdeAmaya/SistemaDeNotasExpo-sub001/pkg/metrics"
)

const defaultTopN = 3

// AllPlaces passed as topN returns the full ordering of a scope.
const AllPlaces = -1

// SubmitRequest is one judge's completed evaluation of one project.
type SubmitRequest struct {
	// SubmissionID makes retries idempotent. Empty means every call creates
	// a new record.
	SubmissionID string
	ProjectID    string
	RubricID     string
	Track        model.Track
	Inputs       []scoring.CriterionInput
}

// Service implements the API dependencies for the scoring engine.
type Service struct {
	mu sync.RWMutex

	// Core components
	store    repository.Store
	deduper  dedupe.Deduper
	builder  scoring.RecordBuilder
	resolver *placement.Resolver

	// Configuration
	weightTolerance float64
	policy          aggregate.Policy
	rankConcurrency int
	dedupeSize      int
	defaultTopN     int
	now             func() time.Time
	newID           func() string

	// State
	started bool

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithWeightTolerance sets the accepted distance of a rubric's weight sum from 100.
func WithWeightTolerance(tolerance float64) Option {
	return func(s *Service) {
		if tolerance >= 0 {
			s.weightTolerance = tolerance
		}
	}
}

// WithInternalWeight sets the internal track's share of the consolidated score.
func WithInternalWeight(w float64) Option {
	return func(s *Service) {
		if w >= 0 && w <= 1 {
			s.policy.InternalWeight = w
		}
	}
}

// WithRankConcurrency bounds parallel score computation while ranking.
func WithRankConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.rankConcurrency = n
		}
	}
}

// WithDedupeSize sets the size of the submission id cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithDefaultTopN sets the ranking size used when callers pass zero.
func WithDefaultTopN(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.defaultTopN = n
		}
	}
}

// WithClock overrides the record timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides record id generation.
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// WithRecordBuilder replaces the scorer used on submission.
func WithRecordBuilder(b scoring.RecordBuilder) Option {
	return func(s *Service) {
		if b != nil {
			s.builder = b
		}
	}
}

// New constructs a Service over store.
func New(store repository.Store, opts ...Option) *Service {
	s := &Service{
		store:           store,
		weightTolerance: rubric.DefaultWeightTolerance,
		policy:          aggregate.DefaultPolicy(),
		rankConcurrency: 8,
		dedupeSize:      10_000,
		defaultTopN:     defaultTopN,
		now:             func() time.Time { return time.Now().UTC() },
		newID:           uuid.NewString,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.builder == nil {
		s.builder = scoring.NewBuilder(scoring.WithWeightTolerance(s.weightTolerance))
	}
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.resolver = placement.NewResolver(
		&projectLister{store: store},
		&scoreSource{store: store, policy: s.policy},
		placement.WithConcurrency(s.rankConcurrency),
	)
	return s
}

// Start marks the service ready and publishes initial gauges.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	s.started = true
	s.mu.Unlock()

	stats := s.GetStats(ctx)
	s.logger.Info(ctx, "scoring service started",
		logger.Any("projects", stats["totalProjects"]),
		logger.Any("evaluations", stats["totalEvaluations"]),
		logger.Float64("internalWeight", s.policy.InternalWeight),
		logger.Int("rankConcurrency", s.rankConcurrency),
	)
	return nil
}

// Stop closes the store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	if err := s.store.Close(); err != nil {
		s.logger.Warn(context.Background(), "closing store", logger.Error(err))
	}
	s.started = false
	s.logger.Info(context.Background(), "scoring service stopped")
}

func (s *Service) log() logger.Logger {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.logger == nil {
		return nopLogger{}
	}
	return s.logger
}

// SeenAndRecord atomically checks if a submission id was seen and records it
// if not.
func (s *Service) SeenAndRecord(ctx context.Context, id string) bool {
	seen := s.deduper.SeenAndRecord(ctx, id)
	metrics.UpdateDedupeSize(s.deduper.Size())
	return seen
}

// Unrecord forgets a submission id so the client may retry it.
func (s *Service) Unrecord(ctx context.Context, id string) {
	s.deduper.Unrecord(ctx, id)
}

// Size returns the current number of entries in the deduper.
func (s *Service) Size() int64 {
	return s.deduper.Size()
}

// Resubmission returns the record already stored under submissionID. found
// is false when the id has no record yet.
func (s *Service) Resubmission(ctx context.Context, submissionID string) (rec model.EvaluationRecord, found bool, err error) {
	const op = "service.resubmission"
	rec, err = s.store.EvaluationBySubmission(ctx, submissionID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return model.EvaluationRecord{}, false, nil
	case err != nil:
		return model.EvaluationRecord{}, false, translate(op, err, submissionID)
	}
	metrics.RecordEvaluationDuplicate()
	s.log().Debug(ctx, "duplicate submission answered from store",
		logger.String("submissionID", rec.SubmissionID),
		logger.String("evaluationID", rec.ID),
	)
	return rec, true, nil
}

// SubmitEvaluation scores req and stores the resulting record. created is
// false when a record with the same submission id already existed; that
// record is returned unchanged, even if its rubric was edited since.
func (s *Service) SubmitEvaluation(ctx context.Context, req SubmitRequest) (rec model.EvaluationRecord, created bool, err error) {
	const op = "service.submit_evaluation"
	start := time.Now()
	defer func() {
		if err != nil {
			metrics.RecordEvaluationRejected(kindLabel(err))
			metrics.RecordErrorLatency("service", kindLabel(err), msSince(start))
		}
	}()

	if req.SubmissionID != "" {
		stored, found, err := s.Resubmission(ctx, req.SubmissionID)
		if err != nil || found {
			return stored, false, err
		}
	}

	track, err := model.ParseTrack(string(req.Track))
	if err != nil {
		return model.EvaluationRecord{}, false, evalerr.Validation(op, err, "track")
	}
	if req.ProjectID == "" {
		return model.EvaluationRecord{}, false, evalerr.Validation(op, errors.New("project id is required"), "project_id")
	}
	if _, err := s.store.Project(ctx, req.ProjectID); err != nil {
		return model.EvaluationRecord{}, false, translate(op, err, req.ProjectID)
	}
	r, err := s.store.Rubric(ctx, req.RubricID)
	if err != nil {
		return model.EvaluationRecord{}, false, translate(op, err, req.RubricID)
	}

	result, err := s.builder.Build(r, req.Inputs)
	if err != nil {
		return model.EvaluationRecord{}, false, err
	}
	metrics.RecordScoringLatency(msSince(start))

	rec = result.Record(req.ProjectID, r.ID, track)
	rec.ID = s.newID()
	rec.SubmissionID = req.SubmissionID
	if rec.SubmissionID == "" {
		rec.SubmissionID = rec.ID
	}
	rec.CreatedAt = s.now()

	stored, created, err := s.store.InsertEvaluation(ctx, rec)
	if err != nil {
		return model.EvaluationRecord{}, false, translate(op, err, req.ProjectID)
	}
	if created {
		metrics.RecordEvaluationSubmitted()
		s.log().Debug(ctx, "evaluation stored",
			logger.String("evaluationID", stored.ID),
			logger.String("projectID", stored.ProjectID),
			logger.String("track", string(stored.Track)),
			logger.Float64("finalScore", stored.FinalScore),
		)
	} else {
		metrics.RecordEvaluationDuplicate()
		s.log().Debug(ctx, "concurrent duplicate resolved on insert",
			logger.String("submissionID", stored.SubmissionID),
			logger.String("evaluationID", stored.ID),
		)
	}
	return stored, created, nil
}

// ProjectScore recomputes the consolidated score of a project from every
// stored record.
func (s *Service) ProjectScore(ctx context.Context, projectID string) (model.ProjectScore, error) {
	const op = "service.project_score"
	if _, err := s.store.Project(ctx, projectID); err != nil {
		return model.ProjectScore{}, translate(op, err, projectID)
	}
	return (&scoreSource{store: s.store, policy: s.policy}).Score(ctx, projectID)
}

// RankScope returns the top placements of scope. topN == 0 uses the
// configured default; AllPlaces returns every evaluated project.
func (s *Service) RankScope(ctx context.Context, scope model.Scope, topN int) ([]model.RankedEntry, error) {
	start := time.Now()
	topN = s.topN(topN)
	entries, err := s.resolver.Rank(ctx, scope, topN)
	if err != nil {
		s.fail(ctx, "rank failed", scope, err)
		return nil, err
	}
	metrics.RecordRankingComputed(string(scope.Kind), msSince(start))
	return entries, nil
}

// ResolvePlacement returns the project holding place in scope.
func (s *Service) ResolvePlacement(ctx context.Context, scope model.Scope, place int) (placement.Placement, error) {
	p, err := s.resolver.Resolve(ctx, scope, place)
	if err != nil {
		s.fail(ctx, "placement failed", scope, err)
		return placement.Placement{}, err
	}
	metrics.RecordPlacementResolved()
	return p, nil
}

// Awards returns the certificate tuples for the top places of scope, with
// topN read as in RankScope.
func (s *Service) Awards(ctx context.Context, scope model.Scope, topN int) ([]placement.Award, error) {
	awards, err := s.resolver.Awards(ctx, scope, s.topN(topN))
	if err != nil {
		s.fail(ctx, "awards failed", scope, err)
		return nil, err
	}
	metrics.RecordAwardsIssued(len(awards))
	return awards, nil
}

// topN maps 0 to the default and negative values to the resolver's full
// ordering.
func (s *Service) topN(n int) int {
	switch {
	case n == 0:
		return s.defaultTopN
	case n < 0:
		return 0
	default:
		return n
	}
}

func (s *Service) fail(ctx context.Context, msg string, scope model.Scope, err error) {
	kind := kindLabel(err)
	metrics.RecordErrorByComponent("placement", kind)
	if errors.Is(err, evalerr.ErrDataIntegrity) || errors.Is(err, evalerr.ErrTransient) {
		s.log().Warn(ctx, msg, logger.String("scope", scope.Label()), logger.Error(err))
	}
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) map[string]interface{} {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":         started,
		"dedupeSize":      s.deduper.Size(),
		"internalWeight":  s.policy.InternalWeight,
		"weightTolerance": s.weightTolerance,
		"defaultTopN":     s.defaultTopN,
	}
	if n, err := s.store.CountProjects(ctx); err == nil {
		stats["totalProjects"] = n
		metrics.UpdateTotalProjects(n)
	}
	if n, err := s.store.CountEvaluations(ctx); err == nil {
		stats["totalEvaluations"] = n
		metrics.UpdateTotalEvaluations(n)
	}
	return stats
}

// scoreSource adapts the evaluation store to placement.ScoreSource.
type scoreSource struct {
	store  repository.EvaluationStore
	policy aggregate.Policy
}

func (a *scoreSource) Score(ctx context.Context, projectID string) (model.ProjectScore, error) {
	recs, err := a.store.EvaluationsByProject(ctx, projectID)
	if err != nil {
		return model.ProjectScore{}, translate("service.score", err, projectID)
	}
	return aggregate.Consolidate(projectID, recs, a.policy), nil
}

// projectLister adapts the project store to placement.ProjectLister.
type projectLister struct {
	store repository.ProjectStore
}

func (a *projectLister) ProjectsBySection(ctx context.Context, sectionID string) ([]model.Project, error) {
	ps, err := a.store.ProjectsBySection(ctx, sectionID)
	if err != nil {
		return nil, translate("service.projects_by_section", err, sectionID)
	}
	return ps, nil
}

func (a *projectLister) ProjectsByLevel(ctx context.Context, levelID string) ([]model.Project, error) {
	ps, err := a.store.ProjectsByLevel(ctx, levelID)
	if err != nil {
		return nil, translate("service.projects_by_level", err, levelID)
	}
	return ps, nil
}

// translate maps store errors onto the engine's error kinds.
func translate(op string, err error, id string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return evalerr.NotFound(op, err, id)
	case errors.Is(err, repository.ErrInvalid):
		return evalerr.Validation(op, err, id)
	case evalerr.KindOf(err) != nil:
		return err
	default:
		return evalerr.Transient(op, fmt.Errorf("%s: %w", id, err))
	}
}

func kindLabel(err error) string {
	switch evalerr.KindOf(err) {
	case evalerr.ErrValidation:
		return "validation"
	case evalerr.ErrNotFound:
		return "not_found"
	case evalerr.ErrDataIntegrity:
		return "data_integrity"
	case evalerr.ErrTransient:
		return "transient"
	default:
		return "internal"
	}
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000
}

type nopLogger struct{}

func (nopLogger) Info(context.Context, string, ...logger.Field)  {}
func (nopLogger) Error(context.Context, string, ...logger.Field) {}
func (nopLogger) Debug(context.Context, string, ...logger.Field) {}
func (nopLogger) Warn(context.Context, string, ...logger.Field)  {}
func (nopLogger) Fatal(context.Context, string, ...logger.Field) {}
func (n nopLogger) Named(string) logger.Logger                   { return n }
