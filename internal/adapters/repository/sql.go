package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite

	"github.com/EdeAmaya/SistemaDeNotasExpo-sub001/internal/domain/model"
	"github.com/EdeAmaya/SistemaDeNotasExpo-sub001/internal/domain/rubric"
	"github.com/EdeAmaya/SistemaDeNotasExpo-sub001/pkg/metrics"
)

// SQLStore is a Store backed by database/sql. Queries use $n placeholders,
// which both the sqlite and pgx drivers accept.
type SQLStore struct {
	db     *sql.DB
	driver Driver
}

// Open opens the named driver and ensures the schema exists. DriverMemory
// returns a MemoryStore.
func Open(ctx context.Context, driver Driver, dsn string) (Store, error) {
	var drvName, schema string
	switch driver {
	case DriverMemory, "":
		return NewMemoryStore(), nil
	case DriverSQLite:
		drvName, schema = "sqlite", schemaSQLite // modernc driver
		if dsn == "" {
			dsn = "file:expo.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)"
		}
	case DriverPostgres:
		drvName, schema = "pgx", schemaPostgres // pgx stdlib driver
		if dsn == "" {
			dsn = "postgres://localhost:5432/expo?sslmode=disable"
		}
	default:
		return nil, fmt.Errorf("unsupported driver %q: %w", driver, ErrInvalid)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, errors.Join(ErrUnavailable, err))
	}
	if driver == DriverSQLite {
		// A single connection keeps in-memory databases shared and serializes writers.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, errors.Join(ErrUnavailable, err))
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", errors.Join(ErrUnavailable, err))
	}
	return &SQLStore{db: db, driver: driver}, nil
}

// observe records latency for op and turns driver failures into ErrUnavailable.
func observe(op string, start time.Time, err error) error {
	metrics.RecordStoreLatency(op, float64(time.Since(start).Microseconds())/1000)
	if err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalid) {
		return err
	}
	metrics.RecordStoreError(op)
	return fmt.Errorf("%s: %w", op, errors.Join(ErrUnavailable, err))
}

func (s *SQLStore) Rubric(ctx context.Context, id string) (r rubric.Rubric, err error) {
	defer func(start time.Time) { err = observe("rubric", start, err) }(time.Now())
	var body string
	err = s.db.QueryRowContext(ctx, `SELECT body_json FROM rubrics WHERE id=$1`, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return rubric.Rubric{}, fmt.Errorf("rubric %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return rubric.Rubric{}, err
	}
	if err := json.Unmarshal([]byte(body), &r); err != nil {
		return rubric.Rubric{}, err
	}
	return r, nil
}

func (s *SQLStore) PutRubric(ctx context.Context, r rubric.Rubric) (err error) {
	defer func(start time.Time) { err = observe("put_rubric", start, err) }(time.Now())
	if r.ID == "" {
		return fmt.Errorf("rubric without id: %w", ErrInvalid)
	}
	body, err := json.Marshal(r)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO rubrics (id, body_json) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET body_json=EXCLUDED.body_json`, r.ID, string(body))
	return err
}

func (s *SQLStore) Project(ctx context.Context, id string) (p model.Project, err error) {
	defer func(start time.Time) { err = observe("project", start, err) }(time.Now())
	row := s.db.QueryRowContext(ctx,
		`SELECT id, code, name, level_id, section_id, roster_json FROM projects WHERE id=$1`, id)
	p, err = scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Project{}, fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	return p, err
}

func (s *SQLStore) ProjectsBySection(ctx context.Context, sectionID string) (ps []model.Project, err error) {
	defer func(start time.Time) { err = observe("projects_by_section", start, err) }(time.Now())
	return s.queryProjects(ctx, `SELECT id, code, name, level_id, section_id, roster_json
		FROM projects WHERE section_id=$1 ORDER BY id`, sectionID)
}

func (s *SQLStore) ProjectsByLevel(ctx context.Context, levelID string) (ps []model.Project, err error) {
	defer func(start time.Time) { err = observe("projects_by_level", start, err) }(time.Now())
	return s.queryProjects(ctx, `SELECT id, code, name, level_id, section_id, roster_json
		FROM projects WHERE level_id=$1 ORDER BY id`, levelID)
}

func (s *SQLStore) queryProjects(ctx context.Context, query string, arg string) ([]model.Project, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Project, 0)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProject(row scanner) (model.Project, error) {
	var p model.Project
	var roster string
	if err := row.Scan(&p.ID, &p.Code, &p.Name, &p.LevelID, &p.SectionID, &roster); err != nil {
		return model.Project{}, err
	}
	if err := json.Unmarshal([]byte(roster), &p.Roster); err != nil {
		return model.Project{}, err
	}
	return p, nil
}

func (s *SQLStore) PutProject(ctx context.Context, p model.Project) (err error) {
	defer func(start time.Time) { err = observe("put_project", start, err) }(time.Now())
	if p.ID == "" {
		return fmt.Errorf("project without id: %w", ErrInvalid)
	}
	roster := p.Roster
	if roster == nil {
		roster = []model.Student{}
	}
	rj, err := json.Marshal(roster)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO projects (id, code, name, level_id, section_id, roster_json)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET code=EXCLUDED.code, name=EXCLUDED.name, level_id=EXCLUDED.level_id,
		section_id=EXCLUDED.section_id, roster_json=EXCLUDED.roster_json`,
		p.ID, p.Code, p.Name, p.LevelID, p.SectionID, string(rj))
	return err
}

func (s *SQLStore) CountProjects(ctx context.Context) (n int, err error) {
	defer func(start time.Time) { err = observe("count_projects", start, err) }(time.Now())
	err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM projects`).Scan(&n)
	return n, err
}

func (s *SQLStore) InsertEvaluation(ctx context.Context, rec model.EvaluationRecord) (stored model.EvaluationRecord, created bool, err error) {
	defer func(start time.Time) { err = observe("insert_evaluation", start, err) }(time.Now())
	if rec.ID == "" || rec.SubmissionID == "" || rec.ProjectID == "" {
		return model.EvaluationRecord{}, false, fmt.Errorf("evaluation needs id, submission id and project id: %w", ErrInvalid)
	}
	sj, err := json.Marshal(rec.Scores)
	if err != nil {
		return model.EvaluationRecord{}, false, err
	}
	res, err := s.db.ExecContext(ctx, `INSERT INTO evaluations
		(id, submission_id, project_id, rubric_id, track, aggregation_mode, final_score, scores_json, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (submission_id) DO NOTHING`,
		rec.ID, rec.SubmissionID, rec.ProjectID, rec.RubricID, string(rec.Track), string(rec.AggregationMode),
		rec.FinalScore, string(sj), rec.CreatedAt.UnixNano())
	if err != nil {
		return model.EvaluationRecord{}, false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.EvaluationRecord{}, false, err
	}
	if n == 1 {
		return rec, true, nil
	}
	stored, err = s.bySubmission(ctx, rec.SubmissionID)
	return stored, false, err
}

func (s *SQLStore) EvaluationBySubmission(ctx context.Context, submissionID string) (rec model.EvaluationRecord, err error) {
	defer func(start time.Time) { err = observe("evaluation_by_submission", start, err) }(time.Now())
	return s.bySubmission(ctx, submissionID)
}

func (s *SQLStore) bySubmission(ctx context.Context, submissionID string) (model.EvaluationRecord, error) {
	row := s.db.QueryRowContext(ctx, selectEvaluation+` WHERE submission_id=$1`, submissionID)
	rec, err := scanEvaluation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.EvaluationRecord{}, fmt.Errorf("submission %s: %w", submissionID, ErrNotFound)
	}
	return rec, err
}

const selectEvaluation = `SELECT id, submission_id, project_id, rubric_id, track, aggregation_mode,
	final_score, scores_json, created_at FROM evaluations`

func scanEvaluation(row scanner) (model.EvaluationRecord, error) {
	var rec model.EvaluationRecord
	var track, mode, scores string
	var created int64
	if err := row.Scan(&rec.ID, &rec.SubmissionID, &rec.ProjectID, &rec.RubricID, &track, &mode,
		&rec.FinalScore, &scores, &created); err != nil {
		return model.EvaluationRecord{}, err
	}
	rec.Track = model.Track(track)
	rec.AggregationMode = rubric.AggregationMode(mode)
	rec.CreatedAt = time.Unix(0, created).UTC()
	if err := json.Unmarshal([]byte(scores), &rec.Scores); err != nil {
		return model.EvaluationRecord{}, err
	}
	return rec, nil
}

func (s *SQLStore) EvaluationsByProject(ctx context.Context, projectID string) (recs []model.EvaluationRecord, err error) {
	defer func(start time.Time) { err = observe("evaluations_by_project", start, err) }(time.Now())
	rows, err := s.db.QueryContext(ctx, selectEvaluation+` WHERE project_id=$1 ORDER BY seq`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.EvaluationRecord, 0)
	for rows.Next() {
		rec, err := scanEvaluation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLStore) CountEvaluations(ctx context.Context) (n int, err error) {
	defer func(start time.Time) { err = observe("count_evaluations", start, err) }(time.Now())
	err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM evaluations`).Scan(&n)
	return n, err
}

// Close releases the underlying connection pool.
func (s *SQLStore) Close() error {
	return s.db.Close()
}
