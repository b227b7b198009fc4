package repository

// Driver names a supported SQL backend.
type Driver string

const (
	DriverMemory   Driver = "memory"
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

const schemaSQLite = `
CREATE TABLE IF NOT EXISTS rubrics (
  id TEXT PRIMARY KEY,
  body_json TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS projects (
  id TEXT PRIMARY KEY,
  code TEXT NOT NULL,
  name TEXT NOT NULL,
  level_id TEXT NOT NULL,
  section_id TEXT NOT NULL,
  roster_json TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS projects_section ON projects(section_id);
CREATE INDEX IF NOT EXISTS projects_level ON projects(level_id);

CREATE TABLE IF NOT EXISTS evaluations (
  seq INTEGER PRIMARY KEY AUTOINCREMENT,
  id TEXT NOT NULL UNIQUE,
  submission_id TEXT NOT NULL UNIQUE,
  project_id TEXT NOT NULL,
  rubric_id TEXT NOT NULL,
  track TEXT NOT NULL,
  aggregation_mode TEXT NOT NULL,
  final_score REAL NOT NULL,
  scores_json TEXT NOT NULL,
  created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS evaluations_project ON evaluations(project_id);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS rubrics (
  id TEXT PRIMARY KEY,
  body_json TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS projects (
  id TEXT PRIMARY KEY,
  code TEXT NOT NULL,
  name TEXT NOT NULL,
  level_id TEXT NOT NULL,
  section_id TEXT NOT NULL,
  roster_json TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS projects_section ON projects(section_id);
CREATE INDEX IF NOT EXISTS projects_level ON projects(level_id);

CREATE TABLE IF NOT EXISTS evaluations (
  seq BIGSERIAL PRIMARY KEY,
  id TEXT NOT NULL UNIQUE,
  submission_id TEXT NOT NULL UNIQUE,
  project_id TEXT NOT NULL,
  rubric_id TEXT NOT NULL,
  track TEXT NOT NULL,
  aggregation_mode TEXT NOT NULL,
  final_score DOUBLE PRECISION NOT NULL,
  scores_json TEXT NOT NULL,
  created_at BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS evaluations_project ON evaluations(project_id);
`
