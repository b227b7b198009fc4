package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/EdeAmaya/SistemaDeNotasExpo-sub001/internal/domain/model"
	"github.com/EdeAmaya/SistemaDeNotasExpo-sub001/internal/domain/rubric"
)

// File permission constants.
const (
	fixturesDirPermission  = 0o750
	fixturesFilePermission = 0o600
)

// Fixtures is the seed data read from a YAML file.
type Fixtures struct {
	Rubrics  []rubric.Rubric `koanf:"rubrics"`
	Projects []model.Project `koanf:"projects"`
}

// ReadFixtures parses a fixtures file. Every rubric must pass Validate.
func ReadFixtures(path string) (Fixtures, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return Fixtures{}, fmt.Errorf("load fixtures %s: %w", path, err)
	}
	var fx Fixtures
	if err := k.UnmarshalWithConf("", &fx, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return Fixtures{}, fmt.Errorf("decode fixtures %s: %w", path, err)
	}
	for _, r := range fx.Rubrics {
		if err := r.Validate(); err != nil {
			return Fixtures{}, fmt.Errorf("fixture rubric %s: %w", r.ID, err)
		}
	}
	return fx, nil
}

// Seed writes fixtures into the given stores. Existing ids are overwritten.
func Seed(ctx context.Context, rubrics RubricStore, projects ProjectStore, fx Fixtures) error {
	for _, r := range fx.Rubrics {
		if err := rubrics.PutRubric(ctx, r); err != nil {
			return err
		}
	}
	for _, p := range fx.Projects {
		if err := projects.PutProject(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// LoadFixtures reads path and seeds s with it.
func LoadFixtures(ctx context.Context, path string, s Store) (Fixtures, error) {
	fx, err := ReadFixtures(path)
	if err != nil {
		return Fixtures{}, err
	}
	return fx, Seed(ctx, s, s, fx)
}

// WriteFixtures renders fx as YAML at path, creating parent directories.
// The output reads back with ReadFixtures.
func WriteFixtures(path string, fx Fixtures) error {
	rubrics, err := plain(fx.Rubrics)
	if err != nil {
		return fmt.Errorf("encode fixture rubrics: %w", err)
	}
	projects, err := plain(fx.Projects)
	if err != nil {
		return fmt.Errorf("encode fixture projects: %w", err)
	}
	out, err := yaml.Parser().Marshal(map[string]interface{}{"rubrics": rubrics, "projects": projects})
	if err != nil {
		return fmt.Errorf("encode fixtures: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, fixturesDirPermission); err != nil {
			return fmt.Errorf("create fixtures dir: %w", err)
		}
	}
	return os.WriteFile(path, out, fixturesFilePermission)
}

// plain converts v into generic maps and slices keyed by its json tags,
// which match the koanf tags ReadFixtures decodes with.
func plain(v interface{}) (interface{}, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out interface{}
	return out, json.Unmarshal(raw, &out)
}
