// Package simulate drives a science fair end to end against the scoring API:
// it generates a cohort, submits every judge's evaluation concurrently and
// checks the published rankings against an independent recomputation.
package simulate

import (
	"errors"
	"fmt"
	"time"
)

// Default simulation parameters.
const (
	DefaultLevels             = 2
	DefaultSections           = 4
	DefaultProjectsPerSection = 12
	DefaultJudgesPerProject   = 4
	DefaultResends            = 25
	DefaultWorkers            = 16
	DefaultTimeout            = 10 * time.Second
	DefaultInternalWeight     = 0.5
	DefaultRankLimit          = 100

	maxLevels     = 9
	maxTeamNumber = 99
)

// ErrInvalidConfig is returned for simulation parameters that cannot produce
// a valid cohort.
var ErrInvalidConfig = errors.New("invalid simulation config")

// Config holds the simulation parameters.
type Config struct {
	BaseURL            string        // service under test; empty starts an in-process server
	Levels             int           // grade levels; sections are spread across them
	Sections           int           // sections in the cohort
	ProjectsPerSection int           // projects per section
	JudgesPerProject   int           // evaluations generated per evaluated project
	Resends            int           // evaluations resent with the same submission id
	Workers            int           // concurrent submitters
	Timeout            time.Duration // per-request timeout
	InternalWeight     float64       // must match the server's internal weight
	RankLimit          int           // limit used when fetching rankings
	Seed               int64         // generator seed; equal seeds give equal cohorts
	FixturesOut        string        // write the generated fixtures here when set
	Verbose            bool
}

// DefaultConfig returns a Config populated with the defaults.
func DefaultConfig() *Config {
	return &Config{
		Levels:             DefaultLevels,
		Sections:           DefaultSections,
		ProjectsPerSection: DefaultProjectsPerSection,
		JudgesPerProject:   DefaultJudgesPerProject,
		Resends:            DefaultResends,
		Workers:            DefaultWorkers,
		Timeout:            DefaultTimeout,
		InternalWeight:     DefaultInternalWeight,
		RankLimit:          DefaultRankLimit,
		Seed:               1,
	}
}

// Validate checks that the parameters describe a cohort the codes can encode.
func (c *Config) Validate() error {
	switch {
	case c.Levels < 1 || c.Levels > maxLevels:
		return fmt.Errorf("%w: levels must be in [1,%d], got %d", ErrInvalidConfig, maxLevels, c.Levels)
	case c.Sections < c.Levels:
		return fmt.Errorf("%w: need at least one section per level, got %d sections", ErrInvalidConfig, c.Sections)
	case c.ProjectsPerSection < 1:
		return fmt.Errorf("%w: projects per section must be positive", ErrInvalidConfig)
	case c.JudgesPerProject < 1:
		return fmt.Errorf("%w: judges per project must be positive", ErrInvalidConfig)
	case c.Resends < 0:
		return fmt.Errorf("%w: resends must not be negative", ErrInvalidConfig)
	case c.Workers < 1:
		return fmt.Errorf("%w: workers must be positive", ErrInvalidConfig)
	case c.InternalWeight < 0 || c.InternalWeight > 1:
		return fmt.Errorf("%w: internal weight must be in [0,1]", ErrInvalidConfig)
	case c.RankLimit < c.ProjectsPerSection*c.Sections:
		return fmt.Errorf("%w: rank limit %d below cohort size %d", ErrInvalidConfig, c.RankLimit, c.ProjectsPerSection*c.Sections)
	}
	sectionsPerLevel := (c.Sections + c.Levels - 1) / c.Levels
	if sectionsPerLevel*c.ProjectsPerSection > maxTeamNumber {
		return fmt.Errorf("%w: %d projects on one level exceed the team number range", ErrInvalidConfig, sectionsPerLevel*c.ProjectsPerSection)
	}
	return nil
}

// Stats holds run statistics.
type Stats struct {
	ProjectsGenerated  int
	EvaluationsPlanned int
	Submitted          int
	Created            int
	Duplicate          int
	Failed             int
	RankingsVerified   int
	StartTime          time.Time
	EndTime            time.Time
	Duration           time.Duration
}
