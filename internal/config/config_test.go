package config_test

import (
	"context"
	"errors"
	"testing"

	"github.com/EdeAmaya/SistemaDeNotasExpo-sub001/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.StoreDriver, convey.ShouldEqual, "memory")
			convey.So(cfg.DefaultTopN, convey.ShouldEqual, 3)
			convey.So(cfg.MaxRankLimit, convey.ShouldEqual, 100)
			convey.So(cfg.WeightTolerance, convey.ShouldEqual, 0.01)
			convey.So(cfg.InternalWeight, convey.ShouldEqual, 0.5)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given invalid settings", t, func() {
		cases := map[string]func(*config.Config){
			"empty addr":         func(c *config.Config) { c.Addr = "" },
			"unknown driver":     func(c *config.Config) { c.StoreDriver = "mongo" },
			"unknown log format": func(c *config.Config) { c.LogFormat = "xml" },
			"zero top n":         func(c *config.Config) { c.DefaultTopN = 0 },
			"limit below top n":  func(c *config.Config) { c.MaxRankLimit = 2 },
			"negative tolerance": func(c *config.Config) { c.WeightTolerance = -1 },
			"weight above one":   func(c *config.Config) { c.InternalWeight = 1.5 },
			"zero concurrency":   func(c *config.Config) { c.RankConcurrency = 0 },
			"negative dedupe":    func(c *config.Config) { c.DedupeSize = -1 },
		}
		for name, mutate := range cases {
			convey.Convey("Then "+name+" is rejected", func() {
				cfg := config.New(context.Background())
				mutate(cfg)
				convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		}
	})
}
