package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/EdeAmaya/SistemaDeNotasExpo-sub001/internal/config"
	"github.com/EdeAmaya/SistemaDeNotasExpo-sub001/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

const fixtures = `
rubrics:
  - id: fair-2025
    name: Science fair 2025
    aggregation_mode: weighted_sum
    scale_type: discrete_levels
    criteria:
      - id: method
        weight: 50
        levels: [{base_value: 6}, {base_value: 8}, {base_value: 10}]
      - id: poster
        weight: 50
        levels: [{base_value: 6}, {base_value: 8}, {base_value: 10}]
projects:
  - {id: p1, code: A101-25, name: Solar Oven, level_id: L1, section_id: 7A, roster: [{id: s1, full_name: Ana}]}
  - {id: p2, code: A102-25, name: Water Filter, level_id: L1, section_id: 7A, roster: [{id: s2, full_name: Luis}]}
`

func TestMainWiring(t *testing.T) {
	if err := logger.Init(); err != nil {
		t.Fatal(err)
	}

	convey.Convey("Given a config with a fixtures file and a sqlite store", t, func() {
		ctx := context.Background()
		path := filepath.Join(t.TempDir(), "fixtures.yaml")
		convey.So(os.WriteFile(path, []byte(fixtures), 0o600), convey.ShouldBeNil)

		cfg := config.New(ctx)
		cfg.StoreDriver = "sqlite"
		cfg.StoreDSN = ":memory:"
		cfg.FixturesFile = path

		svc, err := newService(ctx, cfg, logger.Get())
		convey.So(err, convey.ShouldBeNil)
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()
		mux := newMux(ctx, cfg, svc)

		convey.Convey("When an evaluation is posted and the section ranked", func() {
			body := `{"submission_id":"j1","project_id":"p2","rubric_id":"fair-2025","track":"external",
				"inputs":[{"criterion_id":"method","level":10},{"criterion_id":"poster","level":8}]}`
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/evaluations", strings.NewReader(body)))
			convey.So(w.Code, convey.ShouldEqual, http.StatusCreated)

			w = httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/rankings?section=7A", nil))

			convey.Convey("Then the evaluated project is first", func() {
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
				convey.So(w.Body.String(), convey.ShouldContainSubstring, `"project_id":"p2"`)
				convey.So(w.Body.String(), convey.ShouldNotContainSubstring, `"project_id":"p1"`)
			})
		})

		convey.Convey("When the docs are requested", func() {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/openapi.yaml", nil))
			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
		})
	})

	convey.Convey("Given a missing fixtures file", t, func() {
		cfg := config.New(context.Background())
		cfg.FixturesFile = filepath.Join(t.TempDir(), "none.yaml")

		_, err := newService(context.Background(), cfg, logger.Get())
		convey.So(err, convey.ShouldNotBeNil)
	})
}

func TestRunShutsDown(t *testing.T) {
	if err := logger.Init(); err != nil {
		t.Fatal(err)
	}

	convey.Convey("Given a running server", t, func() {
		cfg := config.New(context.Background())
		cfg.Addr = "127.0.0.1:0"
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- run(ctx, cfg, logger.Get()) }()

		convey.Convey("When the context is cancelled", func() {
			time.Sleep(50 * time.Millisecond)
			cancel()

			convey.Convey("Then run returns cleanly", func() {
				select {
				case err := <-done:
					convey.So(err, convey.ShouldBeNil)
				case <-time.After(5 * time.Second):
					t.Fatal("run did not return")
				}
			})
		})
	})
}

func TestUpdateSystemMetrics(t *testing.T) {
	convey.Convey("Updating system metrics does not panic", t, func() {
		convey.So(updateSystemMetrics, convey.ShouldNotPanic)
	})
}
