package metrics

import (
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

func familyNames(t *testing.T, reg *prometheus.Registry) map[string]float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	out := make(map[string]float64, len(families))
	for _, f := range families {
		var sum float64
		for _, m := range f.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				sum += m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				sum += m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				sum += float64(m.GetHistogram().GetSampleCount())
			}
		}
		out[f.GetName()] = sum
	}
	return out
}

func TestManagerCreation(t *testing.T) {
	Convey("Given a manager on its own registry", t, func() {
		reg := prometheus.NewRegistry()
		m := NewManager(
			WithNamespace("test"),
			WithSubsystem("expo"),
			WithHistogramBuckets([]float64{1, 5, 10}),
			WithCustomLabels(map[string]string{"env": "test"}),
			WithPrometheusRegistry(reg),
		)

		Convey("When business metrics are recorded", func() {
			m.evaluationsSubmitted.Inc()
			m.evaluationsSubmitted.Inc()
			m.evaluationsRejected.WithLabelValues("validation").Inc()
			m.scoringLatency.Observe(3)
			m.storeLatency.WithLabelValues("insert_evaluation").Observe(1)
			m.totalProjects.Set(12)

			Convey("Then they are exported under the configured namespace", func() {
				got := familyNames(t, reg)
				So(got["test_expo_evaluations_submitted_total"], ShouldEqual, 2)
				So(got["test_expo_evaluations_rejected_total"], ShouldEqual, 1)
				So(got["test_expo_scoring_latency_milliseconds"], ShouldEqual, 1)
				So(got["test_expo_store_latency_milliseconds"], ShouldEqual, 1)
				So(got["test_expo_total_projects"], ShouldEqual, 12)
			})
		})
	})

	Convey("Given empty option values", t, func() {
		reg := prometheus.NewRegistry()
		m := NewManager(
			WithNamespace(""),
			WithSubsystem(""),
			WithHistogramBuckets(nil),
			WithCustomLabels(nil),
			WithPrometheusRegistry(nil),
			WithPrometheusRegistry(reg),
		)

		Convey("Then the defaults are kept", func() {
			So(m.namespace, ShouldEqual, "expo")
			So(m.subsystem, ShouldEqual, "scoring")
			So(m.histogramBuckets, ShouldResemble, prometheus.DefBuckets)
			So(m.customLabels, ShouldNotBeNil)
			So(m.registry, ShouldEqual, reg)
		})
	})
}

func TestGlobalRecorders(t *testing.T) {
	Convey("Given the global recorders", t, func() {
		before := familyNames(t, GetRegistry())

		Convey("When each is called", func() {
			So(func() {
				RecordEvaluationSubmitted()
				RecordEvaluationDuplicate()
				RecordEvaluationRejected("not_found")
				RecordScoringLatency(0.5)
				RecordRankingComputed("section", 2)
				RecordPlacementResolved()
				RecordAwardsIssued(3)
				UpdateTotalProjects(4)
				UpdateTotalEvaluations(9)
				UpdateDedupeSize(7)
				RecordStoreLatency("rubric", 0.1)
				RecordStoreError("rubric")
				RecordHTTPRequest("/rankings", "GET", "200")
				RecordHTTPRequestDuration("/rankings", "GET", "200", 1.2)
				RecordErrorByComponent("service", "validation")
				RecordErrorByEndpoint("/evaluations", "POST", "validation")
				RecordErrorLatency("service", "validation", 0.3)
				UpdateSystemMemoryUsage(1024)
				UpdateSystemGoroutineCount(10)
				RecordSystemGCPauseTime(0.2)
			}, ShouldNotPanic)

			Convey("Then the registry reflects them", func() {
				after := familyNames(t, GetRegistry())
				So(after["expo_scoring_evaluations_submitted_total"]-before["expo_scoring_evaluations_submitted_total"], ShouldEqual, 1)
				So(after["expo_scoring_awards_issued_total"]-before["expo_scoring_awards_issued_total"], ShouldEqual, 3)
				So(after["expo_scoring_total_evaluations"], ShouldEqual, 9)
				So(after["expo_scoring_dedupe_size"], ShouldEqual, 7)
				So(after["expo_scoring_rankings_computed_total"]-before["expo_scoring_rankings_computed_total"], ShouldEqual, 1)
			})
		})
	})
}

func TestMetricsConcurrency(t *testing.T) {
	Convey("Given many goroutines recording at once", t, func() {
		before := familyNames(t, GetRegistry())["expo_scoring_placements_resolved_total"]

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 100; j++ {
					RecordPlacementResolved()
					RecordHTTPRequest("/placements", "GET", "200")
				}
			}()
		}
		wg.Wait()

		Convey("Then no increment is lost", func() {
			after := familyNames(t, GetRegistry())["expo_scoring_placements_resolved_total"]
			So(after-before, ShouldEqual, 1000)
		})
	})
}
