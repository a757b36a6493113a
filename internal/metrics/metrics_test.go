package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegisterTwice(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := Register(reg); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := Register(reg); err != nil {
		t.Fatalf("second register should be a no-op, got %v", err)
	}
}

func TestObserveCounters(t *testing.T) {
	before := testutil.ToFloat64(analysesTotal.WithLabelValues(OutcomeSuccess))
	ObserveAnalysis(-time.Second, "unexpected")
	if got := testutil.ToFloat64(analysesTotal.WithLabelValues(OutcomeSuccess)) - before; got != 1 {
		t.Fatalf("unknown outcomes count as success, delta %v", got)
	}

	skipped := testutil.ToFloat64(skippedNominationsTotal.WithLabelValues("nomination"))
	ObserveSkipped("nomination", 3)
	ObserveSkipped("nomination", 0)
	if got := testutil.ToFloat64(skippedNominationsTotal.WithLabelValues("nomination")) - skipped; got != 3 {
		t.Fatalf("expected 3 skipped nominations, delta %v", got)
	}

	hits := testutil.ToFloat64(cacheLookupsTotal.WithLabelValues(CacheHit))
	ObserveCacheLookup(true)
	if got := testutil.ToFloat64(cacheLookupsTotal.WithLabelValues(CacheHit)) - hits; got != 1 {
		t.Fatalf("expected one cache hit, delta %v", got)
	}
}
