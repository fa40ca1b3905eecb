package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordCacheLookup(t *testing.T) {
	before := testutil.ToFloat64(CacheLookups.WithLabelValues("metrics-test", CacheHit))
	RecordCacheLookup("metrics-test", CacheHit)
	assert.Equal(t, before+1, testutil.ToFloat64(CacheLookups.WithLabelValues("metrics-test", CacheHit)))
}

func TestRecordRateDecision_EmptyNameUsesDefaultLabel(t *testing.T) {
	before := testutil.ToFloat64(RateDecisions.WithLabelValues("default", RateRejected))
	RecordRateDecision("", RateRejected)
	assert.Equal(t, before+1, testutil.ToFloat64(RateDecisions.WithLabelValues("default", RateRejected)))
}

func TestGauges(t *testing.T) {
	SetCacheEntries("metrics-test", 7)
	assert.Equal(t, float64(7), testutil.ToFloat64(CacheEntries.WithLabelValues("metrics-test")))

	SetRateWindows("metrics-test", 3)
	assert.Equal(t, float64(3), testutil.ToFloat64(RateWindows.WithLabelValues("metrics-test")))
}

func TestRecordSweep_IgnoresZero(t *testing.T) {
	before := testutil.ToFloat64(SweepRemoved.WithLabelValues("cache", "metrics-test"))
	RecordSweep("cache", "metrics-test", 0)
	RecordSweep("cache", "metrics-test", 2)
	assert.Equal(t, before+2, testutil.ToFloat64(SweepRemoved.WithLabelValues("cache", "metrics-test")))
}
