package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveTap(t *testing.T) {
	before := testutil.ToFloat64(tapsTotal.WithLabelValues(OutcomeRejected, "low confidence"))
	ObserveTap(OutcomeRejected, "low confidence")
	after := testutil.ToFloat64(tapsTotal.WithLabelValues(OutcomeRejected, "low confidence"))

	assert.Equal(t, before+1, after)
}

func TestObserveEviction(t *testing.T) {
	before := testutil.ToFloat64(evictionsTotal.WithLabelValues(EvictHistory))
	ObserveEviction(EvictHistory)
	assert.Equal(t, before+1, testutil.ToFloat64(evictionsTotal.WithLabelValues(EvictHistory)))
}

func TestSetLiveAnchors(t *testing.T) {
	SetLiveAnchors(4)
	assert.Equal(t, 4.0, testutil.ToFloat64(liveAnchors))
}
