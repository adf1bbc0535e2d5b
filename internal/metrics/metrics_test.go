package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestResult(t *testing.T) {
	assert.Equal(t, "ok", Result(nil))
	assert.Equal(t, "error", Result(errors.New("boom")))
}

func TestFlushesTotal_Labels(t *testing.T) {
	before := testutil.ToFloat64(FlushesTotal.WithLabelValues("manual", "skipped"))
	FlushesTotal.WithLabelValues("manual", "skipped").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(FlushesTotal.WithLabelValues("manual", "skipped")))
}
