package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivked85/filterman/internal/filter"
)

func TestObserveStep(t *testing.T) {
	p, err := New(prometheus.NewRegistry())
	require.NoError(t, err)

	p.ObserveStep(filter.StepEvent{Host: "users", Filter: "role", Strategy: filter.StrategyScope})
	p.ObserveStep(filter.StepEvent{Host: "users", Filter: "role", Strategy: filter.StrategyScope})
	p.ObserveStep(filter.StepEvent{Host: "users", Filter: "q", Strategy: filter.StrategySkip})
	p.ObserveStep(filter.StepEvent{Host: "users", Filter: "q", Strategy: filter.StrategyQuery, Err: errors.New("boom")})

	assert.InDelta(t, 2, testutil.ToFloat64(p.stepsM.WithLabelValues("users", "role", "scope")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(p.stepsM.WithLabelValues("users", "q", "skip")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(p.errorsM.WithLabelValues("users", "q")), 0)
	assert.Equal(t, 2, testutil.CollectAndCount(p.stepsM))
}

func TestObserveRun(t *testing.T) {
	reg := prometheus.NewRegistry()

	p, err := New(reg)
	require.NoError(t, err)

	p.ObserveRun(filter.RunEvent{Host: "users", Steps: 3, Duration: 2 * time.Millisecond})

	assert.Equal(t, 1, testutil.CollectAndCount(p.durationM, "filterman_filter_run_duration_seconds"))
}

func TestNew_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()

	_, err := New(reg)
	require.NoError(t, err)

	_, err = New(reg)
	assert.ErrorContains(t, err, "registering filter metrics")
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()

	p, err := New(reg)
	require.NoError(t, err)

	p.ObserveStep(filter.StepEvent{Host: "users", Filter: "status", Strategy: filter.StrategyWhere})

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(),
		`filterman_filter_steps_total{filter="status",host="users",strategy="where"} 1`))
}
