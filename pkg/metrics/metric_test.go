package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/lintang-b-s/corerouter/pkg/util"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestResultLabel(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		want string
	}{
		{name: "success", err: nil, want: RESULT_SUCCESS},
		{name: "route not found", err: util.WrapErrorf(nil, util.ErrRouteNotFound, "no route"), want: RESULT_NOT_FOUND},
		{name: "budget", err: util.WrapErrorf(nil, util.ErrSearchBudgetExceeded, "budget"), want: RESULT_BUDGET_EXCEEDED},
		{name: "bad input", err: util.WrapErrorf(nil, util.ErrBadParamInput, "bad"), want: RESULT_BAD_INPUT},
		{name: "wrapped with fmt", err: fmt.Errorf("query: %w", util.WrapErrorf(nil, util.ErrInvalidPreparedState, "x")), want: RESULT_INVALID_STATE},
		{name: "unknown", err: fmt.Errorf("boom"), want: RESULT_OTHER},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ResultLabel(tc.err))
		})
	}
}

func TestObserveQuery(t *testing.T) {
	before := testutil.ToFloat64(queryTotal.WithLabelValues("test_weighting", "core_alt", RESULT_SUCCESS))
	ObserveQuery("test_weighting", "core_alt", 42, time.Millisecond, nil)
	ObserveQuery("test_weighting", "core_alt", 0, time.Millisecond, util.WrapErrorf(nil, util.ErrRouteNotFound, "x"))

	assert.Equal(t, before+1, testutil.ToFloat64(queryTotal.WithLabelValues("test_weighting", "core_alt", RESULT_SUCCESS)))
	assert.Equal(t, 1.0, testutil.ToFloat64(queryTotal.WithLabelValues("test_weighting", "core_alt", RESULT_NOT_FOUND)))

	SetCoreSize("test_weighting", 17)
	assert.Equal(t, 17.0, testutil.ToFloat64(coreSize.WithLabelValues("test_weighting")))
}
