package metric_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gyunamister/goproq/internal/metric"
	"github.com/gyunamister/goproq/internal/model"
)

func TestFilter(t *testing.T) {
	src := metric.MapSource{
		"e1": {"lead_time": 10},
		"e2": {"lead_time": 30},
	}
	sat, unsat := metric.Filter(src, []model.EventID{"e1", "e2", "e3"}, "lead_time", model.OpGTE, 20)
	require.Equal(t, []model.EventID{"e2"}, sat)
	require.Equal(t, []model.EventID{"e1", "e3"}, unsat)
}

func TestEdgeValue(t *testing.T) {
	src := metric.MapSource{
		"start": {"lead_time": 5},
		"end":   {"lead_time": 17},
	}
	v, ok := metric.EdgeValue(src, "start", "end", "lead_time")
	require.True(t, ok)
	require.Equal(t, 12.0, v)

	require.True(t, metric.SatisfiesEdge(src, "start", "end", "lead_time", model.OpGTE, 10))
	require.False(t, metric.SatisfiesEdge(src, "start", "end", "lead_time", model.OpLTE, 10))

	_, ok = metric.EdgeValue(src, "start", "missing", "lead_time")
	require.False(t, ok)
}
