package core

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"zenstay/internal/infra/persistence/memory"
	"zenstay/pkg/domain"
)

func TestPrometheusMetricsRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewPrometheusMetricsRecorder(reg)
	require.NoError(t, err)

	svc := NewService(failingPersistStore{memory.NewStore(NewDefaultRulesEngine())}, WithMetricsRecorder(rec))
	ctx := context.Background()
	_, _, err = svc.SaveSettings(ctx, domain.DefaultSettings())
	require.NoError(t, err)
	_, _, err = svc.ExtendStay(ctx, "g1", -1)
	require.Error(t, err)

	require.Equal(t, 1.0, testutil.ToFloat64(rec.total.WithLabelValues("save_settings", "success")))
	require.Equal(t, 1.0, testutil.ToFloat64(rec.total.WithLabelValues("extend_stay", "error")))
	require.Equal(t, 1.0, testutil.ToFloat64(rec.persistFailures.WithLabelValues("save_settings")))

	_, err = NewPrometheusMetricsRecorder(reg)
	var already prometheus.AlreadyRegisteredError
	require.True(t, errors.As(err, &already))
}
