package metrics_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	assoc "github.com/goliatone/go-assoc"
	"github.com/goliatone/go-assoc/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRecorderCountsRegistryActivity(t *testing.T) {
	promReg := prometheus.NewRegistry()
	recorder := metrics.NewRecorder(promReg)

	failing := assoc.SyncFunc(func(context.Context, assoc.Method, *assoc.Node) (map[string]any, error) {
		return nil, errors.New("offline")
	})
	reg := assoc.NewRegistry(assoc.WithMetrics(recorder))
	location := reg.MustDefine("Location", assoc.WithDefaults(map[string]any{"zip": ""}))
	dept := reg.MustDefine("Department",
		assoc.WithRelations(assoc.HasMany("locations", assoc.Ref(location))),
		assoc.WithValidator(func(attrs map[string]any) error {
			if attrs["name"] == "" {
				return errors.New("name is required")
			}
			return nil
		}),
		assoc.WithSync(failing),
	)

	d := dept.MustNew(map[string]any{
		"name":      "R&D",
		"locations": []any{map[string]any{"zip": "94404"}},
	})
	require.NoError(t, d.Many("locations").At(0).SetKey("zip", "10001"))

	require.Error(t, d.SetKey("name", "", assoc.Validate()))
	require.Error(t, d.Save(context.Background(), nil))

	expected := `
# HELP assoc_node_mutations_total Total number of committed node mutations
# TYPE assoc_node_mutations_total counter
assoc_node_mutations_total{type="Location"} 1
# HELP assoc_composed_events_total Total number of composed events emitted on holders
# TYPE assoc_composed_events_total counter
assoc_composed_events_total{type="Department"} 2
# HELP assoc_validation_failures_total Total number of rejected mutations
# TYPE assoc_validation_failures_total counter
assoc_validation_failures_total{type="Department"} 1
# HELP assoc_sync_errors_total Total number of failed sync calls
# TYPE assoc_sync_errors_total counter
assoc_sync_errors_total{method="create",type="Department"} 1
`
	require.NoError(t, testutil.GatherAndCompare(promReg, strings.NewReader(expected),
		"assoc_node_mutations_total",
		"assoc_composed_events_total",
		"assoc_validation_failures_total",
		"assoc_sync_errors_total",
	))

	count, err := testutil.GatherAndCount(promReg, "assoc_sync_duration_seconds")
	require.NoError(t, err)
	require.Equal(t, 1, count)
}
