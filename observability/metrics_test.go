package observability

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gathered returns every sample of family keyed by its joined label values.
func gathered(t *testing.T, m *Metrics, family string) map[string]*dto.Metric {
	t.Helper()
	families, err := m.Registry.Gather()
	require.NoError(t, err)

	out := make(map[string]*dto.Metric)
	for _, f := range families {
		if f.GetName() != family {
			continue
		}
		for _, metric := range f.GetMetric() {
			key := ""
			for _, l := range metric.GetLabel() {
				key += l.GetValue() + "/"
			}
			out[key] = metric
		}
	}
	return out
}

func TestRecordStage(t *testing.T) {
	m := NewMetrics()
	m.RecordStage("LOAD_SOURCES", 0.2, nil)
	m.RecordStage("EMIT", 0.1, errors.New("disk full"))

	totals := gathered(t, m, "property_pipeline_stages_total")
	require.Contains(t, totals, "LOAD_SOURCES/success/")
	require.Contains(t, totals, "EMIT/failed/")
	assert.Equal(t, 1.0, totals["EMIT/failed/"].GetCounter().GetValue())

	durations := gathered(t, m, "property_pipeline_stage_duration_seconds")
	assert.Len(t, durations, 2)
	assert.Equal(t, uint64(1), durations["LOAD_SOURCES/"].GetHistogram().GetSampleCount())
}

func TestRecordWarnings(t *testing.T) {
	m := NewMetrics()
	m.RecordWarnings(map[string]int{"malformed_date": 3, "unparsable_price": 1})
	m.RecordWarnings(map[string]int{"malformed_date": 2})

	warnings := gathered(t, m, "property_pipeline_warnings_total")
	assert.Equal(t, 5.0, warnings["malformed_date/"].GetCounter().GetValue())
	assert.Equal(t, 1.0, warnings["unparsable_price/"].GetCounter().GetValue())
}

func TestRunsDoNotShareRegistries(t *testing.T) {
	a, b := NewMetrics(), NewMetrics()
	a.Properties.Set(10)

	assert.Equal(t, 10.0, gathered(t, a, "property_pipeline_properties")[""].GetGauge().GetValue())
	assert.Equal(t, 0.0, gathered(t, b, "property_pipeline_properties")[""].GetGauge().GetValue())
}

func TestWriteTextfile(t *testing.T) {
	m := NewMetrics()
	m.RowsLoaded.WithLabelValues("monmouthshire_prices").Set(42)

	path := filepath.Join(t.TempDir(), "metrics", "run.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `property_pipeline_rows_loaded{source="monmouthshire_prices"} 42`)
}
