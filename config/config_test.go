package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
endpoint:
  base_url: http://localhost:8000
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 5*time.Second, cfg.Intervals.Dashboard.Duration)
	require.Equal(t, 10*time.Second, cfg.Intervals.History.Duration)
	require.Equal(t, 50, cfg.HistoryLimit)
	require.Equal(t, 5*time.Second, cfg.Endpoint.Timeout.Duration)
	require.Equal(t, ":18090", cfg.LiveView.Listen)
}

func TestLoadParsesFullDocument(t *testing.T) {
	path := writeConfig(t, `
endpoint:
  base_url: https://ponds.example.com/api
  timeout: 2s
intervals:
  dashboard: 500ms
  history: 3s
history_limit: 25
thresholds:
  - key: ph
    label: pH
    min: 6.5
    max: 7.5
rules:
  - id: stale_oxygen
    expr: do_mg_l < 5 && water_temp_c > 28
    message: oxygen critically low for warm water
logging:
  level: debug
  format: text
notify:
  enabled: true
  broker: tcp://broker:1883
  topic: aquasync/alerts
live_view:
  listen: ":9999"
  allowed_origins: ["http://localhost:5173"]
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 500*time.Millisecond, cfg.Intervals.Dashboard.Duration)
	require.Equal(t, 25, cfg.HistoryLimit)
	require.Len(t, cfg.Thresholds, 1)
	require.Equal(t, "ph", cfg.Thresholds[0].Key)
	require.Len(t, cfg.Rules, 1)
	require.Equal(t, "stale_oxygen", cfg.Rules[0].ID)
	require.Equal(t, ":9999", cfg.LiveView.Listen)
}

func TestLoadRejectsMissingBaseURL(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: info
`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsSchemaViolation(t *testing.T) {
	path := writeConfig(t, `
endpoint:
  base_url: http://localhost:8000
history_limit: "fifty"
`)
	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "schema")
}

func TestLoadRejectsInvertedThreshold(t *testing.T) {
	path := writeConfig(t, `
endpoint:
  base_url: http://localhost:8000
thresholds:
  - key: ph
    min: 9
    max: 6
`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsDuplicateRule(t *testing.T) {
	path := writeConfig(t, `
endpoint:
  base_url: http://localhost:8000
rules:
  - id: r1
    expr: ph < 6
  - id: r1
    expr: ph > 8
`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestDurationUnmarshalRejectsGarbage(t *testing.T) {
	path := writeConfig(t, `
endpoint:
  base_url: http://localhost:8000
  timeout: "not-a-duration"
`)
	_, err := Load(path)
	require.Error(t, err)
}
