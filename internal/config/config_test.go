package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "permitflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv(EnvConfigFile, "")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "2281", cfg.MunicipalityID)
	assert.Equal(t, "SBK_PARKING_PERMIT", cfg.Namespace)
	assert.Equal(t, "CONTACTCENTER", cfg.SupportNamespace)
	assert.Equal(t, 2*time.Minute, cfg.LockExtension)

	assert.Equal(t, "http://localhost:8080/engine-rest", cfg.Engine.BaseURL)
	assert.Equal(t, time.Minute, cfg.Engine.LockDuration)
	assert.Equal(t, 5, cfg.Engine.MaxTasks)
	assert.Equal(t, 500*time.Millisecond, cfg.Engine.Backoff.Initial)
	assert.Equal(t, 2.0, cfg.Engine.Backoff.Factor)
	assert.Equal(t, 30*time.Second, cfg.Engine.DrainTimeout)
	assert.True(t, strings.HasPrefix(cfg.Engine.WorkerID, "permitflow-"))

	assert.Equal(t, 60*time.Second, cfg.Integrations.Messaging.ReadTimeout)
	assert.Equal(t, 5.0, cfg.Integrations.RPA.RateLimit)

	assert.Equal(t, []string{"NyttKortBorttappat", "SparraKort"}, cfg.RPA.Queues["LOST_PARKING_PERMIT"])
	assert.Equal(t, []string{"ALREADY_EXISTS"}, cfg.Duplicates["party-assets"])

	assert.Empty(t, cfg.Database.URL)
	assert.Equal(t, "permitflow", cfg.RabbitMQ.Name)
	assert.Equal(t, 720*time.Hour, cfg.Journal.Retention)
	assert.Equal(t, "0 3 * * *", cfg.Journal.SweepCron)
	assert.Equal(t, 8082, cfg.HTTP.Port)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeFile(t, `
municipalityId: "1480"
engine:
  maxTasks: 10
  backoff:
    max: 30s
rpa:
  queues:
    PARKING_PERMIT: [Q1]
texts:
  decision:
    conjunction: " och "
  displayPhases:
    Canceled: Avbruten
`)
	t.Setenv(EnvConfigFile, path)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "1480", cfg.MunicipalityID)
	assert.Equal(t, 10, cfg.Engine.MaxTasks)
	assert.Equal(t, 30*time.Second, cfg.Engine.Backoff.Max)
	assert.Equal(t, 500*time.Millisecond, cfg.Engine.Backoff.Initial)
	assert.Equal(t, []string{"Q1"}, cfg.RPA.Queues["PARKING_PERMIT"])
	assert.Len(t, cfg.RPA.Queues["LOST_PARKING_PERMIT"], 2)
	assert.Equal(t, " och ", cfg.Texts.Decision.Conjunction)
	assert.Len(t, cfg.Texts.DisplayPhases, 1)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, "engine:\n  url: http://from-file\n")
	t.Setenv(EnvConfigFile, "")
	t.Setenv("PERMITFLOW_ENGINE_URL", "http://from-env")
	t.Setenv("PERMITFLOW_ENGINE_MAXTASKS", "3")
	t.Setenv("PERMITFLOW_DATABASE_URL", "postgres://u:p@db/permitflow")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://from-env", cfg.Engine.BaseURL)
	assert.Equal(t, 3, cfg.Engine.MaxTasks)
	assert.Equal(t, "postgres://u:p@db/permitflow", cfg.Database.URL)
}

func TestLoad_UnknownKey(t *testing.T) {
	path := writeFile(t, "engine:\n  lockDuraton: 1m\n")

	_, err := Load(path)
	assert.ErrorIs(t, err, ErrInvalidFile)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorIs(t, err, ErrInvalidFile)
}

func TestLoad_InvalidValues(t *testing.T) {
	path := writeFile(t, `
engine:
  backoff:
    factor: 0.5
journal:
  sweepCron: "every day"
http:
  port: 70000
`)

	_, err := Load(path)
	require.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, err.Error(), "engine.backoff.factor")
	assert.Contains(t, err.Error(), "journal.sweepCron")
	assert.Contains(t, err.Error(), "http.port")
}

func TestLoad_DecisionPrefixNeedsPlaceholder(t *testing.T) {
	path := writeFile(t, `
texts:
  decision:
    finalApproval: "Beslut: bifall."
    recommendedRejection: "Rekommenderat beslut %d: %s"
`)

	_, err := Load(path)
	require.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, err.Error(), "finalApproval")
	assert.Contains(t, err.Error(), "recommendedRejection")

	path = writeFile(t, `
texts:
  decision:
    finalApproval: "Beslut: bifall. %s"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Beslut: bifall. %s", cfg.Texts.Decision.FinalApproval)
}

func TestYAML_RedactsSecrets(t *testing.T) {
	t.Setenv(EnvConfigFile, "")
	t.Setenv("PERMITFLOW_DATABASE_URL", "postgres://u:secret@db/permitflow")
	t.Setenv("PERMITFLOW_INTEGRATIONS_CASEDATA_TOKEN", "tok-123")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "tok-123", cfg.Integrations.CaseData.Token)

	out, err := cfg.YAML()
	require.NoError(t, err)
	assert.NotContains(t, string(out), "secret")
	assert.NotContains(t, string(out), "tok-123")
	assert.Contains(t, string(out), "lockDuration: 1m0s")

	// исходная конфигурация не меняется
	assert.Equal(t, "tok-123", cfg.Integrations.CaseData.Token)
}
