package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/lineage-cli/internal/auth"
	"github.com/sells-group/lineage-cli/internal/ingest"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.Lineage.TimeoutSecs)
	assert.InDelta(t, 10.0, cfg.Lineage.RatePerSec, 0.001)
	assert.Equal(t, 10, cfg.Lineage.Burst)
	assert.Equal(t, 64, cfg.Lineage.MaxDepth)
	assert.Equal(t, 10000, cfg.Lineage.MaxQueries)
	assert.Equal(t, 3, cfg.Lineage.Retry.MaxAttempts)
	assert.Equal(t, 500, cfg.Lineage.Retry.InitialBackoffMs)
	assert.Equal(t, 10000, cfg.Lineage.Retry.MaxBackoffMs)
	assert.Equal(t, "gcloud auth application-default print-access-token", cfg.Auth.BrokerCommand)
	assert.Equal(t, 3300, cfg.Auth.TokenTTLSecs)
	assert.Equal(t, 60, cfg.Auth.ExpiryDeltaSecs)
	assert.Equal(t, "s3", cfg.Storage.Driver)
	assert.Equal(t, "gs", cfg.Storage.URIScheme)
	assert.Equal(t, "bigquery:", cfg.Warehouse.TargetPrefix)
	assert.Equal(t, 4, cfg.Ingest.Concurrency)
	assert.Equal(t, 5000, cfg.Ingest.BatchSize)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
lineage:
  project: "123456"
  region: us-central1
  max_depth: 8
storage:
  driver: local
  local_root: /data/tpcdi
  bucket: tpcdi
ingest:
  families:
    - name: finwire_sec
      suffix: _SEC.csv
      schema: finwire
      columns: [pts, rec_type, symbol]
      has_header: true
      origin: load_finwire.py
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "123456", cfg.Lineage.Project)
	assert.Equal(t, "us-central1", cfg.Lineage.Region)
	assert.Equal(t, 8, cfg.Lineage.MaxDepth)
	assert.Equal(t, "local", cfg.Storage.Driver)
	assert.Equal(t, "/data/tpcdi", cfg.Storage.LocalRoot)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	require.Len(t, cfg.Ingest.Families, 1)
	assert.Equal(t, ingest.Family{
		Name:      "finwire_sec",
		Suffix:    "_SEC.csv",
		Schema:    "finwire",
		Columns:   []string{"pts", "rec_type", "symbol"},
		HasHeader: true,
		Origin:    "load_finwire.py",
	}, cfg.Ingest.Families[0])
	// Defaults still apply for unset values
	assert.Equal(t, 10000, cfg.Lineage.MaxQueries)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
lineage:
  region: us-central1
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("LINEAGE_LINEAGE_REGION", "europe-west1")
	t.Setenv("LINEAGE_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "europe-west1", cfg.Lineage.Region)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadFile_ExplicitPath(t *testing.T) {
	chdirTemp(t)

	path := filepath.Join(t.TempDir(), "lineage.yml")
	require.NoError(t, os.WriteFile(path, []byte("lineage:\n  project: \"42\"\n  region: asia-south1\n"), 0644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "42", cfg.Lineage.Project)
	assert.Equal(t, "asia-south1", cfg.Lineage.Region)
	assert.Equal(t, 64, cfg.Lineage.MaxDepth, "defaults still apply")
}

func TestLoadFile_MissingExplicitPath(t *testing.T) {
	chdirTemp(t)

	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadEnvOnlyKeys(t *testing.T) {
	chdirTemp(t)

	t.Setenv("LINEAGE_LINEAGE_PROJECT", "987")
	t.Setenv("LINEAGE_AUTH_TOKEN", "ya29.static")
	t.Setenv("LINEAGE_WAREHOUSE_DATABASE_URL", "postgres://localhost/dw")
	t.Setenv("LINEAGE_SERVER_PORT", "3000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "987", cfg.Lineage.Project)
	assert.Equal(t, "ya29.static", cfg.Auth.Token)
	assert.Equal(t, "postgres://localhost/dw", cfg.Warehouse.DatabaseURL)
	assert.Equal(t, 3000, cfg.Server.Port)
}

func TestAuthConfig_TokenOptions(t *testing.T) {
	opts := AuthConfig{
		BrokerCommand:   "gcloud auth print-access-token",
		TokenTTLSecs:    3300,
		ExpiryDeltaSecs: 60,
	}.TokenOptions()

	assert.Equal(t, auth.Options{
		Command:     []string{"gcloud", "auth", "print-access-token"},
		TTL:         55 * time.Minute,
		ExpiryDelta: time.Minute,
	}, opts)
}

func TestLineageConfig_Location(t *testing.T) {
	loc := LineageConfig{Project: "p", Region: "r"}.Location()
	assert.Equal(t, "projects/p/locations/r", loc.Parent())
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with the defaults every mode needs.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Lineage.Project = "123456"
	cfg.Lineage.Region = "us-central1"
	cfg.Lineage.RatePerSec = 10
	cfg.Lineage.Retry.MaxAttempts = 3
	cfg.Server.Port = 8080
	cfg.Ingest.Concurrency = 4
	cfg.Storage.Driver = "s3"
	return cfg
}

func TestValidateRecord_AllPresent(t *testing.T) {
	assert.NoError(t, validDefaults().Validate("record"))
}

func TestValidateRecord_MissingLocation(t *testing.T) {
	cfg := validDefaults()
	cfg.Lineage.Project = ""
	cfg.Lineage.Region = ""

	err := cfg.Validate("record")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "lineage.project is required")
	assert.Contains(t, err.Error(), "lineage.region is required")
}

func TestValidateRetryAndRate(t *testing.T) {
	cfg := validDefaults()
	cfg.Lineage.RatePerSec = 0
	cfg.Lineage.Retry.MaxAttempts = 0

	err := cfg.Validate("trace")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "rate_per_sec must be > 0")
	assert.Contains(t, err.Error(), "max_attempts must be >= 1")
}

func TestValidateIngest_MissingFields(t *testing.T) {
	cfg := validDefaults()

	err := cfg.Validate("ingest")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "warehouse.database_url is required")
	assert.Contains(t, err.Error(), "warehouse.schema is required")
	assert.Contains(t, err.Error(), "storage.bucket is required")
	assert.Contains(t, err.Error(), "ingest.families must not be empty")
}

func TestValidateIngest_Local(t *testing.T) {
	cfg := validDefaults()
	cfg.Storage.Driver = "local"
	cfg.Storage.LocalRoot = "/data"
	cfg.Warehouse.DatabaseURL = "postgres://localhost/dw"
	cfg.Ingest.Families = []ingest.Family{{Name: "sec", Suffix: "_SEC.csv", Schema: "finwire", Columns: []string{"a"}}}

	assert.NoError(t, cfg.Validate("ingest"))
}

func TestValidateIngest_BadDriver(t *testing.T) {
	cfg := validDefaults()
	cfg.Storage.Driver = "ftp"

	err := cfg.Validate("ingest")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), `storage.driver "ftp" must be s3 or local`)
}

func TestValidateIngest_ConcurrencyBounds(t *testing.T) {
	cfg := validDefaults()
	cfg.Storage.Bucket = "tpcdi"
	cfg.Warehouse.DatabaseURL = "postgres://localhost/dw"
	cfg.Warehouse.Schema = "finwire"
	cfg.Ingest.Families = []ingest.Family{{Name: "sec"}}

	cfg.Ingest.Concurrency = 0
	err := cfg.Validate("ingest")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "ingest.concurrency must be between 1 and 64")

	cfg.Ingest.Concurrency = 65
	assert.Error(t, cfg.Validate("ingest"))

	cfg.Ingest.Concurrency = 64
	assert.NoError(t, cfg.Validate("ingest"))
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}
