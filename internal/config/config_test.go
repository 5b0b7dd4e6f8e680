package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fulfillsync.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	return path
}

const validYAML = `
provider:
  base_url: https://api.example.com
credentials_file: /etc/fulfillsync/credentials.yaml
sync:
  reconcile_days: 7
`

func TestLoad_AppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com", cfg.Provider.BaseURL)
	assert.Equal(t, 150, cfg.Provider.RequestsPerMinute, "omitted knobs fall back to defaults")
	assert.Equal(t, 50, cfg.Provider.MaxPages)
	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, 7, cfg.Sync.ReconcileDays, "file values override defaults")
	assert.Equal(t, 5, cfg.Sync.IncrementalMinutes)
	assert.Equal(t, 45, cfg.Sync.TimelineMaxAgeDays)
}

func TestLoad_DatabaseDSNOverride(t *testing.T) {
	t.Setenv("DATABASE_DSN", "postgres://localhost/mirror")

	cfg, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/mirror", cfg.Database.DSN)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoad_SchemaViolations(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "missing base_url",
			yaml: `
credentials_file: /etc/fulfillsync/credentials.yaml
`,
		},
		{
			name: "unknown database driver",
			yaml: `
provider:
  base_url: https://api.example.com
credentials_file: /etc/fulfillsync/credentials.yaml
database:
  driver: mysql
  dsn: mirror
`,
		},
		{
			name: "non-positive rate limit",
			yaml: `
provider:
  base_url: https://api.example.com
  requests_per_minute: 0
credentials_file: /etc/fulfillsync/credentials.yaml
`,
		},
		{
			name: "negative reconcile window",
			yaml: `
provider:
  base_url: https://api.example.com
credentials_file: /etc/fulfillsync/credentials.yaml
sync:
  reconcile_days: -1
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid config")
		})
	}
}

func TestValidate_DefaultAloneIsIncomplete(t *testing.T) {
	// Defaults carry no provider endpoint or credential path; operators must
	// supply those.
	assert.Error(t, Default().Validate())
}

func TestLoadCredentials(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
- client_id: 1
  token: tok-1
- client_id: 7
  token: tok-7
`), 0o600))

	creds, err := LoadCredentials(path)
	require.NoError(t, err)

	tok, ok := creds.Token(7)
	assert.True(t, ok)
	assert.Equal(t, "tok-7", tok)

	_, ok = creds.Token(99)
	assert.False(t, ok, "unprovisioned tenants resolve to no token, not an error")
}

func TestLoadCredentials_RejectsIncompleteEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
- client_id: 1
`), 0o600))

	_, err := LoadCredentials(path)
	assert.Error(t, err)
}

func TestNewStaticCredentials(t *testing.T) {
	src := map[int64]string{1: "tok-1"}
	creds := NewStaticCredentials(src)
	src[1] = "mutated"

	tok, ok := creds.Token(1)
	require.True(t, ok)
	assert.Equal(t, "tok-1", tok, "the source map is copied, not aliased")
}
