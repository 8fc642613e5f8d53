package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{EnvAPIURL, EnvStore, EnvTimeout, EnvLogLevel, EnvLogFormat} {
		if value, ok := os.LookupEnv(key); ok {
			require.NoError(t, os.Unsetenv(key))
			t.Cleanup(func() { os.Setenv(key, value) })
		}
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, DefaultAPIURL, cfg.APIURL)
	assert.Equal(t, DefaultStore, cfg.Store)
	assert.Equal(t, DefaultTimeout, cfg.Timeout)
	assert.Empty(t, cfg.Path)
	assert.NoError(t, cfg.Validate())
}

func TestFindConfigFile_SearchesParents(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))
	writeFile(t, filepath.Join(root, JSONFileName), `{}`)

	path, err := FindConfigFile(nested)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, JSONFileName), path)
}

func TestFindConfigFile_NotFound(t *testing.T) {
	_, err := FindConfigFile(t.TempDir())
	assert.ErrorIs(t, err, ErrConfigNotFound)
}

func TestLoad_JSONFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, JSONFileName), `{
  "api_url": "https://captions.example.com/api",
  "store": "file",
  "state_file": "/tmp/state.json",
  "timeout": "5s"
}`)

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "https://captions.example.com/api", cfg.APIURL)
	assert.Equal(t, "file", cfg.Store)
	assert.Equal(t, "/tmp/state.json", cfg.StateFile)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, filepath.Join(dir, JSONFileName), cfg.Path)
}

func TestLoad_YAMLFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, YAMLFileName), "api_url: http://yaml.local/api\nlog_format: json\n")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "http://yaml.local/api", cfg.APIURL)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoad_Precedence(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, JSONFileName), `{"api_url": "http://file/api", "store": "file"}`)
	writeFile(t, filepath.Join(dir, ".env"), "CAPTIONLY_API_URL=http://dotenv/api\nCAPTIONLY_STORE=memory\n")
	writeFile(t, filepath.Join(dir, ".env.local"), "CAPTIONLY_API_URL=http://dotenv-local/api\n")
	t.Setenv(EnvStore, "keyring")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "http://dotenv-local/api", cfg.APIURL)
	assert.Equal(t, "keyring", cfg.Store, "process env beats .env")

	cfg.Override(Overrides{APIURL: "http://flag/api", Store: "MEMORY"})
	assert.Equal(t, "http://flag/api", cfg.APIURL)
	assert.Equal(t, "memory", cfg.Store)
}

func TestLoad_InvalidTimeout(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvTimeout, "soon")

	_, err := Load(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid timeout")
}

func TestLoad_InvalidFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, JSONFileName), `{not json`)

	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "bad url", mutate: func(c *Config) { c.APIURL = "not a url" }, wantErr: true},
		{name: "unknown store", mutate: func(c *Config) { c.Store = "redis" }, wantErr: true},
		{name: "zero timeout", mutate: func(c *Config) { c.Timeout = 0 }, wantErr: true},
		{name: "bad log format", mutate: func(c *Config) { c.LogFormat = "xml" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSave_RoundTrip(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	cfg := Default()
	cfg.APIURL = "http://saved/api"
	cfg.Timeout = 10 * time.Second
	require.NoError(t, Save(filepath.Join(dir, YAMLFileName), cfg))

	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "http://saved/api", loaded.APIURL)
	assert.Equal(t, 10*time.Second, loaded.Timeout)
}
