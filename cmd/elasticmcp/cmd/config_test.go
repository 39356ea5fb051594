package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/elasticmcp/internal/config"
)

func TestConfigShow_MasksPassword(t *testing.T) {
	env := newCLIEnv(t)
	t.Setenv("ES_PASS", "hunter2")

	out, _, err := env.run(t, "config", "show")

	require.NoError(t, err)
	assert.Contains(t, out, "********")
	assert.NotContains(t, out, "hunter2")
	assert.Contains(t, out, "default_index: documents")
}

func TestConfigShow_JSONAndSources(t *testing.T) {
	env := newCLIEnv(t)
	project := filepath.Join(env.projectDir, config.ProjectConfigName)
	require.NoError(t, os.WriteFile(project, []byte("elasticsearch:\n  default_index: finance\n"), 0o644))
	t.Setenv("ES_PASS", "s3cret")

	out, _, err := env.run(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "# project config: "+project)

	out, _, err = env.run(t, "config", "show", "--json")
	require.NoError(t, err)
	var cfg map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &cfg))
	es, ok := cfg["elasticsearch"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "finance", es["default_index"])
	assert.Equal(t, "30s", es["timeout"])
	assert.Equal(t, "********", es["password"])
}

func TestConfigInit_CreatesThenWarns(t *testing.T) {
	// Given: no user config
	env := newCLIEnv(t)
	path := filepath.Join(env.configHome, "elasticmcp", "config.yaml")

	// When: running init twice
	out, _, err := env.run(t, "config", "init")
	require.NoError(t, err)
	second, _, err := env.run(t, "config", "init")
	require.NoError(t, err)

	// Then: the file exists with defaults and the second run leaves it alone
	assert.Contains(t, out, "Created "+path)
	assert.FileExists(t, path)
	assert.Contains(t, second, "already exists")
	backups, err := config.ListBackups(path)
	require.NoError(t, err)
	assert.Empty(t, backups)
}

func TestConfigInit_ForceBacksUp(t *testing.T) {
	env := newCLIEnv(t)
	path := filepath.Join(env.configHome, "elasticmcp", "config.yaml")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("search:\n  size: 9\n"), 0o600))

	out, _, err := env.run(t, "config", "init", "--force")

	require.NoError(t, err)
	assert.Contains(t, out, "Backed up to")
	backups, err := config.ListBackups(path)
	require.NoError(t, err)
	require.Len(t, backups, 1)
	old, err := os.ReadFile(backups[0])
	require.NoError(t, err)
	assert.Equal(t, "search:\n  size: 9\n", string(old))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "size: 5")
}

func TestConfigPath(t *testing.T) {
	env := newCLIEnv(t)

	out, _, err := env.run(t, "config", "path")

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(env.configHome, "elasticmcp", "config.yaml"), strings.TrimSpace(out))
}

func TestConfigInit_EffectiveCapturesEnv(t *testing.T) {
	// Given: the cluster address coming from the environment
	env := newCLIEnv(t)
	t.Setenv("ES_DEFAULT_INDEX", "finance")

	// When: writing the effective configuration
	_, _, err := env.run(t, "config", "init", "--effective")
	require.NoError(t, err)

	// Then: the file holds the overrides and loads back unchanged
	t.Setenv("ES_DEFAULT_INDEX", "")
	cfg, err := config.Load(env.projectDir)
	require.NoError(t, err)
	assert.Equal(t, "finance", cfg.Elasticsearch.DefaultIndex)
	assert.Equal(t, os.Getenv("ES_HOST"), cfg.Elasticsearch.URL)
}
