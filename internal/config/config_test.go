package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultFile)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, []string{"."}, cfg.Paths)
	assert.NotEmpty(t, cfg.ExcludeFiles)
	assert.Equal(t, []string{"class", "function"}, cfg.Analyser.Types)
	assert.True(t, cfg.CacheEnabled())
	assert.True(t, cfg.IgnoresUncoveredInternal())
	assert.True(t, cfg.UsesGitignore())
	assert.Empty(t, cfg.Validate())
}

func TestLoadNonExistent(t *testing.T) {
	cfg, err := Load("nonexistent.yaml")
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, Default().Paths, cfg.Paths)
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
paths:
  - ./internal
exclude_files: []
layers:
  - name: Controller
    collectors:
      - type: className
        value: .*Handler.*
  - name: Service
    collectors:
      - type: directory
        value: internal/service/.*
  - name: Repository
    collectors:
      - type: bool
        must:
          - type: class
            value: .*Repo$
        must_not:
          - type: directory
            value: testdata
ruleset:
  Controller:
    - +Service
  Service:
    - Repository
skip_violations:
  example/app.Handler:
    - example/app.LegacyRepo
analyser:
  types: [class, function, file]
cache:
  enabled: false
ignore_uncovered_internal_classes: false
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"./internal"}, cfg.Paths)
	assert.Empty(t, cfg.ExcludeFiles)
	require.Len(t, cfg.Layers, 3)
	assert.Equal(t, []string{"Controller", "Service", "Repository"}, cfg.LayerNames())
	collector := cfg.Layers[2].Collectors[0]
	assert.Equal(t, "bool", collector.Type)
	require.Len(t, collector.Must, 1)
	require.Len(t, collector.MustNot, 1)
	assert.Equal(t, "testdata", collector.MustNot[0].Value)

	assert.Equal(t, []string{"example/app.LegacyRepo"}, cfg.SkipViolations["example/app.Handler"])
	assert.Equal(t, []string{"class", "function", "file"}, cfg.Analyser.Types)
	assert.False(t, cfg.CacheEnabled())
	assert.Equal(t, Default().Cache.File, cfg.Cache.File)
	assert.False(t, cfg.IgnoresUncoveredInternal())
	assert.True(t, cfg.UsesGitignore())
	assert.Empty(t, cfg.Validate())
}

func TestLoadRejectsNonMapping(t *testing.T) {
	_, err := Load(writeConfig(t, "- just\n- a list\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a mapping")
}

func TestLoadInvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "layers: [unclosed"))
	assert.Error(t, err)
}

func TestLoadEmptyFileUsesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Default().ExcludeFiles, cfg.ExcludeFiles)
}

func TestLoadFromDir(t *testing.T) {
	path := writeConfig(t, "paths: [src]\n")
	cfg, err := LoadFromDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Equal(t, []string{"src"}, cfg.Paths)
}

func TestMergeNil(t *testing.T) {
	cfg := Default()
	cfg.Merge(nil)
	assert.Equal(t, Default(), cfg)
}

func TestCachePath(t *testing.T) {
	cfg := Default()
	assert.Equal(t, filepath.Join("/project", ".strata", "cache.db"), cfg.CachePath("/project"))

	cfg.Cache.File = "/tmp/strata.db"
	assert.Equal(t, "/tmp/strata.db", cfg.CachePath("/project"))
}

func TestAllowedLayers(t *testing.T) {
	cfg := &Config{Ruleset: map[string][]string{
		"Controller": {"+Service", "View"},
		"Service":    {"+Repository", "Domain"},
		"Repository": {"Domain", "Infra"},
		"Cyclic":     {"+Cyclic", "Domain"},
	}}

	tests := []struct {
		layer string
		want  []string
	}{
		{"Controller", []string{"Service", "Repository", "Domain", "Infra", "View"}},
		{"Service", []string{"Repository", "Domain", "Infra"}},
		{"Repository", []string{"Domain", "Infra"}},
		{"Cyclic", []string{"Cyclic", "Domain"}},
		{"Unknown", nil},
	}
	for _, tt := range tests {
		t.Run(tt.layer, func(t *testing.T) {
			assert.Equal(t, tt.want, cfg.AllowedLayers(tt.layer))
		})
	}
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		ExcludeFiles: []string{"("},
		Layers: []Layer{
			{Name: "A", Collectors: []Collector{{Type: "className", Value: "A"}}},
			{Name: "A", Collectors: []Collector{{Type: "className", Value: "A"}}},
			{Name: "Empty"},
			{Name: " "},
		},
		Ruleset: map[string][]string{
			"A":     {"+Ghost"},
			"Other": {"A"},
		},
		Analyser: AnalyserConfig{Types: []string{"class", "method"}},
	}

	var messages []string
	for _, err := range cfg.Validate() {
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		messages = append(messages, verr.Error())
	}

	assert.Equal(t, []string{
		`layers[1]: layer "A" is defined more than once`,
		`layers[2]: layer "Empty" has no collectors`,
		`layers[3]: layer has no name`,
		`ruleset: layer "A" allows undefined layer "Ghost"`,
		`ruleset: rule for undefined layer "Other"`,
		`analyser.types: unknown analyser type "method"`,
	}, messages[:6])
	require.Len(t, messages, 7)
	assert.Contains(t, messages[6], `exclude_files: invalid pattern "("`)
}
