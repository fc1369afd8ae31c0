package cmd

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// useConfig points the root flags at a temporary config file for one test.
func useConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nlquery.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	original := cfgFile
	cfgFile = path
	t.Cleanup(func() { cfgFile = original })
	return path
}

func TestGetConfigFile(t *testing.T) {
	originalCfgFile := cfgFile
	defer func() {
		cfgFile = originalCfgFile
	}()

	tests := []struct {
		name     string
		cfgValue string
		want     string
	}{
		{name: "default config file", cfgValue: defaultConfigFile, want: defaultConfigFile},
		{name: "custom config file", cfgValue: "/path/to/custom.yaml", want: "/path/to/custom.yaml"},
		{name: "config file with spaces", cfgValue: "/path/to/my config.yaml", want: "/path/to/my config.yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfgFile = tt.cfgValue
			assert.Equal(t, tt.want, GetConfigFile())
		})
	}
}

func TestGetCLIOverrides(t *testing.T) {
	originalLogLevel, originalLogFormat := logLevel, logFormat
	originalMaxRows, originalTimeout, originalNoLLM := maxRows, timeout, noLLM
	defer func() {
		logLevel, logFormat = originalLogLevel, originalLogFormat
		maxRows, timeout, noLLM = originalMaxRows, originalTimeout, originalNoLLM
	}()

	logLevel = "debug"
	logFormat = "json"
	maxRows = 50
	timeout = 5 * time.Second
	noLLM = true

	assert.Equal(t, CLIOverrides{
		LogLevel:  "debug",
		LogFormat: "json",
		MaxRows:   50,
		Timeout:   5 * time.Second,
		NoLLM:     true,
	}, GetCLIOverrides())
}

func TestConfigPath(t *testing.T) {
	original := cfgFile
	defer func() { cfgFile = original }()

	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer func() { _ = os.Chdir(wd) }()

	cfgFile = defaultConfigFile
	assert.Equal(t, "", configPath(), "a missing default file falls back to defaults")

	require.NoError(t, os.WriteFile(defaultConfigFile, []byte("{}"), 0o600))
	assert.Equal(t, defaultConfigFile, configPath())

	cfgFile = "/does/not/exist.yaml"
	assert.Equal(t, "/does/not/exist.yaml", configPath(), "an explicit path is kept so loading reports it")
}

func TestLoadConfig(t *testing.T) {
	originalMaxRows := maxRows
	defer func() { maxRows = originalMaxRows }()

	useConfig(t, "query:\n  max_rows: 200\n  default_dialect: mysql\n")
	maxRows = 25

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.Query.MaxRows, "flags win over the file")
	assert.Equal(t, "mysql", cfg.Query.DefaultDialect)

	useConfig(t, "query:\n  default_dialect: sybase\n")
	_, err = loadConfig()
	assert.Error(t, err)
}

func TestCommandsRegistered(t *testing.T) {
	var names []string
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"serve", "ask", "check", "schema", "version"} {
		assert.Contains(t, names, want)
	}
}
