package internal

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadTestConfig(t *testing.T) (*Config, string) {
	t.Helper()
	root := t.TempDir()
	configDir := filepath.Join(root, "config")
	return LoadConfig(configDir, filepath.Join(root, "data"), filepath.Join(root, "cache")), configDir
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "")
	config, _ := loadTestConfig(t)

	assert.Equal(t, ProviderGemini, config.Provider)
	assert.Equal(t, StyleStructured, config.SummaryStyle)
	assert.Equal(t, FormatMP3, config.AudioFormat)
	assert.Equal(t, LangAuto, config.Language)
	assert.False(t, config.PassthroughOptimized)
	assert.Equal(t, 60, config.RequestsPerMinute)
	assert.Zero(t, config.MaxRetries)
	assert.Equal(t, 2*time.Minute, config.SummaryTimeout)
	assert.True(t, config.LedgerEnabled)
	assert.Equal(t, filepath.Join(config.DataDir, "reports"), config.OutputDir)
	assert.Equal(t, filepath.Join(config.CacheDir, "tmp"), config.TempDir)
	assert.Equal(t, filepath.Join(config.DataDir, "runs.db"), config.LedgerPath)
}

func TestLoadConfig_Environment(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "from-env")
	t.Setenv("YTA_SUMMARY_STYLE", "bullets")
	t.Setenv("YTA_LANGUAGE", "pt")
	t.Setenv("YTA_AUDIO_FORMAT", "flac")
	t.Setenv("YTA_MAX_RETRIES", "3")

	config, _ := loadTestConfig(t)
	assert.Equal(t, "from-env", config.GoogleAPIKey)
	assert.Equal(t, "from-env", config.APIKey())
	assert.Equal(t, StyleList, config.SummaryStyle)
	assert.Equal(t, LangPortuguese, config.Language)
	assert.Equal(t, FormatFLAC, config.AudioFormat)
	assert.Equal(t, 3, config.MaxRetries)
}

func TestLoadConfig_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("YTA_SUMMARY_STYLE", "sonnet")
	t.Setenv("YTA_AUDIO_FORMAT", "ogg")
	t.Setenv("YTA_LANGUAGE", "klingon")

	config, _ := loadTestConfig(t)
	assert.Equal(t, StyleStructured, config.SummaryStyle)
	assert.Equal(t, FormatMP3, config.AudioFormat)
	assert.Equal(t, LangAuto, config.Language)
}

func TestLoadConfig_ConfigFile(t *testing.T) {
	root := t.TempDir()
	configDir := filepath.Join(root, "config")
	require.NoError(t, os.MkdirAll(configDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "config.toml"),
		[]byte("summary_style = \"paragraph\"\nprovider = \"openai\"\npassthrough_optimized = true\n"), 0644))
	t.Setenv("OPENAI_API_KEY", "sk-test")

	config := LoadConfig(configDir, filepath.Join(root, "data"), filepath.Join(root, "cache"))
	assert.Equal(t, StyleParagraph, config.SummaryStyle)
	assert.Equal(t, ProviderOpenAI, config.Provider)
	assert.True(t, config.PassthroughOptimized)
	assert.Equal(t, "sk-test", config.APIKey())
	assert.Equal(t, config.OpenAIModel, config.ModelName())
}

func TestEnsureDefaultConfig(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "config")
	require.NoError(t, EnsureDefaultConfig(dir))

	data, err := os.ReadFile(filepath.Join(dir, "config.toml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "summary_style")

	// an existing file is left alone
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("custom"), 0644))
	require.NoError(t, EnsureDefaultConfig(dir))
	data, err = os.ReadFile(filepath.Join(dir, "config.toml"))
	require.NoError(t, err)
	assert.Equal(t, "custom", string(data))
}
