package internal

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// CommandRunner executes external commands
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// DefaultCommandRunner implements CommandRunner
type DefaultCommandRunner struct{}

func (r *DefaultCommandRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	return cmd.CombinedOutput()
}

// Provider names the remote model backend.
type Provider string

const (
	ProviderGemini Provider = "gemini"
	ProviderOpenAI Provider = "openai"
)

// Config holds application settings
type Config struct {
	// User configurable settings
	Provider             Provider
	Model                string
	OpenAIModel          string
	GoogleAPIKey         string
	OpenAIAPIKey         string
	OutputDir            string
	SummaryStyle         SummaryStyle
	Language             Language
	SourceLanguage       Language
	AudioFormat          AudioFormat
	PassthroughOptimized bool
	SummaryTimeout       time.Duration
	TranscribeTimeout    time.Duration
	RequestsPerMinute    int
	MaxRetries           int
	CookiesFile          string
	LedgerEnabled        bool
	Prompt               string
	Addr                 string
	Verbose              bool
	Quiet                bool
	MCPLogEnabled        bool

	// Fixed XDG paths (not configurable)
	ConfigDir  string
	DataDir    string
	CacheDir   string
	TempDir    string
	LedgerPath string
}

//go:embed config.toml
var defaultFS embed.FS

const appName = "yta"

// ensureDefaultFile checks if a file exists in the specified directory
// and creates it from the embedded default if it doesn't exist
func ensureDefaultFile(configDir, embedFilename, description string) error {
	filePath := filepath.Join(configDir, embedFilename)
	if FileExists(filePath) {
		return nil
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	defaultContent, err := defaultFS.ReadFile(embedFilename)
	if err != nil {
		return fmt.Errorf("reading embedded default %s: %w", description, err)
	}

	if err := os.WriteFile(filePath, defaultContent, 0644); err != nil {
		return fmt.Errorf("writing default %s: %w", description, err)
	}

	fmt.Fprintf(os.Stderr, "Created default %s at %s\n", description, filePath)
	return nil
}

// EnsureDefaultConfig writes the embedded config.toml into the config
// directory unless one is already there
func EnsureDefaultConfig(configDir string) error {
	return ensureDefaultFile(configDir, "config.toml", "configuration")
}

// InitConfig initializes Viper and loads configuration
func InitConfig() *Config {
	return LoadConfig(
		filepath.Join(xdg.ConfigHome, appName),
		filepath.Join(xdg.DataHome, appName),
		filepath.Join(xdg.CacheHome, appName),
	)
}

// LoadConfig reads configuration rooted at the given directories.
// Precedence: environment (including .env files) over config.toml over defaults.
func LoadConfig(configDir, dataDir, cacheDir string) *Config {
	// .env never overrides variables already present in the environment
	for _, envFile := range []string{".env", filepath.Join(configDir, ".env")} {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "Warning: Error reading %s: %v\n", envFile, err)
		}
	}

	v := viper.New()

	v.SetDefault("provider", string(ProviderGemini))
	v.SetDefault("model", "gemini-1.5-flash")
	v.SetDefault("openai_model", "gpt-4o-mini")
	v.SetDefault("output_dir", filepath.Join(dataDir, "reports"))
	v.SetDefault("summary_style", string(StyleStructured))
	v.SetDefault("language", "")
	v.SetDefault("source_language", "")
	v.SetDefault("audio_format", string(FormatMP3))
	v.SetDefault("passthrough_optimized", false)
	v.SetDefault("summary_timeout", 2*time.Minute)
	v.SetDefault("transcribe_timeout", 10*time.Minute)
	v.SetDefault("requests_per_minute", 60)
	v.SetDefault("max_retries", 0)
	v.SetDefault("cookies_file", "")
	v.SetDefault("ledger", true)
	v.SetDefault("prompt", "") // if empty the built-in style templates are used
	v.SetDefault("addr", ":8080")
	v.SetDefault("verbose", false)
	v.SetDefault("quiet", false)
	v.SetDefault("mcp_log", false)

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	v.SetEnvPrefix("YTA")
	v.AutomaticEnv()

	// API keys use their conventional names
	_ = v.BindEnv("google_api_key", "GOOGLE_API_KEY")
	_ = v.BindEnv("openai_api_key", "OPENAI_API_KEY")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			fmt.Fprintf(os.Stderr, "Warning: Error reading config file: %v\n", err)
		}
	}

	config := &Config{
		Provider:             Provider(strings.ToLower(v.GetString("provider"))),
		Model:                v.GetString("model"),
		OpenAIModel:          v.GetString("openai_model"),
		GoogleAPIKey:         v.GetString("google_api_key"),
		OpenAIAPIKey:         v.GetString("openai_api_key"),
		OutputDir:            v.GetString("output_dir"),
		PassthroughOptimized: v.GetBool("passthrough_optimized"),
		SummaryTimeout:       v.GetDuration("summary_timeout"),
		TranscribeTimeout:    v.GetDuration("transcribe_timeout"),
		RequestsPerMinute:    v.GetInt("requests_per_minute"),
		MaxRetries:           v.GetInt("max_retries"),
		CookiesFile:          v.GetString("cookies_file"),
		LedgerEnabled:        v.GetBool("ledger"),
		Prompt:               v.GetString("prompt"),
		Addr:                 v.GetString("addr"),
		Verbose:              v.GetBool("verbose"),
		Quiet:                v.GetBool("quiet"),
		MCPLogEnabled:        v.GetBool("mcp_log"),

		ConfigDir:  configDir,
		DataDir:    dataDir,
		CacheDir:   cacheDir,
		TempDir:    filepath.Join(cacheDir, "tmp"),
		LedgerPath: filepath.Join(dataDir, "runs.db"),
	}

	var err error
	if config.SummaryStyle, err = ParseSummaryStyle(v.GetString("summary_style")); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v, using %s\n", err, StyleStructured)
		config.SummaryStyle = StyleStructured
	}
	if config.Language, err = ParseLanguage(v.GetString("language")); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v, using auto\n", err)
	}
	if config.SourceLanguage, err = ParseLanguage(v.GetString("source_language")); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v, using auto\n", err)
	}
	if config.AudioFormat, err = ParseAudioFormat(v.GetString("audio_format")); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v, using %s\n", err, FormatMP3)
		config.AudioFormat = FormatMP3
	}

	if config.Verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", v.ConfigFileUsed())
	}

	return config
}

// APIKey returns the key for the configured provider.
func (c *Config) APIKey() string {
	if c.Provider == ProviderOpenAI {
		return c.OpenAIAPIKey
	}
	return c.GoogleAPIKey
}

// SetAPIKey stores key for the configured provider.
func (c *Config) SetAPIKey(key string) {
	if c.Provider == ProviderOpenAI {
		c.OpenAIAPIKey = key
		return
	}
	c.GoogleAPIKey = key
}

// ModelName returns the model used by the configured provider.
func (c *Config) ModelName() string {
	if c.Provider == ProviderOpenAI {
		return c.OpenAIModel
	}
	return c.Model
}
