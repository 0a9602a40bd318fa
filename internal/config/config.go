package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Search contains configuration for the video index used to resolve
// metadata-only episode references to a source URL.
type Search struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	MaxResults     int    `toml:"max_results"`
	DateBufferDays int    `toml:"date_buffer_days"`
}

// Providers contains configuration for the transcript provider chain.
type Providers struct {
	// Order lists provider names in attempt order. Unknown names are rejected
	// at validation time.
	Order                 []string `toml:"order"`
	AttemptTimeoutSeconds int      `toml:"attempt_timeout_seconds"`
	CaptionsLanguage      string   `toml:"captions_language"`
	InnertubeBaseURL      string   `toml:"innertube_base_url"`
}

// VideoInfo contains configuration for the metered third-party video-info API.
type VideoInfo struct {
	APIKey       string `toml:"api_key"`
	BaseURL      string `toml:"base_url"`
	MonthlyLimit int    `toml:"monthly_limit"`
}

// Speech contains configuration for the metered speech-to-text endpoint.
type Speech struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	MonthlyLimit   int    `toml:"monthly_limit"`
	MaxUploadBytes int64  `toml:"max_upload_bytes"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Budget contains the deployment-tier signal the budget resolver consumes.
type Budget struct {
	Tier string `toml:"tier"`
}

// LLM contains connection settings for the text-generation endpoint plus the
// summarizer's chunking knobs.
type LLM struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	MaxChunkChars  int    `toml:"max_chunk_chars"`
	MaxChunks      int    `toml:"max_chunks"`
}

// Debug contains configuration for the append-only debug event log.
type Debug struct {
	Enabled bool `toml:"enabled"`
	// Backend selects the object store: "filesystem" or "supabase".
	Backend     string `toml:"backend"`
	Bucket      string `toml:"bucket"`
	SupabaseURL string `toml:"supabase_url"`
	SupabaseKey string `toml:"supabase_key"`
}

// FFmpeg contains configuration for the media decoder subprocess.
type FFmpeg struct {
	Binary string `toml:"binary"`
}

// Config encapsulates all configuration values for podscribe.
//
// Configuration sections by subsystem:
//   - Paths: data and log directories
//   - Logging: log format and level
//   - Search: video index used by the candidate resolver
//   - Providers: transcript provider chain ordering and timeouts
//   - VideoInfo: metered third-party video-info API
//   - Speech: metered speech-to-text endpoint
//   - Budget: deployment-tier signal for processing budgets
//   - LLM: text-generation endpoint and chunked summarizer knobs
//   - Debug: debug event log enablement and object-store backend
//   - FFmpeg: media decoder binary
type Config struct {
	Paths     Paths     `toml:"paths"`
	Logging   Logging   `toml:"logging"`
	Search    Search    `toml:"search"`
	Providers Providers `toml:"providers"`
	VideoInfo VideoInfo `toml:"video_info"`
	Speech    Speech    `toml:"speech"`
	Budget    Budget    `toml:"budget"`
	LLM       LLM       `toml:"llm"`
	Debug     Debug     `toml:"debug"`
	FFmpeg    FFmpeg    `toml:"ffmpeg"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/podscribe/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	return defaultPath, false, nil
}

// WriteSample writes the embedded sample configuration to path, refusing to
// overwrite an existing file.
func WriteSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config file already exists at %s", expanded)
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("ensure config directory: %w", err)
	}
	return os.WriteFile(expanded, []byte(sampleConfig), 0o644)
}

// EnsureDirectories creates the data and log directories if missing.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("ensure directory %s: %w", dir, err)
		}
	}
	return nil
}

func (c *Config) normalize() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}

	if c.Search.APIKey == "" {
		if value, ok := os.LookupEnv("PODSCRIBE_SEARCH_API_KEY"); ok {
			c.Search.APIKey = value
		}
	}
	if c.LLM.APIKey == "" {
		if value, ok := os.LookupEnv("PODSCRIBE_LLM_API_KEY"); ok {
			c.LLM.APIKey = value
		}
	}

	c.Search.BaseURL = strings.TrimSpace(c.Search.BaseURL)
	if c.Search.BaseURL == "" {
		c.Search.BaseURL = defaultSearchBaseURL
	}
	if c.Search.MaxResults <= 0 {
		c.Search.MaxResults = defaultSearchMaxResults
	}
	if c.Search.DateBufferDays <= 0 {
		c.Search.DateBufferDays = defaultDateBufferDays
	}

	if len(c.Providers.Order) == 0 {
		c.Providers.Order = defaultProviderOrder()
	}
	if c.Providers.AttemptTimeoutSeconds <= 0 {
		c.Providers.AttemptTimeoutSeconds = defaultAttemptTimeoutSeconds
	}
	if strings.TrimSpace(c.Providers.CaptionsLanguage) == "" {
		c.Providers.CaptionsLanguage = defaultCaptionsLanguage
	}
	c.Providers.InnertubeBaseURL = strings.TrimSpace(c.Providers.InnertubeBaseURL)
	if c.Providers.InnertubeBaseURL == "" {
		c.Providers.InnertubeBaseURL = defaultInnertubeBaseURL
	}

	c.VideoInfo.BaseURL = strings.TrimSpace(c.VideoInfo.BaseURL)
	if c.VideoInfo.MonthlyLimit <= 0 {
		c.VideoInfo.MonthlyLimit = defaultVideoInfoMonthlyLimit
	}

	c.Speech.BaseURL = strings.TrimSpace(c.Speech.BaseURL)
	if c.Speech.BaseURL == "" {
		c.Speech.BaseURL = defaultSpeechBaseURL
	}
	if strings.TrimSpace(c.Speech.Model) == "" {
		c.Speech.Model = defaultSpeechModel
	}
	if c.Speech.MonthlyLimit <= 0 {
		c.Speech.MonthlyLimit = defaultSpeechMonthlyLimit
	}
	if c.Speech.MaxUploadBytes <= 0 {
		c.Speech.MaxUploadBytes = defaultSpeechMaxUploadBytes
	}
	if c.Speech.TimeoutSeconds <= 0 {
		c.Speech.TimeoutSeconds = defaultSpeechTimeoutSeconds
	}

	c.Budget.Tier = strings.TrimSpace(c.Budget.Tier)

	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	if strings.TrimSpace(c.LLM.Model) == "" {
		c.LLM.Model = defaultLLMModel
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
	if c.LLM.MaxChunkChars <= 0 {
		c.LLM.MaxChunkChars = defaultMaxChunkChars
	}
	if c.LLM.MaxChunks <= 0 {
		c.LLM.MaxChunks = defaultMaxChunks
	}

	c.Debug.Backend = strings.ToLower(strings.TrimSpace(c.Debug.Backend))
	if c.Debug.Backend == "" {
		c.Debug.Backend = defaultDebugBackend
	}
	if strings.TrimSpace(c.Debug.Bucket) == "" {
		c.Debug.Bucket = defaultDebugBucket
	}

	c.FFmpeg.Binary = strings.TrimSpace(c.FFmpeg.Binary)
	if c.FFmpeg.Binary == "" {
		c.FFmpeg.Binary = defaultFFmpegBinary
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func expandPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", nil
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if path == "~" {
			return home, nil
		}
		return filepath.Join(home, path[2:]), nil
	}
	return filepath.Abs(path)
}
