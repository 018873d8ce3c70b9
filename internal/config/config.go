package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ConfigPath is the default YAML config location.
const ConfigPath = "config.yaml"

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"

	ArchiveNone  = ""
	ArchiveFile  = "file"
	ArchiveMinio = "minio"
)

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Port     string `yaml:"port"`
	LogLevel string `yaml:"logLevel"`

	DatabaseDriver string `yaml:"databaseDriver"`
	DatabaseURL    string `yaml:"databaseURL"`

	GenerationProvider       string `yaml:"generationProvider"`
	OpenAIBaseURL            string `yaml:"openaiBaseURL"`
	OpenAIAPIKey             string `yaml:"-"`
	GeminiAPIKey             string `yaml:"-"`
	OpenAIModel              string `yaml:"openaiModel"`
	GenerationMaxTokens      int    `yaml:"generationMaxTokens"`
	GenerationTimeoutSeconds int    `yaml:"generationTimeoutSeconds"`

	ChunkSize        int   `yaml:"chunkSize"`
	TopK             int   `yaml:"topK"`
	MaxUploadBytes   int64 `yaml:"maxUploadBytes"`
	MaxQuestionChars int   `yaml:"maxQuestionChars"`

	RedisAddr                string   `yaml:"redisAddr"`
	RedisPassword            string   `yaml:"redisPassword"`
	TrustedProxyCIDRs        []string `yaml:"trustedProxyCidrs"`
	CORSAllowedOrigins       []string `yaml:"corsAllowedOrigins"`
	QARateLimitPerMinute     int      `yaml:"qaRateLimitPerMinute"`
	UploadRateLimitPerMinute int      `yaml:"uploadRateLimitPerMinute"`

	ArchiveType    string `yaml:"archiveType"`
	ArchivePath    string `yaml:"archivePath"`
	MinioEndpoint  string `yaml:"minioEndpoint"`
	MinioAccessKey string `yaml:"minioAccessKey"`
	MinioSecretKey string `yaml:"-"`
	MinioBucket    string `yaml:"minioBucket"`
	MinioUseSSL    bool   `yaml:"minioUseSSL"`
}

// Defaults returns the configuration used when no file is present.
func Defaults() FileConfig {
	return FileConfig{
		Port:                     "3000",
		LogLevel:                 "info",
		DatabaseDriver:           DriverSQLite,
		DatabaseURL:              "data/knowledge.db",
		GenerationProvider:       "openai",
		GenerationMaxTokens:      1024,
		GenerationTimeoutSeconds: 60,
		ChunkSize:                500,
		TopK:                     3,
		MaxUploadBytes:           10 << 20,
		MaxQuestionChars:         2000,
		ArchivePath:              "data/archive",
		MinioBucket:              "docqa",
	}
}

// LoadDotEnv loads .env style files into the environment without
// overriding variables that are already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", path, err)
		}
	}
	return nil
}

// Load reads config from path (defaults to config.yaml) on top of Defaults
// and applies environment overrides. A missing file is not an error.
func Load(path string) (FileConfig, error) {
	cfg := Defaults()
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}
	applyEnv(&cfg)
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *FileConfig) {
	setString(&cfg.Port, "PORT")
	setString(&cfg.LogLevel, "LOG_LEVEL")
	setString(&cfg.DatabaseDriver, "DATABASE_DRIVER")
	setString(&cfg.DatabaseURL, "DATABASE_URL")
	setString(&cfg.GenerationProvider, "GENERATION_PROVIDER")
	setString(&cfg.OpenAIBaseURL, "OPENAI_BASE_URL")
	setString(&cfg.OpenAIAPIKey, "OPENAI_API_KEY")
	setString(&cfg.GeminiAPIKey, "GEMINI_API_KEY")
	setString(&cfg.OpenAIModel, "OPENAI_MODEL")
	setString(&cfg.OpenAIModel, "GENERATION_MODEL")
	setInt(&cfg.GenerationMaxTokens, "GENERATION_MAX_TOKENS")
	setInt(&cfg.GenerationTimeoutSeconds, "GENERATION_TIMEOUT_SECONDS")
	setInt(&cfg.ChunkSize, "CHUNK_SIZE")
	setInt(&cfg.TopK, "TOP_K")
	if v := strings.TrimSpace(os.Getenv("MAX_UPLOAD_BYTES")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.MaxUploadBytes = n
		}
	}
	setInt(&cfg.MaxQuestionChars, "MAX_QUESTION_CHARS")
	setString(&cfg.RedisAddr, "REDIS_ADDR")
	setString(&cfg.RedisPassword, "REDIS_PASSWORD")
	if v := os.Getenv("TRUSTED_PROXY_CIDRS"); v != "" {
		cfg.TrustedProxyCIDRs = splitCSV(v)
	}
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		cfg.CORSAllowedOrigins = splitCSV(v)
	}
	setInt(&cfg.QARateLimitPerMinute, "QA_RATE_LIMIT_PER_MINUTE")
	setInt(&cfg.UploadRateLimitPerMinute, "UPLOAD_RATE_LIMIT_PER_MINUTE")
	setString(&cfg.ArchiveType, "ARCHIVE_TYPE")
	setString(&cfg.ArchivePath, "ARCHIVE_PATH")
	setString(&cfg.MinioEndpoint, "MINIO_ENDPOINT")
	setString(&cfg.MinioAccessKey, "MINIO_ACCESS_KEY")
	setString(&cfg.MinioSecretKey, "MINIO_SECRET_KEY")
	setString(&cfg.MinioBucket, "MINIO_BUCKET")
	if v := os.Getenv("MINIO_USE_SSL"); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			cfg.MinioUseSSL = b
		}
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = strings.TrimSpace(v)
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			*dst = n
		}
	}
}

func validateConfig(cfg FileConfig) error {
	if strings.TrimSpace(cfg.Port) == "" {
		return errors.New("config: port is required")
	}
	if n, err := strconv.Atoi(cfg.Port); err != nil || n <= 0 || n > 65535 {
		return fmt.Errorf("config: invalid port %q", cfg.Port)
	}
	switch cfg.DatabaseDriver {
	case DriverSQLite, DriverMemory:
	case DriverPostgres:
		if strings.TrimSpace(cfg.DatabaseURL) == "" {
			return errors.New("config: databaseURL is required for the postgres driver (set DATABASE_URL)")
		}
	default:
		return fmt.Errorf("config: unknown databaseDriver %q", cfg.DatabaseDriver)
	}
	switch cfg.GenerationProvider {
	case "openai", "ollama", "gemini":
	default:
		return fmt.Errorf("config: unknown generationProvider %q", cfg.GenerationProvider)
	}
	if cfg.GenerationTimeoutSeconds <= 0 {
		return errors.New("config: generationTimeoutSeconds must be > 0")
	}
	if cfg.GenerationMaxTokens <= 0 {
		return errors.New("config: generationMaxTokens must be > 0")
	}
	if cfg.ChunkSize <= 0 {
		return errors.New("config: chunkSize must be > 0")
	}
	if cfg.TopK <= 0 {
		return errors.New("config: topK must be > 0")
	}
	if cfg.MaxUploadBytes <= 0 {
		return errors.New("config: maxUploadBytes must be > 0")
	}
	if cfg.MaxQuestionChars <= 0 {
		return errors.New("config: maxQuestionChars must be > 0")
	}
	if cfg.QARateLimitPerMinute < 0 || cfg.UploadRateLimitPerMinute < 0 {
		return errors.New("config: rate limits must be >= 0")
	}
	if (cfg.QARateLimitPerMinute > 0 || cfg.UploadRateLimitPerMinute > 0) && strings.TrimSpace(cfg.RedisAddr) == "" {
		return errors.New("config: redisAddr is required when rate limiting is enabled")
	}
	switch cfg.ArchiveType {
	case ArchiveNone:
	case ArchiveFile:
		if strings.TrimSpace(cfg.ArchivePath) == "" {
			return errors.New("config: archivePath is required for the file archive")
		}
	case ArchiveMinio:
		if cfg.MinioEndpoint == "" || cfg.MinioBucket == "" {
			return errors.New("config: minioEndpoint and minioBucket are required for the minio archive")
		}
	default:
		return fmt.Errorf("config: unknown archiveType %q", cfg.ArchiveType)
	}
	return nil
}

// GenerationAPIKey returns the credential for the selected provider.
func (c FileConfig) GenerationAPIKey() string {
	if c.GenerationProvider == "gemini" {
		return c.GeminiAPIKey
	}
	return c.OpenAIAPIKey
}

// GenerationTimeout returns the per-answer model call bound.
func (c FileConfig) GenerationTimeout() time.Duration {
	return time.Duration(c.GenerationTimeoutSeconds) * time.Second
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
