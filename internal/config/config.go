package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/classgrade/autograder/internal/logger"
	"github.com/classgrade/autograder/internal/validator"
)

type APIKeyPermissions struct {
	Grade bool `mapstructure:"grade" json:"grade"`
	Ping  bool `mapstructure:"ping"  json:"ping"`
}

type APIKey struct {
	Active      *bool             `mapstructure:"active"      json:"active"      validate:"required"`
	ID          string            `mapstructure:"id"          json:"id"          validate:"required"`
	Note        string            `mapstructure:"note"        json:"note"`
	Token       string            `mapstructure:"token"       json:"token"       validate:"required"`
	Permissions APIKeyPermissions `mapstructure:"permissions" json:"permissions"`
}

type AuthConfig struct {
	APIKeys []APIKey `mapstructure:"api_keys" validate:"dive"`
}

type SlogConfig struct {
	Level int `mapstructure:"level"`
}

type LoggingConfig struct {
	App     SlogConfig `mapstructure:"app"`
	UseOTLP bool       `mapstructure:"use_otlp"`
}

// Grading image contract for one language
type Profile struct {
	Name     string `mapstructure:"-"        yaml:"-"`
	Filename string `mapstructure:"filename" yaml:"filename" validate:"required,filename"`
	Image    string `mapstructure:"image"    yaml:"image"    validate:"required"`
	// go-enry language names that select this profile during detection
	Detect []string `mapstructure:"detect"   yaml:"detect"`
}

type GradingConfig struct {
	Languages         map[string]*Profile `mapstructure:"languages"           validate:"required,min=1,dive"`
	LanguagesFile     *string             `mapstructure:"languages_file"`
	ResultsSchema     *string             `mapstructure:"results_schema"`
	Runtime           string              `mapstructure:"runtime"             validate:"required"`
	Network           string              `mapstructure:"network"`
	Memory            string              `mapstructure:"memory"`
	CPUs              string              `mapstructure:"cpus"`
	DefaultLanguage   string              `mapstructure:"default_language"    validate:"required"`
	MaxConcurrentJobs int64               `mapstructure:"max_concurrent_jobs" validate:"required,min=1"`
	MaxResultsBytes   int64               `mapstructure:"max_results_bytes"   validate:"required,min=1"`
	AdmissionTimeout  time.Duration       `mapstructure:"admission_timeout"   validate:"min=0"`
	ContainerTimeout  time.Duration       `mapstructure:"container_timeout"   validate:"required"`
}

type MinioConfig struct {
	Endpoint        string `mapstructure:"endpoint"          validate:"required"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	Bucket          string `mapstructure:"bucket"            validate:"required"`
	SSLEnabled      bool   `mapstructure:"ssl_enabled"`
}

type AzureBlobConfig struct {
	AccountName string `mapstructure:"account_name" validate:"required"`
	AccountKey  string `mapstructure:"account_key"  validate:"required"`
	URL         string `mapstructure:"url"          validate:"required"`
	Container   string `mapstructure:"container"    validate:"required"`
}

type HTTPStorageConfig struct {
	BaseURL string `mapstructure:"base_url" validate:"required,url"`
	Token   string `mapstructure:"token"`
}

type DirStorageConfig struct {
	Root string `mapstructure:"root" validate:"required"`
}

type RetryConfig struct {
	MaxRetries uint64        `mapstructure:"max_retries"`
	BaseDelay  time.Duration `mapstructure:"base_delay"`
}

type StorageConfig struct {
	Minio   *MinioConfig       `mapstructure:"minio"   validate:"required_if=Backend minio"`
	Azure   *AzureBlobConfig   `mapstructure:"azure"   validate:"required_if=Backend azure"`
	HTTP    *HTTPStorageConfig `mapstructure:"http"    validate:"required_if=Backend http"`
	Dir     *DirStorageConfig  `mapstructure:"dir"     validate:"required_if=Backend dir"`
	Backend string             `mapstructure:"backend" validate:"required,oneof=minio azure http dir"`
	Retry   RetryConfig        `mapstructure:"retry"`
}

type DiagnosticsConfig struct {
	Bucket  string `mapstructure:"bucket"  validate:"required_if=Enabled true"`
	Enabled bool   `mapstructure:"enabled"`
}

type RateLimitConfig struct {
	RedisHost      string `mapstructure:"redis_host"`
	GradePerMinute int64  `mapstructure:"grade_per_minute"`
	FailOpen       bool   `mapstructure:"fail_open"`
}

type AzureQueueConfig struct {
	AccountName string `mapstructure:"account_name" validate:"required"`
	AccountKey  string `mapstructure:"account_key"  validate:"required"`
	URL         string `mapstructure:"url"          validate:"required"`
	Jobs        string `mapstructure:"jobs"         validate:"required"`
	Results     string `mapstructure:"results"      validate:"required"`
}

type QueueConfig struct {
	Azure      *AzureQueueConfig `mapstructure:"azure"`
	JobTimeout time.Duration     `mapstructure:"job_timeout"`
	Workers    int               `mapstructure:"workers"`
}

// See autograder.example.yaml for an example config
type Config struct {
	Logging              *LoggingConfig     `mapstructure:"logging"                validate:"required"`
	Grading              *GradingConfig     `mapstructure:"grading"                validate:"required"`
	Storage              *StorageConfig     `mapstructure:"storage"                validate:"required"`
	Diagnostics          *DiagnosticsConfig `mapstructure:"diagnostics"`
	Auth                 *AuthConfig        `mapstructure:"auth"`
	RateLimit            *RateLimitConfig   `mapstructure:"ratelimit"`
	Queue                *QueueConfig       `mapstructure:"queue"`
	TempDir              *string            `mapstructure:"temp_dir"`
	ListenAddress        string             `mapstructure:"listen_address"         validate:"required"`
	GracefulShutdownSecs int64              `mapstructure:"graceful_shutdown_secs"`
}

const (
	AppLogLevel              string = "logging.app.level"
	EnvPrefix                string = "autograder"
	UseOTLP                  string = "logging.use_otlp"
	GracefulShutdownSecs     string = "graceful_shutdown_secs"
	ListenAddress            string = "listen_address"
	TempDir                  string = "temp_dir"
	GradingRuntime           string = "grading.runtime"
	GradingNetwork           string = "grading.network"
	GradingMaxConcurrentJobs string = "grading.max_concurrent_jobs"
	GradingMaxResultsBytes   string = "grading.max_results_bytes"
	GradingAdmissionTimeout  string = "grading.admission_timeout"
	GradingContainerTimeout  string = "grading.container_timeout"
	GradingDefaultLanguage   string = "grading.default_language"
	GradingLanguages         string = "grading.languages"
	GradingLanguagesFile     string = "grading.languages_file"
	StorageBackend           string = "storage.backend"
	StorageRetryMaxRetries   string = "storage.retry.max_retries"
	StorageRetryBaseDelay    string = "storage.retry.base_delay"
	MinioAccessKeyID         string = "storage.minio.access_key_id"
	MinioSecretAccessKey     string = "storage.minio.secret_access_key" // #nosec
	MinioSSLEnabled          string = "storage.minio.ssl_enabled"
	AzureBlobAccountKey      string = "storage.azure.account_key"
	HTTPStorageToken         string = "storage.http.token" // #nosec
	DiagnosticsEnabled       string = "diagnostics.enabled"
	RedisHost                string = "ratelimit.redis_host"
	GradePerMinute           string = "ratelimit.grade_per_minute"
	RateLimitFailOpen        string = "ratelimit.fail_open"
	AzureQueueAccountKey     string = "queue.azure.account_key"
	QueueJobTimeout          string = "queue.job_timeout"
)

// Used when no profiles are configured at all, mirrors the single image the
// classroom app shipped with.
var defaultLanguages = map[string]any{
	"java": map[string]any{
		"filename": "Solution.java",
		"image":    "your-autograder-image:latest",
		"detect":   []string{"Java"},
	},
}

var configReady = false
var config Config

func GetConfig() (*Config, error) {
	if configReady {
		logger.Logger.Debug("returning already-loaded config")
		return &config, nil
	}
	logger.Logger.Info("loading config")

	v := viper.New()

	v.SetConfigName("autograder")

	v.AddConfigPath("/etc/autograder/")
	v.AddConfigPath(".")

	v.SetConfigType("yaml")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.AutomaticEnv()

	// workaround for https://github.com/spf13/viper/issues/761
	// bind env vars explicitly so they unmarshal into the nested struct
	for _, key := range []string{
		MinioAccessKeyID,
		MinioSecretAccessKey,
		AzureBlobAccountKey,
		HTTPStorageToken,
		AzureQueueAccountKey,
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}

	v.SetDefault(ListenAddress, "[::]:8080")
	v.SetDefault(AppLogLevel, int(slog.LevelDebug))
	v.SetDefault(UseOTLP, false)
	v.SetDefault(GracefulShutdownSecs, 30)
	v.SetDefault(TempDir, os.TempDir())

	v.SetDefault(GradingRuntime, "docker")
	v.SetDefault(GradingNetwork, "none")
	v.SetDefault(GradingMaxConcurrentJobs, 4)
	v.SetDefault(GradingMaxResultsBytes, 10<<20)
	v.SetDefault(GradingAdmissionTimeout, time.Duration(0))
	v.SetDefault(GradingContainerTimeout, 5*time.Minute)
	v.SetDefault(GradingDefaultLanguage, "java")
	v.SetDefault(GradingLanguages, defaultLanguages)

	v.SetDefault(StorageBackend, "minio")
	v.SetDefault(StorageRetryMaxRetries, 3)
	v.SetDefault(StorageRetryBaseDelay, 250*time.Millisecond)
	v.SetDefault(MinioSSLEnabled, true)

	v.SetDefault(DiagnosticsEnabled, false)

	v.SetDefault(RedisHost, "localhost")
	v.SetDefault(GradePerMinute, 0)
	v.SetDefault(RateLimitFailOpen, true)

	v.SetDefault(QueueJobTimeout, 10*time.Minute)

	err := v.ReadInConfig()
	if err != nil {
		// ignore config file not found to allow pure env config
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var loaded Config
	err = v.Unmarshal(&loaded)
	if err != nil {
		configReady = false
		return nil, err
	}

	if loaded.Grading != nil && loaded.Grading.LanguagesFile != nil {
		profiles, err := LoadProfiles(*loaded.Grading.LanguagesFile)
		if err != nil {
			configReady = false
			return nil, fmt.Errorf("failed to load languages file: %w", err)
		}
		loaded.Grading.Languages = profiles
	}

	err = loaded.validate()
	if err != nil {
		configReady = false
		return nil, err
	}

	config = loaded
	configReady = true
	return &config, nil
}

func (c *Config) validate() error {
	valid := validator.Create()
	if err := valid.Validate(c); err != nil {
		return err
	}

	for name, profile := range c.Grading.Languages {
		profile.Name = name
	}

	if _, ok := c.Grading.Languages[c.Grading.DefaultLanguage]; !ok {
		return fmt.Errorf(
			"default language %q has no profile in %s",
			c.Grading.DefaultLanguage,
			GradingLanguages,
		)
	}

	return nil
}

// Resolves a grading profile by language name. An empty name resolves to the default language.
func (g *GradingConfig) Profile(language string) (*Profile, bool) {
	if language == "" {
		language = g.DefaultLanguage
	}

	profile, ok := g.Languages[strings.ToLower(language)]
	return profile, ok
}

func (c *Config) TempDirOrDefault() string {
	if c.TempDir == nil || *c.TempDir == "" {
		return os.TempDir()
	}

	return *c.TempDir
}
