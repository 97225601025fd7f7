package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/agentstation/sevexport/internal/sink"
	"github.com/agentstation/sevexport/pkg/constants"
	"github.com/agentstation/sevexport/pkg/errors"
)

// Config holds the application configuration loaded from various sources
// including config files, environment variables, and .env files.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool
	Format  string

	// Config file
	ConfigFile string

	// API access
	Token      string
	BaseURL    string
	AuthScheme string
	RateLimit  float64
	Timeout    time.Duration

	// Export layout
	Folder        string
	EndpointsFile string

	// Optional bucket mirror
	S3 S3Config

	// Logging configuration. LogLevel is only set by --log-level or the
	// config file; EnvLogLevel comes from LOG_LEVEL.
	LogLevel    string
	EnvLogLevel string
	LogFormat   string
	LogOutput   string
}

// S3Config describes the bucket an export is mirrored to.
type S3Config struct {
	Endpoint        string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	Prefix          string
	UseSSL          bool
}

// Enabled reports whether a bucket mirror was configured.
func (c S3Config) Enabled() bool {
	return c.Bucket != ""
}

// BucketConfig converts to the sink configuration. An empty prefix is
// replaced by the name of the export folder.
func (c S3Config) BucketConfig(exportRoot string) sink.BucketConfig {
	prefix := c.Prefix
	if prefix == "" {
		prefix = filepath.Base(exportRoot)
	}
	return sink.BucketConfig{
		Endpoint:        c.Endpoint,
		AccessKeyID:     c.AccessKeyID,
		SecretAccessKey: c.SecretAccessKey,
		Bucket:          c.Bucket,
		Region:          c.Region,
		Prefix:          prefix,
		UseSSL:          c.UseSSL,
	}
}

// envBindings maps configuration keys to the environment variables that set them.
var envBindings = map[string][]string{
	"token":         {"SEVDESK_API_TOKEN", "SEVDESK_TOKEN"},
	"base-url":      {"SEVDESK_BASE_URL"},
	"auth-scheme":   {"SEVDESK_AUTH_SCHEME"},
	"rate-limit":    {"SEVEXPORT_RATE_LIMIT"},
	"timeout":       {"SEVEXPORT_TIMEOUT"},
	"folder":        {"SEVEXPORT_FOLDER"},
	"endpoints":     {"SEVEXPORT_ENDPOINTS"},
	"s3-endpoint":   {"SEVEXPORT_S3_ENDPOINT"},
	"s3-bucket":     {"SEVEXPORT_S3_BUCKET"},
	"s3-access-key": {"SEVEXPORT_S3_ACCESS_KEY", "AWS_ACCESS_KEY_ID"},
	"s3-secret-key": {"SEVEXPORT_S3_SECRET_KEY", "AWS_SECRET_ACCESS_KEY"},
	"s3-region":     {"SEVEXPORT_S3_REGION", "AWS_REGION"},
	"s3-prefix":     {"SEVEXPORT_S3_PREFIX"},
	"s3-ssl":        {"SEVEXPORT_S3_SSL"},
	"no-color":      {"NO_COLOR"},
	"log-format":    {"LOG_FORMAT"},
	"log-output":    {"LOG_OUTPUT"},
}

// LoadConfig loads configuration from all sources in order of precedence:
//  1. Command-line flags of cmd (may be nil)
//  2. Environment variables
//  3. .env files
//  4. Config file (--config, or ~/.sevexport.yaml)
//  5. Defaults
func LoadConfig(cmd *cobra.Command) (*Config, error) {
	// .env files first so viper sees their variables
	loadEnvFiles()

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	setDefaults(v)

	for key, envs := range envBindings {
		args := append([]string{key}, envs...)
		if err := v.BindEnv(args...); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to bind environment for %s: %v\n", key, err)
		}
	}

	if cmd != nil {
		if err := v.BindPFlags(cmd.Flags()); err != nil {
			return nil, errors.NewConfigError("flags", "failed to bind flags", err)
		}
	}

	if configFile := v.GetString("config"); configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.NewConfigError("config", fmt.Sprintf("failed to read %s", configFile), err)
		}
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(".sevexport")
		// a missing default config file is fine
		_ = v.ReadInConfig()
	}

	config := &Config{
		Verbose:    v.GetBool("verbose"),
		Quiet:      v.GetBool("quiet"),
		NoColor:    v.GetBool("no-color"),
		Format:     v.GetString("format"),
		ConfigFile: v.ConfigFileUsed(),

		Token:      strings.TrimSpace(v.GetString("token")),
		BaseURL:    strings.TrimRight(v.GetString("base-url"), "/"),
		AuthScheme: v.GetString("auth-scheme"),
		RateLimit:  v.GetFloat64("rate-limit"),
		Timeout:    v.GetDuration("timeout"),

		Folder:        v.GetString("folder"),
		EndpointsFile: v.GetString("endpoints"),

		S3: S3Config{
			Endpoint:        v.GetString("s3-endpoint"),
			Bucket:          v.GetString("s3-bucket"),
			AccessKeyID:     v.GetString("s3-access-key"),
			SecretAccessKey: v.GetString("s3-secret-key"),
			Region:          v.GetString("s3-region"),
			Prefix:          v.GetString("s3-prefix"),
			UseSSL:          v.GetBool("s3-ssl"),
		},

		LogLevel:    v.GetString("log-level"),
		EnvLogLevel: os.Getenv("LOG_LEVEL"),
		LogFormat:   v.GetString("log-format"),
		LogOutput:   v.GetString("log-output"),
	}

	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("base-url", constants.DefaultBaseURL)
	v.SetDefault("auth-scheme", "header")
	v.SetDefault("rate-limit", constants.DefaultRateLimit)
	v.SetDefault("timeout", constants.DefaultHTTPTimeout)
	v.SetDefault("folder", ".")
	v.SetDefault("s3-ssl", true)
	v.SetDefault("log-format", "auto")
	v.SetDefault("log-output", "stderr")
}

// loadEnvFiles loads environment variables from .env files.
// Variables already set in the environment win.
func loadEnvFiles() {
	for _, envFile := range []string{".env", ".env.local"} {
		_ = godotenv.Load(envFile)
	}
}
