package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

var configLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	configLogger = l
}

// Config represents the complete configuration structure
type Config struct {
	Version   string          `yaml:"version" default:"1"`
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Storage   StorageConfig   `yaml:"storage"`
	S3        S3Config        `yaml:"s3"`
	Client    ClientConfig    `yaml:"client"`
	Render    RenderConfig    `yaml:"render"`
	Messaging MessagingConfig `yaml:"messaging"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type ServerConfig struct {
	Host string `yaml:"host" default:"0.0.0.0"`
	Port string `yaml:"port" default:"8080"`
}

// DatabaseConfig configures the sqlite backend. WatchInterval is how often
// changes made by other processes are picked up; zero disables it.
type DatabaseConfig struct {
	Path          string        `yaml:"path" default:"./posts.db"`
	WatchInterval time.Duration `yaml:"watch_interval" default:"10s"`
}

type StorageConfig struct {
	Backend     string `yaml:"backend" default:"sqlite"`
	Compression string `yaml:"compression" default:"zstd"`
}

// S3Config describes the bucket used by the s3 storage backend.
// Credentials come from the environment, never from the file.
type S3Config struct {
	Bucket   string `yaml:"bucket" default:"posts"`
	Endpoint string `yaml:"endpoint" default:""`
	Region   string `yaml:"region" default:"auto"`
	Prefix   string `yaml:"prefix" default:"posts/"`
}

type ClientConfig struct {
	BaseURL string        `yaml:"base_url" default:"http://localhost:8080"`
	Timeout time.Duration `yaml:"timeout" default:"0s"`
}

type RenderConfig struct {
	SyntaxTheme string `yaml:"syntax_theme" default:"gruvbox"`
}

// MessagingConfig enables publishing post changes to NATS. An empty URL disables it.
type MessagingConfig struct {
	NATSURL string `yaml:"nats_url" default:""`
	Subject string `yaml:"subject" default:"posts.changes"`
}

type LoggingConfig struct {
	Level string `yaml:"level" default:"info"`
}

var AppConfig *Config

// LoadConfig reads the YAML file at path on top of the defaults and then
// applies environment overrides. A missing file is not an error.
func LoadConfig(path string) error {
	config := &Config{}

	// Apply default values first
	applyDefaults(config)

	data, err := os.ReadFile(path)
	if err != nil {
		configLogger.Info().Str("path", path).Msg("Config file not found, using defaults")
	} else if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnv(config)

	if err := config.Validate(); err != nil {
		return err
	}

	AppConfig = config
	return nil
}

// Validate rejects values the rest of the application cannot act on.
func (c *Config) Validate() error {
	if c.Version != SupportedVersion {
		return fmt.Errorf("unsupported configuration version %q (want %q)", c.Version, SupportedVersion)
	}

	switch c.Storage.Backend {
	case StorageSQLite, StorageS3:
	default:
		return fmt.Errorf("unsupported storage backend %q", c.Storage.Backend)
	}

	switch c.Storage.Compression {
	case CompressionZstd, CompressionGzip, CompressionNone:
	default:
		return fmt.Errorf("unsupported compression %q", c.Storage.Compression)
	}

	if c.Storage.Backend == StorageS3 && c.S3.Bucket == "" {
		return fmt.Errorf("s3 storage requires a bucket")
	}

	if c.Messaging.NATSURL != "" && c.Messaging.Subject == "" {
		return fmt.Errorf("messaging requires a subject when nats_url is set")
	}

	if c.Database.WatchInterval < 0 {
		return fmt.Errorf("database watch interval must not be negative, got %s", c.Database.WatchInterval)
	}

	if c.Client.Timeout < 0 {
		return fmt.Errorf("client timeout must not be negative, got %s", c.Client.Timeout)
	}

	return nil
}

// ServerAddr is the listen address of the API server.
func (c *Config) ServerAddr() string {
	return c.Server.Host + ":" + c.Server.Port
}

func applyEnv(config *Config) {
	overrides := []struct {
		env    string
		target *string
	}{
		{EnvServerHost, &config.Server.Host},
		{EnvServerPort, &config.Server.Port},
		{EnvDatabasePath, &config.Database.Path},
		{EnvBaseURL, &config.Client.BaseURL},
		{EnvLogLevel, &config.Logging.Level},
		{EnvNATSURL, &config.Messaging.NATSURL},
	}

	for _, o := range overrides {
		if v, ok := os.LookupEnv(o.env); ok && v != "" {
			configLogger.Debug().Str("env", o.env).Msg("Applying environment override")
			*o.target = v
		}
	}
}

func ApplyDefaults(config interface{}) {
	applyDefaults(config)
}

func applyDefaults(config interface{}) {
	v := reflect.ValueOf(config)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}

	if v.Kind() != reflect.Struct {
		return
	}

	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		if !field.IsValid() || !field.CanSet() {
			continue
		}

		// Recursively apply defaults to nested structs
		if field.Kind() == reflect.Struct {
			applyDefaults(field.Addr().Interface())
			continue
		}

		defaultValue := fieldType.Tag.Get("default")
		if defaultValue == "" {
			continue
		}

		switch field.Kind() {
		case reflect.String:
			field.SetString(defaultValue)
		case reflect.Bool:
			if val, err := strconv.ParseBool(defaultValue); err == nil {
				field.SetBool(val)
			}
		case reflect.Int:
			if val, err := strconv.ParseInt(defaultValue, 10, 64); err == nil {
				field.SetInt(val)
			}
		case reflect.Int64:
			if field.Type() == reflect.TypeOf(time.Duration(0)) {
				if val, err := time.ParseDuration(defaultValue); err == nil {
					field.SetInt(int64(val))
				}
			} else if val, err := strconv.ParseInt(defaultValue, 10, 64); err == nil {
				field.SetInt(val)
			}
		case reflect.Float64:
			if val, err := strconv.ParseFloat(defaultValue, 64); err == nil {
				field.SetFloat(val)
			}
		case reflect.Slice:
			if field.Len() == 0 && field.Type().Elem().Kind() == reflect.String {
				parts := strings.Split(defaultValue, ",")
				slice := reflect.MakeSlice(field.Type(), len(parts), len(parts))
				for j, part := range parts {
					slice.Index(j).SetString(strings.TrimSpace(part))
				}
				field.Set(slice)
			}
		default:
			configLogger.Warn().
				Str("field_name", fieldType.Name).
				Str("field_type", field.Kind().String()).
				Msg("Unsupported field type for default value")
		}
	}
}
