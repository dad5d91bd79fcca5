package config

// Values mirrored from the default tags; TestConfigConstantsMatch keeps them in sync.
const (
	SupportedVersion = "1"

	DefaultVersion     = "1"
	DefaultServerHost  = "0.0.0.0"
	DefaultServerPort  = "8080"
	DefaultDBPath      = "./posts.db"
	DefaultBaseURL     = "http://localhost:8080"
	DefaultSyntaxTheme = "gruvbox"
	DefaultLogLevel    = "info"
	DefaultSubject     = "posts.changes"
)

const (
	StorageSQLite = "sqlite"
	StorageS3     = "s3"

	CompressionZstd = "zstd"
	CompressionGzip = "gzip"
	CompressionNone = "none"
)

const (
	EnvServerHost   = "POSTS_SERVER_HOST"
	EnvServerPort   = "POSTS_SERVER_PORT"
	EnvDatabasePath = "POSTS_DB_PATH"
	EnvBaseURL      = "POSTS_BASE_URL"
	EnvLogLevel     = "POSTS_LOG_LEVEL"
	EnvNATSURL      = "POSTS_NATS_URL"

	EnvS3AccessKeyID     = "S3_ACCESS_KEY_ID"
	EnvS3SecretAccessKey = "S3_SECRET_ACCESS_KEY"
)
