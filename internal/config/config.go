// Package config provides centralized configuration management for promptsync.
// It loads configuration from environment variables with defaults and
// validates every setting on startup so misconfiguration fails fast.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Security SecurityConfig
	Logging  LoggingConfig
	AWS      AWSConfig
	Workbook WorkbookConfig
	Tables   TablesConfig
	Export   ExportConfig
	KV       KVConfig
	Archive  ArchiveConfig
	Schedule ScheduleConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"90s"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests. Manual export
	// triggers run inside it, so it should exceed RUN_TIMEOUT (default: 75s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"75s"`
}

// DatabaseConfig holds PostgreSQL settings. The database is optional: it backs
// the run history and the postgres KV backend only.
type DatabaseConfig struct {
	URL             string        `env:"DATABASE_URL" envAlt:"DB_URL"`
	MaxConns        int           `env:"DB_MAX_CONNS" default:"10"`
	MinConns        int           `env:"DB_MIN_CONNS" default:"1"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// Enabled reports whether a database URL was configured.
func (c *DatabaseConfig) Enabled() bool {
	return c.URL != ""
}

// SecurityConfig holds API authentication settings.
type SecurityConfig struct {
	// RequireAPIKey protects the manual run endpoints (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted keys
	APIKeys []string `env:"API_KEYS"`

	// TrustedProxies lists CIDRs whose X-Forwarded-For headers are honored
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// RunRateLimit is manual run triggers per client and window (default: 10)
	RunRateLimit  int           `env:"RUN_RATE_LIMIT" default:"10"`
	RunRateWindow time.Duration `env:"RUN_RATE_WINDOW" default:"1m"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// AWSConfig holds the region used by the DynamoDB and S3 clients. Credentials
// come from the SDK's default chain.
type AWSConfig struct {
	Region string `env:"AWS_REGION" envAlt:"AWS_DEFAULT_REGION" default:"us-east-1"`
}

// WorkbookConfig holds settings for the upstream workbook.
type WorkbookConfig struct {
	// Backend selects the workbook client: honeycode or memory (default: honeycode)
	Backend string `env:"WORKBOOK_BACKEND" default:"honeycode"`

	// ID is the workbook identifier (required)
	ID string `env:"WORKBOOK_ID" required:"true"`

	// Region of the workbook API, which is only offered in us-west-2
	Region string `env:"WORKBOOK_REGION" default:"us-west-2"`

	// Endpoint overrides the API base URL
	Endpoint string `env:"WORKBOOK_ENDPOINT"`

	// FixturePath is the JSON fixture loaded by the memory backend
	FixturePath string `env:"WORKBOOK_FIXTURE"`

	// PageSize is the maxResults sent with row queries (default: 100)
	PageSize int `env:"WORKBOOK_PAGE_SIZE" default:"100"`
}

// TablesConfig holds the workbook table names.
type TablesConfig struct {
	MessageGroups       string `env:"TABLE_MESSAGE_GROUPS" default:"MessageGroups"`
	Messages            string `env:"TABLE_MESSAGES" default:"Messages"`
	MessageTranslations string `env:"TABLE_MESSAGE_TRANSLATIONS" default:"MessageTranslations"`
	FAQ                 string `env:"TABLE_FAQ" default:"FAQ"`
}

// ExportConfig holds the transform settings of the KV path.
type ExportConfig struct {
	// GroupStatusFilter is the status value a group needs to be exported (default: Live)
	GroupStatusFilter string `env:"GROUP_STATUS_FILTER" default:"Live"`

	// EnabledMode is how the Enabled cell is parsed: lenient or strict (default: lenient)
	EnabledMode string `env:"ENABLED_MODE" default:"lenient"`

	// TargetLocales receive the placeholder when their text is missing (default: en-US)
	TargetLocales []string `env:"TARGET_LOCALES" default:"en-US"`

	// EmptySpeech is the placeholder for missing text
	EmptySpeech string `env:"EMPTY_SPEECH" default:"<speak></speak>"`

	// SchemaStrict turns column name drift into a run failure (default: true)
	SchemaStrict bool `env:"SCHEMA_STRICT" default:"true"`

	// AssembleConcurrency bounds translation fetches per group (default: 4)
	AssembleConcurrency int `env:"ASSEMBLE_CONCURRENCY" default:"4"`

	// RunTimeout is the wall-clock budget of one export run (default: 1m)
	RunTimeout time.Duration `env:"RUN_TIMEOUT" default:"1m"`
}

// KVConfig holds the key-value sink settings.
type KVConfig struct {
	// Backend is dynamodb, postgres or memory (default: dynamodb)
	Backend      string `env:"KV_BACKEND" default:"dynamodb"`
	Table        string `env:"KV_TABLE" envAlt:"DDB_TABLE_NAME" default:"prompts"`
	PartitionKey string `env:"KV_PARTITION_KEY" default:"MsgGroup"`
	Endpoint     string `env:"KV_ENDPOINT"`
}

// ArchiveConfig holds the bulk archive settings.
type ArchiveConfig struct {
	// Backend is s3 or memory (default: s3)
	Backend      string `env:"ARCHIVE_BACKEND" default:"s3"`
	Bucket       string `env:"ARCHIVE_BUCKET" envAlt:"S3_BUCKET"`
	ObjectKey    string `env:"BULK_OBJECT_KEY" default:"csv/faq-list.csv"`
	ManifestKey  string `env:"BULK_MANIFEST_KEY" default:"manifest.json"`
	MarkerColumn string `env:"BULK_MARKER_COLUMN" default:"Published"`

	// BatchSize is rows per marker batch update, at most 100 (default: 100)
	BatchSize int `env:"BULK_BATCH_SIZE" default:"100"`

	Endpoint     string `env:"ARCHIVE_ENDPOINT"`
	UsePathStyle bool   `env:"ARCHIVE_PATH_STYLE" default:"false"`
}

// ScheduleConfig holds the export intervals. Zero disables a path.
type ScheduleConfig struct {
	KVInterval   time.Duration `env:"KV_INTERVAL" default:"1m"`
	BulkInterval time.Duration `env:"BULK_INTERVAL" default:"1m"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
