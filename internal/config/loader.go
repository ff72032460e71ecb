package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

const maxBatchUpdateRows = 100

var durationType = reflect.TypeOf(time.Duration(0))

// Load reads configuration from environment variables, applies defaults for
// unset values and validates the result.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := loadStruct(reflect.ValueOf(cfg).Elem()); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// loadStruct recursively populates struct fields from environment variables.
func loadStruct(v reflect.Value) error {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldVal := v.Field(i)

		if !fieldVal.CanSet() {
			continue
		}

		if field.Type.Kind() == reflect.Struct {
			if err := loadStruct(fieldVal); err != nil {
				return err
			}
			continue
		}

		envName := field.Tag.Get("env")
		if envName == "" {
			continue
		}

		value := lookup(envName, field.Tag.Get("envAlt"))
		if value == "" {
			if field.Tag.Get("required") == "true" {
				return fmt.Errorf("required environment variable %s is not set", envName)
			}
			value = field.Tag.Get("default")
		}
		if value == "" {
			continue
		}

		if err := setField(fieldVal, value); err != nil {
			return fmt.Errorf("invalid value for %s=%q: %w", envName, value, err)
		}
	}

	return nil
}

// lookup reads the primary variable, falling back to the alternate name.
func lookup(name, alt string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	if alt != "" {
		return os.Getenv(alt)
	}
	return ""
}

// setField sets a reflect.Value from a string based on its type.
func setField(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int64:
		if field.Type() == durationType {
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid duration: %w", err)
			}
			field.SetInt(int64(d))
			return nil
		}
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer: %w", err)
		}
		field.SetInt(n)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)

	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type: %s", field.Type().Elem().Kind())
		}
		field.Set(reflect.ValueOf(splitList(value)))

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}

	return nil
}

// splitList splits a comma-separated value, dropping blanks.
func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks the configuration and reports every failure at once.
func (c *Config) Validate() error {
	var errs []string
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Sprintf(format, args...))
	}

	// Server
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		add("SERVER_PORT (%d) must be 1-65535", c.Server.Port)
	}
	if c.Server.ReadTimeout < 0 {
		add("SERVER_READ_TIMEOUT must be non-negative")
	}
	if c.Server.ShutdownTimeout <= 0 {
		add("SERVER_SHUTDOWN_TIMEOUT must be positive")
	}

	// Database
	if c.Database.Enabled() {
		if c.Database.MaxConns <= 0 {
			add("DB_MAX_CONNS must be positive")
		}
		if c.Database.MinConns < 0 {
			add("DB_MIN_CONNS must be non-negative")
		}
		if c.Database.MaxConns < c.Database.MinConns {
			add("DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)", c.Database.MaxConns, c.Database.MinConns)
		}
	}

	// Security
	if c.Security.RequireAPIKey && len(c.Security.APIKeys) == 0 {
		add("REQUIRE_API_KEY is true but API_KEYS is empty; configure at least one API key or disable auth")
	}
	if c.Security.RunRateLimit <= 0 {
		add("RUN_RATE_LIMIT must be positive")
	}
	if c.Security.RunRateWindow <= 0 {
		add("RUN_RATE_WINDOW must be positive")
	}

	// Logging
	if !oneOf(strings.ToLower(c.Logging.Level), "debug", "info", "warn", "error") {
		add("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level)
	}
	if !oneOf(strings.ToLower(c.Logging.Format), "text", "json") {
		add("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format)
	}

	// Workbook
	if !oneOf(c.Workbook.Backend, "honeycode", "memory") {
		add("WORKBOOK_BACKEND (%q) must be one of: honeycode, memory", c.Workbook.Backend)
	}
	if c.Workbook.ID == "" {
		add("WORKBOOK_ID is required")
	}
	if c.Workbook.Backend == "memory" && c.Workbook.FixturePath == "" {
		add("WORKBOOK_FIXTURE is required when WORKBOOK_BACKEND=memory")
	}
	if c.Workbook.PageSize <= 0 || c.Workbook.PageSize > 100 {
		add("WORKBOOK_PAGE_SIZE (%d) must be 1-100", c.Workbook.PageSize)
	}

	// Tables
	for env, name := range map[string]string{
		"TABLE_MESSAGE_GROUPS":       c.Tables.MessageGroups,
		"TABLE_MESSAGES":             c.Tables.Messages,
		"TABLE_MESSAGE_TRANSLATIONS": c.Tables.MessageTranslations,
		"TABLE_FAQ":                  c.Tables.FAQ,
	} {
		if strings.TrimSpace(name) == "" {
			add("%s must not be empty", env)
		}
	}

	// Export
	if c.Export.GroupStatusFilter == "" {
		add("GROUP_STATUS_FILTER must not be empty")
	}
	if !oneOf(c.Export.EnabledMode, "lenient", "strict") {
		add("ENABLED_MODE (%q) must be one of: lenient, strict", c.Export.EnabledMode)
	}
	if len(c.Export.TargetLocales) == 0 {
		add("TARGET_LOCALES must list at least one locale")
	}
	if c.Export.AssembleConcurrency <= 0 {
		add("ASSEMBLE_CONCURRENCY must be positive")
	}
	if c.Export.RunTimeout <= 0 {
		add("RUN_TIMEOUT must be positive")
	}
	if c.Server.RequestTimeout <= c.Export.RunTimeout {
		add("SERVER_REQUEST_TIMEOUT (%s) must exceed RUN_TIMEOUT (%s) so manual runs are not cut off",
			c.Server.RequestTimeout, c.Export.RunTimeout)
	}

	// KV
	switch c.KV.Backend {
	case "dynamodb":
		if c.KV.Table == "" {
			add("KV_TABLE is required when KV_BACKEND=dynamodb")
		}
		if c.KV.PartitionKey == "" {
			add("KV_PARTITION_KEY must not be empty")
		}
	case "postgres":
		if !c.Database.Enabled() {
			add("DATABASE_URL is required when KV_BACKEND=postgres")
		}
	case "memory":
	default:
		add("KV_BACKEND (%q) must be one of: dynamodb, postgres, memory", c.KV.Backend)
	}

	// Archive
	switch c.Archive.Backend {
	case "s3":
		if c.Archive.Bucket == "" {
			add("ARCHIVE_BUCKET is required when ARCHIVE_BACKEND=s3")
		}
	case "memory":
	default:
		add("ARCHIVE_BACKEND (%q) must be one of: s3, memory", c.Archive.Backend)
	}
	if c.Archive.ObjectKey == "" {
		add("BULK_OBJECT_KEY must not be empty")
	}
	if c.Archive.BatchSize <= 0 || c.Archive.BatchSize > maxBatchUpdateRows {
		add("BULK_BATCH_SIZE (%d) must be 1-%d", c.Archive.BatchSize, maxBatchUpdateRows)
	}

	// Schedule
	if c.Schedule.KVInterval < 0 {
		add("KV_INTERVAL must be non-negative")
	}
	if c.Schedule.BulkInterval < 0 {
		add("BULK_INTERVAL must be non-negative")
	}

	if len(errs) > 0 {
		return errors.New("validation failed:\n  - " + strings.Join(errs, "\n  - "))
	}
	return nil
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

// String returns a representation safe for logging. The database URL and API
// keys are masked.
func (c *Config) String() string {
	db := "[UNSET]"
	if c.Database.Enabled() {
		db = "[MASKED]"
	}

	var b strings.Builder
	b.WriteString("Config{")
	fmt.Fprintf(&b, "Server: {Addr: %q}, ", c.Server.Addr())
	fmt.Fprintf(&b, "Database: {URL: %s, MaxConns: %d}, ", db, c.Database.MaxConns)
	fmt.Fprintf(&b, "Security: {RequireAPIKey: %v, APIKeys: %d}, ", c.Security.RequireAPIKey, len(c.Security.APIKeys))
	fmt.Fprintf(&b, "Workbook: {Backend: %q, ID: %q, Region: %q}, ", c.Workbook.Backend, c.Workbook.ID, c.Workbook.Region)
	fmt.Fprintf(&b, "Export: {Status: %q, EnabledMode: %q, Locales: %v}, ",
		c.Export.GroupStatusFilter, c.Export.EnabledMode, c.Export.TargetLocales)
	fmt.Fprintf(&b, "KV: {Backend: %q, Table: %q}, ", c.KV.Backend, c.KV.Table)
	fmt.Fprintf(&b, "Archive: {Backend: %q, Bucket: %q, Key: %q}, ", c.Archive.Backend, c.Archive.Bucket, c.Archive.ObjectKey)
	fmt.Fprintf(&b, "Schedule: {KV: %s, Bulk: %s}, ", c.Schedule.KVInterval, c.Schedule.BulkInterval)
	fmt.Fprintf(&b, "Logging: {Level: %q, Format: %q}", c.Logging.Level, c.Logging.Format)
	b.WriteString("}")
	return b.String()
}
