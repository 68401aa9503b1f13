package config

import (
	"os"
	"strconv"

	"tabio/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Excel  ExcelConfig
	SQLite SQLiteConfig
	HDF5   HDF5Config
	Paths  PathConfig
	Log    LogConfig
	Strict bool
}

// ExcelConfig holds the large-file and chunked-export thresholds
type ExcelConfig struct {
	LargeFileBytes     int64 // at or above this size the first sheet goes through CSV
	XLSXChunkThreshold int   // row count at which .xlsx output is split
	XLSXChunkRows      int   // maximum rows per .xlsx part
	XLSChunkThreshold  int   // row count at which .xls output is split
	XLSChunkRows       int   // maximum rows per .xls part
	ExportWorkers      int   // parts written concurrently
}

// SQLiteConfig holds SQLite settings
type SQLiteConfig struct {
	Table string
}

// HDF5Config holds HDF5 settings
type HDF5Config struct {
	CompressionLevel int
}

// PathConfig holds file system paths
type PathConfig struct {
	TempDir string
}

// LogConfig holds logging settings
type LogConfig struct {
	Level string
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Excel: ExcelConfig{
			LargeFileBytes:     100_000_000,
			XLSXChunkThreshold: 1_000_000,
			XLSXChunkRows:      750_000,
			XLSChunkThreshold:  65_000,
			XLSChunkRows:       60_000,
			ExportWorkers:      2,
		},
		SQLite: SQLiteConfig{Table: "db"},
		HDF5:   HDF5Config{CompressionLevel: 9},
		Paths:  PathConfig{TempDir: os.TempDir()},
		Log:    LogConfig{Level: "INFO"},
	}
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	def := Default()
	config := &Config{
		Excel:  loadExcelConfig(def.Excel),
		SQLite: SQLiteConfig{Table: getEnvOrDefault("TABIO_SQLITE_TABLE", def.SQLite.Table)},
		HDF5:   HDF5Config{CompressionLevel: getEnvIntOrDefault("TABIO_COMPRESSION_LEVEL", def.HDF5.CompressionLevel)},
		Paths:  PathConfig{TempDir: getEnvOrDefault("TABIO_TEMP_DIR", def.Paths.TempDir)},
		Log:    LogConfig{Level: getEnvOrDefault("LOG_LEVEL", def.Log.Level)},
		Strict: getEnvBoolOrDefault("TABIO_STRICT", false),
	}

	if err := Validate(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func loadExcelConfig(def ExcelConfig) ExcelConfig {
	return ExcelConfig{
		LargeFileBytes:     getEnvInt64OrDefault("TABIO_EXCEL_LARGE_FILE_BYTES", def.LargeFileBytes),
		XLSXChunkThreshold: getEnvIntOrDefault("TABIO_XLSX_CHUNK_THRESHOLD", def.XLSXChunkThreshold),
		XLSXChunkRows:      getEnvIntOrDefault("TABIO_XLSX_CHUNK_ROWS", def.XLSXChunkRows),
		XLSChunkThreshold:  getEnvIntOrDefault("TABIO_XLS_CHUNK_THRESHOLD", def.XLSChunkThreshold),
		XLSChunkRows:       getEnvIntOrDefault("TABIO_XLS_CHUNK_ROWS", def.XLSChunkRows),
		ExportWorkers:      getEnvIntOrDefault("TABIO_EXPORT_WORKERS", def.ExportWorkers),
	}
}

// Validate checks the invariants the codecs rely on
func Validate(config *Config) error {
	if config.Excel.LargeFileBytes <= 0 {
		return errors.ConfigInvalid("large Excel file threshold must be positive")
	}
	if config.Excel.XLSXChunkRows <= 0 || config.Excel.XLSChunkRows <= 0 {
		return errors.ConfigInvalid("Excel chunk sizes must be positive")
	}
	if config.Excel.XLSXChunkRows > 1_048_575 {
		return errors.ConfigInvalid("xlsx chunk size exceeds the sheet row limit")
	}
	if config.Excel.XLSChunkRows > 65_535 {
		return errors.ConfigInvalid("xls chunk size exceeds the sheet row limit")
	}
	if config.Excel.ExportWorkers <= 0 {
		return errors.ConfigInvalid("export workers must be positive")
	}
	if config.SQLite.Table == "" {
		return errors.ConfigInvalid("SQLite table name is required")
	}
	if config.HDF5.CompressionLevel < 0 || config.HDF5.CompressionLevel > 9 {
		return errors.ConfigInvalid("compression level must be between 0 and 9")
	}
	if config.Paths.TempDir == "" {
		return errors.ConfigInvalid("temp directory is required")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64OrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
