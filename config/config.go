package config

import (
	"log"
	"os"

	"github.com/spf13/viper"

	scan_errors "github.com/thefaftek-git/CA-Scanner-sub006/errors"
)

// Configuration stores all settings for a comparison run.
type Configuration struct {
	Scan   ScanConfiguration
	Report ReportConfiguration
	Audit  AuditConfiguration
	Log    LogConfiguration
}

// ScanConfiguration controls the comparison pipeline itself.
type ScanConfiguration struct {
	SourceDir                string
	ReferenceDir             string
	Strategy                 string
	CaseSensitive            bool
	CustomMappings           map[string]string
	EnableSemanticComparison bool
	EnableDetailedDiffs      bool
	Concurrency              int
}

// ReportConfiguration selects the rendering of the result object.
type ReportConfiguration struct {
	Format string // console, json, csv or html
	Output string // empty means stdout
}

// AuditConfiguration controls the per-run audit trail.
type AuditConfiguration struct {
	Enabled bool
	Path    string
}

type LogConfiguration struct {
	Level string
}

var config *Configuration

// InitConfig loads configuration from an optional yaml file plus
// environment variables, with documented defaults for every key.
func InitConfig() error {
	viper.AddConfigPath(".")
	viper.SetConfigName("ca-scanner")
	viper.SetConfigType("yaml")

	viper.SetEnvPrefix("CA_SCANNER")
	viper.AutomaticEnv()

	viper.SetDefault("scan.strategy", "ByName")
	viper.SetDefault("scan.caseSensitive", true)
	viper.SetDefault("scan.enableSemanticComparison", true)
	viper.SetDefault("scan.enableDetailedDiffs", true)
	viper.SetDefault("scan.concurrency", 8)
	viper.SetDefault("report.format", "console")
	viper.SetDefault("report.output", "")
	viper.SetDefault("audit.enabled", true)
	viper.SetDefault("audit.path", "ca-scanner-audit.jsonl")
	viper.SetDefault("log.level", "info")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("No config file found. Using default settings and environment variables.")
		} else {
			return err
		}
	}

	config = &Configuration{}
	if err := viper.Unmarshal(config); err != nil {
		return err
	}

	return nil
}

// GetConfig returns the loaded configuration
func GetConfig() *Configuration {
	return config
}

// GetString retrieves a string value from the configuration
func GetString(key string) string {
	return viper.GetString(key)
}

var validStrategies = map[string]bool{
	"ByIdentifier":  true,
	"ByName":        true,
	"CustomMapping": true,
}

var validFormats = map[string]bool{
	"console": true,
	"json":    true,
	"csv":     true,
	"html":    true,
}

// Validate enforces the conditions that are fatal to a whole run. Anything
// caught here is a caller mistake, not a property of the scanned inputs.
func (c *Configuration) Validate() error {
	if !validStrategies[c.Scan.Strategy] {
		return scan_errors.ErrInvalidStrategy
	}
	if c.Scan.Strategy == "CustomMapping" && len(c.Scan.CustomMappings) == 0 {
		return scan_errors.ErrMissingCustomMappings
	}
	if c.Scan.Concurrency <= 0 {
		return scan_errors.ErrInvalidConcurrency
	}
	if !validFormats[c.Report.Format] {
		return scan_errors.ErrUnsupportedReportFormat
	}
	if c.Scan.SourceDir != "" {
		if _, err := os.Stat(c.Scan.SourceDir); err != nil {
			return scan_errors.ErrSourceDirMissing
		}
	}
	if c.Scan.ReferenceDir != "" {
		if _, err := os.Stat(c.Scan.ReferenceDir); err != nil {
			return scan_errors.ErrReferenceDirMissing
		}
	}
	return nil
}
