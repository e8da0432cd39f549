package config

import "time"

// Application constants
const (
	AppName    = "crmexport"
	AppVersion = "1.0.0"

	// EnvPrefix namespaces every environment variable, e.g. CRMEXPORT_SERVER_PORT
	EnvPrefix = "CRMEXPORT"

	// ConfigFileEnv names an explicit YAML config file
	ConfigFileEnv = "CRMEXPORT_CONFIG"

	// File Paths (relative to the base directory)
	DefaultDataDir    = "data"
	DefaultExportsDir = "data/exports"
	DefaultLogsDir    = "logs"
	DefaultLogFile    = "logs/crmexport.log"

	// Export defaults
	DefaultLocale        = "en_IN"
	DefaultReportTitle   = "Report"
	DefaultMaxBodyBytes  = 10 << 20
	DefaultExportTimeout = 30 * time.Second

	// Rate Limiting
	DefaultRateLimit = 100
	DefaultBurstSize = 50
)
