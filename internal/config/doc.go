// Package config provides centralized configuration management for crmexport.
// It handles loading configuration from multiple sources, validation, and
// resolution of the directories exports and logs are written to.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. YAML configuration file (crmexport.yaml, or $CRMEXPORT_CONFIG)
//	3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern CRMEXPORT_<SECTION>_<KEY>:
//
//	CRMEXPORT_SERVER_PORT=8080
//	CRMEXPORT_LOGGING_LEVEL=debug
//	CRMEXPORT_PATHS_EXPORTS_DIR=/var/lib/crmexport/exports
//	CRMEXPORT_EXPORT_LOCALE=en_GB
//
// # Path Management
//
// Paths resolves the configured directories against a base directory, which
// defaults to the executable location:
//
//	paths, err := cfg.Paths.Resolve()
//	exportPath := paths.GetExportPath("leads.csv")
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
