// Package config provides centralized configuration management for goce.
// It handles loading configuration from multiple sources, validation, and
// provides a type-safe API for accessing configuration values throughout
// the application.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. A goce.yaml configuration file
//	3. Default values (lowest priority)
//
// A .env file in the working directory is loaded best-effort before
// environment processing, so entries there behave like regular
// environment variables.
//
// # Environment Variables
//
// All environment variables follow the pattern GOCE_* for namespacing:
//
//	GOCE_BASE_URL=https://www.ice.com
//	GOCE_HTTP_TIMEOUT=30s
//	GOCE_HTTP_REQUESTS_PER_SECOND=2
//	GOCE_LOGGING_LEVEL=debug
//	GOCE_OUTPUT_BASE_DIR=reports
//
// # Validation
//
// All configuration is validated at load time to ensure:
//
//	- Required fields are present
//	- Values are within acceptable ranges
//	- URLs are properly formatted
//
// # Usage
//
// Load configuration at application startup:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
