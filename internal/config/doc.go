// Package config provides configuration loading for vilora-gateway.
//
// # Configuration Format
//
// Configuration is read from a YAML file:
//
//	server:
//	  http_addr: "0.0.0.0:8080"
//	  shutdown_timeout: "10s"
//
//	database:
//	  path: "./vilora.db"
//
//	auth:
//	  jwt_secret: "${VILORA_JWT_SECRET}"
//
//	providers:
//	  gemini:
//	    api_key: "${GEMINI_API_KEY}"
//	    model: "gemini-1.5-flash"
//	  weather:
//	    api_key: "${OPENWEATHER_API_KEY}"
//	  news:
//	    api_key: "${NEWS_API_KEY}"
//
//	location:
//	  configured: true
//	  latitude: 34.0522
//	  longitude: -118.2437
//
//	logging:
//	  level: "info"
//	  format: "text"
//
//	rate_limit:
//	  enabled: true
//	  rps: 10
//	  burst: 20
//
// # Environment Variable Expansion
//
// Values in the format ${VAR_NAME} are replaced with the corresponding
// environment variable before parsing. Unset variables expand to the
// empty string, which leaves the matching provider unconfigured.
//
// # Provider Credentials
//
// Each provider credential is optional. A missing credential disables
// that capability rather than failing startup; requests that need it
// are rejected with a failed-precondition error.
package config
