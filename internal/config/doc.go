// Package config handles configuration loading for bazaar-gateway.
//
// Configuration is loaded from YAML files with environment variable
// expansion (${VAR_NAME}), validation, and sensible defaults.
//
// # Configuration Sections
//
// Server settings:
//
//	server:
//	  http_addr: "0.0.0.0:8080"
//
// Database:
//
//	database:
//	  path: "/var/lib/bazaar/gateway.db"
//
// Authentication:
//
//	auth:
//	  jwt_secret: "${BAZAAR_JWT_SECRET}"
//	  token_ttl: "720h"
//
// Market policy:
//
//	market:
//	  overpayment: "refund"  # refund, reject
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
package config
