// Package config handles configuration loading for botbridge.
//
// # Overview
//
// Configuration is loaded from YAML or TOML files with environment variable expansion.
// The format is chosen by file extension: ".toml" is TOML, anything else is YAML.
// The package provides validation and sensible defaults.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from BOTBRIDGE_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/botbridge/config.yaml
//  3. ~/.config/botbridge/config.yaml
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	push:
//	  token: "${LP_BEARER_TOKEN}"
//
// Unset variables expand to the empty string.
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	push:
//	  heartbeat_interval: "30s"
//	  request_timeout: "10s"
//	  dedupe_ttl: "5m"
//
// # Example
//
//	server:
//	  http_addr: ":3978"
//	database:
//	  path: "~/.local/share/botbridge/state.db"
//	auth:
//	  jwt_secret: "${BOTBRIDGE_JWT_SECRET}"
//	turn:
//	  enabled: true
//	  path: "/api/messages"
//	push:
//	  enabled: true
//	  url: "wss://va.agentvep.liveperson.net/ws_api/account/{account_id}/messaging/brand/{account_id}?v=2"
//	  account_id: "123"
//	  agent_id: "123.456"
//	  token: "${LP_BEARER_TOKEN}"
//	  ordering: "insertion"
//	  greeting: true
//	logging:
//	  level: "info"
//	  format: "text"
//	metrics:
//	  enabled: true
//
// At least one of turn.enabled and push.enabled must be true.
package config
