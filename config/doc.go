// Package config loads a client configuration from YAML and builds a client
// from it.
//
//	url: https://clickhouse.internal:8443
//	database: analytics
//	username: reader
//	password: ${CLICKHOUSE_PASSWORD}
//	request_timeout: 10000
//	keep_alive:
//	  enable: true
//	  idle_socket_ttl: 2500
//	log:
//	  level: info
//
// Durations are milliseconds. Unknown keys are rejected. Credential values
// and header values may reference secrets, see package secret.
package config
