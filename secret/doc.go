// Package secret resolves credential values that point elsewhere instead of
// holding the secret itself.
//
// A value is first expanded with ExpandEnvStrict (${VAR}), then any
// "secretref:<provider>:<ref>" reference is resolved by the named provider:
//
//	password: ${CLICKHOUSE_PASSWORD}
//	password: secretref:env:CLICKHOUSE_PASSWORD
//	access_token: secretref:file:/run/secrets/clickhouse_token
//
// References may also appear inline, e.g. "Bearer secretref:env:TOKEN".
package secret
