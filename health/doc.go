// Package health reports server reachability for probes and dashboards.
//
// ServerChecker pings a server through a transport.Client and adds the
// client's pool statistics to the result. An Aggregator runs several
// checkers concurrently under one timeout, and the HTTP handlers expose the
// outcome as liveness, readiness and detailed JSON endpoints.
//
//	agg := health.NewAggregator()
//	agg.Register("clickhouse", health.NewServerChecker("clickhouse", client,
//	    health.ServerCheckerConfig{SlowThreshold: 500 * time.Millisecond}))
//
//	mux := http.NewServeMux()
//	health.RegisterHandlers(mux, agg)
package health
