package health_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"

	"github.com/jonwraymond/chwire/health"
)

func ExampleNewCheckerFunc() {
	checker := health.NewCheckerFunc("replica", func(context.Context) health.Result {
		return health.Degraded("replication lag 12s")
	})

	result := checker.Check(context.Background())
	fmt.Println(checker.Name(), result.Status, result.Message)
	// Output:
	// replica degraded replication lag 12s
}

func ExampleAggregator_OverallStatus() {
	agg := health.NewAggregator()
	agg.Register("primary", health.NewCheckerFunc("primary", func(context.Context) health.Result {
		return health.Healthy("ping ok")
	}))
	agg.Register("replica", health.NewCheckerFunc("replica", func(context.Context) health.Result {
		return health.Unhealthy("ping failed", nil)
	}))

	results := agg.CheckAll(context.Background())
	fmt.Println(agg.OverallStatus(results))
	// Output:
	// unhealthy
}

func ExampleRegisterHandlers() {
	agg := health.NewAggregator()
	agg.Register("primary", health.NewCheckerFunc("primary", func(context.Context) health.Result {
		return health.Healthy("ping ok")
	}))

	mux := http.NewServeMux()
	health.RegisterHandlers(mux, agg)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	fmt.Println(rec.Code, rec.Body.String())
	// Output:
	// 200 OK
}
