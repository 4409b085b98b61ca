package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// AuthOperations counts backend operations by outcome, labelled with the
// error kind on failure ("ok" on success).
var AuthOperations = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "auth_operations_total",
		Help: "Authentication operations by operation and result.",
	},
	[]string{"operation", "result"},
)

// HTTPRequests counts handled HTTP requests by route and status class.
var HTTPRequests = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "HTTP requests by route and status code.",
	},
	[]string{"route", "status"},
)
