package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// AccountOperations counts account lifecycle operations by outcome.
var AccountOperations = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "loom_account_operations_total",
		Help: "Total number of account operations by operation and outcome",
	},
	[]string{"operation", "outcome"},
)

// LoginAttempts counts authentication attempts by outcome.
var LoginAttempts = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "loom_login_attempts_total",
		Help: "Total number of login attempts by outcome",
	},
	[]string{"outcome"},
)

// Database connection pool metrics
var (
	DBOpenConns = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "loom_db_open_connections",
			Help: "Number of open connections in the DB pool",
		},
	)

	DBIdleConns = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "loom_db_idle_connections",
			Help: "Number of idle connections in the DB pool",
		},
	)
)

func init() {
	prometheus.MustRegister(AccountOperations, LoginAttempts)
	prometheus.MustRegister(DBOpenConns, DBIdleConns)
}
