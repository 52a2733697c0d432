package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Счётчик операций с токенами по классам
	TokenOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "token_operations_total",
			Help: "Total number of token sign/verify operations",
		},
		[]string{"class", "operation", "status"},
	)
)

func InitMetrics() {
	prometheus.MustRegister(TokenOperations)
}
