package auth

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var authRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "admin_auth_requests_total",
		Help: "Admin endpoint authentication results",
	},
	[]string{"result"},
)

func recordAuth(result string) {
	authRequestsTotal.WithLabelValues(result).Inc()
}
