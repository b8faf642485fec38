package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// HTTP метрики
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "http_request_duration_seconds",
			Help: "Duration of HTTP requests in seconds",
		},
		[]string{"method", "path"},
	)
	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Current number of HTTP requests in flight",
		},
	)

	// Claim метрики
	ClaimsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "offer_claims_total",
			Help: "Claim attempts by result code",
		},
		[]string{"claim_type", "result"},
	)
	TokenCollisionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "claim_token_collisions_total",
			Help: "Generated claim tokens that were already taken",
		},
	)
	StoreRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_retries_total",
			Help: "Store operations retried after a transient error",
		},
		[]string{"operation"},
	)

	// Redemption метрики
	VerificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redemption_verifications_total",
			Help: "Verification attempts by result code",
		},
		[]string{"result"},
	)
	RedemptionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redemptions_total",
			Help: "Redemption attempts by result code",
		},
		[]string{"result"},
	)
)

func InitMetrics() {
	// Регистрация HTTP метрик
	prometheus.MustRegister(HTTPRequestsTotal)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(HTTPRequestsInFlight)

	// Регистрация метрик claim/redemption
	prometheus.MustRegister(ClaimsTotal)
	prometheus.MustRegister(TokenCollisionsTotal)
	prometheus.MustRegister(StoreRetriesTotal)
	prometheus.MustRegister(VerificationsTotal)
	prometheus.MustRegister(RedemptionsTotal)

	// Стандартные метрики Go
	prometheus.MustRegister(prometheus.NewGoCollector())
	prometheus.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
}

// Result - метка result для счетчиков: код ошибки или "ok"
func Result(code string) string {
	if code == "" {
		return "ok"
	}
	return code
}
