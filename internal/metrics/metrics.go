package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskboard_http_requests_total",
			Help: "HTTP requests by route and status code",
		},
		[]string{"method", "route", "status"},
	)
	OTPIssued = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskboard_otp_issued_total",
			Help: "One-time codes issued by purpose",
		},
		[]string{"purpose"},
	)
	OTPVerifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskboard_otp_verifications_total",
			Help: "One-time code checks by purpose and result",
		},
		[]string{"purpose", "result"},
	)
	Notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskboard_notifications_total",
			Help: "Notification deliveries by result (sent, failed, dropped)",
		},
		[]string{"result"},
	)
	RLRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limiter_requests_total",
			Help: "Total requests seen by the rate limiter",
		},
		[]string{"endpoint"},
	)
	RLBlocked = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limiter_blocked_total",
			Help: "Total requests blocked by the rate limiter",
		},
		[]string{"endpoint"},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequests)
	prometheus.MustRegister(OTPIssued)
	prometheus.MustRegister(OTPVerifications)
	prometheus.MustRegister(Notifications)
	prometheus.MustRegister(RLRequests)
	prometheus.MustRegister(RLBlocked)
}
