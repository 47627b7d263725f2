package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	AuthLoginsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_logins_total",
			Help: "Total number of password login attempts.",
		},
		[]string{"result"},
	)

	AuthInvitationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_invitations_total",
			Help: "Total number of invitations created or resent.",
		},
		[]string{"role", "result"},
	)

	MFAVerificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_mfa_verifications_total",
			Help: "Total number of second-factor verifications.",
		},
		[]string{"method", "flow", "result"},
	)

	PasskeyCeremoniesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_passkey_ceremonies_total",
			Help: "Total number of completed passkey ceremonies.",
		},
		[]string{"ceremony", "result"},
	)

	TokensIssuedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_tokens_issued_total",
			Help: "Total number of bearer tokens issued.",
		},
		[]string{"result"},
	)
)

// MustRegister registers every collector on the default registry with a
// constant service label.
func MustRegister(serviceName string) {
	reg := prometheus.WrapRegistererWith(prometheus.Labels{"service": serviceName}, prometheus.DefaultRegisterer)
	reg.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDurationSeconds,
		AuthLoginsTotal,
		AuthInvitationsTotal,
		MFAVerificationsTotal,
		PasskeyCeremoniesTotal,
		TokensIssuedTotal,
	)
}

func Result(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
