package authcore

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metric result labels.
const (
	resultSuccess = "success"
	resultFailure = "failure"
	resultLocked  = "locked"
	resultDenied  = "denied"
	resultAllowed = "allowed"
	resultRevoked = "revoked"
	resultInvalid = "invalid"
	resultError   = "error"
)

// Metrics holds the prometheus collectors for the auth core. A nil
// *Metrics is valid and counts nothing.
type Metrics struct {
	logins     *prometheus.CounterVec
	tokenCheck *prometheus.CounterVec
	permCheck  *prometheus.CounterVec
	lockouts   prometheus.Counter
}

// NewMetrics builds the collectors and registers them with reg when it is
// non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authcore_logins_total",
			Help: "Login attempts by result.",
		}, []string{"result"}),
		tokenCheck: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authcore_token_verifications_total",
			Help: "Token verifications by result.",
		}, []string{"result"}),
		permCheck: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authcore_permission_checks_total",
			Help: "Permission checks by result.",
		}, []string{"result"}),
		lockouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "authcore_lockouts_total",
			Help: "Login attempts rejected by the lockout window.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.logins, m.tokenCheck, m.permCheck, m.lockouts)
	}
	return m
}

func (m *Metrics) login(result string) {
	if m != nil {
		m.logins.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) tokenVerification(result string) {
	if m != nil {
		m.tokenCheck.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) permissionCheck(result string) {
	if m != nil {
		m.permCheck.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) lockout() {
	if m != nil {
		m.lockouts.Inc()
	}
}
