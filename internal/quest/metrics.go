package quest

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts quest activity. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	evaluations   *prometheus.CounterVec
	missionChecks *prometheus.CounterVec
	distributions *prometheus.CounterVec
	executions    *prometheus.CounterVec
}

// NewMetrics creates the quest counters and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dquest",
			Name:      "evaluations_total",
			Help:      "Formula evaluations by result (true, false, error).",
		}, []string{"result"}),
		missionChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dquest",
			Name:      "mission_checks_total",
			Help:      "Mission validations by source (cache, handler) and result.",
		}, []string{"source", "result"}),
		distributions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dquest",
			Name:      "distributions_total",
			Help:      "Distribution passes by result (ok, error).",
		}, []string{"result"}),
		executions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dquest",
			Name:      "outcome_executions_total",
			Help:      "Executed outcomes by selector.",
		}, []string{"selector"}),
	}
	reg.MustRegister(m.evaluations, m.missionChecks, m.distributions, m.executions)
	return m
}

func (m *Metrics) evaluated(ok bool, err error) {
	if m == nil {
		return
	}
	m.evaluations.WithLabelValues(resultLabel(ok, err)).Inc()
}

func (m *Metrics) missionChecked(source string, ok bool, err error) {
	if m == nil {
		return
	}
	m.missionChecks.WithLabelValues(source, resultLabel(ok, err)).Inc()
}

func (m *Metrics) distributed(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.distributions.WithLabelValues("error").Inc()
		return
	}
	m.distributions.WithLabelValues("ok").Inc()
}

func (m *Metrics) executed(selector string) {
	if m == nil {
		return
	}
	m.executions.WithLabelValues(selector).Inc()
}

func resultLabel(ok bool, err error) string {
	switch {
	case err != nil:
		return "error"
	case ok:
		return "true"
	default:
		return "false"
	}
}
