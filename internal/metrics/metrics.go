package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "clinica"

// Collector agrupa as métricas da API. Cada instância tem o próprio
// registry, então testes podem criar quantas quiserem.
type Collector struct {
	registry *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	InFlightGauge   prometheus.Gauge

	PatientsCreatedTotal   prometheus.Counter
	PatientTransitions     *prometheus.CounterVec
	ConsultationsCompleted *prometheus.CounterVec
	ProceduresCreatedTotal prometheus.Counter
	LoginAttempts          *prometheus.CounterVec
	UploadsTotal           *prometheus.CounterVec
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,

		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Requisições HTTP por método, rota e status.",
		}, []string{"method", "route", "status"}),

		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Latência das requisições HTTP.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"method", "route", "status"}),

		InFlightGauge: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Requisições HTTP em andamento.",
		}),

		PatientsCreatedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "clinical",
			Name:      "patients_created_total",
			Help:      "Pacientes cadastrados.",
		}),

		PatientTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "clinical",
			Name:      "patient_transitions_total",
			Help:      "Mudanças de ciclo de vida do paciente (desativação, reativação, cadastro completo).",
		}, []string{"transition"}),

		ConsultationsCompleted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "clinical",
			Name:      "consultations_completed_total",
			Help:      "Consultas concluídas por desfecho.",
		}, []string{"outcome"}),

		ProceduresCreatedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "clinical",
			Name:      "procedures_created_total",
			Help:      "Procedimentos registrados.",
		}),

		LoginAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "login_attempts_total",
			Help:      "Tentativas de login por resultado.",
		}, []string{"result"}),

		UploadsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "uploads_total",
			Help:      "Uploads de fotos e arquivos por resultado.",
		}, []string{"kind", "result"}),
	}
}

// RegisterPoolStats expõe o número de conexões do pool.
func (c *Collector) RegisterPoolStats(total, idle func() int32) {
	c.registry.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "open_connections",
			Help:      "Conexões abertas no pool do Postgres.",
		}, func() float64 { return float64(total()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "idle_connections",
			Help:      "Conexões ociosas no pool do Postgres.",
		}, func() float64 { return float64(idle()) }),
	)
}

// Handler publica o registry no formato do Prometheus.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

func (c *Collector) PatientCreated() {
	c.PatientsCreatedTotal.Inc()
}

func (c *Collector) PatientTransition(transition string) {
	c.PatientTransitions.WithLabelValues(transition).Inc()
}

func (c *Collector) ConsultationCompleted(outcome string) {
	c.ConsultationsCompleted.WithLabelValues(outcome).Inc()
}

func (c *Collector) ProcedureCreated() {
	c.ProceduresCreatedTotal.Inc()
}

func (c *Collector) LoginAttempt(result string) {
	c.LoginAttempts.WithLabelValues(result).Inc()
}

func (c *Collector) Upload(kind string, ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	c.UploadsTotal.WithLabelValues(kind, result).Inc()
}
