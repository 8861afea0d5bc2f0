package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every Prometheus collector of the runtime. It satisfies the
// narrow Metrics interfaces declared by each component.
type Metrics struct {
	DecisionsApplied    prometheus.Counter
	MeasurementEvents   prometheus.Counter
	AdaptersNotified    *prometheus.CounterVec
	DispatchStepsFailed *prometheus.CounterVec
	ScriptsReleased     *prometheus.CounterVec
	ModuleFetches       *prometheus.CounterVec
	SyncResults         *prometheus.CounterVec
	ConsentLogDropped   prometheus.Counter
	ConsentLogFailed    prometheus.Counter
	Boots               *prometheus.CounterVec
	ConsentsSaved       *prometheus.CounterVec
	ConsentLogsReceived *prometheus.CounterVec
	SyncRequests        *prometheus.CounterVec
}

// New creates the collectors and registers them with reg. Pass
// prometheus.NewRegistry() in tests to keep them isolated.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		DecisionsApplied: f.NewCounter(prometheus.CounterOpts{
			Name: "esbilla_decisions_applied_total",
			Help: "Consent decisions applied, fresh or replayed",
		}),
		MeasurementEvents: f.NewCounter(prometheus.CounterOpts{
			Name: "esbilla_measurement_events_total",
			Help: "Primary analytics measurement events emitted",
		}),
		AdaptersNotified: f.NewCounterVec(prometheus.CounterOpts{
			Name: "esbilla_adapters_notified_total",
			Help: "Vendor consent APIs notified, by adapter",
		}, []string{"adapter"}),
		DispatchStepsFailed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "esbilla_dispatch_steps_failed_total",
			Help: "Dispatch steps that failed or panicked, by step",
		}, []string{"step"}),
		ScriptsReleased: f.NewCounterVec(prometheus.CounterOpts{
			Name: "esbilla_scripts_released_total",
			Help: "Gated scripts released, by category",
		}, []string{"category"}),
		ModuleFetches: f.NewCounterVec(prometheus.CounterOpts{
			Name: "esbilla_module_fetches_total",
			Help: "Remote module fetch attempts, by result",
		}, []string{"result"}),
		SyncResults: f.NewCounterVec(prometheus.CounterOpts{
			Name: "esbilla_sync_total",
			Help: "Cross-domain sync handshakes, by outcome",
		}, []string{"outcome"}),
		ConsentLogDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "esbilla_consent_log_dropped_total",
			Help: "Consent log entries dropped because the queue was full or closed",
		}),
		ConsentLogFailed: f.NewCounter(prometheus.CounterOpts{
			Name: "esbilla_consent_log_failed_total",
			Help: "Consent log entries the backend never accepted",
		}),
		Boots: f.NewCounterVec(prometheus.CounterOpts{
			Name: "esbilla_boots_total",
			Help: "Boot sequences, by outcome",
		}, []string{"outcome"}),
		ConsentsSaved: f.NewCounterVec(prometheus.CounterOpts{
			Name: "esbilla_consents_saved_total",
			Help: "User decisions saved, by action",
		}, []string{"action"}),
		ConsentLogsReceived: f.NewCounterVec(prometheus.CounterOpts{
			Name: "esbilla_mockapi_consent_logs_total",
			Help: "Consent log entries received by the development backend, by action and client",
		}, []string{"action", "client"}),
		SyncRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "esbilla_mockapi_sync_requests_total",
			Help: "Sync handshakes served by the development backend, by whether a decision was returned",
		}, []string{"hit"}),
	}
}

func (m *Metrics) IncDecisionApplied()  { m.DecisionsApplied.Inc() }
func (m *Metrics) IncMeasurementEvent() { m.MeasurementEvents.Inc() }

func (m *Metrics) IncAdapterNotified(adapter string) {
	m.AdaptersNotified.WithLabelValues(adapter).Inc()
}

func (m *Metrics) IncDispatchStepFailed(step string) {
	m.DispatchStepsFailed.WithLabelValues(step).Inc()
}

func (m *Metrics) IncScriptsReleased(category string) {
	m.ScriptsReleased.WithLabelValues(category).Inc()
}

func (m *Metrics) IncModuleFetch(result string) {
	m.ModuleFetches.WithLabelValues(result).Inc()
}

func (m *Metrics) IncSync(outcome string) {
	m.SyncResults.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncConsentLogDropped() { m.ConsentLogDropped.Inc() }
func (m *Metrics) IncConsentLogFailed()  { m.ConsentLogFailed.Inc() }

func (m *Metrics) IncBoot(outcome string) {
	m.Boots.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncConsentSaved(action string) {
	m.ConsentsSaved.WithLabelValues(action).Inc()
}

func (m *Metrics) IncConsentLogReceived(action, client string) {
	m.ConsentLogsReceived.WithLabelValues(action, client).Inc()
}

func (m *Metrics) IncSyncRequest(hit bool) {
	m.SyncRequests.WithLabelValues(strconv.FormatBool(hit)).Inc()
}
