package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	EndringerUtfort     *prometheus.CounterVec
	FremtidigeEndringer prometheus.Counter
	AvvisteEndringer    prometheus.Counter
	StatusOppdateringer *prometheus.CounterVec
	ProgresjonVarighet  prometheus.Histogram
}

// New creates and registers all metrics on the given registerer. Tests pass a
// fresh registry to avoid duplicate registration.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		EndringerUtfort: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "deltakelse_endringer_utfort_total",
			Help: "Applied deltaker changes by change type",
		}, []string{"endringstype"}),
		FremtidigeEndringer: factory.NewCounter(prometheus.CounterOpts{
			Name: "deltakelse_fremtidige_endringer_total",
			Help: "Changes accepted for a future effective date",
		}),
		AvvisteEndringer: factory.NewCounter(prometheus.CounterOpts{
			Name: "deltakelse_avviste_endringer_total",
			Help: "Change requests rejected as no-ops",
		}),
		StatusOppdateringer: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "deltakelse_status_oppdateringer_total",
			Help: "Status transitions performed by the progression sweep, by new status",
		}, []string{"status"}),
		ProgresjonVarighet: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "deltakelse_progresjon_varighet_sekunder",
			Help:    "Duration of one progression sweep",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
