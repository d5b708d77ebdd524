// Package metrics содержит prometheus-метрики сервиса активности.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry агрегирует метрики сервиса поверх собственного
// prometheus-реестра, чтобы не зависеть от глобального состояния.
type Registry struct {
	reg *prometheus.Registry

	fetches           *prometheus.CounterVec
	fetchDuration     *prometheus.HistogramVec
	documentReachable prometheus.Gauge
}

// NewRegistry создаёт и регистрирует метрики сервиса.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	fetches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "activity_fetches_total",
		Help: "Число сборок истории активности по режиму хранения и результату.",
	}, []string{"mode", "result"})

	fetchDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "activity_fetch_duration_seconds",
		Help:    "Длительность сборки истории активности.",
		Buckets: prometheus.DefBuckets,
	}, []string{"mode"})

	documentReachable := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "activity_document_store_reachable",
		Help: "1, если активен документный бэкенд, 0 — файловый снапшот.",
	})

	reg.MustRegister(fetches, fetchDuration, documentReachable)

	return &Registry{
		reg:               reg,
		fetches:           fetches,
		fetchDuration:     fetchDuration,
		documentReachable: documentReachable,
	}
}

// ObserveFetch фиксирует одну сборку истории.
func (r *Registry) ObserveFetch(mode, result string, d time.Duration) {
	r.fetches.WithLabelValues(mode, result).Inc()
	r.fetchDuration.WithLabelValues(mode).Observe(d.Seconds())
}

// SetDocumentReachable отражает активный бэкенд на момент запроса.
func (r *Registry) SetDocumentReachable(ok bool) {
	if ok {
		r.documentReachable.Set(1)
		return
	}
	r.documentReachable.Set(0)
}

// Handler возвращает HTTP-обработчик выдачи метрик.
func (r *Registry) Handler() http.Handler {
	// сжатие отдаёт внешний gzip-middleware
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{DisableCompression: true})
}
