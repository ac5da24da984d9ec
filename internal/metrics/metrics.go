// Package metrics holds the Prometheus collectors of the API process.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics methods are safe on a nil receiver.
type Metrics struct {
	reg *prometheus.Registry

	RequestCounter  *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	OpenChannels    *prometheus.GaugeVec
	StreamEvents    *prometheus.CounterVec
	TokensIssued    *prometheus.CounterVec
	Transcriptions  *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		RequestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"method", "endpoint"},
		),
		OpenChannels: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "interview_stream_channels_open",
				Help: "Open interview stream channels",
			},
			[]string{"transport"},
		),
		StreamEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "interview_stream_events_total",
				Help: "Events delivered on interview stream channels",
			},
			[]string{"transport", "type"},
		),
		TokensIssued: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "interview_ephemeral_tokens_total",
				Help: "Ephemeral token requests by outcome",
			},
			[]string{"outcome"},
		),
		Transcriptions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "interview_transcriptions_total",
				Help: "Audio transcription jobs by outcome",
			},
			[]string{"outcome"},
		),
	}
	m.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.RequestCounter,
		m.RequestDuration,
		m.OpenChannels,
		m.StreamEvents,
		m.TokensIssued,
		m.Transcriptions,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

func (m *Metrics) ChannelOpened(transport string) {
	if m != nil {
		m.OpenChannels.WithLabelValues(transport).Inc()
	}
}

func (m *Metrics) ChannelClosed(transport string) {
	if m != nil {
		m.OpenChannels.WithLabelValues(transport).Dec()
	}
}

func (m *Metrics) StreamEvent(transport, typ string) {
	if m != nil {
		m.StreamEvents.WithLabelValues(transport, typ).Inc()
	}
}

func (m *Metrics) TokenIssued(outcome string) {
	if m != nil {
		m.TokensIssued.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) Transcription(outcome string) {
	if m != nil {
		m.Transcriptions.WithLabelValues(outcome).Inc()
	}
}
