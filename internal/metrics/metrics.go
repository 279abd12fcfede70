package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ragserve_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"route", "status"})

	RateLimitDenied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ragserve_rate_limit_denied_total",
		Help: "Total number of requests denied by admission control",
	}, []string{"scope"})

	ChatStreams = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ragserve_chat_streams_total",
		Help: "Total number of chat streams by terminal status",
	}, []string{"status"})

	ChatStreamDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ragserve_chat_stream_duration_seconds",
		Help:    "Duration of chat streams end to end",
		Buckets: prometheus.DefBuckets,
	})

	CorpusSyncFiles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ragserve_corpus_sync_files_total",
		Help: "Corpus sync outcomes per file",
	}, []string{"result"})
)
