package chatbot

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	scrapesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sitechat",
			Name:      "scrapes_total",
			Help:      "Total website scrapes",
		},
		[]string{"status"},
	)

	questionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sitechat",
			Name:      "questions_total",
			Help:      "Total questions asked",
		},
		[]string{"status"},
	)

	generationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "sitechat",
			Name:      "generation_duration_seconds",
			Help:      "Duration of answer generation calls in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 8), // 250ms to ~32s
		},
	)

	indexChunks = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "sitechat",
			Name:      "index_chunks",
			Help:      "Number of chunks in the current relevance index",
		},
	)
)
