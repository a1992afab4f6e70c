package crawler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	crawlPagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sitechat",
			Name:      "crawl_pages_total",
			Help:      "Total pages processed during crawls",
		},
		[]string{"status"},
	)

	fetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "sitechat",
			Name:      "fetch_duration_seconds",
			Help:      "Duration of page fetches in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		},
	)
)
