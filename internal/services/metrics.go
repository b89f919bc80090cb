package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	imageUploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imagevault_image_uploads_total",
			Help: "Image upload attempts by outcome.",
		},
		[]string{"result"},
	)

	uploadedBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "imagevault_uploaded_bytes_total",
		Help: "Bytes written to blob storage for accepted uploads.",
	})

	orphanCleanupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imagevault_orphan_cleanups_total",
			Help: "Compensating deletes of stored files after a failed upload.",
		},
		[]string{"result"},
	)

	suggestionCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "imagevault_suggestion_cache_hits_total",
		Help: "Suggestion lookups served from the in-memory cache.",
	})

	suggestionCacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "imagevault_suggestion_cache_misses_total",
		Help: "Suggestion lookups that had to query the store.",
	})
)
