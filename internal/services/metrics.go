package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Domain metrics, exposed alongside the fiberprometheus HTTP metrics.
var (
	metricSubmissionsAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "uploade_submissions_accepted_total",
		Help: "Submissions that passed the full acceptance pipeline",
	})

	metricSubmissionsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "uploade_submissions_rejected_total",
		Help: "Submissions rejected, by pipeline stage",
	}, []string{"reason"})

	metricIndexEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "uploade_index_entries",
		Help: "Entries currently held in the index",
	})

	metricStorageBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "uploade_storage_bytes",
		Help: "Total rendered document bytes accepted",
	})

	metricModerationRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "uploade_moderation_rejections_total",
		Help: "Moderation rejections, by stage (scan or semantic)",
	}, []string{"stage"})

	metricSettlements = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "uploade_settlements_total",
		Help: "Settlement transfer attempts, by outcome",
	}, []string{"outcome"})
)
