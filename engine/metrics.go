package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	superstepCnt = promauto.NewCounter(prometheus.CounterOpts{
		Name: "drava_supersteps_total",
		Help: "The total number of executed supersteps.",
	})

	activeVerticesGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "drava_active_vertices",
		Help: "The number of vertices that ran compute in the last superstep.",
	})

	sentMessagesCnt = promauto.NewCounter(prometheus.CounterOpts{
		Name: "drava_sent_messages_total",
		Help: "The total number of messages produced by compute invocations, counted before combining.",
	})

	checkpointDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "drava_checkpoint_write_duration_seconds",
		Help: "The time taken to persist a checkpoint of the locally owned partitions.",
	})
)

func observeSuperstep(stats SuperstepStats) {
	superstepCnt.Inc()
	activeVerticesGauge.Set(float64(stats.Active))
	sentMessagesCnt.Add(float64(stats.Sent))
}
