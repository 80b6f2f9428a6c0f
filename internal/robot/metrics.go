package robot

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	operationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bcap_operations_total",
			Help: "Robot operations attempted, by operation name and outcome",
		},
		[]string{"operation", "status"},
	)

	trajectoryPointsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bcap_trajectory_points_total",
			Help: "Trajectory points issued, by motion mode and outcome",
		},
		[]string{"mode", "status"},
	)
)

func recordOperation(operation string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	operationsTotal.WithLabelValues(operation, status).Inc()
}

func recordPoint(mode string, ok bool) {
	status := "success"
	if !ok {
		status = "failed"
	}
	trajectoryPointsTotal.WithLabelValues(mode, status).Inc()
}
