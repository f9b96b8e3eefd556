package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var groupOpsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "lunchpool_group_operations_total",
		Help: "Successful group mutations by operation.",
	},
	[]string{"op"},
)
