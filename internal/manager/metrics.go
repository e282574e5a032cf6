package manager

import "github.com/prometheus/client_golang/prometheus"

var (
	readinessState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "modelgate",
			Subsystem: "readiness",
			Name:      "state",
			Help:      "1 for the current readiness state, 0 otherwise",
		},
		[]string{"state"},
	)

	launchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "modelgate",
			Subsystem: "daemon",
			Name:      "launches_total",
			Help:      "Daemon launch attempts by result",
		},
		[]string{"result"},
	)

	fetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "modelgate",
			Subsystem: "model",
			Name:      "fetches_total",
			Help:      "Model downloads by result",
		},
		[]string{"result"},
	)

	fetchInflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "modelgate",
			Subsystem: "model",
			Name:      "fetch_inflight",
			Help:      "Model downloads currently running",
		},
	)

	forwardsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "modelgate",
			Subsystem: "chat",
			Name:      "forwards_total",
			Help:      "Generate calls forwarded to the daemon by result",
		},
		[]string{"result"},
	)
)

var allStates = []State{StateUninitialized, StateDaemonStarting, StateModelMissing, StateModelDownloading, StateReady}

func init() {
	prometheus.MustRegister(readinessState, launchesTotal, fetchesTotal, fetchInflight, forwardsTotal)
}

func observeState(s State) {
	for _, st := range allStates {
		v := 0.0
		if st == s {
			v = 1
		}
		readinessState.WithLabelValues(string(st)).Set(v)
	}
}
