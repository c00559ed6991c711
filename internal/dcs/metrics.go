package dcs

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	dispatchTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fleetgrid",
		Subsystem: "dispatch",
		Name:      "commands_total",
		Help:      "Commands relayed to server command channels, by result code.",
	}, []string{"server", "result"})

	unassignedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fleetgrid",
		Subsystem: "resolver",
		Name:      "unassigned_total",
		Help:      "Sightings of modem ids that resolved to no device.",
	}, []string{"server"})

	connectionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fleetgrid",
		Subsystem: "listener",
		Name:      "connections_total",
		Help:      "Accepted command channel connections.",
	}, []string{"server"})
)

// RegisterMetrics registers the package's collectors. Safe to call more
// than once against the same registerer.
func RegisterMetrics(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{dispatchTotal, unassignedTotal, connectionsTotal} {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	return nil
}

func observeDispatch(server, result string) {
	if result == "" {
		result = ResultSuccess.Code()
	}
	dispatchTotal.WithLabelValues(server, result).Inc()
}

func observeUnassigned(server string) {
	unassignedTotal.WithLabelValues(server).Inc()
}

func observeConnection(server string) {
	connectionsTotal.WithLabelValues(server).Inc()
}
