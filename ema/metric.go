package ema

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// ClientMetrics contains atomic counters for a robot client.
type ClientMetrics struct {
	// CommandSendCount indicates the number of commands sent.
	CommandSendCount atomic.Uint64
	// CommandDoneCount indicates the number of replies classified as success.
	CommandDoneCount atomic.Uint64
	// CommandFailCount indicates the number of fail replies.
	CommandFailCount atomic.Uint64
	// UnexpectedReplyCount indicates the number of replies not matching the expectation.
	UnexpectedReplyCount atomic.Uint64
	// TransportErrCount indicates the number of exchanges that did not produce a reply.
	TransportErrCount atomic.Uint64
}

func (m *ClientMetrics) incCommandSendCount()     { m.CommandSendCount.Add(1) }
func (m *ClientMetrics) incCommandDoneCount()     { m.CommandDoneCount.Add(1) }
func (m *ClientMetrics) incCommandFailCount()     { m.CommandFailCount.Add(1) }
func (m *ClientMetrics) incUnexpectedReplyCount() { m.UnexpectedReplyCount.Add(1) }
func (m *ClientMetrics) incTransportErrCount()    { m.TransportErrCount.Add(1) }

// Collectors returns one prometheus CounterFunc per counter, named ema_client_*.
func (m *ClientMetrics) Collectors() []prometheus.Collector {
	counter := func(name, help string, v *atomic.Uint64) prometheus.Collector {
		return prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: "ema",
			Subsystem: "client",
			Name:      name,
			Help:      help,
		}, func() float64 { return float64(v.Load()) })
	}

	return []prometheus.Collector{
		counter("commands_sent_total", "Commands sent to the robot controller.", &m.CommandSendCount),
		counter("commands_done_total", "Replies classified as success.", &m.CommandDoneCount),
		counter("commands_failed_total", "Replies carrying the fail result.", &m.CommandFailCount),
		counter("replies_unexpected_total", "Replies not matching the expected token.", &m.UnexpectedReplyCount),
		counter("transport_errors_total", "Exchanges that ended without a framed reply.", &m.TransportErrCount),
	}
}

// Register registers the counters with reg.
func (m *ClientMetrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}

	return nil
}
