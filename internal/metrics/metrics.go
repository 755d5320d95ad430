// Package metrics holds the Prometheus collectors for the charge point
// client. Collectors are package-level and registered through promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FramesSent counts outbound OCPP frames, labeled by message type and action.
	FramesSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chargepoint_frames_sent_total",
		Help: "Total number of OCPP frames sent to the central system.",
	}, []string{"message_type", "action"})

	// FramesReceived counts inbound OCPP frames, labeled by message type and action.
	FramesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chargepoint_frames_received_total",
		Help: "Total number of OCPP frames received from the central system.",
	}, []string{"message_type", "action"})

	// PendingCalls tracks the number of outbound CALLs awaiting a reply.
	PendingCalls = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chargepoint_pending_calls",
		Help: "Number of outbound CALLs without a matching CALLRESULT or CALLERROR.",
	})

	// CallTimeouts counts pending calls dropped after the reply timeout.
	CallTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chargepoint_call_timeouts_total",
		Help: "Total number of outbound CALLs that never received a reply.",
	})

	// HeartbeatsSent counts heartbeat CALLs fired by the scheduler.
	HeartbeatsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chargepoint_heartbeats_sent_total",
		Help: "Total number of Heartbeat CALLs sent.",
	})

	// TransactionsStarted counts StartTransaction CALLs sent.
	TransactionsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chargepoint_transactions_started_total",
		Help: "Total number of StartTransaction CALLs sent.",
	})

	// TransactionsStopped counts StopTransaction CALLs sent.
	TransactionsStopped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chargepoint_transactions_stopped_total",
		Help: "Total number of StopTransaction CALLs sent.",
	})

	// ProtocolErrors counts malformed or unroutable inbound frames.
	ProtocolErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chargepoint_protocol_errors_total",
		Help: "Total number of inbound frames that could not be decoded or routed.",
	})
)
