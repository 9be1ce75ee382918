package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	MessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notify_messages_total",
			Help: "Ledger rows written by status and channel",
		},
		[]string{"status", "channel"}, // sent|invalid_address|... , sms|telegram
	)

	CampaignsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notify_campaigns_total",
			Help: "Dispatch attempts by channel and outcome",
		},
		[]string{"channel", "outcome"}, // committed|send_failed|error
	)

	GatewayBalance = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "notify_gateway_balance",
			Help: "Remaining SMS gateway credits, refreshed periodically",
		},
	)
)

func MustRegister(r prometheus.Registerer) {
	r.MustRegister(
		MessagesTotal,
		CampaignsTotal,
		GatewayBalance,
	)
}
