package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Connections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ws_active_connections",
		Help: "Active websocket connections",
	})

	OnlineUsers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "presence_online_users",
		Help: "Users with a registered websocket connection",
	})

	Pushes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_push_total",
		Help: "Live pushes by result (delivered, offline, dropped)",
	}, []string{"result"})

	MessagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_messages_sent_total",
		Help: "Messages persisted through the router",
	})

	AttachmentsStored = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_attachments_stored_total",
		Help: "Attachments written to blob storage by kind",
	}, []string{"kind"})
)

// Handler returns an http.Handler for Prometheus scraping
func Handler() http.Handler {
	return promhttp.Handler()
}
