package telemetry

import "github.com/prometheus/client_golang/prometheus"

var (
	// MessagesPublished — опубликованные сообщения по exchange.
	MessagesPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "courier_messages_published_total",
			Help: "Total number of messages published to the broker",
		},
		[]string{"exchange"},
	)

	// PublishFailures — неудачные публикации по exchange.
	PublishFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "courier_publish_failures_total",
			Help: "Total number of failed broker publishes",
		},
		[]string{"exchange"},
	)

	// MessagesConsumed — обработанные сообщения по очереди и исходу
	// (delivered, requeued, discarded).
	MessagesConsumed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "courier_messages_consumed_total",
			Help: "Total number of consumed messages by outcome",
		},
		[]string{"queue", "outcome"},
	)

	// QuotaDenials — отказы по суточной квоте.
	QuotaDenials = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "courier_quota_denials_total",
			Help: "Total number of publishes denied by the daily quota",
		},
	)

	// BrokerReconnects — успешные переподключения к брокеру.
	BrokerReconnects = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "courier_broker_reconnects_total",
			Help: "Total number of successful broker reconnects",
		},
	)
)

func init() {
	prometheus.MustRegister(
		MessagesPublished,
		PublishFailures,
		MessagesConsumed,
		QuotaDenials,
		BrokerReconnects,
	)
}
