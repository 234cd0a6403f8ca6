package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "papertrade_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "papertrade_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Business metrics
	OrdersPlacedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "papertrade_orders_placed_total",
			Help: "Total number of orders accepted by the validator",
		},
		[]string{"kind", "side"},
	)

	OrdersExecutedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "papertrade_orders_executed_total",
			Help: "Total number of order executions by terminal status",
		},
		[]string{"side", "status"},
	)

	OrderExecutionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "papertrade_order_execution_duration_seconds",
			Help:    "Order execution duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
		},
	)

	OrderNotionalAmount = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "papertrade_order_notional_usd",
			Help:    "Executed order notional value in USD",
			Buckets: []float64{1, 10, 50, 100, 500, 1000, 5000, 10000},
		},
		[]string{"side"},
	)

	PortfolioValuationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "papertrade_portfolio_valuations_total",
			Help: "Total number of portfolio valuation refreshes",
		},
	)

	PriceTicksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "papertrade_price_ticks_total",
			Help: "Total number of market price tick runs",
		},
	)

	// System metrics
	DatabaseConnectionsGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "papertrade_database_connections",
			Help: "Number of database connections",
		},
		[]string{"state"}, // open, idle, in_use
	)

	WebsocketClientsGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "papertrade_websocket_clients",
			Help: "Number of connected websocket clients",
		},
	)
)
