package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every gridshare collector plus the Go and process collectors.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	// OfferTransitions counts lifecycle operations by action and outcome.
	OfferTransitions = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gridshare",
		Name:      "offer_transitions_total",
		Help:      "Offer lifecycle operations by action and result.",
	}, []string{"action", "result"})

	// OfferSearches counts discovery queries by kind and outcome.
	OfferSearches = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gridshare",
		Name:      "offer_searches_total",
		Help:      "Offer searches by kind and result.",
	}, []string{"kind", "result"})

	// SearchResults observes how many offers a listing search returned.
	SearchResults = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: "gridshare",
		Name:      "offer_search_results",
		Help:      "Number of offers returned by listing searches.",
		Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100},
	})

	// UpstreamRequests counts calls to external providers.
	UpstreamRequests = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gridshare",
		Name:      "upstream_requests_total",
		Help:      "Requests to external providers by upstream and result.",
	}, []string{"upstream", "result"})

	// UpstreamLatency observes external call latency in seconds.
	UpstreamLatency = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "gridshare",
		Name:      "upstream_request_duration_seconds",
		Help:      "Latency of external provider calls.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"upstream"})

	// ElectricityPrice exposes the last polled price per jurisdiction in $/kWh.
	ElectricityPrice = factory.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "gridshare",
		Name:      "electricity_price_per_kwh",
		Help:      "Last polled electricity price per jurisdiction.",
	}, []string{"jurisdiction"})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Handler serves the registry in the Prometheus text format.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(Registry, promhttp.HandlerOpts{}))
}

// Result maps an error to the "result" label value.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
