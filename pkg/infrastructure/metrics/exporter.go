package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/WangYihang/Sitemap-Generator/pkg/domain/entity"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

const namespace = "sitemap_generator"

// Collector exports run events and metric snapshots to Prometheus
type Collector struct {
	registry *prometheus.Registry

	Events      *prometheus.CounterVec
	Errors      *prometheus.CounterVec
	Fetched     prometheus.Gauge
	FetchErrors prometheus.Gauge
	Pending     prometheus.Gauge
	Frontier    prometheus.Gauge
	InFlight    prometheus.Gauge
	MaxDepth    prometheus.Gauge
}

// NewCollector creates a collector with its own registry
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Run events by type",
		}, []string{"type"}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Per-URL errors by status code",
		}, []string{"code"}),
		Fetched: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "fetched_pages",
			Help:      "Pages fetched by the crawler in the current run",
		}),
		FetchErrors: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "fetch_errors",
			Help:      "Failed fetches in the current run",
		}),
		Pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_pages",
			Help:      "Fetched pages waiting for the scheduler",
		}),
		Frontier: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "frontier_urls",
			Help:      "URLs waiting to be fetched",
		}),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "in_flight_pages",
			Help:      "Pages being accepted",
		}),
		MaxDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "max_observed_depth",
			Help:      "Deepest dispatched page",
		}),
	}
	c.registry.MustRegister(
		c.Events, c.Errors,
		c.Fetched, c.FetchErrors,
		c.Pending, c.Frontier, c.InFlight, c.MaxDepth,
	)
	return c
}

// OnEvent counts a run event
func (c *Collector) OnEvent(event *entity.Event) {
	c.Events.WithLabelValues(event.Type.String()).Inc()
	if event.Type == entity.EventError && event.Error != nil {
		c.Errors.WithLabelValues(strconv.Itoa(event.Error.Code)).Inc()
	}
}

// OnMetricsUpdate mirrors a metrics snapshot into the gauges
func (c *Collector) OnMetricsUpdate(m *entity.Metrics) {
	c.Fetched.Set(float64(m.Fetched))
	c.FetchErrors.Set(float64(m.FetchErrors))
	c.Pending.Set(float64(m.PendingLength))
	c.Frontier.Set(float64(m.FrontierLength))
	c.InFlight.Set(float64(m.InFlight))
	c.MaxDepth.Set(float64(m.MaxDepth))
}

// AddURL is a no-op; added URLs are counted through OnEvent
func (c *Collector) AddURL(string) {}

// Handler returns the /metrics handler of the collector registry
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done
func (c *Collector) Serve(ctx context.Context, addr string, logger logrus.FieldLogger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	logger.WithField("addr", addr).Info("serving prometheus metrics")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
