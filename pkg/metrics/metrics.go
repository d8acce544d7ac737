package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	reg *prometheus.Registry

	FixesAccepted *prometheus.CounterVec // path label: request|stream
	FixesRejected *prometheus.CounterVec

	Deliveries       prometheus.Counter
	DeliveryFailures prometheus.Counter

	ActiveConnections prometheus.Gauge

	TripsStarted prometheus.Counter

	ScheduleTrips   prometheus.Gauge
	ScheduleSkipped prometheus.Gauge
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		FixesAccepted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tracker_fixes_accepted_total",
			Help: "Location fixes stored.",
		}, []string{"path"}),
		FixesRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tracker_fixes_rejected_total",
			Help: "Location fixes rejected by validation.",
		}, []string{"path"}),
		Deliveries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracker_broadcast_deliveries_total",
			Help: "Updates handed to observers.",
		}),
		DeliveryFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracker_broadcast_delivery_failures_total",
			Help: "Updates that could not be handed to an observer.",
		}),
		ActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tracker_active_connections",
			Help: "Open observer connections.",
		}),
		TripsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracker_trips_started_total",
			Help: "Trips started.",
		}),
		ScheduleTrips: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tracker_schedule_trips",
			Help: "Trips in the most recent schedule load.",
		}),
		ScheduleSkipped: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tracker_schedule_skipped_records",
			Help: "Records skipped in the most recent schedule load.",
		}),
	}

	reg.MustRegister(
		c.FixesAccepted, c.FixesRejected,
		c.Deliveries, c.DeliveryFailures,
		c.ActiveConnections, c.TripsStarted,
		c.ScheduleTrips, c.ScheduleSkipped,
	)

	return c
}

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

func (c *Collector) FixAccepted(path string) { c.FixesAccepted.WithLabelValues(path).Inc() }

func (c *Collector) FixRejected(path string) { c.FixesRejected.WithLabelValues(path).Inc() }

func (c *Collector) Delivered(count int) { c.Deliveries.Add(float64(count)) }

func (c *Collector) DeliveryFailed(count int) { c.DeliveryFailures.Add(float64(count)) }

func (c *Collector) TripStarted() { c.TripsStarted.Inc() }

func (c *Collector) ConnectionOpened() { c.ActiveConnections.Inc() }

func (c *Collector) ConnectionClosed() { c.ActiveConnections.Dec() }

func (c *Collector) ScheduleLoaded(trips int, skipped int) {
	c.ScheduleTrips.Set(float64(trips))
	c.ScheduleSkipped.Set(float64(skipped))
}
