package metric

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/securestore-go/internal/core/service"
)

// StatsSource reports engine statistics.
type StatsSource interface {
	Stats(ctx context.Context) (service.Stats, error)
}

// Collector samples engine statistics on every scrape.
type Collector struct {
	source  StatsSource
	timeout time.Duration

	total     *prometheus.Desc
	encrypted *prometheus.Desc
	expired   *prometheus.Desc
	used      *prometheus.Desc
	score     *prometheus.Desc
	up        *prometheus.Desc
}

// NewCollector creates a collector over source. Each scrape is bounded
// by timeout (default 5s).
func NewCollector(source StatsSource, timeout time.Duration) *Collector {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "entries", name), help, nil, nil)
	}
	return &Collector{
		source:    source,
		timeout:   timeout,
		total:     desc("total", "Entries in the engine namespace."),
		encrypted: desc("encrypted", "Entries stored with an encrypted payload."),
		expired:   desc("expired", "Entries past their expiry not yet removed."),
		used:      desc("used_bytes", "Space used by stored entries."),
		score:     desc("security_score", "Percentage of entries that are encrypted."),
		up: prometheus.NewDesc(prometheus.BuildFQName(namespace, "stats", "up"),
			"Whether the last statistics sample succeeded.", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.total
	ch <- c.encrypted
	ch <- c.expired
	ch <- c.used
	ch <- c.score
	ch <- c.up
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	st, err := c.source.Stats(ctx)
	if err != nil {
		ch <- prometheus.MustNewConstMetric(c.up, prometheus.GaugeValue, 0)
		return
	}

	ch <- prometheus.MustNewConstMetric(c.up, prometheus.GaugeValue, 1)
	ch <- prometheus.MustNewConstMetric(c.total, prometheus.GaugeValue, float64(st.TotalEntries))
	ch <- prometheus.MustNewConstMetric(c.encrypted, prometheus.GaugeValue, float64(st.EncryptedEntries))
	ch <- prometheus.MustNewConstMetric(c.expired, prometheus.GaugeValue, float64(st.ExpiredEntries))
	ch <- prometheus.MustNewConstMetric(c.used, prometheus.GaugeValue, float64(st.UsedSpaceBytes))
	ch <- prometheus.MustNewConstMetric(c.score, prometheus.GaugeValue, float64(st.SecurityScore))
}
