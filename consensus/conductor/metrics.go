package conductor

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/guilledk/telos-works/consensus/ledger"
	"github.com/guilledk/telos-works/worksmachine"
)

type metrics struct {
	commands *prometheus.CounterVec
	duration prometheus.Histogram
	treasury *prometheus.GaugeVec
}

func newMetrics(promRegistry prometheus.Registerer) *metrics {
	promautoFactory := promauto.With(promRegistry)
	return &metrics{
		commands: promautoFactory.NewCounterVec(prometheus.CounterOpts{
			Name: "works_commands_total",
			Help: "commands handled by the conductor, by kind and result",
		}, []string{"kind", "result"}),
		duration: promautoFactory.NewHistogram(prometheus.HistogramOpts{
			Name:    "works_command_duration_seconds",
			Help:    "time spent handling one command including the wait for the handler lock",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		}),
		treasury: promautoFactory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "works_treasury_funds",
			Help: "treasury pools after the last committed command",
		}, []string{"pool"}),
	}
}

func (m *metrics) observe(kind int64, err error, took time.Duration) {
	m.commands.WithLabelValues(strconv.FormatInt(kind, 10), Result(err)).Inc()
	m.duration.Observe(took.Seconds())
}

func (m *metrics) observeTreasury(t ledger.Treasury) {
	for pool, a := range map[string]worksmachine.Asset{
		"available": t.Available,
		"reserved":  t.Reserved,
		"deposited": t.Deposited,
		"paid":      t.Paid,
	} {
		m.treasury.WithLabelValues(pool).Set(a.Decimal().InexactFloat64())
	}
}
