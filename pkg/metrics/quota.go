package metrics

import "github.com/prometheus/client_golang/prometheus"

// QuotaMetrics tracks receipt scan quota decisions.
type QuotaMetrics struct {
	scans    prometheus.Counter
	exceeded prometheus.Counter
}

func NewQuotaMetrics(reg prometheus.Registerer) *QuotaMetrics {
	if reg == nil {
		return &QuotaMetrics{}
	}
	scans := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "receipt_scans_total",
		Help:      "Receipt scans admitted by the quota tracker.",
	})
	exceeded := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "receipt_scan_quota_exceeded_total",
		Help:      "Receipt scan increments refused because the monthly quota was reached.",
	})
	reg.MustRegister(scans, exceeded)
	return &QuotaMetrics{scans: scans, exceeded: exceeded}
}

func (q *QuotaMetrics) IncScan() {
	if q == nil || q.scans == nil {
		return
	}
	q.scans.Inc()
}

func (q *QuotaMetrics) IncExceeded() {
	if q == nil || q.exceeded == nil {
		return
	}
	q.exceeded.Inc()
}
