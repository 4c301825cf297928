package metrics

import "github.com/prometheus/client_golang/prometheus"

// Rejection reasons reported by the sales workflow.
const (
	ReasonInsufficientStock = "insufficient_stock"
	ReasonInvalidProduct    = "invalid_product"
	ReasonStoreError        = "store_error"
)

// SalesMetrics tracks recorded and rejected sales.
type SalesMetrics struct {
	recorded prometheus.Counter
	units    prometheus.Counter
	rejected *prometheus.CounterVec
}

// NewSalesMetrics registers the sales metrics on the provided registerer.
func NewSalesMetrics(reg prometheus.Registerer) *SalesMetrics {
	if reg == nil {
		return &SalesMetrics{}
	}
	recorded := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sales_recorded_total",
		Help:      "Sales committed to the store.",
	})
	units := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sales_units_total",
		Help:      "Product units taken out of stock by recorded sales.",
	})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sales_rejected_total",
		Help:      "Sales rolled back, by reason.",
	}, []string{"reason"})
	reg.MustRegister(recorded, units, rejected)
	return &SalesMetrics{recorded: recorded, units: units, rejected: rejected}
}

// Recorded counts a committed sale of quantity units.
func (s *SalesMetrics) Recorded(quantity int) {
	if s == nil || s.recorded == nil {
		return
	}
	s.recorded.Inc()
	if quantity > 0 {
		s.units.Add(float64(quantity))
	}
}

// Rejected counts a sale that did not commit.
func (s *SalesMetrics) Rejected(reason string) {
	if s == nil || s.rejected == nil {
		return
	}
	s.rejected.WithLabelValues(normalizeLabel(reason)).Inc()
}
