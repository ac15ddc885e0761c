package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contadores Prometheus de la trazabilidad.
type Metrics struct {
	ProductsCreated prometheus.Counter
	Transfers       *prometheus.CounterVec
	EvidenceUploads *prometheus.CounterVec
}

// New crea y registra las métricas en reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ProductsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "trazabilidad_products_created_total",
			Help: "Total de productos creados",
		}),
		Transfers: f.NewCounterVec(prometheus.CounterOpts{
			Name: "trazabilidad_transfers_total",
			Help: "Transferencias de custodia por resultado",
		}, []string{"result"}),
		EvidenceUploads: f.NewCounterVec(prometheus.CounterOpts{
			Name: "trazabilidad_evidence_uploads_total",
			Help: "Subidas de evidencia por resultado",
		}, []string{"result"}),
	}
}

// ProductCreated incrementa el contador de productos creados.
func (m *Metrics) ProductCreated() { m.ProductsCreated.Inc() }

// TransferCommitted cuenta una transferencia confirmada.
func (m *Metrics) TransferCommitted() { m.Transfers.WithLabelValues("committed").Inc() }

// TransferConflict cuenta una transferencia rechazada por propietario obsoleto.
func (m *Metrics) TransferConflict() { m.Transfers.WithLabelValues("conflict").Inc() }

// EvidenceStored cuenta una subida de evidencia.
func (m *Metrics) EvidenceStored(ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	m.EvidenceUploads.WithLabelValues(result).Inc()
}
