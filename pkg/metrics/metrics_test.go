package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Contadores(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ProductCreated()
	m.TransferCommitted()
	m.TransferCommitted()
	m.TransferConflict()
	m.EvidenceStored(true)
	m.EvidenceStored(false)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ProductsCreated))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Transfers.WithLabelValues("committed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Transfers.WithLabelValues("conflict")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EvidenceUploads.WithLabelValues("error")))
}

func TestNew_RegistrosIndependientes(t *testing.T) {
	assert.NotPanics(t, func() {
		New(prometheus.NewRegistry())
		New(prometheus.NewRegistry())
	})
}
