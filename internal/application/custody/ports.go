package custody

import (
	"context"

	"github.com/jhoicas/Trazabilidad-api/internal/domain/entity"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Si fn devuelve error se hace Rollback completo: ningún CustodyEvent parcial es observable.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		productRepo repository.ProductRepository,
		eventRepo repository.CustodyEventRepository,
	) error) error
}

// Evidence imagen subida como prueba de una entrega física. El núcleo no inspecciona su contenido.
type Evidence struct {
	Data        []byte
	ContentType string
	Filename    string
}

// EvidenceStore almacena bytes y devuelve una referencia durable (URI o clave).
// Los errores se reportan como domain.ErrStorageFailure por el servicio.
type EvidenceStore interface {
	Store(ctx context.Context, ev Evidence) (string, error)
}

// EvidenceReader recupera una evidencia por la referencia que devolvió Store.
// Devuelve domain.ErrNotFound si la referencia no existe en el almacenamiento.
type EvidenceReader interface {
	Fetch(ctx context.Context, ref string) (*Evidence, error)
}

// OwnerDirectory permite verificar que el destinatario de una transferencia existe.
type OwnerDirectory interface {
	OwnerExists(ctx context.Context, ownerID string) (bool, error)
}

// ReportRenderer genera el certificado de custodia (PDF) de un producto.
type ReportRenderer interface {
	RenderCustodyReport(ctx context.Context, product *entity.Product, events []*entity.CustodyEvent) ([]byte, error)
}

// Recorder recibe eventos de negocio para métricas. Lo implementa *metrics.Metrics.
type Recorder interface {
	ProductCreated()
	TransferCommitted()
	TransferConflict()
	EvidenceStored(ok bool)
}

type nopRecorder struct{}

func (nopRecorder) ProductCreated()     {}
func (nopRecorder) TransferCommitted()  {}
func (nopRecorder) TransferConflict()   {}
func (nopRecorder) EvidenceStored(bool) {}
