package custody

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/Trazabilidad-api/internal/domain"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/entity"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/repository"
)

// Ledger secuencia append-only de eventos de custodia por producto.
type Ledger struct {
	txRunner    TxRunner
	productRepo repository.ProductRepository
	eventRepo   repository.CustodyEventRepository
	now         func() time.Time
}

// NewLedger construye el ledger. Los repos se usan para lecturas fuera de transacción.
func NewLedger(txRunner TxRunner, productRepo repository.ProductRepository, eventRepo repository.CustodyEventRepository) *Ledger {
	return &Ledger{txRunner: txRunner, productRepo: productRepo, eventRepo: eventRepo, now: time.Now}
}

// TransferInput datos de una transferencia. FromOwnerID es la precondición del CAS:
// el propietario que el solicitante cree vigente.
type TransferInput struct {
	ProductID   string
	FromOwnerID string
	ToOwnerID   string
	EvidenceRef string
	Status      entity.ProductStatus
	Note        string
	CreatedBy   string
}

// AppendTransfer es un compare-and-swap sobre el propietario actual: bloquea la fila del producto,
// compara con FromOwnerID, inserta el evento siguiente y actualiza la vista materializada,
// todo en una transacción. Si otro traspaso confirmó antes devuelve domain.ErrStaleOwner.
func (l *Ledger) AppendTransfer(ctx context.Context, in TransferInput) (*entity.CustodyEvent, error) {
	if in.ProductID == "" || in.FromOwnerID == "" || in.ToOwnerID == "" {
		return nil, fmt.Errorf("%w: producto, origen y destino son requeridos", domain.ErrInvalidInput)
	}
	if in.FromOwnerID == in.ToOwnerID {
		return nil, fmt.Errorf("%w: origen y destino son el mismo propietario", domain.ErrInvalidInput)
	}
	if in.EvidenceRef == "" {
		return nil, fmt.Errorf("%w: la transferencia requiere evidencia", domain.ErrInvalidInput)
	}
	if in.Status == "" {
		in.Status = entity.StatusReceived
	}
	if in.Status != entity.StatusInTransit && in.Status != entity.StatusReceived {
		return nil, fmt.Errorf("%w: estado %q no válido para una transferencia", domain.ErrInvalidInput, in.Status)
	}
	// Un contexto cancelado no debe abrir la transacción.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var committed *entity.CustodyEvent
	err := l.txRunner.Run(ctx, func(productRepo repository.ProductRepository, eventRepo repository.CustodyEventRepository) error {
		product, err := productRepo.GetForUpdate(ctx, in.ProductID)
		if err != nil {
			return err
		}
		if product == nil {
			return fmt.Errorf("%w: producto %s", domain.ErrNotFound, in.ProductID)
		}
		if product.CurrentOwnerID != in.FromOwnerID {
			return fmt.Errorf("%w: se esperaba %q pero el propietario es %q", domain.ErrStaleOwner, in.FromOwnerID, product.CurrentOwnerID)
		}
		last, err := eventRepo.Last(ctx, product.ID)
		if err != nil {
			return err
		}
		if last == nil || last.SequenceNumber != product.LastSequence || last.ToOwnerID != product.CurrentOwnerID {
			return fmt.Errorf("%w: el registro del producto %s no coincide con su último evento", domain.ErrBrokenChain, product.ID)
		}

		event := entity.NextTransferEvent(last, in.ToOwnerID, in.EvidenceRef, in.Status, in.Note, in.CreatedBy, l.now().UTC())
		if err := entity.ValidateSuccessor(last, event); err != nil {
			return err
		}
		if err := eventRepo.Append(ctx, event); err != nil {
			return err
		}
		prevSeq := product.LastSequence
		product.ApplyEvent(event)
		if err := productRepo.UpdateCustody(ctx, product, in.FromOwnerID, prevSeq); err != nil {
			return err
		}
		committed = event
		return nil
	})
	if err != nil {
		return nil, err
	}
	return committed, nil
}

// History devuelve el historial completo en orden ascendente. Sin escrituras intermedias,
// llamadas repetidas devuelven el mismo resultado.
func (l *Ledger) History(ctx context.Context, productID string) ([]*entity.CustodyEvent, error) {
	product, err := l.productRepo.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, fmt.Errorf("%w: producto %s", domain.ErrNotFound, productID)
	}
	events, err := l.eventRepo.ListByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("%w: el producto %s no tiene eventos", domain.ErrBrokenChain, productID)
	}
	return events, nil
}
