package repository

import (
	"context"

	"github.com/jhoicas/Trazabilidad-api/internal/domain/entity"
)

// ProductRepository define el puerto de persistencia para Product (DIP).
// Los métodos Get* devuelven (nil, nil) cuando el producto no existe.
type ProductRepository interface {
	// Create persiste un producto nuevo. Devuelve domain.ErrDuplicate si el barcode ya existe.
	Create(ctx context.Context, product *entity.Product) error
	GetByID(ctx context.Context, id string) (*entity.Product, error)
	GetByBarcode(ctx context.Context, barcode string) (*entity.Product, error)
	// GetForUpdate lee y bloquea la fila hasta el fin de la transacción (SELECT FOR UPDATE).
	GetForUpdate(ctx context.Context, id string) (*entity.Product, error)
	// UpdateCustody escribe la vista materializada solo si el propietario y la secuencia
	// siguen siendo expectedOwnerID y expectedSeq; si no, devuelve domain.ErrStaleOwner.
	UpdateCustody(ctx context.Context, product *entity.Product, expectedOwnerID string, expectedSeq int64) error
	List(ctx context.Context, limit, offset int) ([]*entity.Product, error)
	Count(ctx context.Context) (int, error)
}
