package repository

import (
	"context"

	"github.com/jhoicas/Trazabilidad-api/internal/domain/entity"
)

// CustodyEventRepository puerto del ledger de custodia. Solo admite inserciones.
type CustodyEventRepository interface {
	// Append inserta un evento. Devuelve domain.ErrStaleOwner si ya existe ese
	// (product_id, sequence_number): otra transferencia confirmó primero.
	Append(ctx context.Context, event *entity.CustodyEvent) error
	// Last devuelve el evento de mayor secuencia o (nil, nil) si no hay eventos.
	Last(ctx context.Context, productID string) (*entity.CustodyEvent, error)
	// ListByProduct devuelve todos los eventos en orden ascendente de secuencia.
	ListByProduct(ctx context.Context, productID string) ([]*entity.CustodyEvent, error)
}
