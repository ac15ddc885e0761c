package memory

import (
	"context"
	"fmt"

	"github.com/jhoicas/Trazabilidad-api/internal/domain"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/entity"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/repository"
)

var _ repository.CustodyEventRepository = (*EventRepo)(nil)

// EventRepo implementación en memoria del ledger (solo inserciones).
type EventRepo struct {
	s  *Store
	tx *txState
}

// Append inserta un evento; ErrStaleOwner si la secuencia ya está ocupada.
func (r *EventRepo) Append(_ context.Context, event *entity.CustodyEvent) error {
	var err error
	r.s.write(r.tx, func() {
		for _, ev := range r.all(event.ProductID) {
			if ev.SequenceNumber == event.SequenceNumber {
				err = fmt.Errorf("%w: secuencia %d ocupada en %s", domain.ErrStaleOwner, event.SequenceNumber, event.ProductID)
				return
			}
		}
		cp := cloneEvent(event)
		if r.tx != nil {
			r.tx.events = append(r.tx.events, cp)
			return
		}
		r.s.events[cp.ProductID] = append(r.s.events[cp.ProductID], cp)
	})
	return err
}

// Last devuelve el evento de mayor secuencia o (nil, nil).
func (r *EventRepo) Last(_ context.Context, productID string) (*entity.CustodyEvent, error) {
	var out *entity.CustodyEvent
	r.s.read(r.tx, func() {
		for _, ev := range r.all(productID) {
			if out == nil || ev.SequenceNumber > out.SequenceNumber {
				out = ev
			}
		}
	})
	return out, nil
}

// ListByProduct historial ascendente por secuencia.
func (r *EventRepo) ListByProduct(_ context.Context, productID string) ([]*entity.CustodyEvent, error) {
	var out []*entity.CustodyEvent
	r.s.read(r.tx, func() {
		out = r.all(productID)
		sortEvents(out)
	})
	return out, nil
}

// all copia los eventos confirmados más los pendientes de la tx.
func (r *EventRepo) all(productID string) []*entity.CustodyEvent {
	committed := r.s.events[productID]
	out := make([]*entity.CustodyEvent, 0, len(committed))
	for _, ev := range committed {
		out = append(out, cloneEvent(ev))
	}
	if r.tx != nil {
		for _, ev := range r.tx.events {
			if ev.ProductID == productID {
				out = append(out, cloneEvent(ev))
			}
		}
	}
	return out
}

// cloneEvent copia también los campos puntero para que nadie comparta el evento almacenado.
func cloneEvent(ev *entity.CustodyEvent) *entity.CustodyEvent {
	cp := *ev
	if ev.FromOwnerID != nil {
		from := *ev.FromOwnerID
		cp.FromOwnerID = &from
	}
	if ev.EvidenceRef != nil {
		ref := *ev.EvidenceRef
		cp.EvidenceRef = &ref
	}
	return &cp
}
