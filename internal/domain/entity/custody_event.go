package entity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/Trazabilidad-api/internal/domain"
)

// Tipos de evento de custodia.
const (
	EventKindCreation = "creation"
	EventKindTransfer = "transfer"
)

// FirstSequence número de secuencia del evento de creación.
const FirstSequence int64 = 0

// CustodyEvent entrada inmutable del historial de un producto.
// Nunca se actualiza ni se borra; SequenceNumber es consecutivo por producto desde 0.
type CustodyEvent struct {
	ID             string
	ProductID      string
	SequenceNumber int64
	Kind           string
	FromOwnerID    *string // nil en creation
	ToOwnerID      string
	EvidenceRef    *string // obligatorio en transfer
	Status         ProductStatus
	Note           string
	CreatedBy      string
	Timestamp      time.Time
}

// From devuelve FromOwnerID o "" si es nil.
func (e *CustodyEvent) From() string {
	if e.FromOwnerID == nil {
		return ""
	}
	return *e.FromOwnerID
}

// Evidence devuelve EvidenceRef o "" si es nil.
func (e *CustodyEvent) Evidence() string {
	if e.EvidenceRef == nil {
		return ""
	}
	return *e.EvidenceRef
}

// NewCreationEvent construye el evento 0 de un producto recién creado.
func NewCreationEvent(productID, creatorID string, evidenceRef string, now time.Time) *CustodyEvent {
	ev := &CustodyEvent{
		ID:             uuid.New().String(),
		ProductID:      productID,
		SequenceNumber: FirstSequence,
		Kind:           EventKindCreation,
		ToOwnerID:      creatorID,
		Status:         StatusCreated,
		CreatedBy:      creatorID,
		Timestamp:      now,
	}
	if evidenceRef != "" {
		ev.EvidenceRef = &evidenceRef
	}
	return ev
}

// NextTransferEvent construye el evento que sigue a last: secuencia last+1 y origen last.ToOwnerID.
func NextTransferEvent(last *CustodyEvent, toOwnerID, evidenceRef string, status ProductStatus, note, createdBy string, now time.Time) *CustodyEvent {
	from := last.ToOwnerID
	ev := &CustodyEvent{
		ID:             uuid.New().String(),
		ProductID:      last.ProductID,
		SequenceNumber: last.SequenceNumber + 1,
		Kind:           EventKindTransfer,
		FromOwnerID:    &from,
		ToOwnerID:      toOwnerID,
		Status:         status,
		Note:           note,
		CreatedBy:      createdBy,
		Timestamp:      now,
	}
	if evidenceRef != "" {
		ev.EvidenceRef = &evidenceRef
	}
	return ev
}

// ValidateSuccessor verifica que next pueda seguir a last en la cadena de custodia.
// last == nil significa que next debe ser el evento de creación.
func ValidateSuccessor(last, next *CustodyEvent) error {
	if next.ToOwnerID == "" || !next.Status.Valid() {
		return fmt.Errorf("%w: evento sin destinatario o estado", domain.ErrInvalidInput)
	}
	if last == nil {
		if next.Kind != EventKindCreation || next.SequenceNumber != FirstSequence || next.FromOwnerID != nil {
			return fmt.Errorf("%w: el primer evento debe ser creation con secuencia %d", domain.ErrBrokenChain, FirstSequence)
		}
		return nil
	}
	if next.Kind != EventKindTransfer {
		return fmt.Errorf("%w: solo se admiten transferencias después de la creación", domain.ErrBrokenChain)
	}
	if next.ProductID != last.ProductID {
		return fmt.Errorf("%w: evento de otro producto", domain.ErrBrokenChain)
	}
	if next.SequenceNumber != last.SequenceNumber+1 {
		return fmt.Errorf("%w: secuencia %d después de %d", domain.ErrBrokenChain, next.SequenceNumber, last.SequenceNumber)
	}
	if next.From() != last.ToOwnerID {
		return fmt.Errorf("%w: origen %q no coincide con el último destinatario %q", domain.ErrBrokenChain, next.From(), last.ToOwnerID)
	}
	if next.Evidence() == "" {
		return fmt.Errorf("%w: la transferencia requiere evidencia", domain.ErrInvalidInput)
	}
	return nil
}

// ValidateChain verifica un historial completo (orden ascendente).
func ValidateChain(events []*CustodyEvent) error {
	var last *CustodyEvent
	for _, ev := range events {
		if err := ValidateSuccessor(last, ev); err != nil {
			return err
		}
		last = ev
	}
	return nil
}
